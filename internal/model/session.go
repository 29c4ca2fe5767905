package model

import "time"

// Session is the stored credential bundle of one OneDrive user. At most one
// row has IsCurrent set.
type Session struct {
	Username            string    `gorm:"primaryKey;size:255" json:"username"`
	AccessToken         string    `gorm:"type:text;not null" json:"-"`
	RefreshToken        string    `gorm:"type:text;not null" json:"-"`
	ExpirationTimestamp int64     `gorm:"not null" json:"expiration_timestamp"`
	RootPath            string    `gorm:"size:1024" json:"root_path"`
	IsCurrent           bool      `gorm:"not null;default:false;index" json:"is_current"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string {
	return "onedrive_sessions"
}

// IsExpired reports whether the access token expired at now. It never
// touches the network.
func (s *Session) IsExpired(now time.Time) bool {
	return now.Unix() >= s.ExpirationTimestamp
}

func (s *Session) SetExpiration(now time.Time, expiresIn time.Duration) {
	s.ExpirationTimestamp = now.Add(expiresIn).Unix()
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
