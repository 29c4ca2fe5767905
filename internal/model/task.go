package model

import "time"

// Task is one transfer from a chat source into the drive. UploadURL is fixed
// when the row is created; a task whose upload session dies has to fail.
type Task struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	CmdType          CmdType    `gorm:"type:varchar(16);not null" json:"cmd_type"`
	Filename         string     `gorm:"size:1024;not null" json:"filename"`
	RootPath         string     `gorm:"size:1024;not null" json:"root_path"`
	URL              *string    `gorm:"type:text" json:"url,omitempty"`
	UploadURL        string     `gorm:"type:text;not null" json:"-"`
	CurrentLength    int64      `gorm:"not null;default:0" json:"current_length"`
	TotalLength      int64      `gorm:"not null" json:"total_length"`
	ChatBotHex       string     `gorm:"type:text;not null" json:"-"`
	ChatUserHex      string     `gorm:"size:512;not null;index:idx_task_chat_user" json:"-"`
	ChatOriginHex    *string    `gorm:"type:text" json:"-"`
	MessageID        int        `gorm:"not null" json:"message_id"`
	MessageIDForward *int       `json:"message_id_forward,omitempty"`
	MessageIDOrigin  *int       `json:"message_id_origin,omitempty"`
	Status           TaskStatus `gorm:"type:varchar(16);not null;index:idx_task_status" json:"status"`
	Error            string     `gorm:"size:1024" json:"error,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// Progress returns the uploaded percentage.
func (t *Task) Progress() float64 {
	if t.TotalLength <= 0 {
		if t.Status == StatusCompleted {
			return 100
		}
		return 0
	}
	return 100 * float64(t.CurrentLength) / float64(t.TotalLength)
}

