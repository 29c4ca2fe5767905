package db

import (
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func GetCurrentSession() (*model.Session, error) {
	var s model.Session
	if err := db.Where("is_current = ?", true).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithStack(errs.SessionNotFound)
		}
		return nil, errs.NewPersistence(err, "failed find current session")
	}
	return &s, nil
}

func GetSessionByUsername(username string) (*model.Session, error) {
	var s model.Session
	if err := db.Where("username = ?", username).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(errs.UserNotFound, "user %s", username)
		}
		return nil, errs.NewPersistence(err, "failed find session of %s", username)
	}
	return &s, nil
}

// SaveSession inserts or replaces the session of s.Username. The current flag
// is left as stored; use SetCurrentUser to change it.
func SaveSession(s *model.Session) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expiration_timestamp", "root_path", "updated_at"}),
	}).Create(s).Error
	if err != nil {
		return errs.NewPersistence(err, "failed save session of %s", s.Username)
	}
	return nil
}

func SetCurrentUser(username string) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Session{}).Where("username = ?", username).Update("is_current", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.Wrapf(errs.UserNotFound, "user %s", username)
		}
		return tx.Model(&model.Session{}).Where("username <> ?", username).Update("is_current", false).Error
	})
	if err == nil || errors.Is(err, errs.UserNotFound) {
		return err
	}
	return errs.NewPersistence(err, "failed set current user %s", username)
}

// RemoveUser deletes username, or the current user when username is nil, and
// returns the session that is current afterwards. When the removed user was
// current the first remaining user by name is promoted. The removal is
// committed even when errs.NoUserLeft is returned.
func RemoveUser(username *string) (*model.Session, error) {
	var current *model.Session
	err := db.Transaction(func(tx *gorm.DB) error {
		var target model.Session
		q := tx.Model(&model.Session{})
		if username != nil {
			q = q.Where("username = ?", *username)
		} else {
			q = q.Where("is_current = ?", true)
		}
		if err := q.First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if username != nil {
					return errors.Wrapf(errs.UserNotFound, "user %s", *username)
				}
				return errors.WithStack(errs.NoUserLeft)
			}
			return err
		}
		if err := tx.Delete(&model.Session{}, "username = ?", target.Username).Error; err != nil {
			return err
		}

		var next model.Session
		if target.IsCurrent {
			err := tx.Order("username").First(&next).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := tx.Model(&model.Session{}).Where("username = ?", next.Username).Update("is_current", true).Error; err != nil {
				return err
			}
			next.IsCurrent = true
		} else {
			err := tx.Where("is_current = ?", true).First(&next).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		current = &next
		return nil
	})
	switch {
	case err == nil && current == nil:
		return nil, errors.WithStack(errs.NoUserLeft)
	case err == nil:
		return current, nil
	case errors.Is(err, errs.NoUserLeft), errors.Is(err, errs.UserNotFound):
		return nil, err
	default:
		return nil, errs.NewPersistence(err, "failed remove user")
	}
}

func GetUsernames() ([]string, error) {
	var names []string
	if err := db.Model(&model.Session{}).Order("username").Pluck("username", &names).Error; err != nil {
		return nil, errs.NewPersistence(err, "failed list users")
	}
	return names, nil
}
