package db

import (
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const maxErrorLength = 1024

// CreateTask inserts t as a new waiting task and fills in its id.
func CreateTask(t *model.Task) error {
	if t.CurrentLength < 0 || t.TotalLength < t.CurrentLength {
		return errors.Wrapf(errs.InvalidState, "task %s: current length %d, total length %d", t.Filename, t.CurrentLength, t.TotalLength)
	}
	t.ID = 0
	t.Status = model.StatusWaiting
	if err := db.Create(t).Error; err != nil {
		return errs.NewPersistence(err, "failed create task %s", t.Filename)
	}
	return nil
}

func GetTaskByID(id uint) (*model.Task, error) {
	var t model.Task
	if err := db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(errs.TaskNotFound, "task %d", id)
		}
		return nil, errs.NewPersistence(err, "failed find task %d", id)
	}
	return &t, nil
}

// UpdateTaskProgress records the next byte to send. The value may only grow,
// never past total_length, and only while the task is not terminal.
func UpdateTaskProgress(id uint, current int64) error {
	res := db.Model(&model.Task{}).
		Where("id = ? AND status IN ? AND current_length <= ? AND total_length >= ?",
			id, model.NonTerminalStatuses(), current, current).
		Update("current_length", current)
	if res.Error != nil {
		return errs.NewPersistence(res.Error, "failed update progress of task %d", id)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	t, err := GetTaskByID(id)
	if err != nil {
		return err
	}
	switch {
	case t.Status.IsTerminal():
		return errors.Wrapf(errs.InvalidState, "task %d is %s", id, t.Status)
	case current < t.CurrentLength:
		return errors.Wrapf(errs.InvalidState, "task %d progress would go back from %d to %d", id, t.CurrentLength, current)
	case current > t.TotalLength:
		return errors.Wrapf(errs.InvalidState, "task %d progress %d exceeds total length %d", id, current, t.TotalLength)
	}
	// same value on a driver that only counts changed rows
	return nil
}

// TransitionTask moves a task to status to. The update only matches rows in
// an allowed predecessor status, so concurrent writers cannot move a task
// backwards or out of a terminal status.
func TransitionTask(id uint, to model.TaskStatus, errMsg string) error {
	updates := map[string]interface{}{"status": to}
	if to == model.StatusFailed {
		if len(errMsg) > maxErrorLength {
			errMsg = errMsg[:maxErrorLength]
		}
		updates["error"] = errMsg
	}
	res := db.Model(&model.Task{}).
		Where("id = ? AND status IN ?", id, model.Predecessors(to)).
		Updates(updates)
	if res.Error != nil {
		return errs.NewPersistence(res.Error, "failed update status of task %d", id)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	t, err := GetTaskByID(id)
	if err != nil {
		return err
	}
	return errors.Wrapf(errs.InvalidTransition, "task %d: %s -> %s", id, t.Status, to)
}

func DeleteTaskByID(id uint) error {
	if err := db.Delete(&model.Task{}, id).Error; err != nil {
		return errs.NewPersistence(err, "failed delete task %d", id)
	}
	return nil
}

func GetTasksByStatus(statuses ...model.TaskStatus) ([]model.Task, error) {
	var tasks []model.Task
	if err := db.Where("status IN ?", statuses).Order("id").Find(&tasks).Error; err != nil {
		return nil, errs.NewPersistence(err, "failed find tasks by status")
	}
	return tasks, nil
}

func GetTasksByChat(chatUserHex string) ([]model.Task, error) {
	var tasks []model.Task
	if err := db.Where("chat_user_hex = ?", chatUserHex).Order("id").Find(&tasks).Error; err != nil {
		return nil, errs.NewPersistence(err, "failed find tasks of chat")
	}
	return tasks, nil
}

func DeleteTasksByChat(chatUserHex string) (int64, error) {
	res := db.Where("chat_user_hex = ?", chatUserHex).Delete(&model.Task{})
	if res.Error != nil {
		return 0, errs.NewPersistence(res.Error, "failed delete tasks of chat")
	}
	return res.RowsAffected, nil
}

func DeleteTerminalTasks() (int64, error) {
	res := db.Where("status IN ?", []model.TaskStatus{model.StatusCompleted, model.StatusFailed}).Delete(&model.Task{})
	if res.Error != nil {
		return 0, errs.NewPersistence(res.Error, "failed delete finished tasks")
	}
	return res.RowsAffected, nil
}

func ListTasks(statuses []model.TaskStatus, keyword string, page, pageSize int) ([]model.Task, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	tx := db.Model(&model.Task{})
	if len(statuses) > 0 {
		tx = tx.Where("status IN ?", statuses)
	}
	if keyword != "" {
		tx = tx.Where("filename LIKE ?", "%"+keyword+"%")
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, errs.NewPersistence(err, "failed count tasks")
	}
	var tasks []model.Task
	err := tx.Order("updated_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, errs.NewPersistence(err, "failed list tasks")
	}
	return tasks, total, nil
}
