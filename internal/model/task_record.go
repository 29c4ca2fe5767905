package model

import "time"

// TaskRecord is the listing view of a task served by the admin API.
type TaskRecord struct {
	TaskID     uint       `json:"task_id"`
	Type       string     `json:"type"`
	Name       string     `json:"name"`
	RootPath   string     `json:"root_path"`
	Status     TaskStatus `json:"status"`
	Progress   float64    `json:"progress"`
	TotalBytes int64      `json:"total_bytes"`
	Error      string     `json:"error"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (t *Task) Record() TaskRecord {
	return TaskRecord{
		TaskID:     t.ID,
		Type:       t.CmdType.String(),
		Name:       t.Filename,
		RootPath:   t.RootPath,
		Status:     t.Status,
		Progress:   t.Progress(),
		TotalBytes: t.TotalLength,
		Error:      t.Error,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}
