package db

import (
	"testing"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileTask(total int64) *model.Task {
	return &model.Task{
		CmdType:     model.CmdFile,
		Filename:    "photo.jpg",
		RootPath:    "/Telegram",
		UploadURL:   "https://upload.example/session/1",
		TotalLength: total,
		ChatBotHex:  "bot",
		ChatUserHex: "user",
		MessageID:   10,
	}
}

func TestCreateTaskStartsWaiting(t *testing.T) {
	setupDB(t)

	first := newFileTask(1000)
	first.Status = model.StatusStarted
	require.NoError(t, CreateTask(first))
	second := newFileTask(10)
	require.NoError(t, CreateTask(second))

	assert.Equal(t, model.StatusWaiting, first.Status)
	assert.Greater(t, second.ID, first.ID)

	got, err := GetTaskByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusWaiting, got.Status)
	assert.Equal(t, model.CmdFile, got.CmdType)
	assert.Equal(t, "https://upload.example/session/1", got.UploadURL)
	assert.Nil(t, got.URL)
	assert.Nil(t, got.MessageIDForward)
}

func TestCreateTaskRejectsBadLengths(t *testing.T) {
	setupDB(t)

	task := newFileTask(10)
	task.CurrentLength = 11
	assert.ErrorIs(t, CreateTask(task), errs.InvalidState)
}

func TestStatusStoredAsLowercaseWord(t *testing.T) {
	setupDB(t)

	task := newFileTask(10)
	require.NoError(t, CreateTask(task))
	var raw string
	require.NoError(t, GetDb().Raw("SELECT status FROM tasks WHERE id = ?", task.ID).Scan(&raw).Error)
	assert.Equal(t, "waiting", raw)
}

func TestTransitionTaskFollowsStateMachine(t *testing.T) {
	setupDB(t)

	task := newFileTask(10)
	require.NoError(t, CreateTask(task))

	assert.ErrorIs(t, TransitionTask(task.ID, model.StatusStarted, ""), errs.InvalidTransition)
	require.NoError(t, TransitionTask(task.ID, model.StatusFetched, ""))
	assert.ErrorIs(t, TransitionTask(task.ID, model.StatusFetched, ""), errs.InvalidTransition)
	require.NoError(t, TransitionTask(task.ID, model.StatusStarted, ""))
	require.NoError(t, TransitionTask(task.ID, model.StatusCompleted, ""))

	for _, to := range []model.TaskStatus{model.StatusWaiting, model.StatusFetched, model.StatusStarted, model.StatusFailed} {
		assert.ErrorIs(t, TransitionTask(task.ID, to, ""), errs.InvalidTransition, "completed -> %s", to)
	}
	assert.ErrorIs(t, TransitionTask(9999, model.StatusFetched, ""), errs.TaskNotFound)
}

func TestFailedKeepsError(t *testing.T) {
	setupDB(t)

	task := newFileTask(10)
	require.NoError(t, CreateTask(task))
	require.NoError(t, TransitionTask(task.ID, model.StatusFailed, "chunk write failed"))

	got, err := GetTaskByID(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	assert.Equal(t, "chunk write failed", got.Error)
	assert.ErrorIs(t, UpdateTaskProgress(task.ID, 5), errs.InvalidState)
}

func TestUpdateTaskProgressIsMonotonic(t *testing.T) {
	setupDB(t)

	task := newFileTask(1000)
	require.NoError(t, CreateTask(task))

	require.NoError(t, UpdateTaskProgress(task.ID, 300))
	require.NoError(t, UpdateTaskProgress(task.ID, 300))
	assert.ErrorIs(t, UpdateTaskProgress(task.ID, 200), errs.InvalidState)
	assert.ErrorIs(t, UpdateTaskProgress(task.ID, 1001), errs.InvalidState)
	assert.ErrorIs(t, UpdateTaskProgress(4242, 1), errs.TaskNotFound)

	got, err := GetTaskByID(task.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 300, got.CurrentLength)
}

func TestTaskQueries(t *testing.T) {
	setupDB(t)

	a := newFileTask(10)
	b := newFileTask(10)
	b.ChatUserHex = "other"
	b.Filename = "video.mp4"
	c := newFileTask(10)
	for _, task := range []*model.Task{a, b, c} {
		require.NoError(t, CreateTask(task))
	}
	require.NoError(t, TransitionTask(c.ID, model.StatusFailed, "boom"))

	waiting, err := GetTasksByStatus(model.StatusWaiting)
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, a.ID, waiting[0].ID)

	byChat, err := GetTasksByChat("user")
	require.NoError(t, err)
	assert.Len(t, byChat, 2)

	listed, total, err := ListTasks(nil, "video", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.ID, listed[0].ID)

	n, err := DeleteTerminalTasks()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = DeleteTasksByChat("user")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, DeleteTaskByID(b.ID))
	_, err = GetTaskByID(b.ID)
	assert.ErrorIs(t, err, errs.TaskNotFound)
}
