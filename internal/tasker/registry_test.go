package tasker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry(context.Background())
	defer r.Close()

	h1 := r.Register(1, "chat")
	h2 := r.Register(1, "other")
	assert.Same(t, h1, h2)
	assert.Equal(t, "chat", h2.Scope)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry(context.Background())
	defer r.Close()

	h := r.Register(1, "chat")
	assert.True(t, r.Cancel(1))
	assert.False(t, r.Cancel(1))
	assert.True(t, h.Canceled())
	assert.Error(t, h.Ctx().Err())
	_, ok := r.Handle(1)
	assert.False(t, ok)
}

func TestRegistryCancelScope(t *testing.T) {
	r := NewRegistry(context.Background())
	defer r.Close()

	a := r.Register(1, "chat-a")
	b := r.Register(2, "chat-b")
	c := r.Register(3, "chat-a")

	var ids []uint
	require.NoError(t, r.Do(func(tx *RegistryTx) error {
		ids = tx.CancelScope("chat-a")
		return nil
	}))
	assert.ElementsMatch(t, []uint{1, 3}, ids)
	assert.True(t, a.Canceled())
	assert.True(t, c.Canceled())
	assert.False(t, b.Canceled())
	assert.Equal(t, 1, r.Len())
}

func TestRegistryClearOnTerminalDoesNotSignal(t *testing.T) {
	r := NewRegistry(context.Background())
	defer r.Close()

	h := r.Register(1, "chat")
	r.ClearOnTerminal(1)
	assert.False(t, h.Canceled())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryCloseIsNotUserCancel(t *testing.T) {
	r := NewRegistry(context.Background())
	h := r.Register(1, "chat")
	r.Close()

	assert.True(t, r.ShuttingDown())
	assert.Error(t, h.Ctx().Err())
	assert.False(t, h.Canceled())
}

// An insert holds the registry across row creation and registration; a
// concurrent clear of the same scope either runs before it and finds nothing
// or after it and removes both the row and the handle.
func TestInsertAndCancelNeverInterleave(t *testing.T) {
	setupDB(t)
	r := NewRegistry(context.Background())
	defer r.Close()

	inserted := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = r.Do(func(tx *RegistryTx) error {
			task := &model.Task{CmdType: model.CmdFile, Filename: "a.jpg", UploadURL: "u", TotalLength: 10, ChatUserHex: "chat"}
			if err := db.CreateTask(task); err != nil {
				return err
			}
			close(inserted)
			time.Sleep(50 * time.Millisecond)
			tx.Register(task.ID, task.ChatUserHex)
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		<-inserted
		_ = r.Do(func(tx *RegistryTx) error {
			tx.CancelScope("chat")
			_, err := db.DeleteTasksByChat("chat")
			return err
		})
	}()
	wg.Wait()

	tasks, err := db.GetTasksByChat("chat")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, 0, r.Len())
}
