package tasker

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/chat/chattest"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/internal/onedrive"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Init(d))
}

type chunkCall struct {
	offset int64
	size   int
	// current length and status stored when the chunk arrived
	stored int64
	status model.TaskStatus
}

// fakeUploader accepts chunks in memory and records what the store held at
// the time of each call.
type fakeUploader struct {
	mu         sync.Mutex
	calls      []chunkCall
	received   bytes.Buffer
	refreshErr error
	onRefresh  func()
	onChunk    func(offset int64) error
}

func (u *fakeUploader) RefreshAccessToken(context.Context) error {
	if u.onRefresh != nil {
		u.onRefresh()
	}
	return u.refreshErr
}

func (u *fakeUploader) UploadChunk(_ context.Context, uploadURL string, data []byte, offset, total int64) (*onedrive.ChunkResult, error) {
	var stored model.Task
	if err := db.GetDb().Where("upload_url = ?", uploadURL).First(&stored).Error; err != nil {
		return nil, err
	}
	u.mu.Lock()
	u.calls = append(u.calls, chunkCall{offset: offset, size: len(data), stored: stored.CurrentLength, status: stored.Status})
	onChunk := u.onChunk
	u.mu.Unlock()
	if onChunk != nil {
		if err := onChunk(offset); err != nil {
			return nil, err
		}
	}
	u.mu.Lock()
	u.received.Write(data)
	u.mu.Unlock()
	next := offset + int64(len(data))
	if next == total {
		return &onedrive.ChunkResult{Item: &onedrive.DriveItem{ID: "item", Size: total}}, nil
	}
	return &onedrive.ChunkResult{NextExpectedRanges: []onedrive.ByteRange{{Start: next, End: -1}}}, nil
}

func (u *fakeUploader) offsets() []int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	offsets := make([]int64, 0, len(u.calls))
	for _, c := range u.calls {
		offsets = append(offsets, c.offset)
	}
	return offsets
}

type fixture struct {
	uploader  *fakeUploader
	registry  *Registry
	messenger *chattest.Messenger
	source    *chattest.Source
	driver    *Driver
}

func newFixture(t *testing.T, chunkSize int64) *fixture {
	setupDB(t)
	f := &fixture{
		uploader:  &fakeUploader{},
		registry:  NewRegistry(context.Background()),
		messenger: chattest.NewMessenger(),
		source:    chattest.NewSource(),
	}
	t.Cleanup(f.registry.Close)
	f.driver = NewDriver(f.uploader, f.registry, f.messenger, f.source, conf.Tasks{ChunkSize: chunkSize})
	return f
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i % 251)
	}
	return b
}

var nextMessageID = 1

// addFileTask stores a waiting file task whose media holds data.
func (f *fixture) addFileTask(t *testing.T, data []byte) *model.Task {
	t.Helper()
	nextMessageID++
	task := &model.Task{
		CmdType:     model.CmdFile,
		Filename:    "photo.jpg",
		RootPath:    "/Telegram",
		UploadURL:   fmt.Sprintf("https://upload.example.com/%d", nextMessageID),
		TotalLength: int64(len(data)),
		ChatBotHex:  "bot",
		ChatUserHex: "user",
		MessageID:   nextMessageID,
	}
	require.NoError(t, db.CreateTask(task))
	f.source.Put(chat.Ref{ChatHex: "user", MessageID: task.MessageID}, data)
	return task
}
