package onedrive

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUploadSession(t *testing.T) {
	m, f, _ := newTestManager(t)
	ctx := context.Background()

	_, _, err := m.OpenUploadSession(ctx, "/Telegram", "a.jpg")
	assert.ErrorIs(t, err, errs.NotAuthorized)

	require.NoError(t, m.Login(ctx, "good"))
	session, meta, err := m.OpenUploadSession(ctx, "/Telegram", "a b.jpg")
	require.NoError(t, err)
	assert.Equal(t, f.srv.URL+"/upload/a b.jpg", session.UploadURL())
	start, err := meta.StartOffset()
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)

	f.mu.Lock()
	f.firstRange = "128-"
	f.mu.Unlock()
	_, meta, err = m.OpenUploadSession(ctx, "/Telegram", "c.jpg")
	require.NoError(t, err)
	_, err = meta.StartOffset()
	assert.ErrorIs(t, err, errs.Protocol)
}

func TestUploadChunk(t *testing.T) {
	m, f, clock := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, m.Login(ctx, "good"))
	session, _, err := m.OpenUploadSession(ctx, "/Telegram", "a.jpg")
	require.NoError(t, err)

	t.Run("partial chunk reports next range", func(t *testing.T) {
		f.mu.Lock()
		f.ranges = []string{"4-"}
		f.mu.Unlock()
		r, err := m.UploadChunk(ctx, session.UploadURL(), []byte("abcd"), 0, 10)
		require.NoError(t, err)
		require.Len(t, r.NextExpectedRanges, 1)
		assert.Equal(t, int64(4), r.NextExpectedRanges[0].Start)
		assert.Nil(t, r.Item)
		assert.Equal(t, "bytes 0-3/10", f.contentRanges[len(f.contentRanges)-1])
	})

	t.Run("mismatched next range is a protocol error", func(t *testing.T) {
		f.mu.Lock()
		f.ranges = []string{"2-"}
		f.mu.Unlock()
		_, err := m.UploadChunk(ctx, session.UploadURL(), []byte("efgh"), 4, 10)
		assert.ErrorIs(t, err, errs.Protocol)
	})

	t.Run("last chunk returns the item", func(t *testing.T) {
		f.mu.Lock()
		f.uploadStatus = []int{http.StatusCreated}
		f.mu.Unlock()
		r, err := m.UploadChunk(ctx, session.UploadURL(), []byte("ij"), 8, 10)
		require.NoError(t, err)
		require.NotNil(t, r.Item)
		assert.Equal(t, "a.jpg", r.Item.Name)
	})

	t.Run("expired session is a transfer error", func(t *testing.T) {
		f.mu.Lock()
		f.uploadStatus = []int{http.StatusNotFound}
		f.mu.Unlock()
		_, err := m.UploadChunk(ctx, session.UploadURL(), []byte("ab"), 0, 10)
		assert.ErrorIs(t, err, errs.Transfer)
	})

	t.Run("unauthorized chunk is retried once after refresh", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		f.mu.Lock()
		f.uploadStatus = []int{http.StatusUnauthorized, http.StatusAccepted}
		f.ranges = []string{"2-"}
		calls := len(f.contentRanges)
		f.mu.Unlock()

		r, err := m.UploadChunk(ctx, session.UploadURL(), []byte("ab"), 0, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(2), r.NextExpectedRanges[0].Start)
		assert.Equal(t, int32(1), f.refreshCalls.Load())
		assert.Len(t, f.contentRanges, calls+2)
	})

	t.Run("unauthorized twice gives up", func(t *testing.T) {
		f.mu.Lock()
		f.uploadStatus = []int{http.StatusUnauthorized, http.StatusUnauthorized}
		f.mu.Unlock()
		_, err := m.UploadChunk(ctx, session.UploadURL(), []byte("ab"), 0, 10)
		assert.ErrorIs(t, err, errs.Transfer)
	})
}

func TestParseRanges(t *testing.T) {
	ranges, err := parseRanges([]string{"0-", "26-99"})
	require.NoError(t, err)
	assert.Equal(t, []ByteRange{{Start: 0, End: -1}, {Start: 26, End: 99}}, ranges)

	for _, bad := range []string{"", "x-", "5-3", "-7"} {
		_, err := parseRanges([]string{bad})
		assert.ErrorIs(t, err, errs.Protocol, bad)
	}
}
