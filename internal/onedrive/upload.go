package onedrive

import (
	"context"
	"net/http"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/avast/retry-go"
	"github.com/pkg/errors"
)

type UploadSession struct {
	uploadURL string
}

func NewUploadSession(uploadURL string) *UploadSession {
	return &UploadSession{uploadURL: uploadURL}
}

func (s *UploadSession) UploadURL() string {
	return s.uploadURL
}

type UploadSessionMeta struct {
	ExpirationDateTime time.Time
	NextExpectedRanges []ByteRange
}

// StartOffset returns the first byte a freshly opened session expects. A new
// session that claims to already hold bytes is rejected rather than trusted.
func (m *UploadSessionMeta) StartOffset() (int64, error) {
	if len(m.NextExpectedRanges) == 0 {
		return 0, nil
	}
	if start := m.NextExpectedRanges[0].Start; start != 0 {
		return 0, errs.NewProtocol(nil, "new upload session expects byte %d first", start)
	}
	return 0, nil
}

type ChunkResult struct {
	NextExpectedRanges []ByteRange
	Item               *DriveItem
}

// OpenUploadSession asks the drive for a resumable upload slot for
// rootPath/filename with the current credentials.
func (m *Manager) OpenUploadSession(ctx context.Context, rootPath, filename string) (*UploadSession, *UploadSessionMeta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.client.Authenticated() {
		return nil, nil, errs.NewAuth(errs.NotAuthorized, "cannot open upload session for %s", filename)
	}
	session, meta, err := m.client.CreateUploadSession(ctx, rootPath, filename)
	if err != nil {
		return nil, nil, classify(err, "failed create upload session for %s", filename)
	}
	return session, meta, nil
}

// UploadChunk writes one chunk with the live credentials. The read lock is
// held for the whole request so a credential swap never splits a chunk; a 401
// is retried once after a refresh.
func (m *Manager) UploadChunk(ctx context.Context, uploadURL string, data []byte, offset, total int64) (*ChunkResult, error) {
	var result *ChunkResult
	err := retry.Do(
		func() error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			r, err := m.client.UploadChunk(ctx, uploadURL, data, offset, total)
			if err != nil {
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsUnauthorized),
		retry.OnRetry(func(n uint, err error) {
			if rerr := m.RefreshAccessToken(ctx); rerr != nil {
				m.log().Warnf("failed refresh token before retrying chunk at %d: %+v", offset, rerr)
			}
		}),
	)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusGone) {
			return nil, errs.NewTransfer(err, "upload session is no longer valid")
		}
		if errs.KindOf(err) != nil {
			return nil, err
		}
		return nil, errs.NewTransfer(err, "failed write bytes %d-%d", offset, offset+int64(len(data))-1)
	}
	next := offset + int64(len(data))
	if result.Item == nil && len(result.NextExpectedRanges) > 0 && result.NextExpectedRanges[0].Start != next {
		return nil, errs.NewProtocol(nil, "drive expects byte %d after writing up to %d", result.NextExpectedRanges[0].Start, next)
	}
	return result, nil
}

// classify maps a Graph call failure onto an error kind.
func classify(err error, format string, args ...any) error {
	if errs.KindOf(err) != nil {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return errs.NewAuth(err, format, args...)
		}
		return errs.NewProtocol(err, format, args...)
	}
	return errs.NewTransfer(err, format, args...)
}
