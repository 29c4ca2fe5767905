package tasker

import (
	"context"
	"io"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/conf"
	"github.com/OpenListTeam/tgdrive/internal/db"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/internal/onedrive"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultChunkSize = 10 * 320 * 1024

// Uploader writes chunks into an upload session with live credentials.
type Uploader interface {
	RefreshAccessToken(ctx context.Context) error
	UploadChunk(ctx context.Context, uploadURL string, data []byte, offset, total int64) (*onedrive.ChunkResult, error)
}

// Driver moves the bytes of one task from its source into its upload session.
type Driver struct {
	uploader         Uploader
	registry         *Registry
	messenger        chat.Messenger
	media            chat.MediaSource
	urls             *URLSource
	chunkSize        int64
	progressInterval time.Duration
}

func NewDriver(uploader Uploader, registry *Registry, messenger chat.Messenger, media chat.MediaSource, c conf.Tasks) *Driver {
	chunkSize := c.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Driver{
		uploader:         uploader,
		registry:         registry,
		messenger:        messenger,
		media:            media,
		urls:             NewURLSource(),
		chunkSize:        chunkSize,
		progressInterval: c.ProgressInterval,
	}
}

func (d *Driver) log(t *model.Task) *log.Entry {
	return utils.Log.WithFields(log.Fields{"task": t.ID, "filename": t.Filename})
}

// Transfer runs task id until it completes, fails or is interrupted. A user
// cancellation deletes the task and returns errs.Canceled. Shutdown returns
// the context error and leaves the task as it is so the next start resumes
// it from its current length.
func (d *Driver) Transfer(ctx context.Context, id uint) error {
	t, err := db.GetTaskByID(id)
	if err != nil {
		if errors.Is(err, errs.TaskNotFound) {
			d.registry.ClearOnTerminal(id)
			return nil
		}
		return err
	}
	if t.Status.IsTerminal() {
		d.registry.ClearOnTerminal(id)
		return nil
	}
	h := d.registry.Register(t.ID, t.ChatUserHex)
	if h.Canceled() {
		return d.canceled(t)
	}
	// a cancel between the load and Register has already deleted the row
	if _, err := db.GetTaskByID(t.ID); err != nil {
		if errors.Is(err, errs.TaskNotFound) {
			d.registry.ClearOnTerminal(t.ID)
			d.log(t).Infof("canceled before start")
			return errors.Wrapf(errs.Canceled, "task %d %s", t.ID, t.Filename)
		}
		d.registry.ClearOnTerminal(t.ID)
		return err
	}
	runCtx, stop := context.WithCancel(h.Ctx())
	defer stop()
	defer context.AfterFunc(ctx, stop)()

	progress := newProgressReporter(d.messenger, d.progressInterval)
	err = d.run(runCtx, t, progress)
	progress.close(ctx, t)
	if err == nil {
		d.log(t).Infof("uploaded %d bytes", t.TotalLength)
		d.notifyCompleted(ctx, t)
		d.registry.ClearOnTerminal(t.ID)
		return nil
	}
	if h.Canceled() {
		return d.canceled(t)
	}
	if runCtx.Err() != nil {
		d.log(t).Infof("interrupted at byte %d", t.CurrentLength)
		return errors.Wrapf(runCtx.Err(), "task %d interrupted", t.ID)
	}
	return d.fail(ctx, t, err)
}

func (d *Driver) run(ctx context.Context, t *model.Task, progress *progressReporter) error {
	if t.TotalLength <= 0 {
		return errs.NewTransfer(nil, "empty file cannot be uploaded")
	}
	if t.CurrentLength >= t.TotalLength {
		// the last chunk was acknowledged before an interruption
		d.log(t).Infof("all %d bytes already uploaded", t.TotalLength)
		return d.advance(t, model.StatusCompleted)
	}
	if err := d.uploader.RefreshAccessToken(ctx); err != nil {
		if errs.KindOf(err) == nil {
			err = errs.NewAuth(err, "failed refresh onedrive token")
		}
		return err
	}
	if utils.IsCanceled(ctx) {
		return ctx.Err()
	}

	src, err := d.openSource(ctx, t)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	if err := d.advance(t, model.StatusFetched); err != nil {
		return err
	}

	buf := make([]byte, d.chunkSize)
	for t.CurrentLength < t.TotalLength {
		if utils.IsCanceled(ctx) {
			return ctx.Err()
		}
		n := d.chunkSize
		if left := t.TotalLength - t.CurrentLength; left < n {
			n = left
		}
		part := buf[:n]
		if _, err := io.ReadFull(src, part); err != nil {
			return errs.NewTransfer(err, "failed read bytes %d-%d", t.CurrentLength, t.CurrentLength+n-1)
		}
		res, err := d.uploader.UploadChunk(ctx, t.UploadURL, part, t.CurrentLength, t.TotalLength)
		if err != nil {
			return err
		}
		next := t.CurrentLength + n
		if next == t.TotalLength && res.Item == nil && len(res.NextExpectedRanges) > 0 {
			return errs.NewProtocol(nil, "drive still expects byte %d after the last chunk", res.NextExpectedRanges[0].Start)
		}
		if err := db.UpdateTaskProgress(t.ID, next); err != nil {
			return err
		}
		t.CurrentLength = next
		if err := d.advance(t, model.StatusStarted); err != nil {
			return err
		}
		if t.CurrentLength < t.TotalLength {
			progress.update(ctx, t)
		}
	}

	return d.advance(t, model.StatusCompleted)
}

var forwardStatuses = []model.TaskStatus{model.StatusFetched, model.StatusStarted, model.StatusCompleted}

// advance moves t forward one status at a time until it reaches to. It never
// goes past to, and does nothing when t is already there or beyond.
func (d *Driver) advance(t *model.Task, to model.TaskStatus) error {
	for _, next := range forwardStatuses {
		if t.Status == to {
			return nil
		}
		if model.CanTransition(t.Status, next) {
			if err := db.TransitionTask(t.ID, next, ""); err != nil {
				return err
			}
			t.Status = next
		}
		if next == to {
			return nil
		}
	}
	return nil
}

func (d *Driver) canceled(t *model.Task) error {
	d.registry.ClearOnTerminal(t.ID)
	if err := db.DeleteTaskByID(t.ID); err != nil {
		d.log(t).Warnf("failed delete canceled task: %+v", err)
	}
	d.log(t).Infof("canceled at byte %d", t.CurrentLength)
	return errors.Wrapf(errs.Canceled, "task %d %s", t.ID, t.Filename)
}

func (d *Driver) fail(ctx context.Context, t *model.Task, cause error) error {
	d.registry.ClearOnTerminal(t.ID)
	if err := db.TransitionTask(t.ID, model.StatusFailed, cause.Error()); err != nil {
		d.log(t).Errorf("failed mark task failed: %+v", err)
	} else {
		t.Status = model.StatusFailed
	}
	d.log(t).Errorf("transfer failed: %+v", cause)
	d.notifyFailed(ctx, t, cause)
	return errors.WithMessagef(cause, "transfer %s of %d bytes", t.Filename, t.TotalLength)
}
