package tasker

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// progressReporter keeps one progress message per transfer up to date,
// editing it at most once per interval.
type progressReporter struct {
	messenger chat.Messenger
	limiter   *rate.Limiter
	ref       *chat.Ref
}

func newProgressReporter(messenger chat.Messenger, interval time.Duration) *progressReporter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &progressReporter{messenger: messenger, limiter: rate.NewLimiter(limit, 1)}
}

func progressText(t *model.Task) string {
	return fmt.Sprintf("Uploading %s\n%.0f%% (%s / %s)",
		t.Filename, t.Progress(),
		humanize.Bytes(uint64(t.CurrentLength)), humanize.Bytes(uint64(t.TotalLength)))
}

func (p *progressReporter) update(ctx context.Context, t *model.Task) {
	if p.messenger == nil || !p.limiter.Allow() {
		return
	}
	text := progressText(t)
	if p.ref == nil {
		ref, err := p.messenger.Send(ctx, t.ChatBotHex, chat.Outgoing{Text: text, ReplyTo: t.MessageID})
		if err != nil {
			utils.Log.Warnf("failed send progress of task %d: %+v", t.ID, err)
			return
		}
		p.ref = &ref
		return
	}
	if err := p.messenger.Edit(ctx, *p.ref, text); err != nil {
		utils.Log.Warnf("failed edit progress of task %d: %+v", t.ID, err)
	}
}

// close removes the progress message once the transfer is over.
func (p *progressReporter) close(ctx context.Context, t *model.Task) {
	if p.messenger == nil || p.ref == nil {
		return
	}
	if err := p.messenger.Delete(ctx, *p.ref); err != nil {
		utils.Log.Warnf("failed delete progress of task %d: %+v", t.ID, err)
	}
	p.ref = nil
}

func (d *Driver) notifyCompleted(ctx context.Context, t *model.Task) {
	if d.messenger == nil {
		return
	}
	text := fmt.Sprintf("Done\n%s\nSize: %s\nPath: %s", t.Filename, humanize.Bytes(uint64(t.TotalLength)), t.RootPath)
	if _, err := d.messenger.Send(ctx, t.ChatBotHex, chat.Outgoing{Text: text, ReplyTo: t.MessageID}); err != nil {
		utils.Log.Warnf("failed notify completion of task %d: %+v", t.ID, err)
	}
}

func (d *Driver) notifyFailed(ctx context.Context, t *model.Task, cause error) {
	if d.messenger == nil {
		return
	}
	text := fmt.Sprintf("Failed\n%s\nSize: %s\nError: %s", t.Filename, humanize.Bytes(uint64(t.TotalLength)), cause)
	if _, err := d.messenger.Send(ctx, t.ChatBotHex, chat.Outgoing{Text: text, ReplyTo: t.MessageID}); err != nil {
		utils.Log.Warnf("failed notify failure of task %d: %+v", t.ID, err)
	}
}
