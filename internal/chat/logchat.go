package chat

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	log "github.com/sirupsen/logrus"
)

// LogMessenger writes outgoing messages to the log instead of a chat. It is
// what the server runs with when no chat client is attached.
type LogMessenger struct {
	next atomic.Int64
}

func NewLogMessenger() *LogMessenger {
	return &LogMessenger{}
}

func (m *LogMessenger) Send(_ context.Context, chatHex string, msg Outgoing) (Ref, error) {
	ref := Ref{ChatHex: chatHex, MessageID: int(m.next.Add(1))}
	utils.Log.WithFields(log.Fields{
		"chat":     chatHex,
		"message":  ref.MessageID,
		"reply_to": msg.ReplyTo,
	}).Info(msg.Text)
	return ref, nil
}

func (m *LogMessenger) Edit(_ context.Context, ref Ref, text string) error {
	utils.Log.WithFields(log.Fields{"chat": ref.ChatHex, "message": ref.MessageID}).Debug(text)
	return nil
}

func (m *LogMessenger) Delete(_ context.Context, ref Ref) error {
	utils.Log.Debugf("delete message %d in %s", ref.MessageID, ref.ChatHex)
	return nil
}

// NoMedia refuses every open, leaving url tasks as the only runnable kind.
type NoMedia struct{}

func (NoMedia) Open(_ context.Context, ref Ref, _ int64) (io.ReadCloser, error) {
	return nil, errs.NewTransfer(nil, "no chat client attached to fetch message %d", ref.MessageID)
}
