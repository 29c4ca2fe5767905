package chat

import (
	"context"
	"testing"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMessenger(t *testing.T) {
	m := NewLogMessenger()
	first, err := m.Send(context.Background(), "chat", Outgoing{Text: "hello"})
	require.NoError(t, err)
	second, err := m.Send(context.Background(), "chat", Outgoing{Text: "again", ReplyTo: first.MessageID})
	require.NoError(t, err)
	assert.Equal(t, Ref{ChatHex: "chat", MessageID: 1}, first)
	assert.Equal(t, 2, second.MessageID)
	assert.NoError(t, m.Edit(context.Background(), first, "edited"))
	assert.NoError(t, m.Delete(context.Background(), first))
}

func TestNoMedia(t *testing.T) {
	_, err := NoMedia{}.Open(context.Background(), Ref{ChatHex: "chat", MessageID: 7}, 0)
	assert.ErrorIs(t, err, errs.Transfer)
}

func TestMediaValid(t *testing.T) {
	assert.True(t, (&Media{Kind: KindSticker}).Valid())
	assert.False(t, (&Media{}).Valid())
	assert.Equal(t, "unknown", Kind(9).String())
	assert.True(t, (&Media{Thumb: []byte{1}}).HasThumb())
}
