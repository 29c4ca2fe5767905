// Package chat is the boundary to the chat client. Parsing commands and
// talking to the chat network live on the other side of these interfaces.
package chat

import (
	"context"
	"io"
)

// Ref points at one message of one chat.
type Ref struct {
	ChatHex   string
	MessageID int
}

type Kind int

const (
	KindPhoto Kind = iota + 1
	KindDocument
	KindSticker
)

var kindNames = map[Kind]string{
	KindPhoto:    "photo",
	KindDocument: "document",
	KindSticker:  "sticker",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Media is the uploadable content of a message. Only photos, documents and
// stickers are accepted; anything else is rejected before it reaches a task.
type Media struct {
	Kind     Kind
	Filename string
	Size     int64
	// Thumb is the encoded thumbnail, empty when the media has none.
	Thumb []byte
}

func (m *Media) Valid() bool {
	_, ok := kindNames[m.Kind]
	return ok
}

func (m *Media) HasThumb() bool {
	return len(m.Thumb) > 0
}

// Message is an incoming message as seen by intake.
type Message struct {
	Ref
	// BotChatHex is the chat as packed by the bot session that received the
	// message; Ref.ChatHex is the user session's view of the same chat.
	BotChatHex string
	Media      *Media
	Forwarded  bool
	Grouped    bool
}

// Outgoing is a message to send. Thumb, when set, is attached as a photo.
type Outgoing struct {
	Text    string
	Thumb   []byte
	ReplyTo int
}

type Messenger interface {
	Send(ctx context.Context, chatHex string, msg Outgoing) (Ref, error)
	Edit(ctx context.Context, ref Ref, text string) error
	Delete(ctx context.Context, ref Ref) error
}

// MediaSource streams the media of a message starting at offset.
type MediaSource interface {
	Open(ctx context.Context, ref Ref, offset int64) (io.ReadCloser, error)
}
