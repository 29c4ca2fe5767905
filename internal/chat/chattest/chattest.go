// Package chattest provides in-memory chat collaborators for tests.
package chattest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/pkg/errors"
)

type Sent struct {
	Ref     chat.Ref
	Text    string
	Thumb   []byte
	ReplyTo int
}

// Messenger records every call and hands out increasing message ids.
type Messenger struct {
	mu      sync.Mutex
	nextID  int
	Sent    []Sent
	Edits   []Sent
	Deleted []chat.Ref
}

func NewMessenger() *Messenger {
	return &Messenger{nextID: 1000}
}

func (m *Messenger) Send(_ context.Context, chatHex string, msg chat.Outgoing) (chat.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ref := chat.Ref{ChatHex: chatHex, MessageID: m.nextID}
	m.Sent = append(m.Sent, Sent{Ref: ref, Text: msg.Text, Thumb: msg.Thumb, ReplyTo: msg.ReplyTo})
	return ref, nil
}

func (m *Messenger) Edit(_ context.Context, ref chat.Ref, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edits = append(m.Edits, Sent{Ref: ref, Text: text})
	return nil
}

func (m *Messenger) Delete(_ context.Context, ref chat.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, ref)
	return nil
}

func (m *Messenger) SentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, 0, len(m.Sent))
	for _, s := range m.Sent {
		texts = append(texts, s.Text)
	}
	return texts
}

func (m *Messenger) EditTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	texts := make([]string, 0, len(m.Edits))
	for _, s := range m.Edits {
		texts = append(texts, s.Text)
	}
	return texts
}

// Source serves media bytes registered per message.
type Source struct {
	mu      sync.Mutex
	content map[chat.Ref][]byte
	Opened  []int64
}

func NewSource() *Source {
	return &Source{content: map[chat.Ref][]byte{}}
}

func (s *Source) Put(ref chat.Ref, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[ref] = data
}

func (s *Source) Open(_ context.Context, ref chat.Ref, offset int64) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.content[ref]
	if !ok {
		return nil, errors.Errorf("no media for message %d", ref.MessageID)
	}
	if offset > int64(len(data)) {
		return nil, errors.Errorf("offset %d beyond media size %d", offset, len(data))
	}
	s.Opened = append(s.Opened, offset)
	return io.NopCloser(bytes.NewReader(data[offset:])), nil
}
