// Package authserver receives OAuth authorization codes on an HTTPS callback
// and hands them to whoever started the authorization.
package authserver

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

var ErrUnknownState = errors.New("unknown authorization state")

// Broker pairs callbacks with pending authorizations by their state value.
type Broker struct {
	mu      sync.Mutex
	waiters map[string]chan string
}

func NewBroker() *Broker {
	return &Broker{waiters: make(map[string]chan string)}
}

// Expect registers state. The returned channel yields the code once.
func (b *Broker) Expect(state string) <-chan string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan string, 1)
	b.waiters[state] = ch
	return ch
}

func (b *Broker) Forget(state string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiters, state)
}

// Publish delivers code to the authorization waiting on state.
func (b *Broker) Publish(state, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.waiters[state]
	if !ok {
		return errors.WithStack(ErrUnknownState)
	}
	delete(b.waiters, state)
	ch <- code
	return nil
}

// Wait blocks until the code for state arrives or ctx is done.
func (b *Broker) Wait(ctx context.Context, state string, ch <-chan string) (string, error) {
	defer b.Forget(state)
	select {
	case code := <-ch:
		return code, nil
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "authorization not completed")
	}
}

func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.waiters)
}
