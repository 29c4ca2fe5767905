package tasker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handle lets a running transfer observe cancellation. A handle is cancelled
// either by a user, which removes the task, or by shutdown, which leaves the
// task to resume on the next start.
type Handle struct {
	ID    uint
	Scope string

	ctx          context.Context
	cancel       context.CancelFunc
	userCanceled atomic.Bool
}

func (h *Handle) Ctx() context.Context {
	return h.ctx
}

// Canceled reports whether a user asked for the task to stop.
func (h *Handle) Canceled() bool {
	return h.userCanceled.Load()
}

func (h *Handle) cancelByUser() {
	h.userCanceled.Store(true)
	h.cancel()
}

// Registry maps task ids to handles. Inserting a task and cancelling tasks
// both happen inside Do so the two can never interleave.
type Registry struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	handles map[uint]*Handle
}

func NewRegistry(ctx context.Context) *Registry {
	ctx, cancel := context.WithCancel(ctx)
	return &Registry{
		ctx:     ctx,
		cancel:  cancel,
		handles: make(map[uint]*Handle),
	}
}

// RegistryTx is the registry as seen from inside Do.
type RegistryTx struct {
	r *Registry
}

// Do runs fn while holding the registry lock. fn must not block on the
// network.
func (r *Registry) Do(fn func(tx *RegistryTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&RegistryTx{r: r})
}

// Register returns the handle of id, creating it when missing.
func (tx *RegistryTx) Register(id uint, scope string) *Handle {
	if h, ok := tx.r.handles[id]; ok {
		return h
	}
	ctx, cancel := context.WithCancel(tx.r.ctx)
	h := &Handle{ID: id, Scope: scope, ctx: ctx, cancel: cancel}
	tx.r.handles[id] = h
	return h
}

// Cancel signals the handle of id and forgets it.
func (tx *RegistryTx) Cancel(id uint) bool {
	h, ok := tx.r.handles[id]
	if !ok {
		return false
	}
	h.cancelByUser()
	delete(tx.r.handles, id)
	return true
}

// CancelScope cancels every handle registered under scope.
func (tx *RegistryTx) CancelScope(scope string) []uint {
	var ids []uint
	for id, h := range tx.r.handles {
		if h.Scope == scope {
			h.cancelByUser()
			delete(tx.r.handles, id)
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) Register(id uint, scope string) *Handle {
	var h *Handle
	_ = r.Do(func(tx *RegistryTx) error {
		h = tx.Register(id, scope)
		return nil
	})
	return h
}

func (r *Registry) Cancel(id uint) bool {
	var ok bool
	_ = r.Do(func(tx *RegistryTx) error {
		ok = tx.Cancel(id)
		return nil
	})
	return ok
}

// ClearOnTerminal forgets id without signalling it.
func (r *Registry) ClearOnTerminal(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[id]; ok {
		delete(r.handles, id)
		h.cancel()
	}
}

func (r *Registry) Handle(id uint) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// ShuttingDown reports whether Close has been called.
func (r *Registry) ShuttingDown() bool {
	return r.ctx.Err() != nil
}

// Close stops every transfer without marking them cancelled by a user.
func (r *Registry) Close() {
	r.cancel()
}
