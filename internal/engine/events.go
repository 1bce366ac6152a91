package engine

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/addonsync/internal/logging"
)

// WaitKind names the one event the worker may be blocked on.
type WaitKind int

const (
	WaitNone WaitKind = iota
	WaitLogin
)

func (k WaitKind) String() string {
	switch k {
	case WaitLogin:
		return "login"
	default:
		return "none"
	}
}

// rendezvous is the single-slot handshake between the foreground and the
// worker: the worker waits for exactly one kind of event at a time, and a
// fire of any other kind (or with no waiter) is dropped rather than queued,
// so late or duplicate UI events cannot corrupt state.
type rendezvous struct {
	mu      sync.Mutex
	kind    WaitKind
	payload chan any
	log     logging.Logger
}

func newRendezvous(log logging.Logger) *rendezvous {
	return &rendezvous{log: log}
}

// wait blocks until a matching fire arrives or the context ends.
func (r *rendezvous) wait(ctx context.Context, kind WaitKind) (any, bool) {
	r.mu.Lock()
	r.kind = kind
	r.payload = make(chan any, 1)
	ch := r.payload
	r.mu.Unlock()

	select {
	case payload := <-ch:
		return payload, true
	case <-ctx.Done():
		r.mu.Lock()
		r.kind = WaitNone
		r.payload = nil
		r.mu.Unlock()
		return nil, false
	}
}

// fire delivers a payload to a matching waiter. Mismatches are dropped.
func (r *rendezvous) fire(kind WaitKind, payload any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.kind != kind || r.payload == nil {
		r.log.Info(context.Background(), "dropping event", "kind", kind.String())
		return false
	}
	r.kind = WaitNone
	ch := r.payload
	r.payload = nil
	ch <- payload
	return true
}
