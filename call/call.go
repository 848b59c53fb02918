// Package call implements the one-shot Call lifecycle state machine from
// spec.md §4.2: idle -> running -> completed, with a one-way cancelled
// transition observable from any state.
package call

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/fluxhttp/flux"
	"github.com/fluxhttp/flux/fluxerr"
)

// State is one of the four states in spec.md §4.2.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrAlreadyExecuted is returned when Execute is called a second time on a
// Call that didn't end up cancelled — spec.md §4.2: "Double-execute is a
// programmer error; the second execute MUST fail fast."
var ErrAlreadyExecuted = errors.New("flux/call: Execute called twice")

// Run is the body a Call executes: the interceptor chain wrapped around the
// terminal transport, given the call's own cancellable context.
type Run func(ctx context.Context, req flux.Request) (flux.Response, error)

// Call is a one-shot handle to execute a single Request (spec.md §4.2).
type Call struct {
	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an idle Call deriving its context from parent.
func New(parent context.Context) *Call {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Call{ctx: ctx, cancel: cancel}
	c.state.Store(int32(StateIdle))
	return c
}

// State returns the call's current state.
func (c *Call) State() State { return State(c.state.Load()) }

// IsCancelled reports whether Cancel has been called, per spec.md §4.2's
// "one-way transition observable via isCancelled".
func (c *Call) IsCancelled() bool { return c.State() == StateCancelled }

// Context returns the call's context, cancelled when Cancel is called.
// Transports should select on ctx.Done() at their cooperative suspension
// points (spec.md §4.2, §5).
func (c *Call) Context() context.Context { return c.ctx }

// Cancel transitions the call to cancelled from any state. It is idempotent:
// calling it more than once has no further effect (spec.md §4.2).
func (c *Call) Cancel() {
	for {
		cur := c.state.Load()
		if cur == int32(StateCancelled) {
			return
		}
		if c.state.CompareAndSwap(cur, int32(StateCancelled)) {
			c.cancel()
			return
		}
	}
}

// Execute runs fn exactly once. A second Execute call on a terminal state
// fails fast: with fluxerr's Cancelled kind if the call was cancelled before
// or during the only legitimate run, or ErrAlreadyExecuted otherwise.
//
// Cancellation is pre-checked before fn begins (spec.md §4.2: "MUST be
// observed before beginning the interceptor chain"), closing the race
// between a concurrent Cancel and the idle->running transition. A parent
// context that is already done counts as a cancellation.
func (c *Call) Execute(req flux.Request, fn Run) (flux.Response, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if c.IsCancelled() {
			return flux.Response{}, fluxerr.CancelledError("call.Execute")
		}
		return flux.Response{}, ErrAlreadyExecuted
	}

	if c.ctx.Err() != nil {
		c.Cancel()
	}
	if c.IsCancelled() {
		return flux.Response{}, fluxerr.CancelledError("call.Execute")
	}

	resp, err := fn(c.ctx, req)

	// Leave a concurrently-cancelled call in StateCancelled rather than
	// clobbering it back to completed.
	c.state.CompareAndSwap(int32(StateRunning), int32(StateCompleted))
	return resp, err
}
