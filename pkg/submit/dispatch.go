package submit

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pipewright/pkg/graph"
	"github.com/matzehuels/pipewright/pkg/observability"
)

// Submitter performs one submission.
type Submitter interface {
	Submit(ctx context.Context, p graph.Pipeline) (Result, error)
}

// Snapshotter provides the graph to submit.
type Snapshotter interface {
	Snapshot() graph.Pipeline
}

// Surface receives outcomes for the UI element that requested them. Once
// closed, late outcomes are dropped. A nil *Surface behaves as closed.
type Surface struct {
	mu      sync.Mutex
	closed  bool
	deliver func(Outcome)
}

// NewSurface creates an open surface delivering to fn.
func NewSurface(fn func(Outcome)) *Surface {
	return &Surface{deliver: fn}
}

// Close tears the surface down. In-flight submissions are not cancelled;
// their outcomes are discarded.
func (s *Surface) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Surface) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Deliver hands o to the surface and reports whether it was accepted.
// The lock is held during delivery so Close never returns mid-delivery.
func (s *Surface) Deliver(o Outcome) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.deliver != nil {
		s.deliver(o)
	}
	return true
}

// Dispatcher runs submissions in the background.
type Dispatcher struct {
	client Submitter
	logger *log.Logger
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. A nil logger uses log.Default().
func NewDispatcher(c Submitter, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{client: c, logger: logger}
}

// Dispatch snapshots src now and submits the snapshot in the background;
// later edits are not part of this submission. The outcome goes to surface
// unless it was closed first; a nil surface discards it. Concurrent dispatches are independent.
// It returns the submission id.
func (d *Dispatcher) Dispatch(ctx context.Context, src Snapshotter, surface *Surface) string {
	snap := src.Snapshot()
	id := uuid.NewString()
	ctx = WithRequestID(ctx, id)

	hooks := observability.Submit()
	hooks.OnSubmitStart(ctx, id, len(snap.Nodes), len(snap.Edges))
	d.logger.Debug("dispatching submission", "id", id, "nodes", len(snap.Nodes), "edges", len(snap.Edges))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		start := time.Now()
		res, err := d.client.Submit(ctx, snap)
		hooks.OnSubmitComplete(ctx, id, time.Since(start), err)

		out := Interpret(res, err)
		out.SubmissionID = id
		if err != nil {
			d.logger.Debug("submission failed", "id", id, "err", err)
		}
		if !surface.Deliver(out) {
			hooks.OnResultDiscarded(ctx, id)
			d.logger.Debug("submission result discarded", "id", id)
		}
	}()
	return id
}

// Wait blocks until every dispatched submission has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
