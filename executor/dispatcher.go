package executor

import (
	"context"
	"fmt"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/ir"
)

// Dispatcher routes a node's operation to the OperationExecutor
// registered for its kind. It holds no scheduling state of its own
// beyond each executor's own declared concurrency cap; the scheduler
// calls Dispatch once per node attempt.
type Dispatcher struct {
	executors    map[ir.OperationKind]OperationExecutor
	capabilities Capabilities
	limiters     map[ir.OperationKind]chan struct{}
}

// NewDispatcher builds a Dispatcher over executors, keyed by each
// executor's own declared Kind; a kind with no registered executor is
// simply unsupported, not an error at construction time. An executor
// whose Capabilities().MaxConcurrency is positive gets a dedicated
// admission gate so Dispatch never runs more than that many of its
// operations at once, independent of the scheduler's own resource cap.
func NewDispatcher(capabilities Capabilities, executors ...OperationExecutor) *Dispatcher {
	d := &Dispatcher{
		executors:    make(map[ir.OperationKind]OperationExecutor, len(executors)),
		capabilities: capabilities,
		limiters:     make(map[ir.OperationKind]chan struct{}),
	}
	for _, e := range executors {
		d.executors[e.Kind()] = e
		if mc := e.Capabilities().MaxConcurrency; mc > 0 {
			d.limiters[e.Kind()] = make(chan struct{}, mc)
		}
	}
	return d
}

// Capabilities returns the platform set this dispatcher can run on.
func (d *Dispatcher) Capabilities() Capabilities { return d.capabilities }

// Dispatch runs in.Operation's executor, or returns ErrUnsupportedOperation
// if no executor is registered for its kind, the dispatch platform
// (in.Platform) falls outside the dispatcher's capabilities, or the
// registered executor cannot satisfy in.Constraints (privileged,
// minimum memory, or a platform pin other than in.Platform).
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (Result, error) {
	if !d.capabilities.Supports(in.Platform) {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor: platform %s not supported", in.Platform))
	}

	kind := in.Operation.OperationKind()
	e, ok := d.executors[kind]
	if !ok {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor: no executor registered for kind %q", kind))
	}

	caps := e.Capabilities()
	if !caps.satisfies(in.Constraints, in.Platform) {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor: %q cannot satisfy node constraints for platform %s", kind, in.Platform))
	}

	if lim, ok := d.limiters[kind]; ok {
		select {
		case lim <- struct{}{}:
			defer func() { <-lim }()
		case <-ctx.Done():
			return Result{}, errdefs.Cancelled()
		}
	}

	return e.Run(ctx, in)
}
