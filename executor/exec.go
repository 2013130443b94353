package executor

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/internal/envutil"
	"github.com/maccontainer/buildengine/internal/log"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/snapshot"
)

// Runner actually invokes a Command against a filesystem snapshot,
// returning the resulting filesystem diff to commit as a new snapshot.
// This package does not implement process isolation itself; a real
// deployment supplies a Runner backed by the platform's sandboxing
// primitive.
type Runner interface {
	RunCommand(ctx context.Context, cmd ir.Command, rootSnapshot snapshot.Snapshot, env []string) (diff []byte, err error)
}

// ExecExecutor runs ir.ExecOperation nodes: RUN-style command
// execution against the node's merged dependency snapshot and
// inherited environment.
type ExecExecutor struct {
	Snapshotter snapshot.Snapshotter
	Runner      Runner

	// MaxConcurrency caps concurrent Run calls the dispatcher admits
	// for this executor; 0 means unbounded.
	MaxConcurrency int
	// MaxMemory is the most memory a single command is guaranteed,
	// advertised through Capabilities; 0 means unbounded.
	MaxMemory int64
}

func (e *ExecExecutor) Kind() ir.OperationKind { return ir.OperationKindExec }

// Capabilities reports that ExecExecutor can satisfy a node that
// requires privileged execution, since running an arbitrary command
// may need it; RequiresPlatform/minimum-memory enforcement falls out
// of ExecutorCapabilities.satisfies at dispatch time.
func (e *ExecExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{
		SupportedOperations: []ir.OperationKind{ir.OperationKindExec},
		RequiresPrivileged:  true,
		MaxConcurrency:      e.MaxConcurrency,
		Resources:           ResourceLimits{MaxMemory: e.MaxMemory},
	}
}

func (e *ExecExecutor) Run(ctx context.Context, in Input) (Result, error) {
	op, ok := in.Operation.(*ir.ExecOperation)
	if !ok {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor/exec: %T", in.Operation))
	}

	log.G(ctx).WithField("command", op.Command.Path).Debug("running command")

	root, err := e.mergeInputs(ctx, in.DependencySnapshots)
	if err != nil {
		return Result{}, errdefs.OperationFailed(op.Describe(), err)
	}

	env := envutil.ReplaceOrAppendEnvValues(append([]string(nil), in.Env...), op.Env)

	diff, err := e.Runner.RunCommand(ctx, op.Command, root, env)
	if err != nil {
		return Result{}, errdefs.OperationFailed(op.Describe(), err)
	}

	committed, err := e.Snapshotter.Commit(ctx, root.Digest, diff)
	if err != nil {
		return Result{}, errdefs.OperationFailed(op.Describe(), err)
	}

	return Result{Snapshot: committed, EnvironmentChanges: op.Env}, nil
}

func (e *ExecExecutor) mergeInputs(ctx context.Context, snaps []snapshot.Snapshot) (snapshot.Snapshot, error) {
	switch len(snaps) {
	case 0:
		return e.Snapshotter.Empty(ctx)
	case 1:
		return snaps[0], nil
	default:
		digests := make([]digest.Digest, len(snaps))
		for i, s := range snaps {
			digests[i] = s.Digest
		}
		return e.Snapshotter.Merge(ctx, digests)
	}
}
