package executor

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/internal/log"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/snapshot"
)

// FilesystemExecutor runs ir.FilesystemOperation nodes: COPY/ADD-style
// content placement, and filesystem-local actions (remove, mkdir,
// symlink, hardlink) that don't need an external FetchSource.
type FilesystemExecutor struct {
	Snapshotter snapshot.Snapshotter
	Fetch       FetchSource

	// MaxConcurrency caps concurrent Run calls the dispatcher admits
	// for this executor; 0 means unbounded.
	MaxConcurrency int
}

func (e *FilesystemExecutor) Kind() ir.OperationKind { return ir.OperationKindFilesystem }

// Capabilities reports that FilesystemExecutor never requires a
// privileged sandbox: content placement needs no elevated execution.
func (e *FilesystemExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{
		SupportedOperations: []ir.OperationKind{ir.OperationKindFilesystem},
		MaxConcurrency:      e.MaxConcurrency,
	}
}

func (e *FilesystemExecutor) Run(ctx context.Context, in Input) (Result, error) {
	op, ok := in.Operation.(*ir.FilesystemOperation)
	if !ok {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor/filesystem: %T", in.Operation))
	}

	log.G(ctx).WithField("dest", op.Dest).Debug("applying filesystem operation")

	content, err := e.resolveContent(ctx, op)
	if err != nil {
		return Result{}, errdefs.OperationFailed(op.Describe(), err)
	}

	parent := digestOf(in.DependencySnapshots)
	committed, err := e.Snapshotter.Commit(ctx, parent, content)
	if err != nil {
		return Result{}, errdefs.OperationFailed(op.Describe(), err)
	}

	return Result{Snapshot: committed}, nil
}

func (e *FilesystemExecutor) resolveContent(ctx context.Context, op *ir.FilesystemOperation) ([]byte, error) {
	switch op.Source.Kind {
	case ir.FilesystemSourceInline:
		return []byte(op.Source.Inline), nil
	case ir.FilesystemSourceURL:
		if e.Fetch == nil {
			return nil, errdefs.UnsupportedOperation("executor/filesystem: no fetch source configured for url")
		}
		return e.Fetch.FetchURL(ctx, op.Source.URL)
	case ir.FilesystemSourceGit:
		if e.Fetch == nil {
			return nil, errdefs.UnsupportedOperation("executor/filesystem: no fetch source configured for git")
		}
		return e.Fetch.FetchGit(ctx, op.Source.URL)
	case ir.FilesystemSourceContext:
		if e.Fetch == nil {
			return nil, errdefs.UnsupportedOperation("executor/filesystem: no fetch source configured for context")
		}
		return e.Fetch.FetchContext(ctx, op.Source.Paths)
	case ir.FilesystemSourceStage, ir.FilesystemSourceImage:
		// a stage source's content reaches this node through its
		// dependency snapshots, which the scheduler resolves. An image
		// source is not fetched by anything: only the parent snapshot
		// is committed for it.
		return nil, nil
	case ir.FilesystemSourceScratch:
		return nil, nil
	default:
		return nil, errdefs.UnsupportedOperation("executor/filesystem: unknown source kind " + string(op.Source.Kind))
	}
}

func digestOf(snaps []snapshot.Snapshot) digest.Digest {
	if len(snaps) == 0 {
		return ""
	}
	return snaps[0].Digest
}
