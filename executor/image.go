package executor

import (
	"context"
	"fmt"

	"github.com/distribution/reference"
	pkgerrors "github.com/pkg/errors"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/internal/log"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/snapshot"
)

// Resolver resolves an ImageSource to a root filesystem snapshot; a
// registry source pulls from a registry, an oci-layout or tarball
// source reads from local storage. Scratch never calls Resolver.
type Resolver interface {
	Resolve(ctx context.Context, src ir.ImageSource, platform ir.Platform) (snapshot.Snapshot, *ir.ImageConfig, error)
}

// ImageExecutor runs ir.ImageOperation nodes: resolving a stage's base
// image, which for a scratch source needs no resolver call at all.
type ImageExecutor struct {
	Snapshotter snapshot.Snapshotter
	Resolver    Resolver

	// MaxConcurrency caps concurrent Run calls the dispatcher admits
	// for this executor; 0 means unbounded.
	MaxConcurrency int
}

func (e *ImageExecutor) Kind() ir.OperationKind { return ir.OperationKindImage }

// Capabilities reports that ImageExecutor never requires a privileged
// sandbox: resolving a base image touches no running container state.
func (e *ImageExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{
		SupportedOperations: []ir.OperationKind{ir.OperationKindImage},
		MaxConcurrency:      e.MaxConcurrency,
	}
}

func (e *ImageExecutor) Run(ctx context.Context, in Input) (Result, error) {
	op, ok := in.Operation.(*ir.ImageOperation)
	if !ok {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor/image: %T", in.Operation))
	}

	log.G(ctx).WithField("source", op.Source.Ref).Debug("resolving image source")

	if op.Source.Kind == ir.ImageSourceScratch {
		snap, err := e.Snapshotter.Empty(ctx)
		if err != nil {
			return Result{}, errdefs.OperationFailed(op.Describe(), err)
		}
		return Result{Snapshot: snap, MetadataChanges: &ir.ImageConfig{}}, nil
	}

	if e.Resolver == nil {
		return Result{}, errdefs.UnsupportedOperation("executor/image: no resolver configured for " + string(op.Source.Kind))
	}

	resolved := op.Source
	if resolved.Kind == ir.ImageSourceRegistry {
		named, err := reference.ParseNormalizedNamed(resolved.Ref)
		if err != nil {
			return Result{}, errdefs.OperationFailed(op.Describe(), pkgerrors.Wrapf(err, "parse image reference %q", resolved.Ref))
		}
		resolved.Ref = reference.TagNameOnly(named).String()
	}

	snap, cfg, err := e.Resolver.Resolve(ctx, resolved, in.Platform)
	if err != nil {
		return Result{}, errdefs.OperationFailed(op.Describe(), err)
	}
	if cfg == nil {
		cfg = &ir.ImageConfig{}
	}
	return Result{Snapshot: snap, EnvironmentChanges: cfg.Env, MetadataChanges: cfg}, nil
}
