package executor

import (
	"context"
	"fmt"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/internal/envutil"
	"github.com/maccontainer/buildengine/internal/log"
	"github.com/maccontainer/buildengine/ir"
)

// MetadataExecutor runs ir.MetadataOperation nodes: these never touch
// the filesystem, only the running ImageConfig the stage accumulates
// (ENV, WORKDIR, USER, ENTRYPOINT, CMD, LABEL, ...).
type MetadataExecutor struct{}

func (e *MetadataExecutor) Kind() ir.OperationKind { return ir.OperationKindMetadata }

// Capabilities reports that MetadataExecutor never requires a
// privileged sandbox and imposes no concurrency limit: it only
// mutates in-memory ImageConfig state.
func (e *MetadataExecutor) Capabilities() ExecutorCapabilities {
	return ExecutorCapabilities{SupportedOperations: []ir.OperationKind{ir.OperationKindMetadata}}
}

func (e *MetadataExecutor) Run(ctx context.Context, in Input) (Result, error) {
	op, ok := in.Operation.(*ir.MetadataOperation)
	if !ok {
		return Result{}, errdefs.UnsupportedOperation(fmt.Sprintf("executor/metadata: %T", in.Operation))
	}

	log.G(ctx).WithField("action", string(op.Action)).Debug("applying metadata operation")

	cfg := &ir.ImageConfig{}
	var envChanges []string

	switch op.Action {
	case ir.MetadataActionEnv:
		kvs := make([]string, 0, len(op.KeyValues))
		for _, kv := range op.KeyValues {
			kvs = append(kvs, kv.Key+"="+kv.Value)
		}
		cfg.Env = envutil.ReplaceOrAppendEnvValues(append([]string(nil), in.Env...), kvs)
		envChanges = kvs
	case ir.MetadataActionWorkdir:
		cfg.WorkingDir = op.Value
	case ir.MetadataActionUser:
		cfg.User = op.Value
	case ir.MetadataActionEntrypoint:
		cfg.Entrypoint = op.Args
	case ir.MetadataActionCmd:
		cfg.Cmd = op.Args
	case ir.MetadataActionLabels:
		cfg.Labels = make(map[string]string, len(op.KeyValues))
		for _, kv := range op.KeyValues {
			cfg.Labels[kv.Key] = kv.Value
		}
	case ir.MetadataActionExpose:
		cfg.ExposedPorts = op.Args
	case ir.MetadataActionStopSignal:
		cfg.StopSignal = op.Value
	case ir.MetadataActionHealthcheck:
		cfg.Healthcheck = op.Healthcheck
	case ir.MetadataActionShell:
		cfg.Shell = op.Args
	case ir.MetadataActionVolume:
		cfg.Volumes = op.Args
	case ir.MetadataActionOnBuild:
		cfg.OnBuild = op.Args
	case ir.MetadataActionArg:
		// build args resolve at graph-construction time; nothing to
		// record in the running image config.
	default:
		return Result{}, errdefs.UnsupportedOperation("executor/metadata: unknown action " + string(op.Action))
	}

	return Result{EnvironmentChanges: envChanges, MetadataChanges: cfg}, nil
}
