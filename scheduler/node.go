package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/cache"
	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/executor"
	"github.com/maccontainer/buildengine/internal/ring"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/reporter"
	"github.com/maccontainer/buildengine/snapshot"
)

// logTailBytes bounds the recent-log-tail diagnostic attached to a
// failed operation's errdefs.Fields.
const logTailBytes = 4096

// logTailLines is how many of the most recent buffered lines are
// joined into that diagnostic.
const logTailLines = 20

// resolveDependencySnapshots gathers the input snapshots a node needs:
// its same-stage dependencies' recorded snapshots, plus, if its
// operation references another stage (FilesystemSourceStage), that
// stage's final snapshot from shared.
func resolveDependencySnapshots(node *ir.BuildNode, stageCtx *ExecutionContext, graph *ir.BuildGraph, stageIdx int, shared *SharedStageContext) ([]snapshot.Snapshot, error) {
	var snaps []snapshot.Snapshot
	for _, depID := range node.Dependencies {
		d, ok := stageCtx.NodeSnapshot(depID)
		if !ok {
			return nil, errdefs.Internal("node " + depID + " has no recorded snapshot")
		}
		snaps = append(snaps, snapshot.Snapshot{Digest: d})
	}

	if fsOp, ok := node.Operation.(*ir.FilesystemOperation); ok && fsOp.Source.Kind == ir.FilesystemSourceStage {
		depIdx, ok := graph.StageIndexByRef(fsOp.Source.Ref, stageIdx)
		if !ok {
			return nil, errdefs.StageNotFound(fsOp.Source.Ref)
		}
		final, ok := shared.Final(graph.Stages[depIdx].ID)
		if !ok {
			return nil, errdefs.Internal("stage " + graph.Stages[depIdx].ID + " has no final snapshot yet")
		}
		snaps = append(snaps, final)
	}

	return snaps, nil
}

// nodeStateKey scopes a node id to the platform and stage it is
// running under. Node ids are only unique within a stage, and a stage
// runs once per target platform, so ExecutionState (shared across the
// whole build) would otherwise let a MarkNodeFailed in one platform
// resolve a same-named node's waiters in another.
func nodeStateKey(platform ir.Platform, stageID, nodeID string) string {
	return platform.String() + "/" + stageID + "/" + nodeID
}

// cacheInputDigests computes the input digest set for node: the
// context's latest snapshot digest plus every direct dependency's
// snapshot digest; NewCacheKey sorts these itself.
func cacheInputDigests(node *ir.BuildNode, stageCtx *ExecutionContext, depSnapshots []snapshot.Snapshot) []digest.Digest {
	digests := []digest.Digest{stageCtx.LatestSnapshot()}
	for _, s := range depSnapshots {
		digests = append(digests, s.Digest)
	}
	return digests
}

// executeNode runs one node to completion: dependency wait, cache
// lookup, dispatch with retry, context mutation, and reporter events.
func (s *Scheduler) executeNode(ctx context.Context, graph *ir.BuildGraph, stageIdx int, node *ir.BuildNode, stageCtx *ExecutionContext, platform ir.Platform, shared *SharedStageContext) error {
	selfKey := nodeStateKey(platform, stageCtx.StageID, node.ID)
	for _, depID := range node.Dependencies {
		if err := s.state.WaitForNode(nodeStateKey(platform, stageCtx.StageID, depID)); err != nil {
			s.state.MarkNodeFailed(selfKey)
			return err
		}
	}

	reportCtx := reporter.ReportContext{
		NodeID:      node.ID,
		StageID:     stageCtx.StageID,
		Description: node.Operation.Describe(),
		Timestamp:   time.Now(),
	}

	if pin := node.Constraints.RequiresPlatform; pin != nil && *pin != platform {
		return s.skipPlatformPinnedNode(node, stageCtx, graph, stageIdx, shared, reportCtx, platform, *pin)
	}

	logTail := ring.New(logTailBytes)

	depSnapshots, err := resolveDependencySnapshots(node, stageCtx, graph, stageIdx, shared)
	if err != nil {
		failErr := s.attachFailureFields(stageCtx, logTail, err)
		s.reportFailure(reportCtx, failErr)
		s.state.MarkNodeFailed(selfKey)
		return failErr
	}

	inputDigests := cacheInputDigests(node, stageCtx, depSnapshots)
	key := cache.NewCacheKey(node.Operation, inputDigests, platform)

	if s.cfg.EnableProgressReporting {
		s.rep.OperationStarted(reportCtx)
	}

	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		stageCtx.RecordSnapshot(node.ID, cached.Snapshot)
		stageCtx.ApplyEnvironmentChanges(cached.EnvironmentChanges)
		stageCtx.ApplyMetadataChanges(cached.MetadataChanges)
		s.state.RecordCacheHit()
		if s.cfg.EnableProgressReporting {
			s.rep.OperationCacheHit(reportCtx)
		}
		s.state.MarkNodeCompleted(selfKey)
		return nil
	}

	start := time.Now()
	var result executor.Result
	retryErr := runWithRetry(ctx, node.Operation.Metadata().RetryPolicy, func(attempt int, err error) {
		// NodeRetries is reported to callers keyed by the node's own id
		// (see ExecutionMetrics), not the internal waiter-barrier key.
		s.state.IncrementRetryCount(node.ID)
		line := fmt.Sprintf("attempt %d failed: %v", attempt, err)
		_ = logTail.Enqueue(&ring.Line{Text: line})
		if s.cfg.EnableProgressReporting {
			s.rep.OperationLog(reportCtx, line)
		}
	}, func(ctx context.Context) error {
		s.state.RecordDispatch()
		in := executor.Input{
			Operation:           node.Operation,
			Platform:            platform,
			Constraints:         node.Constraints,
			DependencySnapshots: depSnapshots,
			WorkingDir:          stageCtx.WorkingDir(),
			Env:                 stageCtx.Environment(),
			User:                stageCtx.User(),
		}
		var dispatchErr error
		result, dispatchErr = s.dispatcher.Dispatch(ctx, in)
		return dispatchErr
	})

	if retryErr != nil {
		failErr := s.attachFailureFields(stageCtx, logTail, retryErr)
		s.reportFailure(reportCtx, failErr)
		s.state.MarkNodeFailed(selfKey)
		return failErr
	}

	stageCtx.RecordSnapshot(node.ID, result.Snapshot.Digest)
	stageCtx.ApplyEnvironmentChanges(result.EnvironmentChanges)
	stageCtx.ApplyMetadataChanges(result.MetadataChanges)

	_ = s.cache.Put(ctx, key, cache.CachedResult{
		Snapshot:           result.Snapshot.Digest,
		EnvironmentChanges: result.EnvironmentChanges,
		MetadataChanges:    result.MetadataChanges,
	})

	if s.cfg.EnableProgressReporting {
		s.rep.OperationFinished(reportCtx, time.Since(start))
	}
	s.state.MarkNodeCompleted(selfKey)
	return nil
}

// skipPlatformPinnedNode passes a node's upstream snapshot through
// unchanged instead of dispatching it. It runs in place of Dispatch
// for a node whose NodeConstraints.RequiresPlatform names a platform
// other than the one this round is executing for, so the node still
// resolves a snapshot for its dependents without ever running on a
// platform it wasn't written for.
func (s *Scheduler) skipPlatformPinnedNode(node *ir.BuildNode, stageCtx *ExecutionContext, graph *ir.BuildGraph, stageIdx int, shared *SharedStageContext, reportCtx reporter.ReportContext, platform, pin ir.Platform) error {
	selfKey := nodeStateKey(platform, stageCtx.StageID, node.ID)

	depSnapshots, err := resolveDependencySnapshots(node, stageCtx, graph, stageIdx, shared)
	if err != nil {
		s.reportFailure(reportCtx, err)
		s.state.MarkNodeFailed(selfKey)
		return err
	}

	passthrough := stageCtx.LatestSnapshot()
	if len(depSnapshots) > 0 {
		passthrough = depSnapshots[len(depSnapshots)-1].Digest
	}
	stageCtx.RecordSnapshot(node.ID, passthrough)

	if s.cfg.EnableProgressReporting {
		s.rep.OperationStarted(reportCtx)
		s.rep.OperationLog(reportCtx, fmt.Sprintf("skipped: pinned to platform %s", pin))
		s.rep.OperationFinished(reportCtx, 0)
	}
	s.state.MarkNodeCompleted(selfKey)
	return nil
}

func (s *Scheduler) reportFailure(reportCtx reporter.ReportContext, err error) {
	if s.cfg.EnableProgressReporting {
		s.rep.OperationFailed(reportCtx, err)
	}
}

// attachFailureFields wraps err with the diagnostic fields a failed
// operation surfaces to its caller: working directory, the current
// environment's keys, and the recent log tail buffered across retries.
func (s *Scheduler) attachFailureFields(stageCtx *ExecutionContext, logTail *ring.Buffer, err error) error {
	fields := errdefs.Fields{"workdir": stageCtx.WorkingDir()}
	if env := stageCtx.Environment(); len(env) > 0 {
		keys := make([]string, len(env))
		for i, kv := range env {
			if idx := strings.IndexByte(kv, '='); idx >= 0 {
				keys[i] = kv[:idx]
			} else {
				keys[i] = kv
			}
		}
		fields["env"] = strings.Join(keys, ",")
	}
	if tail := logTail.Tail(logTailLines); len(tail) > 0 {
		fields["logTail"] = strings.Join(tail, "\n")
	}
	return errdefs.WithFields(err, fields)
}
