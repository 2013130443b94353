package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/executor"
	"github.com/maccontainer/buildengine/internal/multierror"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/reporter"
	"github.com/maccontainer/buildengine/snapshot"
)

// executeBase dispatches stage's base ImageOperation and returns the
// resulting snapshot and image config.
func (s *Scheduler) executeBase(ctx context.Context, stage *ir.BuildStage, platform ir.Platform, stageCtx *ExecutionContext) (snapshot.Snapshot, error) {
	reportCtx := reporter.ReportContext{
		StageID:     stage.ID,
		Description: stage.Base.Describe(),
		Timestamp:   time.Now(),
	}
	if s.cfg.EnableProgressReporting {
		s.rep.OperationStarted(reportCtx)
	}

	start := time.Now()
	s.state.RecordDispatch()
	result, err := s.dispatcher.Dispatch(ctx, executor.Input{Operation: stage.Base, Platform: platform})
	if err != nil {
		s.reportFailure(reportCtx, err)
		return snapshot.Snapshot{}, err
	}

	stageCtx.ApplyMetadataChanges(result.MetadataChanges)
	stageCtx.ApplyEnvironmentChanges(result.EnvironmentChanges)
	stageCtx.RecordSnapshot(baseNodeID, result.Snapshot.Digest)

	if s.cfg.EnableProgressReporting {
		s.rep.OperationFinished(reportCtx, time.Since(start))
	}
	return result.Snapshot, nil
}

const baseNodeID = "__base__"

// leafNodeIDs returns the nodes in stage that are not a dependency of
// any other node in the stage: the stage's final filesystem state is
// the merge of their snapshots.
func leafNodeIDs(stage *ir.BuildStage) []string {
	hasDependent := make(map[string]bool, len(stage.Nodes))
	for _, n := range stage.Nodes {
		for _, dep := range n.Dependencies {
			hasDependent[dep] = true
		}
	}
	var leaves []string
	for _, n := range stage.Nodes {
		if !hasDependent[n.ID] {
			leaves = append(leaves, n.ID)
		}
	}
	return leaves
}

// executeStage runs stage's base resolution then its Kahn-layered
// node groups in order, returning the stage's final snapshot.
func (s *Scheduler) executeStage(ctx context.Context, graph *ir.BuildGraph, stageIdx int, analysis *StageAnalysis, platform ir.Platform, shared *SharedStageContext) (snapshot.Snapshot, *ir.ImageConfig, error) {
	stage := graph.Stages[stageIdx]

	if s.cfg.EnableProgressReporting {
		s.rep.StageStarted(stageName(stage), time.Now())
	}

	stageCtx := NewExecutionContext(stage.ID, platform, nil, s.rep)

	baseSnap, err := s.executeBase(ctx, stage, platform, stageCtx)
	if err != nil {
		return snapshot.Snapshot{}, nil, err
	}
	shared.SetBase(stage.ID, baseSnap)

	var groupErr error
	for _, group := range analysis.Groups {
		if err := s.executeGroup(ctx, graph, stageIdx, group, stage, stageCtx, platform, shared); err != nil {
			groupErr = err
			if s.cfg.FailFast {
				break
			}
		}
	}

	var finalSnap snapshot.Snapshot
	if groupErr == nil {
		finalSnap, err = s.mergeFinalSnapshot(ctx, stage, baseSnap, stageCtx)
		if err != nil {
			groupErr = err
		}
	}

	if groupErr != nil {
		if s.cfg.EnableProgressReporting {
			s.rep.StageCompleted(stageName(stage), time.Now())
		}
		return snapshot.Snapshot{}, nil, groupErr
	}

	shared.SetFinal(stage.ID, finalSnap)
	if s.cfg.EnableProgressReporting {
		s.rep.StageCompleted(stageName(stage), time.Now())
	}
	return finalSnap, stageCtx.ImageConfig(), nil
}

func stageName(stage *ir.BuildStage) string {
	if stage.Name != "" {
		return stage.Name
	}
	return stage.ID
}

func (s *Scheduler) mergeFinalSnapshot(ctx context.Context, stage *ir.BuildStage, baseSnap snapshot.Snapshot, stageCtx *ExecutionContext) (snapshot.Snapshot, error) {
	leaves := leafNodeIDs(stage)
	if len(leaves) == 0 {
		return baseSnap, nil
	}
	digests := make([]digest.Digest, 0, len(leaves))
	for _, id := range leaves {
		d, ok := stageCtx.NodeSnapshot(id)
		if !ok {
			return snapshot.Snapshot{}, errdefs.Internal("leaf node " + id + " has no recorded snapshot")
		}
		digests = append(digests, d)
	}
	if len(digests) == 1 {
		return snapshot.Snapshot{Digest: digests[0]}, nil
	}
	return s.snapshotter.Merge(ctx, digests)
}

// executeGroup runs one Kahn layer's nodes concurrently, honoring
// resource caps and failFast. A layer wider than the resource
// monitor's capacity is split into chunks no larger than that
// capacity: each chunk bulk-acquires its own slots, runs, and releases
// before the next chunk starts, so a single layer can never request
// more slots than the monitor could ever grant (the whole-layer bulk
// acquire this replaces would simply block forever on a wide layer).
// Chunks are additionally capped so the sum of their nodes' declared
// NodeConstraints.MemoryLimit never exceeds cfg.MaxMemoryUsage, the
// build's overall memory budget.
func (s *Scheduler) executeGroup(ctx context.Context, graph *ir.BuildGraph, stageIdx int, group []string, stage *ir.BuildStage, stageCtx *ExecutionContext, platform ir.Platform, shared *SharedStageContext) error {
	byID := make(map[string]*ir.BuildNode, len(stage.Nodes))
	for _, n := range stage.Nodes {
		byID[n.ID] = n
	}

	capacity := s.resources.Capacity()
	if capacity < 1 {
		capacity = 1
	}

	var errs []error
	for start := 0; start < len(group); {
		end := chunkEnd(group, byID, start, capacity, s.cfg.MaxMemoryUsage)
		if err := s.executeChunk(ctx, graph, stageIdx, group[start:end], byID, stageCtx, platform, shared); err != nil {
			errs = append(errs, err)
			if s.cfg.FailFast {
				break
			}
		}
		start = end
	}

	return multierror.Join(errs...)
}

// chunkEnd returns the exclusive end index of the next chunk starting
// at start: at most capacity nodes, and no more than memBudget bytes
// of summed NodeConstraints.MemoryLimit (0 means no budget, in which
// case only capacity applies). A single node whose own MemoryLimit
// already exceeds memBudget still gets its own one-node chunk, so
// scheduling always makes progress.
func chunkEnd(group []string, byID map[string]*ir.BuildNode, start, capacity int, memBudget int64) int {
	end := start
	var memUsed int64
	for end < len(group) && end-start < capacity {
		cost := byID[group[end]].Constraints.MemoryLimit
		if end > start && memBudget > 0 && cost > 0 && memUsed+cost > memBudget {
			break
		}
		memUsed += cost
		end++
	}
	if end == start {
		end = start + 1
	}
	return end
}

// executeChunk runs one resource-sized slice of a Kahn layer: it
// bulk-acquires exactly len(chunk) slots (never more than the
// monitor's capacity, by construction of executeGroup's split), runs
// every node in the chunk concurrently, and releases the slots before
// returning.
func (s *Scheduler) executeChunk(ctx context.Context, graph *ir.BuildGraph, stageIdx int, chunk []string, byID map[string]*ir.BuildNode, stageCtx *ExecutionContext, platform ir.Platform, shared *SharedStageContext) error {
	if err := s.resources.WaitForResources(ctx, len(chunk)); err != nil {
		return err
	}
	defer s.resources.ReleaseResources(len(chunk))

	chunkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, id := range chunk {
		node := byID[id]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.executeNode(chunkCtx, graph, stageIdx, node, stageCtx, platform, shared); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				if s.cfg.FailFast {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	return multierror.Join(errs...)
}
