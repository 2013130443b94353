// Package scheduler implements the DAG build scheduler: it analyzes a
// BuildGraph into per-stage Kahn layers and cross-stage dependency
// edges, then drives node execution across platforms and stages in
// parallel, honoring caching, retries, cancellation, and resource caps.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/maccontainer/buildengine/builder/dockerfile/parallel"
	"github.com/maccontainer/buildengine/cache"
	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/executor"
	"github.com/maccontainer/buildengine/internal/log"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/reporter"
	"github.com/maccontainer/buildengine/snapshot"
)

// Scheduler orchestrates one end-to-end build of a BuildGraph. A
// Scheduler is not re-entrant: Execute must return before it is
// called again on the same instance.
type Scheduler struct {
	cfg         Config
	cache       cache.BuildCache
	snapshotter snapshot.Snapshotter
	dispatcher  *executor.Dispatcher
	rep         reporter.Reporter

	state     *ExecutionState
	resources *ResourceMonitor

	mu                 sync.Mutex
	completionHandlers []func()
	executing          bool
}

// NewScheduler wires together a Scheduler from its collaborators; all
// configuration and dependencies are injected, keeping the core free
// of global state.
func NewScheduler(cfg Config, buildCache cache.BuildCache, snapshotter snapshot.Snapshotter, dispatcher *executor.Dispatcher, rep reporter.Reporter) *Scheduler {
	return &Scheduler{
		cfg:         cfg,
		cache:       buildCache,
		snapshotter: snapshotter,
		dispatcher:  dispatcher,
		rep:         rep,
		state:       NewExecutionState(),
		resources:   NewResourceMonitor(cfg.MaxConcurrency),
	}
}

// OnCompletion registers a post-build hook run before Execute returns,
// used to drain the reporter or flush metrics.
func (s *Scheduler) OnCompletion(handler func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completionHandlers = append(s.completionHandlers, handler)
}

// Resources exposes the scheduler's ResourceMonitor, for registering
// its prometheus gauges or starting StartMonitoring against a live
// UtilizationSource.
func (s *Scheduler) Resources() *ResourceMonitor {
	return s.resources
}

// Cancel signals cancellation to all in-flight work and prevents new
// work from starting; it is idempotent.
func (s *Scheduler) Cancel() {
	s.state.Cancel()
}

// Execute runs graph to completion, returning a BuildResult or the
// first surfaced typed error.
func (s *Scheduler) Execute(ctx context.Context, graph *ir.BuildGraph) (BuildResult, error) {
	s.mu.Lock()
	if s.executing {
		s.mu.Unlock()
		return BuildResult{}, errdefs.Internal("scheduler: execute is not re-entrant")
	}
	s.executing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.executing = false
		s.mu.Unlock()
	}()

	s.state.Reset()
	start := time.Now()

	buildID := uuid.New().String()
	ctx = log.WithFields(ctx, logrus.Fields{"build": buildID})
	log.G(ctx).WithField("target", graph.TargetStage).Info("build started")

	targetIdx, ok := graph.ResolveTargetStage()
	if !ok {
		return BuildResult{}, errdefs.StageNotFound(graph.TargetStage)
	}

	analyses, err := s.analyzeStages(graph)
	if err != nil {
		return BuildResult{}, err
	}

	stageGraph, err := parallel.ComputeStageDependencies(graph)
	if err != nil {
		return BuildResult{}, err
	}

	included := stagesForExecution(graph, targetIdx, stageGraph.Edges)

	totalNodes := 0
	for _, idx := range included {
		totalNodes += 1 + len(graph.Stages[idx].Nodes) // +1 for the base image
	}

	if s.cfg.EnableProgressReporting {
		s.rep.BuildStarted(totalNodes, len(included), start)
	}

	platforms := graph.TargetPlatforms
	if len(platforms) == 0 {
		platforms = []ir.Platform{{OS: "linux", Architecture: "amd64"}}
	}

	manifests := make(map[ir.Platform]ir.ImageManifest, len(platforms))
	var manifestsMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, platform := range platforms {
		platform := platform
		group.Go(func() error {
			manifest, err := s.executePlatform(groupCtx, graph, analyses, stageGraph.Edges, included, targetIdx, platform)
			if err != nil {
				return err
			}
			manifestsMu.Lock()
			manifests[platform] = manifest
			manifestsMu.Unlock()
			return nil
		})
	}

	buildErr := group.Wait()
	success := buildErr == nil

	dispatches, cacheHits, retries := s.state.Counts()
	metrics := ExecutionMetrics{
		TotalNodes:  totalNodes,
		Dispatches:  dispatches,
		CacheHits:   cacheHits,
		NodeRetries: retries,
		Duration:    time.Since(start),
	}

	log.G(ctx).WithField("success", success).WithField("duration", metrics.Duration).Info("build finished")

	if s.cfg.EnableProgressReporting {
		s.rep.BuildCompleted(success, time.Now())
	}
	s.rep.Finish()

	s.mu.Lock()
	handlers := append([]func(){}, s.completionHandlers...)
	s.mu.Unlock()
	for _, h := range handlers {
		h()
	}

	if buildErr != nil {
		return BuildResult{}, buildErr
	}

	return BuildResult{
		Manifests:  manifests,
		Metrics:    metrics,
		CacheStats: s.cache.Stats(),
	}, nil
}

func (s *Scheduler) analyzeStages(graph *ir.BuildGraph) (map[string]*StageAnalysis, error) {
	out := make(map[string]*StageAnalysis, len(graph.Stages))
	for _, stage := range graph.Stages {
		analysis, err := analyzeStage(stage)
		if err != nil {
			return nil, err
		}
		out[stage.ID] = analysis
	}
	return out, nil
}

// stagesForExecution returns the indices of target's transitive stage
// dependencies plus target itself, in no particular order (the round
// scheduler in executePlatform establishes the actual start order).
func stagesForExecution(graph *ir.BuildGraph, target int, edges []parallel.Edge) []int {
	dependees := make(map[int][]int, len(graph.Stages))
	for _, e := range edges {
		dependees[int(e.Depender)] = append(dependees[int(e.Depender)], int(e.Dependee))
	}

	included := make(map[int]struct{})
	var visit func(idx int)
	visit = func(idx int) {
		if _, ok := included[idx]; ok {
			return
		}
		included[idx] = struct{}{}
		for _, dep := range dependees[idx] {
			visit(dep)
		}
	}
	visit(target)

	result := make([]int, 0, len(included))
	for i := range graph.Stages {
		if _, ok := included[i]; ok {
			result = append(result, i)
		}
	}
	return result
}

// executePlatform runs every included stage for one platform, in
// rounds respecting stageDeps, and returns the target stage's
// ImageManifest.
func (s *Scheduler) executePlatform(ctx context.Context, graph *ir.BuildGraph, analyses map[string]*StageAnalysis, stageDeps []parallel.Edge, included []int, targetIdx int, platform ir.Platform) (ir.ImageManifest, error) {
	shared := NewSharedStageContext()

	dependees := make(map[int][]int, len(included))
	includedSet := make(map[int]struct{}, len(included))
	for _, idx := range included {
		includedSet[idx] = struct{}{}
	}
	for _, e := range stageDeps {
		depender, dependee := int(e.Depender), int(e.Dependee)
		if _, ok := includedSet[depender]; !ok {
			continue
		}
		dependees[depender] = append(dependees[depender], dependee)
	}

	completed := make(map[int]struct{}, len(included))
	finalSnapshots := make(map[int]snapshot.Snapshot, len(included))
	finalConfigs := make(map[int]*ir.ImageConfig, len(included))
	var firstErr error

	for len(completed) < len(included) {
		var runnable []int
		for _, idx := range included {
			if _, done := completed[idx]; done {
				continue
			}
			ready := true
			for _, dep := range dependees[idx] {
				if _, ok := completed[dep]; !ok {
					ready = false
					break
				}
			}
			if ready {
				runnable = append(runnable, idx)
			}
		}
		if len(runnable) == 0 {
			return ir.ImageManifest{}, errdefs.CyclicDependency("stage dependency cycle across included stages")
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, idx := range runnable {
			idx := idx
			wg.Add(1)
			go func() {
				defer wg.Done()
				snap, cfg, err := s.executeStage(ctx, graph, idx, analyses[graph.Stages[idx].ID], platform, shared)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return
				}
				finalSnapshots[idx] = snap
				finalConfigs[idx] = cfg
			}()
		}
		wg.Wait()

		for _, idx := range runnable {
			completed[idx] = struct{}{}
		}

		if firstErr != nil && s.cfg.FailFast {
			return ir.ImageManifest{}, firstErr
		}
	}

	if firstErr != nil {
		return ir.ImageManifest{}, firstErr
	}

	finalSnap, ok := finalSnapshots[targetIdx]
	if !ok {
		return ir.ImageManifest{}, errdefs.Internal("target stage produced no final snapshot")
	}
	cfg := finalConfigs[targetIdx]
	if cfg == nil {
		cfg = &ir.ImageConfig{}
	}

	return ir.ImageManifest{
		Digest:       finalSnap.Digest,
		Size:         finalSnap.Size,
		ConfigDigest: cfg.CanonicalDigest(),
		Layers:       []digest.Digest{finalSnap.Digest},
	}, nil
}
