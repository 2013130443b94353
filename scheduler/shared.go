package scheduler

import (
	"sync"

	"github.com/maccontainer/buildengine/snapshot"
)

// SharedStageContext publishes each stage's base-image snapshot and
// final snapshot so other stages can reference them through
// FilesystemSourceStage ("COPY --from") before or independently of
// that stage's own node execution.
type SharedStageContext struct {
	mu    sync.RWMutex
	base  map[string]snapshot.Snapshot
	final map[string]snapshot.Snapshot
}

// NewSharedStageContext returns an empty SharedStageContext.
func NewSharedStageContext() *SharedStageContext {
	return &SharedStageContext{
		base:  make(map[string]snapshot.Snapshot),
		final: make(map[string]snapshot.Snapshot),
	}
}

// SetBase records stageID's resolved base-image snapshot.
func (s *SharedStageContext) SetBase(stageID string, snap snapshot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base[stageID] = snap
}

// Base returns stageID's base-image snapshot, if resolved yet.
func (s *SharedStageContext) Base(stageID string) (snapshot.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.base[stageID]
	return snap, ok
}

// SetFinal records stageID's final snapshot once the stage completes.
func (s *SharedStageContext) SetFinal(stageID string, snap snapshot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final[stageID] = snap
}

// Final returns stageID's final snapshot, if the stage has completed.
func (s *SharedStageContext) Final(stageID string) (snapshot.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.final[stageID]
	return snap, ok
}
