package scheduler

import (
	"time"

	"github.com/maccontainer/buildengine/cache"
	"github.com/maccontainer/buildengine/ir"
)

// ExecutionMetrics summarizes one build's execution for BuildResult.
type ExecutionMetrics struct {
	TotalNodes     int
	Dispatches     int
	CacheHits      int
	NodeRetries    map[string]int
	Duration       time.Duration
}

// BuildResult is what Scheduler.Execute returns on success.
type BuildResult struct {
	Manifests map[ir.Platform]ir.ImageManifest
	Metrics   ExecutionMetrics
	CacheStats cache.Stats
	Logs      []string
}
