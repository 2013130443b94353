package scheduler

import (
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/internal/envutil"
	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/reporter"
)

// ExecutionContext is the mutable, per-(stage, platform) state nodes
// execute against: the running environment, working directory, user,
// and image config, plus the snapshots produced by this stage's nodes
// so far. All mutation goes through its methods, which hold a single
// per-context lock; mutators stay small and non-blocking.
type ExecutionContext struct {
	mu sync.Mutex

	StageID  string
	Platform ir.Platform
	Reporter reporter.Reporter

	environment []string
	workingDir  string
	user        string
	imageConfig *ir.ImageConfig

	snapshots map[string]digest.Digest
	latest    digest.Digest
}

// NewExecutionContext returns an ExecutionContext seeded with base's
// image config, for the named stage and platform.
func NewExecutionContext(stageID string, platform ir.Platform, base *ir.ImageConfig, rep reporter.Reporter) *ExecutionContext {
	if base == nil {
		base = &ir.ImageConfig{}
	}
	return &ExecutionContext{
		StageID:     stageID,
		Platform:    platform,
		Reporter:    rep,
		environment: append([]string(nil), base.Env...),
		workingDir:  base.WorkingDir,
		user:        base.User,
		imageConfig: base.Clone(),
		snapshots:   make(map[string]digest.Digest),
	}
}

// Environment returns a copy of the currently visible environment.
func (c *ExecutionContext) Environment() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.environment...)
}

// ApplyEnvironmentChanges merges changes onto the context's current
// environment using the ordered last-writer-wins rule.
func (c *ExecutionContext) ApplyEnvironmentChanges(changes []string) {
	if len(changes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.environment = envutil.ReplaceOrAppendEnvValues(c.environment, changes)
}

// ImageConfig returns a copy of the current image config.
func (c *ExecutionContext) ImageConfig() *ir.ImageConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imageConfig.Clone()
}

// ApplyMetadataChanges merges non-empty fields of changes onto the
// context's current image config.
func (c *ExecutionContext) ApplyMetadataChanges(changes *ir.ImageConfig) {
	if changes == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if changes.WorkingDir != "" {
		c.imageConfig.WorkingDir = changes.WorkingDir
		c.workingDir = changes.WorkingDir
	}
	if changes.User != "" {
		c.imageConfig.User = changes.User
		c.user = changes.User
	}
	if len(changes.Entrypoint) > 0 {
		c.imageConfig.Entrypoint = changes.Entrypoint
	}
	if len(changes.Cmd) > 0 {
		c.imageConfig.Cmd = changes.Cmd
	}
	if len(changes.ExposedPorts) > 0 {
		c.imageConfig.ExposedPorts = append(c.imageConfig.ExposedPorts, changes.ExposedPorts...)
	}
	if len(changes.Shell) > 0 {
		c.imageConfig.Shell = changes.Shell
	}
	if len(changes.Volumes) > 0 {
		c.imageConfig.Volumes = append(c.imageConfig.Volumes, changes.Volumes...)
	}
	if len(changes.OnBuild) > 0 {
		c.imageConfig.OnBuild = append(c.imageConfig.OnBuild, changes.OnBuild...)
	}
	if changes.StopSignal != "" {
		c.imageConfig.StopSignal = changes.StopSignal
	}
	if changes.Healthcheck != nil {
		c.imageConfig.Healthcheck = changes.Healthcheck
	}
	if len(changes.Labels) > 0 {
		if c.imageConfig.Labels == nil {
			c.imageConfig.Labels = make(map[string]string, len(changes.Labels))
		}
		for k, v := range changes.Labels {
			c.imageConfig.Labels[k] = v
		}
	}
	if len(changes.Env) > 0 {
		c.environment = envutil.ReplaceOrAppendEnvValues(c.environment, changes.Env)
		c.imageConfig.Env = append([]string(nil), c.environment...)
	}
}

// RecordSnapshot stores the digest a node produced, visible to
// dependents through LatestSnapshot/NodeSnapshot.
func (c *ExecutionContext) RecordSnapshot(nodeID string, dgst digest.Digest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[nodeID] = dgst
	c.latest = dgst
}

// NodeSnapshot returns the snapshot digest node produced, if any.
func (c *ExecutionContext) NodeSnapshot(nodeID string) (digest.Digest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.snapshots[nodeID]
	return d, ok
}

// LatestSnapshot returns the most recently recorded snapshot digest in
// this context, used as one of the CacheKey's input digests.
func (c *ExecutionContext) LatestSnapshot() digest.Digest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// WorkingDir returns the context's current working directory, for
// attaching to a failed operation's diagnostic fields.
func (c *ExecutionContext) WorkingDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workingDir
}

// User returns the context's current USER setting.
func (c *ExecutionContext) User() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// ChildContext forks a nested ExecutionContext for a dependent stage,
// seeded with a snapshot of this context's current environment and
// image config.
func (c *ExecutionContext) ChildContext(stageID string) *ExecutionContext {
	c.mu.Lock()
	cfg := c.imageConfig.Clone()
	env := append([]string(nil), c.environment...)
	c.mu.Unlock()
	cfg.Env = env
	return NewExecutionContext(stageID, c.Platform, cfg, c.Reporter)
}
