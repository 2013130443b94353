package executor

import (
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/maccontainer/buildengine/ir"
)

// Capabilities describes what a Dispatcher can actually run:
// the platforms a node's constraints may require, formed as the union
// of the platforms the graph explicitly targets and whatever the
// configured executors additionally support.
type Capabilities struct {
	Platforms []ocispec.Platform
}

// mergePlatforms unions defined and supported, de-duplicating exact
// matches; the scheduler uses the result to decide whether a
// NodeConstraints.RequiresPlatform can be honored at all.
func mergePlatforms(defined, supported []ocispec.Platform) []ocispec.Platform {
	seen := make(map[ocispec.Platform]struct{}, len(defined)+len(supported))
	merged := make([]ocispec.Platform, 0, len(defined)+len(supported))
	for _, p := range defined {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	for _, p := range supported {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}

// Merge combines c with additional, returning the platforms either
// side supports.
func (c Capabilities) Merge(additional []ocispec.Platform) Capabilities {
	return Capabilities{Platforms: mergePlatforms(c.Platforms, additional)}
}

// Supports reports whether platform is usable given c, treating an
// empty capability set as "supports anything" since a dispatcher with
// no declared platform restriction imposes none.
func (c Capabilities) Supports(platform ir.Platform) bool {
	if len(c.Platforms) == 0 {
		return true
	}
	target := platform.ToOCI()
	for _, p := range c.Platforms {
		if p.OS == target.OS && p.Architecture == target.Architecture && p.Variant == target.Variant {
			return true
		}
	}
	return false
}

// ResourceLimits bounds what a single Run call of an executor can
// consume. A zero field means unbounded.
type ResourceLimits struct {
	// MaxMemory is the most memory, in bytes, the executor's sandbox
	// guarantees a single operation. Compared against a node's
	// NodeConstraints.MemoryLimit at dispatch time.
	MaxMemory int64
}

// ExecutorCapabilities is what an OperationExecutor declares about
// itself, so the dispatcher can pick an executor that actually
// satisfies a node's constraints instead of just matching on kind:
// the operation kinds it claims, the platforms it runs on (nil means
// platform-agnostic), whether it can satisfy a node that requires
// privileged execution, the most concurrent Run calls it sustains (0
// means unbounded), and the resource ceiling of one invocation.
type ExecutorCapabilities struct {
	SupportedOperations []ir.OperationKind
	SupportedPlatforms  []ocispec.Platform
	RequiresPrivileged  bool
	MaxConcurrency      int
	Resources           ResourceLimits
}

// satisfies reports whether c can run a node carrying constraints on
// platform: c must be able to run privileged if constraints demands
// it, must declare enough memory headroom, and, if constraints pins a
// platform, must be running for exactly that platform.
func (c ExecutorCapabilities) satisfies(constraints ir.NodeConstraints, platform ir.Platform) bool {
	if constraints.RequiresPrivileged && !c.RequiresPrivileged {
		return false
	}
	if constraints.MemoryLimit > 0 && c.Resources.MaxMemory > 0 && c.Resources.MaxMemory < constraints.MemoryLimit {
		return false
	}
	if constraints.RequiresPlatform != nil && *constraints.RequiresPlatform != platform {
		return false
	}
	return true
}
