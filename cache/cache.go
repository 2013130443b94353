// Package cache implements the build cache the scheduler consults before
// dispatching a node's operation: same CacheKey, same CachedResult, no
// executor invocation.
package cache

import (
	"context"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/ir"
)

// CacheKey identifies a cacheable unit of work: the operation's own
// content digest, the content digests of its resolved inputs (sorted so
// that input ORDER never affects the key, only input IDENTITY), and the
// target platform, since the same operation produces different content
// on different platforms.
type CacheKey struct {
	OperationDigest digest.Digest
	InputDigests    []digest.Digest
	Platform        ir.Platform
}

// NewCacheKey sorts a copy of inputDigests so callers may pass them in
// dependency-declaration order without affecting the resulting key.
func NewCacheKey(op ir.Operation, inputDigests []digest.Digest, platform ir.Platform) CacheKey {
	sorted := append([]digest.Digest(nil), inputDigests...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return CacheKey{
		OperationDigest: op.ContentDigest(),
		InputDigests:    sorted,
		Platform:        platform,
	}
}

// String renders a CacheKey into a stable, human-readable form suitable
// for log lines; MemoryBuildCache keys its entries by the digest of
// this string, since CacheKey itself holds a slice and is not
// comparable.
func (k CacheKey) String() string {
	s := k.OperationDigest.String() + "@" + k.Platform.String()
	for _, d := range k.InputDigests {
		s += "+" + d.String()
	}
	return s
}

// CachedResult is what a cache hit returns in place of running the
// operation's executor: the resulting filesystem snapshot plus whatever
// environment and image-config metadata the operation would have
// produced had it actually run.
type CachedResult struct {
	Snapshot            digest.Digest
	EnvironmentChanges   []string
	MetadataChanges      *ir.ImageConfig
}

// Stats reports cumulative cache effectiveness for a build, surfaced
// through the Reporter's buildCompleted event.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// BuildCache is the scheduler's view of the cache: a lookup keyed by
// CacheKey, and a store called after an operation executes successfully.
// Implementations must be safe for concurrent use; the scheduler may
// probe and populate the cache from many goroutines within one layer.
type BuildCache interface {
	Get(ctx context.Context, key CacheKey) (CachedResult, bool, error)
	Put(ctx context.Context, key CacheKey, result CachedResult) error
	Stats() Stats
}
