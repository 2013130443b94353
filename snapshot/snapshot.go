// Package snapshot defines the content-addressed filesystem state that
// flows between nodes: every FilesystemOperation and ExecOperation
// consumes zero or more input snapshots and produces one output
// snapshot, which downstream nodes reference by digest alone.
package snapshot

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// Snapshot is an immutable, content-addressed filesystem state.
type Snapshot struct {
	Digest digest.Digest
	Size    int64
	Parent  digest.Digest
}

// Snapshotter materializes and combines snapshots on behalf of the
// executors. Mutating operations are expressed as "commit a new
// snapshot from a parent plus a diff", never as in-place edits, so a
// Snapshot value is always safe to share across concurrent readers.
type Snapshotter interface {
	// Empty returns the zero-content snapshot used as the base for a
	// scratch image source.
	Empty(ctx context.Context) (Snapshot, error)

	// Get resolves a previously produced snapshot by digest.
	Get(ctx context.Context, dgst digest.Digest) (Snapshot, bool, error)

	// Commit produces a new snapshot layered on parent with the given
	// content, returning the resulting snapshot's digest.
	Commit(ctx context.Context, parent digest.Digest, content []byte) (Snapshot, error)

	// Merge combines several snapshots into one, used when a node has
	// more than one filesystem-producing dependency (e.g. several COPY
	// --from sources feeding one node).
	Merge(ctx context.Context, parents []digest.Digest) (Snapshot, error)
}
