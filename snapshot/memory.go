package snapshot

import (
	"context"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"
)

// MemorySnapshotter is the in-process reference Snapshotter: commits are
// content-addressed by hashing parent+content, and merges are
// content-addressed by hashing the sorted parent digests. It keeps
// every committed blob in memory and is meant for tests and small
// single-host builds.
type MemorySnapshotter struct {
	mu      sync.RWMutex
	blobs   map[digest.Digest][]byte
	parents map[digest.Digest]digest.Digest
}

// NewMemorySnapshotter returns an empty MemorySnapshotter.
func NewMemorySnapshotter() *MemorySnapshotter {
	return &MemorySnapshotter{
		blobs:   make(map[digest.Digest][]byte),
		parents: make(map[digest.Digest]digest.Digest),
	}
}

var emptyDigest = digest.FromBytes(nil)

func (s *MemorySnapshotter) Empty(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if _, ok := s.blobs[emptyDigest]; !ok {
		s.blobs[emptyDigest] = nil
	}
	s.mu.Unlock()
	return Snapshot{Digest: emptyDigest}, nil
}

func (s *MemorySnapshotter) Get(ctx context.Context, dgst digest.Digest) (Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[dgst]
	if !ok {
		return Snapshot{}, false, nil
	}
	return Snapshot{Digest: dgst, Size: int64(len(content)), Parent: s.parents[dgst]}, true, nil
}

func (s *MemorySnapshotter) Commit(ctx context.Context, parent digest.Digest, content []byte) (Snapshot, error) {
	digester := digest.Canonical.Digester()
	digester.Hash().Write([]byte(parent))
	digester.Hash().Write(content)
	dgst := digester.Digest()

	s.mu.Lock()
	s.blobs[dgst] = content
	s.parents[dgst] = parent
	s.mu.Unlock()

	return Snapshot{Digest: dgst, Size: int64(len(content)), Parent: parent}, nil
}

func (s *MemorySnapshotter) Merge(ctx context.Context, parents []digest.Digest) (Snapshot, error) {
	sorted := append([]digest.Digest(nil), parents...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	digester := digest.Canonical.Digester()
	var total int64
	for _, p := range sorted {
		digester.Hash().Write([]byte(p))
		s.mu.RLock()
		total += int64(len(s.blobs[p]))
		s.mu.RUnlock()
	}
	dgst := digester.Digest()

	s.mu.Lock()
	if _, ok := s.blobs[dgst]; !ok {
		s.blobs[dgst] = nil
	}
	s.mu.Unlock()

	return Snapshot{Digest: dgst, Size: total}, nil
}
