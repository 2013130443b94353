package snapshot

import (
	"context"
	"testing"

	"github.com/opencontainers/go-digest"
)

func TestMemorySnapshotterCommitAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySnapshotter()

	empty, err := s.Empty(ctx)
	if err != nil {
		t.Fatal(err)
	}

	committed, err := s.Commit(ctx, empty.Digest, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if committed.Size != 5 {
		t.Fatalf("got size %d, want 5", committed.Size)
	}

	got, ok, err := s.Get(ctx, committed.Digest)
	if err != nil || !ok {
		t.Fatalf("expected to find committed snapshot, ok=%v err=%v", ok, err)
	}
	if got.Parent != empty.Digest {
		t.Fatalf("got parent %v, want %v", got.Parent, empty.Digest)
	}
}

func TestMemorySnapshotterCommitIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySnapshotter()
	empty, _ := s.Empty(ctx)

	a, err := s.Commit(ctx, empty.Digest, []byte("same content"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Commit(ctx, empty.Digest, []byte("same content"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Digest != b.Digest {
		t.Fatalf("identical parent+content must digest identically: %v != %v", a.Digest, b.Digest)
	}
}

func TestMemorySnapshotterMergeOrderIndependent(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySnapshotter()
	empty, _ := s.Empty(ctx)
	a, _ := s.Commit(ctx, empty.Digest, []byte("a"))
	b, _ := s.Commit(ctx, empty.Digest, []byte("b"))

	m1, err := s.Merge(ctx, []digest.Digest{a.Digest, b.Digest})
	if err != nil {
		t.Fatal(err)
	}
	m2, err := s.Merge(ctx, []digest.Digest{b.Digest, a.Digest})
	if err != nil {
		t.Fatal(err)
	}
	if m1.Digest != m2.Digest {
		t.Fatalf("merge must be order independent: %v != %v", m1.Digest, m2.Digest)
	}
}
