package executor

import (
	"context"
	"testing"

	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/snapshot"
)

func TestFilesystemExecutorInlineContent(t *testing.T) {
	e := &FilesystemExecutor{Snapshotter: snapshot.NewMemorySnapshotter()}
	op := &ir.FilesystemOperation{
		Action: ir.FilesystemActionAdd,
		Source: ir.FilesystemSource{Kind: ir.FilesystemSourceInline, Inline: "hello"},
		Dest:   "/etc/motd",
	}

	result, err := e.Run(context.Background(), Input{Operation: op})
	if err != nil {
		t.Fatal(err)
	}
	if result.Snapshot.Digest == "" {
		t.Fatal("expected a committed snapshot")
	}
}

type stubFetch struct {
	content []byte
	err     error
}

func (f stubFetch) FetchURL(ctx context.Context, url string) ([]byte, error)          { return f.content, f.err }
func (f stubFetch) FetchGit(ctx context.Context, ref string) ([]byte, error)          { return f.content, f.err }
func (f stubFetch) FetchContext(ctx context.Context, paths []string) ([]byte, error) { return f.content, f.err }

func TestFilesystemExecutorURLNeedsFetchSource(t *testing.T) {
	e := &FilesystemExecutor{Snapshotter: snapshot.NewMemorySnapshotter()}
	op := &ir.FilesystemOperation{
		Action: ir.FilesystemActionAdd,
		Source: ir.FilesystemSource{Kind: ir.FilesystemSourceURL, URL: "https://example.com/x"},
		Dest:   "/x",
	}
	if _, err := e.Run(context.Background(), Input{Operation: op}); err == nil {
		t.Fatal("expected an error with no FetchSource configured")
	}

	e.Fetch = stubFetch{content: []byte("remote content")}
	if _, err := e.Run(context.Background(), Input{Operation: op}); err != nil {
		t.Fatal(err)
	}
}

func TestFilesystemExecutorStageSourceNeedsNoFetch(t *testing.T) {
	e := &FilesystemExecutor{Snapshotter: snapshot.NewMemorySnapshotter()}
	op := &ir.FilesystemOperation{
		Action: ir.FilesystemActionCopy,
		Source: ir.FilesystemSource{Kind: ir.FilesystemSourceStage, Ref: "builder"},
		Dest:   "/out",
	}
	base := snapshot.Snapshot{Digest: "sha256:base"}
	if _, err := e.Run(context.Background(), Input{Operation: op, DependencySnapshots: []snapshot.Snapshot{base}}); err != nil {
		t.Fatal(err)
	}
}
