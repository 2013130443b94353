package executor

import (
	"context"
	"testing"

	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/snapshot"
)

type stubRunner struct {
	diff []byte
	err  error
	gotEnv []string
}

func (r *stubRunner) RunCommand(ctx context.Context, cmd ir.Command, rootSnapshot snapshot.Snapshot, env []string) ([]byte, error) {
	r.gotEnv = env
	return r.diff, r.err
}

func TestExecExecutorMergesEnvAndCommitsDiff(t *testing.T) {
	snaps := snapshot.NewMemorySnapshotter()
	runner := &stubRunner{diff: []byte("new file content")}
	e := &ExecExecutor{Snapshotter: snaps, Runner: runner}

	op := &ir.ExecOperation{
		Command: ir.Command{Path: "/bin/sh", Args: []string{"-c", "echo hi"}},
		Env:     []string{"FOO=bar"},
	}

	base, _ := snaps.Empty(context.Background())
	result, err := e.Run(context.Background(), Input{
		Operation:           op,
		DependencySnapshots: []snapshot.Snapshot{base},
		Env:                 []string{"PATH=/usr/bin"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Snapshot.Digest == "" {
		t.Fatal("expected a committed snapshot")
	}
	if len(runner.gotEnv) != 2 {
		t.Fatalf("expected merged env of len 2, got %v", runner.gotEnv)
	}
}

func TestExecExecutorMergesMultipleDependencySnapshots(t *testing.T) {
	snaps := snapshot.NewMemorySnapshotter()
	e := &ExecExecutor{Snapshotter: snaps, Runner: &stubRunner{diff: []byte("x")}}

	a, _ := snaps.Commit(context.Background(), "", []byte("a"))
	b, _ := snaps.Commit(context.Background(), "", []byte("b"))

	_, err := e.Run(context.Background(), Input{
		Operation:           &ir.ExecOperation{Command: ir.Command{Path: "/bin/true"}},
		DependencySnapshots: []snapshot.Snapshot{a, b},
	})
	if err != nil {
		t.Fatal(err)
	}
}
