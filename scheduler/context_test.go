package scheduler

import (
	"testing"

	"github.com/opencontainers/go-digest"

	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/reporter"
)

func TestExecutionContextApplyEnvironmentChangesLastWriterWins(t *testing.T) {
	c := NewExecutionContext("s1", ir.Platform{OS: "linux", Architecture: "amd64"}, &ir.ImageConfig{Env: []string{"A=1", "B=2"}}, nil)

	c.ApplyEnvironmentChanges([]string{"B=3", "C=4"})

	env := c.Environment()
	want := map[string]bool{"A=1": true, "B=3": true, "C=4": true}
	if len(env) != 3 {
		t.Fatalf("Environment() = %v, want 3 entries", env)
	}
	for _, e := range env {
		if !want[e] {
			t.Fatalf("Environment() contains unexpected %q", e)
		}
	}
}

func TestExecutionContextApplyMetadataChangesMergesLabels(t *testing.T) {
	c := NewExecutionContext("s1", ir.Platform{}, nil, nil)
	c.ApplyMetadataChanges(&ir.ImageConfig{Labels: map[string]string{"a": "1"}})
	c.ApplyMetadataChanges(&ir.ImageConfig{Labels: map[string]string{"b": "2"}})

	cfg := c.ImageConfig()
	if cfg.Labels["a"] != "1" || cfg.Labels["b"] != "2" {
		t.Fatalf("Labels = %v, want both a and b", cfg.Labels)
	}
}

func TestExecutionContextApplyMetadataChangesSetsWorkdirAndUser(t *testing.T) {
	c := NewExecutionContext("s1", ir.Platform{}, nil, nil)
	c.ApplyMetadataChanges(&ir.ImageConfig{WorkingDir: "/app", User: "nobody"})

	cfg := c.ImageConfig()
	if cfg.WorkingDir != "/app" || cfg.User != "nobody" {
		t.Fatalf("cfg = %+v, want WorkingDir=/app User=nobody", cfg)
	}
}

func TestExecutionContextRecordAndLookupSnapshot(t *testing.T) {
	c := NewExecutionContext("s1", ir.Platform{}, nil, nil)
	d := digest.FromString("layer-a")
	c.RecordSnapshot("node-a", d)

	got, ok := c.NodeSnapshot("node-a")
	if !ok || got != d {
		t.Fatalf("NodeSnapshot(node-a) = (%v, %v), want (%v, true)", got, ok, d)
	}
	if c.LatestSnapshot() != d {
		t.Fatalf("LatestSnapshot() = %v, want %v", c.LatestSnapshot(), d)
	}
}

func TestExecutionContextChildContextSnapshotsParentState(t *testing.T) {
	parent := NewExecutionContext("s1", ir.Platform{OS: "linux"}, &ir.ImageConfig{Env: []string{"A=1"}}, reporter.NewChannelReporter(1))
	parent.ApplyEnvironmentChanges([]string{"B=2"})

	child := parent.ChildContext("s2")
	if child.StageID != "s2" {
		t.Fatalf("child.StageID = %q, want s2", child.StageID)
	}

	parent.ApplyEnvironmentChanges([]string{"C=3"})

	childEnv := child.Environment()
	for _, e := range childEnv {
		if e == "C=3" {
			t.Fatalf("child observed parent's post-fork mutation: %v", childEnv)
		}
	}
}
