package parallel

import (
	"testing"

	"github.com/maccontainer/buildengine/ir"
)

func buildStage(id, name string, fsDeps ...string) *ir.BuildStage {
	stage := &ir.BuildStage{
		ID:   id,
		Name: name,
		Base: &ir.ImageOperation{Source: ir.ImageSource{Kind: ir.ImageSourceRegistry, Ref: "busybox"}},
	}
	for i, ref := range fsDeps {
		stage.Nodes = append(stage.Nodes, &ir.BuildNode{
			ID: id + "-n" + string(rune('0'+i)),
			Operation: &ir.FilesystemOperation{
				Action: ir.FilesystemActionCopy,
				Source: ir.FilesystemSource{Kind: ir.FilesystemSourceStage, Ref: ref, Paths: []string{"/x"}},
				Dest:   "/x",
			},
		})
	}
	return stage
}

func withImageCopy(stage *ir.BuildStage, ref string) *ir.BuildStage {
	stage.Nodes = append(stage.Nodes, &ir.BuildNode{
		ID: stage.ID + "-img",
		Operation: &ir.FilesystemOperation{
			Action: ir.FilesystemActionCopy,
			Source: ir.FilesystemSource{Kind: ir.FilesystemSourceImage, Ref: ref, Paths: []string{"/x"}},
			Dest:   "/x",
		},
	})
	return stage
}

// TestComputeStageDependencies1 mirrors the four-stage fixture: stage 2
// depends on "foo" (index 0), stage 3 depends on "bar" (index 1) and on
// "docker.io/library/nginx" via FilesystemSourceImage, which contributes
// no edge since it never names a stage.
func TestComputeStageDependencies1(t *testing.T) {
	g := &ir.BuildGraph{Stages: []*ir.BuildStage{
		buildStage("s0", "foo"),
		buildStage("s1", "bar"),
		buildStage("s2", "", "foo"),
		withImageCopy(buildStage("s3", "", "bar"), "docker.io/library/nginx"),
	}}

	graph, err := ComputeStageDependencies(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(graph.Nodes) != 4 {
		t.Fatalf("got %d nodes, want 4", len(graph.Nodes))
	}
	want := []Edge{{Depender: 2, Dependee: 0}, {Depender: 3, Dependee: 1}}
	if len(graph.Edges) != len(want) {
		t.Fatalf("got edges %v, want %v", graph.Edges, want)
	}
	for i, e := range want {
		if graph.Edges[i] != e {
			t.Fatalf("edge %d: got %v, want %v", i, graph.Edges[i], e)
		}
	}
}

// TestComputeStageDependenciesUnresolvedStageRefFails verifies that a
// FilesystemSourceStage reference naming no known stage is a
// configuration error, not a silently-ignored external reference.
func TestComputeStageDependenciesUnresolvedStageRefFails(t *testing.T) {
	g := &ir.BuildGraph{Stages: []*ir.BuildStage{
		buildStage("s0", "foo"),
		buildStage("s1", "", "nonexistent"),
	}}

	if _, err := ComputeStageDependencies(g); err == nil {
		t.Fatal("expected a StageNotFound error")
	}
}

// TestComputeStageDependencies2 mirrors the three-stage fixture where
// "baz" depends on "foo" by name.
func TestComputeStageDependencies2(t *testing.T) {
	g := &ir.BuildGraph{Stages: []*ir.BuildStage{
		buildStage("s0", "foo"),
		buildStage("s1", "bar"),
		buildStage("s2", "baz", "foo"),
	}}

	graph, err := ComputeStageDependencies(g)
	if err != nil {
		t.Fatal(err)
	}
	want := []Edge{{Depender: 2, Dependee: 0}}
	if len(graph.Edges) != len(want) || graph.Edges[0] != want[0] {
		t.Fatalf("got %v, want %v", graph.Edges, want)
	}
}

func TestComputeStageDependenciesCycle(t *testing.T) {
	g := &ir.BuildGraph{Stages: []*ir.BuildStage{
		buildStage("s0", "a", "b"),
		buildStage("s1", "b", "a"),
	}}

	if _, err := ComputeStageDependencies(g); err == nil {
		t.Fatal("expected a cyclic dependency error")
	}
}
