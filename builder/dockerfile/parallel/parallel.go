// Package parallel computes the stage-level dependency graph a
// BuildGraph induces through COPY --from references, the input the
// scheduler uses to decide which stages may start concurrently.
package parallel

import (
	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/ir"
)

// Node is a stage's position in the BuildGraph's Stages slice.
type Node int

// Edge records that the stage at Depender references the stage at
// Dependee through a FilesystemSourceStage source.
type Edge struct {
	Depender Node
	Dependee Node
}

// Graph is the stage-level dependency graph: one Node per stage, one
// Edge per resolved COPY --from=<stage> reference.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// ComputeStageDependencies scans every FilesystemOperation in g whose
// source is FilesystemSourceStage and resolves it to the stage it
// references, by name, by positional index, or by "previous".
// FilesystemSourceStage is a distinct source kind from
// FilesystemSourceImage at the IR level, so a stage-kind source that
// doesn't resolve to any stage in g is a genuine configuration error,
// not an external reference; a FilesystemSourceImage source names an
// external image and adds no stage edge.
func ComputeStageDependencies(g *ir.BuildGraph) (*Graph, error) {
	graph := &Graph{Nodes: make([]Node, len(g.Stages))}
	for i := range g.Stages {
		graph.Nodes[i] = Node(i)
	}

	for i, stage := range g.Stages {
		seen := make(map[int]struct{})
		for _, node := range stage.Nodes {
			fsOp, ok := node.Operation.(*ir.FilesystemOperation)
			if !ok || fsOp.Source.Kind != ir.FilesystemSourceStage {
				continue
			}
			depIdx, ok := g.StageIndexByRef(fsOp.Source.Ref, i)
			if !ok {
				return nil, errdefs.StageNotFound(fsOp.Source.Ref)
			}
			if _, dup := seen[depIdx]; dup {
				continue
			}
			seen[depIdx] = struct{}{}
			graph.Edges = append(graph.Edges, Edge{Depender: Node(i), Dependee: Node(depIdx)})
		}
	}

	if hasCycle(graph) {
		return nil, errdefs.CyclicDependency("stage dependency cycle")
	}
	return graph, nil
}

func hasCycle(g *Graph) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[Node]int, len(g.Nodes))
	adj := make(map[Node][]Node, len(g.Nodes))
	for _, e := range g.Edges {
		adj[e.Depender] = append(adj[e.Depender], e.Dependee)
	}

	var visit func(n Node) bool
	visit = func(n Node) bool {
		color[n] = gray
		for _, next := range adj[n] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for _, n := range g.Nodes {
		if color[n] == white {
			if visit(n) {
				return true
			}
		}
	}
	return false
}
