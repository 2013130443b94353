package scheduler

import (
	"github.com/maccontainer/buildengine/errdefs"
	"github.com/maccontainer/buildengine/ir"
)

// StageAnalysis is the result of planning one stage: its local
// dependency graph (adjacency by node id) and the sequence of
// parallelizable groups Kahn-layering finds, each group a maximal
// antichain of nodes whose dependencies are all in earlier groups.
type StageAnalysis struct {
	StageID  string
	DepGraph map[string][]string // node id -> its dependency ids
	Groups   [][]string          // node ids, in execution order
}

// analyzeStage builds a StageAnalysis for stage: a DFS cycle check,
// then Kahn-layering to find the parallelizable groups.
func analyzeStage(stage *ir.BuildStage) (*StageAnalysis, error) {
	depGraph := make(map[string][]string, len(stage.Nodes))
	inDegree := make(map[string]int, len(stage.Nodes))
	dependents := make(map[string][]string, len(stage.Nodes))

	for _, n := range stage.Nodes {
		depGraph[n.ID] = append([]string(nil), n.Dependencies...)
		inDegree[n.ID] = len(n.Dependencies)
	}
	for _, n := range stage.Nodes {
		for _, dep := range n.Dependencies {
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}

	if hasCycle(stage) {
		return nil, errdefs.CyclicDependency("stage " + stage.ID + " has a cyclic node dependency")
	}

	var groups [][]string
	remaining := inDegree
	processed := make(map[string]struct{}, len(stage.Nodes))

	for len(processed) < len(stage.Nodes) {
		var layer []string
		for _, n := range stage.Nodes {
			if _, done := processed[n.ID]; done {
				continue
			}
			if remaining[n.ID] == 0 {
				layer = append(layer, n.ID)
			}
		}
		if len(layer) == 0 {
			// Should be unreachable since hasCycle already checked, but
			// guards against a malformed StageAnalysis invariant break.
			return nil, errdefs.Internal("stage " + stage.ID + ": no progress during layering")
		}
		for _, id := range layer {
			processed[id] = struct{}{}
			for _, dependent := range dependents[id] {
				remaining[dependent]--
			}
		}
		groups = append(groups, layer)
	}

	return &StageAnalysis{StageID: stage.ID, DepGraph: depGraph, Groups: groups}, nil
}

func hasCycle(stage *ir.BuildStage) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(stage.Nodes))
	byID := make(map[string]*ir.BuildNode, len(stage.Nodes))
	for _, n := range stage.Nodes {
		byID[n.ID] = n
	}

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, dep := range byID[id].Dependencies {
			switch color[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, n := range stage.Nodes {
		if color[n.ID] == white {
			if visit(n.ID) {
				return true
			}
		}
	}
	return false
}
