package ir

// BuildGraph is the immutable, read-only-after-construction build graph
// the scheduler executes. It is read-only during execution (§3 Lifecycle).
type BuildGraph struct {
	Stages          []*BuildStage
	TargetStage     string // optional name or id; empty means "last stage"
	TargetPlatforms []Platform
}

// ResolveTargetStage returns the index of the designated target stage,
// defaulting to the last stage when TargetStage is unset.
func (g *BuildGraph) ResolveTargetStage() (int, bool) {
	if len(g.Stages) == 0 {
		return 0, false
	}
	if g.TargetStage == "" {
		return len(g.Stages) - 1, true
	}
	return g.StageIndexByRef(g.TargetStage, len(g.Stages))
}

// StageIndexByRef resolves a `COPY --from` style reference relative to a
// stage at position currentIndex (used so "previous" is well defined):
//   - "previous" resolves to currentIndex-1 by iteration order
//   - a name match resolves to the first stage with that Name
//   - a base-10 positional index resolves directly
//
// currentIndex may be len(g.Stages) to resolve a free-standing reference
// (e.g. TargetStage) with no "previous" stage of its own.
func (g *BuildGraph) StageIndexByRef(ref string, currentIndex int) (int, bool) {
	if ref == "previous" {
		if currentIndex <= 0 {
			return 0, false
		}
		return currentIndex - 1, true
	}
	for i, s := range g.Stages {
		if s.Name != "" && s.Name == ref {
			return i, true
		}
	}
	if idx, ok := parsePositiveInt(ref); ok && idx >= 0 && idx < len(g.Stages) {
		return idx, true
	}
	return 0, false
}

// StageByID returns the stage with the given id, or nil.
func (g *BuildGraph) StageByID(id string) *BuildStage {
	for _, s := range g.Stages {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func parsePositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
