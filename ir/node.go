package ir

// NodeConstraints restrict which executor/platform a node may run on.
type NodeConstraints struct {
	RequiresPrivileged bool
	// MemoryLimit is in bytes; 0 means unconstrained. Human-readable
	// strings ("512MiB") are parsed into this field by the IR builder
	// using docker/go-units before the graph is handed to the scheduler.
	MemoryLimit int64
	// RequiresPlatform pins a node to a single platform even when the
	// enclosing build targets several; nil means "any target platform".
	RequiresPlatform *Platform
}

// BuildNode is one operation inside a stage.
type BuildNode struct {
	ID           string
	Operation    Operation
	Dependencies []string // ids of other nodes in the same stage
	Constraints  NodeConstraints
}

// DependsOn reports whether id appears in n's dependency set.
func (n *BuildNode) DependsOn(id string) bool {
	for _, d := range n.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}
