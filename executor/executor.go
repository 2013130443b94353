// Package executor implements the OperationExecutors the scheduler
// dispatches nodes to, one per ir.OperationKind: image resolution,
// command execution, filesystem mutation, and image-config metadata
// changes.
package executor

import (
	"context"

	"github.com/maccontainer/buildengine/ir"
	"github.com/maccontainer/buildengine/snapshot"
)

// Result is what running a node's operation produces: at most one new
// filesystem snapshot, plus whatever environment and image-config
// changes the operation contributes to its stage's running context.
type Result struct {
	Snapshot         snapshot.Snapshot
	EnvironmentChanges []string
	MetadataChanges    *ir.ImageConfig
}

// Input is the resolved state an executor needs to run a node: its
// operation, the platform it's running for, the node-level constraints
// dispatch must satisfy before running it at all, and the snapshots
// produced by its already-completed dependencies, in
// dependency-declaration order.
type Input struct {
	Operation       ir.Operation
	Platform        ir.Platform
	Constraints     ir.NodeConstraints
	DependencySnapshots []snapshot.Snapshot
	WorkingDir      string
	Env             []string
	User            string
}

// OperationExecutor runs one kind of ir.Operation to completion. An
// executor's Run must not retry internally; the scheduler owns retry
// policy and calls Run again itself.
type OperationExecutor interface {
	Kind() ir.OperationKind
	// Capabilities declares what this executor can run, so Dispatch
	// can reject a node whose constraints it cannot satisfy before
	// ever calling Run.
	Capabilities() ExecutorCapabilities
	Run(ctx context.Context, in Input) (Result, error)
}

// FetchSource is the boundary interface for retrieving external
// content (a build context file, a remote URL, a git repository) an
// executor needs but that this package does not itself implement
// transport for; a real deployment supplies a FetchSource backed by
// net/http and a git client.
type FetchSource interface {
	FetchURL(ctx context.Context, url string) ([]byte, error)
	FetchGit(ctx context.Context, ref string) ([]byte, error)
	FetchContext(ctx context.Context, paths []string) ([]byte, error)
}
