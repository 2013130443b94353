// Package errdefs defines the error taxonomy the scheduler surfaces to its
// caller: stageNotFound, cyclicDependency, operationFailed, cancelled,
// unsupportedOperation and internalError. Each kind is an
// interface so callers can match with errors.As regardless of how deeply
// the error has been wrapped, the way moby's own errdefs package works.
package errdefs

// ErrStageNotFound is implemented by errors representing an invalid
// `COPY --from` target or an empty graph.
type ErrStageNotFound interface {
	error
	StageNotFound()
}

// ErrCyclicDependency is implemented by errors representing a cycle inside
// a stage, or among stages after cross-stage edges are resolved.
type ErrCyclicDependency interface {
	error
	CyclicDependency()
}

// ErrOperationFailed is implemented by errors representing the final
// failure of an operation after its retry policy is exhausted.
type ErrOperationFailed interface {
	error
	OperationFailed()
}

// ErrCancelled is implemented by errors representing scheduler cancellation.
type ErrCancelled interface {
	error
	Cancelled()
}

// ErrUnsupportedOperation is implemented by errors representing a
// dispatch where no executor claimed the operation.
type ErrUnsupportedOperation interface {
	error
	UnsupportedOperation()
}

// ErrInternal is implemented by errors representing a broken invariant,
// e.g. a missing StageAnalysis.
type ErrInternal interface {
	error
	Internal()
}
