// Package reporter implements the single-producer, multi-consumer
// build-progress event stream the scheduler emits to:
// buildStarted/stageStarted/stageCompleted/operationStarted/
// operationCacheHit/operationLog/operationFinished/operationFailed/
// buildCompleted, in the order a single source emits them.
package reporter

import "time"

// EventKind discriminates the Reporter event stream.
type EventKind string

const (
	EventBuildStarted     EventKind = "buildStarted"
	EventStageStarted     EventKind = "stageStarted"
	EventStageCompleted   EventKind = "stageCompleted"
	EventOperationStarted EventKind = "operationStarted"
	EventOperationCacheHit EventKind = "operationCacheHit"
	EventOperationLog     EventKind = "operationLog"
	EventOperationFinished EventKind = "operationFinished"
	EventOperationFailed  EventKind = "operationFailed"
	EventBuildCompleted   EventKind = "buildCompleted"
)

// ReportContext identifies the node or stage an event concerns.
type ReportContext struct {
	NodeID      string
	StageID     string
	Description string
	Timestamp   time.Time
	SourceMap   map[string]string
}

// Event is one entry in the reporter's stream. Only the fields relevant
// to Kind are populated; see the EventXxx kind constants above.
type Event struct {
	Kind         EventKind
	Timestamp    time.Time
	TotalNodes   int
	StageCount   int
	StageName    string
	Context      ReportContext
	Message      string
	Duration     time.Duration
	Err          error
	Success      bool
}

// Reporter is the sink the scheduler writes progress events to. A
// Reporter must be safe for concurrent Report calls from many
// goroutines (nodes across stages and platforms all report to the
// same instance); Finish signals no further events will arrive.
type Reporter interface {
	BuildStarted(total, stages int, ts time.Time)
	StageStarted(name string, ts time.Time)
	StageCompleted(name string, ts time.Time)
	OperationStarted(ctx ReportContext)
	OperationCacheHit(ctx ReportContext)
	OperationLog(ctx ReportContext, msg string)
	OperationFinished(ctx ReportContext, d time.Duration)
	OperationFailed(ctx ReportContext, err error)
	BuildCompleted(success bool, ts time.Time)
	Finish()
}
