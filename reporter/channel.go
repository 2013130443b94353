package reporter

import "time"

// ChannelReporter publishes every call as an Event on one buffered
// channel. Each event is delivered to exactly one receiver: several
// consumers ranging over Events() split the stream between them rather
// than each seeing every event. Finish closes the channel exactly once;
// calls made after Finish are dropped.
type ChannelReporter struct {
	events chan Event
	closed chan struct{}
}

// NewChannelReporter returns a ChannelReporter whose channel holds up
// to buffer pending events before Report calls block.
func NewChannelReporter(buffer int) *ChannelReporter {
	return &ChannelReporter{
		events: make(chan Event, buffer),
		closed: make(chan struct{}),
	}
}

// Events returns the channel consumers range over to observe the
// build's progress stream.
func (r *ChannelReporter) Events() <-chan Event { return r.events }

func (r *ChannelReporter) emit(e Event) {
	select {
	case <-r.closed:
		return
	default:
	}
	select {
	case <-r.closed:
	case r.events <- e:
	}
}

func (r *ChannelReporter) BuildStarted(total, stages int, ts time.Time) {
	r.emit(Event{Kind: EventBuildStarted, Timestamp: ts, TotalNodes: total, StageCount: stages})
}

func (r *ChannelReporter) StageStarted(name string, ts time.Time) {
	r.emit(Event{Kind: EventStageStarted, Timestamp: ts, StageName: name})
}

func (r *ChannelReporter) StageCompleted(name string, ts time.Time) {
	r.emit(Event{Kind: EventStageCompleted, Timestamp: ts, StageName: name})
}

func (r *ChannelReporter) OperationStarted(ctx ReportContext) {
	r.emit(Event{Kind: EventOperationStarted, Timestamp: ctx.Timestamp, Context: ctx})
}

func (r *ChannelReporter) OperationCacheHit(ctx ReportContext) {
	r.emit(Event{Kind: EventOperationCacheHit, Timestamp: ctx.Timestamp, Context: ctx})
}

func (r *ChannelReporter) OperationLog(ctx ReportContext, msg string) {
	r.emit(Event{Kind: EventOperationLog, Timestamp: ctx.Timestamp, Context: ctx, Message: msg})
}

func (r *ChannelReporter) OperationFinished(ctx ReportContext, d time.Duration) {
	r.emit(Event{Kind: EventOperationFinished, Timestamp: ctx.Timestamp, Context: ctx, Duration: d})
}

func (r *ChannelReporter) OperationFailed(ctx ReportContext, err error) {
	r.emit(Event{Kind: EventOperationFailed, Timestamp: ctx.Timestamp, Context: ctx, Err: err})
}

func (r *ChannelReporter) BuildCompleted(success bool, ts time.Time) {
	r.emit(Event{Kind: EventBuildCompleted, Timestamp: ts, Success: success})
}

// Finish closes the event channel. It is safe to call more than once.
func (r *ChannelReporter) Finish() {
	select {
	case <-r.closed:
	default:
		close(r.closed)
		close(r.events)
	}
}
