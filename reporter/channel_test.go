package reporter

import (
	"testing"
	"time"
)

func TestChannelReporterOrdering(t *testing.T) {
	r := NewChannelReporter(16)
	now := time.Now()

	r.BuildStarted(3, 1, now)
	r.StageStarted("s", now)
	r.OperationStarted(ReportContext{NodeID: "a", Timestamp: now})
	r.OperationFinished(ReportContext{NodeID: "a", Timestamp: now}, time.Millisecond)
	r.StageCompleted("s", now)
	r.BuildCompleted(true, now)
	r.Finish()

	var kinds []EventKind
	for e := range r.Events() {
		kinds = append(kinds, e.Kind)
	}

	want := []EventKind{
		EventBuildStarted, EventStageStarted, EventOperationStarted,
		EventOperationFinished, EventStageCompleted, EventBuildCompleted,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %v, want %v", kinds, want)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Fatalf("event %d: got %s, want %s", i, kinds[i], k)
		}
	}
}

func TestChannelReporterFinishIsIdempotent(t *testing.T) {
	r := NewChannelReporter(1)
	r.Finish()
	r.Finish()
	r.OperationStarted(ReportContext{})
}
