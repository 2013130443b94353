package log

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestGReturnsStandardLoggerWithoutWithLogger(t *testing.T) {
	e := G(context.Background())
	if e == nil {
		t.Fatal("expected a non-nil entry")
	}
}

func TestWithLoggerRoundTrips(t *testing.T) {
	entry := logrus.NewEntry(logrus.New()).WithField("build", "1")
	ctx := WithLogger(context.Background(), entry)
	if G(ctx) != entry {
		t.Fatal("expected G to return the exact entry attached by WithLogger")
	}
}

func TestWithFieldsAugmentsExistingLogger(t *testing.T) {
	base := logrus.NewEntry(logrus.New()).WithField("build", "1")
	ctx := WithLogger(context.Background(), base)
	ctx = WithFields(ctx, logrus.Fields{"stage": "builder"})

	got := G(ctx)
	if got.Data["build"] != "1" || got.Data["stage"] != "builder" {
		t.Fatalf("got fields %v", got.Data)
	}
}
