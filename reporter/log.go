package reporter

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maccontainer/buildengine/internal/log"
)

// LogReporter renders every event as a structured log line through
// internal/log, for deployments with no interactive progress UI.
type LogReporter struct {
	ctx context.Context
}

// NewLogReporter returns a LogReporter that logs through ctx's logger.
func NewLogReporter(ctx context.Context) *LogReporter {
	return &LogReporter{ctx: ctx}
}

func (r *LogReporter) BuildStarted(total, stages int, ts time.Time) {
	log.G(r.ctx).WithField("nodes", total).WithField("stages", stages).Info("build started")
}

func (r *LogReporter) StageStarted(name string, ts time.Time) {
	log.G(r.ctx).WithField("stage", name).Info("stage started")
}

func (r *LogReporter) StageCompleted(name string, ts time.Time) {
	log.G(r.ctx).WithField("stage", name).Info("stage completed")
}

func (r *LogReporter) OperationStarted(ctx ReportContext) {
	r.entry(ctx).Info("operation started")
}

func (r *LogReporter) OperationCacheHit(ctx ReportContext) {
	r.entry(ctx).Info("operation cache hit")
}

func (r *LogReporter) OperationLog(ctx ReportContext, msg string) {
	r.entry(ctx).Info(msg)
}

func (r *LogReporter) OperationFinished(ctx ReportContext, d time.Duration) {
	r.entry(ctx).WithField("duration", d).Info("operation finished")
}

func (r *LogReporter) OperationFailed(ctx ReportContext, err error) {
	r.entry(ctx).WithField("error", err).Error("operation failed")
}

func (r *LogReporter) BuildCompleted(success bool, ts time.Time) {
	log.G(r.ctx).WithField("success", success).Info("build completed")
}

func (r *LogReporter) Finish() {}

func (r *LogReporter) entry(ctx ReportContext) *logrus.Entry {
	return log.G(r.ctx).WithFields(logrus.Fields{
		"node":  ctx.NodeID,
		"stage": ctx.StageID,
		"op":    ctx.Description,
	})
}
