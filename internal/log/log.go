// Package log provides the context-scoped structured logger the
// scheduler and executors use, following moby's own log.G(ctx) convention
// of carrying a *logrus.Entry through context instead of a package global.
package log

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// G returns the logger attached to ctx, or the standard logrus logger's
// entry if none was attached with WithLogger.
func G(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithLogger returns a context carrying entry, retrievable with G.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// WithFields returns a context carrying G(ctx) augmented with fields.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return WithLogger(ctx, G(ctx).WithFields(fields))
}
