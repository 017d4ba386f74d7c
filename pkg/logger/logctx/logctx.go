// Package logctx logs with the fields accumulated on a request context.
// Import it as log.
package logctx

import (
	"context"

	"go.uber.org/zap"

	"github.com/nguyentranbao-ct/agent-console/pkg/ctxval"
	"github.com/nguyentranbao-ct/agent-console/pkg/logger"
)

func sugar(ctx context.Context) *zap.SugaredLogger {
	s := logger.L().Sugar()
	if fields := ctxval.Fields(ctx); len(fields) > 0 {
		s = s.With(fields...)
	}
	return s
}

func Debugw(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Debugw(msg, keysAndValues...)
}

func Infow(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Infow(msg, keysAndValues...)
}

func Warnw(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Warnw(msg, keysAndValues...)
}

func Errorw(ctx context.Context, msg string, keysAndValues ...any) {
	sugar(ctx).Errorw(msg, keysAndValues...)
}

func Debugf(ctx context.Context, template string, args ...any) {
	sugar(ctx).Debugf(template, args...)
}

func Infof(ctx context.Context, template string, args ...any) {
	sugar(ctx).Infof(template, args...)
}

func Warnf(ctx context.Context, template string, args ...any) {
	sugar(ctx).Warnf(template, args...)
}

func Errorf(ctx context.Context, template string, args ...any) {
	sugar(ctx).Errorf(template, args...)
}
