package telemetry

import (
	"github.com/ivancb/aurumecs"
	"go.uber.org/zap"
)

// zapLogger adapts a *zap.Logger to ecs.Logger, the way
// rdtc8822-debug-L1JGO-Whale's cmd/l1jgo/main.go threads a *zap.Logger
// through its own subsystems.
type zapLogger struct {
	l *zap.SugaredLogger
}

// NewZapLogger wraps l as an ecs.Logger.
func NewZapLogger(l *zap.Logger) ecs.Logger {
	return zapLogger{l: l.Sugar()}
}

func (z zapLogger) Debug(msg string, fields ...any) { z.l.Debugw(msg, fields...) }
func (z zapLogger) Info(msg string, fields ...any)  { z.l.Infow(msg, fields...) }
func (z zapLogger) Warn(msg string, fields ...any)  { z.l.Warnw(msg, fields...) }
func (z zapLogger) Error(msg string, fields ...any) { z.l.Errorw(msg, fields...) }

func (z zapLogger) With(fields ...any) ecs.Logger {
	return zapLogger{l: z.l.With(fields...)}
}
