package diag

import "go.uber.org/zap"

// ZapSink routes Events through a structured zap logger. Errors log at
// error level (zap's production config writes those to stderr by
// default), matching the spec's "no sink installed" fallback behavior
// when a ZapSink wraps zap.NewProduction().
type ZapSink struct {
	Logger *zap.Logger
}

// NewZapSink wraps an existing logger. Passing nil is a programmer error.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{Logger: logger}
}

func (s *ZapSink) Emit(ev Event) {
	fields := []zap.Field{zap.String("message", ev.Message)}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}
	switch ev.Severity {
	case SeverityError:
		s.Logger.Error("diag", fields...)
	case SeverityWarning:
		s.Logger.Warn("diag", fields...)
	default:
		s.Logger.Info("diag", fields...)
	}
}
