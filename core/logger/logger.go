package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// StructuredLogger can log structured information at several levels. It is
// implemented by the zerolog adapter.
type StructuredLogger interface {
	Debugw(msg string, fields map[string]any)
	Infow(msg string, fields map[string]any)
	Warnw(msg string, fields map[string]any)
	Errorw(msg string, fields map[string]any)
}

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}

// Warnw logs msg with fields at warn level when l supports structured
// output, and falls back to Warnf otherwise.
func Warnw(l Logger, msg string, fields map[string]any) {
	if s, ok := l.(StructuredLogger); ok {
		s.Warnw(msg, fields)
		return
	}
	l.Warnf("%s %v", msg, fields)
}

// Errorw is the error level counterpart of Warnw.
func Errorw(l Logger, msg string, fields map[string]any) {
	if s, ok := l.(StructuredLogger); ok {
		s.Errorw(msg, fields)
		return
	}
	l.Errorf("%s %v", msg, fields)
}
