package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	// Infow logs a message with structured fields.
	Infow(msg string, fields map[string]any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	// Errorw logs a failure together with the fields needed to reproduce it.
	Errorw(msg string, fields map[string]any)
}

// Fields is a convenience alias for structured log payloads.
type Fields = map[string]any
