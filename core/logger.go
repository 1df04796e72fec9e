package core

// Logger is any leveled logger that can also report errors to an external
// tracker. Extra args may include an error, a map of context values or a
// logged-in user (see services/logger).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
