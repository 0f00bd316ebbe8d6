package core

// Logger is any service that can log messages.
// args may hold an error, a map[string]interface{} of extra data, the user.Profile in scope
// and the session.Reason of a session event.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
