package core

// Logger is any service that can log app messages and report them upstream.
// Extra args are implementation-specific (error, map[string]interface{}, user.User...).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
