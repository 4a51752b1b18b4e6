package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs an absorbed-fault condition: a packet dropped, a
// measurement rejected, a covariance self-heal. These are exactly the
// conditions §7 requires the engines to recover from silently rather
// than propagate, so they still need a breadcrumb for operators.
func Warnf(format string, v ...interface{}) {
	Logf("WARN "+format, v...)
}

// Errorf logs a condition serious enough to abort a component (a
// configuration error, a revocation file that failed to load) but that
// the caller still returns as an error rather than panicking on.
func Errorf(format string, v ...interface{}) {
	Logf("ERROR "+format, v...)
}
