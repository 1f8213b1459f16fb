// Package monitoring holds the package-level diagnostic logger shared by the
// navigation packages.
package monitoring

import "log"

// Logf is the diagnostic logger. It defaults to log.Printf and may be
// replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the logger. Passing nil mutes logging.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
