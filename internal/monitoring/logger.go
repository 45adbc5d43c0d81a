// Package monitoring holds the diagnostic logging hooks shared by the
// sampling and statistics packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. Sampling and fitting code
// reports lifecycle events through it. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
