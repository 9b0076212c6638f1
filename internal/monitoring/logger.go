// Package monitoring holds the diagnostic logger shared by the contact
// engine, the frame synchronizer and the tooling around them.
package monitoring

import (
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var (
	onceMu   sync.Mutex
	onceKeys = map[string]struct{}{}
)

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// LogOncef logs through Logf the first time key is seen and drops every
// later call with the same key. Subsystem-level failures use it so a
// disabled component reports itself exactly once.
func LogOncef(key, format string, v ...interface{}) bool {
	onceMu.Lock()
	if _, seen := onceKeys[key]; seen {
		onceMu.Unlock()
		return false
	}
	onceKeys[key] = struct{}{}
	onceMu.Unlock()

	Logf(format, v...)
	return true
}

// ResetOnce forgets every key recorded by LogOncef.
func ResetOnce() {
	onceMu.Lock()
	defer onceMu.Unlock()
	onceKeys = map[string]struct{}{}
}
