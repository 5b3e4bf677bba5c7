// Package logging centralizes the structured logging conventions used
// across the service. It is a thin wrapper over k8s.io/klog/v2, the
// logging library the teacher's apiserver and common packages use
// directly (klog.InfoS / klog.ErrorS with key-value pairs).
package logging

import "k8s.io/klog/v2"

// Info logs an informational structured message.
func Info(msg string, keysAndValues ...interface{}) {
	klog.InfoS(msg, keysAndValues...)
}

// Warn logs a structured warning.
func Warn(msg string, keysAndValues ...interface{}) {
	klog.InfoS("WARN: "+msg, keysAndValues...)
}

// Error logs a structured error with its cause.
func Error(err error, msg string, keysAndValues ...interface{}) {
	klog.ErrorS(err, msg, keysAndValues...)
}

// Flush flushes buffered log entries; call before process exit.
func Flush() {
	klog.Flush()
}
