package log

import (
	"portmirror/domain/valueobject"
)

// DiagnosticLogger writes every packet path diagnostic at debug level.
type DiagnosticLogger struct{}

func NewDiagnosticLogger() *DiagnosticLogger {
	return &DiagnosticLogger{}
}

func (*DiagnosticLogger) Observe(d valueobject.Diagnostic) {
	Logger.Debugf("frame passed without mirror: %s", d)
}
