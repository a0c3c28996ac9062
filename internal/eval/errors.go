package eval

import (
	"fmt"

	"nickandperla.net/cbs/internal/expr"
)

// Severity of a reported Error.
type Severity int

const (
	// Warning means the node degraded to its literal source.
	Warning Severity = iota
	// Severe means the node degraded to "".
	Severe
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Severe:
		return "error"
	}
	return "unknown"
}

// MarshalText lets severities appear by name in JSON and YAML output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Error is a problem recorded during evaluation. Evaluation never stops on one.
type Error struct {
	Message  string
	Command  string
	Severity Severity
	Span     expr.Span
}

func (e Error) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s at %d: %s", e.Severity, e.Span.Start, e.Message)
	}
	return fmt.Sprintf("%s at %d: %s: %s", e.Severity, e.Span.Start, e.Command, e.Message)
}

// CallStackError is the literal text emitted when call:: nests too deep.
const CallStackError = "ERROR: Call stack limit reached"
