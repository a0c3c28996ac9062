package eval

import (
	"time"

	"nickandperla.net/cbs/internal/expr"
)

// TraceStep records one resolved command.
type TraceStep struct {
	Span     expr.Span
	Original string   // Source text of the tag
	Resolved string   // Text it was replaced with
	Command  string   // Lowercased command name
	Args     []string // Arguments after nested evaluation
	Duration time.Duration
}

// Result is the outcome of one top-level evaluation.
type Result struct {
	Output string
	Trace  []TraceStep
	Errors []Error

	// Snapshots taken after evaluation, for the host to persist.
	ChatVars   map[string]string
	GlobalVars map[string]string
	TempVars   map[string]string
}

// Warnings returns only the warning-level errors.
func (r *Result) Warnings() []Error {
	return r.filter(Warning)
}

// Failures returns only the error-level errors.
func (r *Result) Failures() []Error {
	return r.filter(Severe)
}

func (r *Result) filter(s Severity) []Error {
	var out []Error
	for _, e := range r.Errors {
		if e.Severity == s {
			out = append(out, e)
		}
	}
	return out
}
