package cbs

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nickandperla.net/cbs/internal/eval"
	"nickandperla.net/cbs/internal/store"
)

// ErrNoStore is returned by session helpers when the runtime has no store.
var ErrNoStore = errors.New("cbs: no store configured")

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger for the runtime and its evaluator.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSQLiteStore configures SQLite persistence at the given path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.fail(fmt.Errorf("sqlite store: %w", err))
			return
		}
		r.setStore(s)
	}
}

// WithMemoryStore configures an in-memory store.
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.setStore(store.NewMemory())
	}
}

// WithStore configures a custom store. The runtime closes it on Close.
func WithStore(s Store) Option {
	return func(r *Runtime) {
		r.setStore(s)
	}
}

// WithPrelude sets a custom prelude. Its #func blocks are predefined in
// every evaluation. If not set, DefaultPrelude is used.
func WithPrelude(source string) Option {
	return func(r *Runtime) {
		r.prelude = source
	}
}

// WithNoPrelude disables the prelude.
func WithNoPrelude() Option {
	return func(r *Runtime) {
		r.noPrelude = true
	}
}

// WithCommand registers a custom command next to the builtins.
func WithCommand(cmd Command) Option {
	return func(r *Runtime) {
		r.commands = append(r.commands, cmd)
	}
}

// WithWorkers bounds RenderAll's concurrency. n <= 0 means no limit.
func WithWorkers(n int) Option {
	return func(r *Runtime) {
		r.workers = n
	}
}

func (r *Runtime) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Runtime) setStore(s Store) {
	if r.store != nil {
		r.store.Close()
	}
	r.store = s
}

// Store persists session variables.
type Store = store.Store

// Snapshot is one recorded evaluation in a session's history.
type Snapshot = store.Snapshot

// Context carries the variables and chat state of one evaluation.
type Context = eval.Context

// Result is what an evaluation produced.
type Result = eval.Result

// Command is a registered command.
type Command = eval.Command

// Callback implements a command.
type Callback = eval.Callback

// Output is a callback's return value.
type Output = eval.Output

// Character describes the character card.
type Character = eval.Character

// Message is one chat history entry.
type Message = eval.Message

// Error is an evaluation error or warning.
type Error = eval.Error

// VarRef is a variable reference found by ExtractVariables.
type VarRef = eval.VarRef

// NewContext returns a context with interactive chat defaults.
func NewContext() *Context {
	return eval.NewContext()
}
