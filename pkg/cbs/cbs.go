// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package cbs provides the public API for the CBS template engine.
package cbs

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"go.uber.org/zap"

	"nickandperla.net/cbs/internal/eval"
	"nickandperla.net/cbs/internal/store"
)

// metadataKeyPrelude holds a prelude saved with SavePrelude.
const metadataKeyPrelude = "__prelude__"

// Runtime is the CBS engine runtime. It is safe for concurrent use as long as
// concurrent evaluations do not share a Context.
type Runtime struct {
	evaluator *eval.Evaluator
	registry  *eval.Registry
	functions *eval.FunctionTable // Predefined by the prelude
	store     Store
	logger    *zap.Logger
	commands  []Command
	prelude   string // Custom prelude source (if empty, uses DefaultPrelude)
	noPrelude bool
	workers   int
	err       error // First option failure, reported by New
}

// New creates a new CBS runtime with the given options.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		logger:  zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.err != nil {
		if r.store != nil {
			r.store.Close()
		}
		return nil, r.err
	}

	r.registry = eval.Builtins().Clone()
	for _, cmd := range r.commands {
		r.registry.Register(cmd)
	}

	r.functions = eval.New(eval.WithRegistry(r.registry)).Functions(r.preludeSource())
	r.evaluator = eval.New(
		eval.WithLogger(r.logger),
		eval.WithRegistry(r.registry),
		eval.WithFunctions(r.functions),
	)
	r.logger.Debug("runtime ready",
		zap.Int("commands", len(r.registry.Names())),
		zap.Strings("functions", r.functions.Names()),
		zap.Int("workers", r.workers),
	)
	return r, nil
}

// Evaluate evaluates a template against ctx. A nil ctx gets NewContext().
func (r *Runtime) Evaluate(source string, ctx *Context) *Result {
	return r.evaluator.Evaluate(source, ctx)
}

// EvaluateReader evaluates a template read from reader.
func (r *Runtime) EvaluateReader(reader io.Reader, ctx *Context) (*Result, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return r.Evaluate(string(data), ctx), nil
}

// EvaluateFile evaluates a template file.
func (r *Runtime) EvaluateFile(path string, ctx *Context) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return r.EvaluateReader(f, ctx)
}

// RegisterCommand adds or replaces a command. It takes effect for
// evaluations that start after it returns.
func (r *Runtime) RegisterCommand(cmd Command) {
	r.registry.Register(cmd)
}

// Commands lists every registered command name and alias, sorted.
func (r *Runtime) Commands() []string {
	return r.registry.Names()
}

// Functions lists the functions the prelude predefines.
func (r *Runtime) Functions() []string {
	return r.functions.Names()
}

// Suggest returns the registered command closest to name, or "".
func (r *Runtime) Suggest(name string) string {
	return r.evaluator.Suggest(name)
}

// ExtractVariables lists the variables a template reads or writes.
func (r *Runtime) ExtractVariables(source string) []VarRef {
	return eval.ExtractVariables(source)
}

// SavePrelude stores source as the prelude that later runtimes on the same
// store load when WithPrelude is not given. The running runtime is unchanged.
func (r *Runtime) SavePrelude(source string) error {
	ms, ok := r.store.(metadataStore)
	if !ok {
		return ErrNoStore
	}
	return ms.SetMetadata(metadataKeyPrelude, source)
}

// Close releases resources.
func (r *Runtime) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

func (r *Runtime) savedPrelude() string {
	ms, ok := r.store.(metadataStore)
	if !ok {
		return ""
	}
	src, err := ms.GetMetadata(metadataKeyPrelude)
	if err != nil {
		r.logger.Warn("load saved prelude", zap.Error(err))
		return ""
	}
	return src
}

// preludeSource picks WithPrelude, then a saved prelude, then DefaultPrelude.
func (r *Runtime) preludeSource() string {
	switch {
	case r.noPrelude:
		return ""
	case r.prelude != "":
		return r.prelude
	}
	if saved := r.savedPrelude(); saved != "" {
		return saved
	}
	return DefaultPrelude
}

type metadataStore interface {
	GetMetadata(key string) (string, error)
	SetMetadata(key, value string) error
}

var _ metadataStore = (*store.SQLite)(nil)
var _ metadataStore = (*store.Memory)(nil)
