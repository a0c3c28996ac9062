// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"sort"
	"strings"
	"sync"

	"nickandperla.net/cbs/internal/expr"
)

// Function is a #func definition.
type Function struct {
	Name   string
	Params []string
	Body   string      // Body source text
	Nodes  []expr.Node // Parsed body
}

// FunctionTable holds the functions defined during one evaluation.
// call:: frames share their caller's table.
type FunctionTable struct {
	mu    sync.RWMutex
	store map[string]*Function
}

// NewFunctionTable creates an empty table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{
		store: make(map[string]*Function),
	}
}

// Get retrieves a function by name. Returns nil if not found.
func (t *FunctionTable) Get(name string) *Function {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store[strings.TrimSpace(name)]
}

// Set stores a function under its name.
func (t *FunctionTable) Set(fn *Function) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.store[fn.Name] = fn
}

// Has returns true if the name is defined.
func (t *FunctionTable) Has(name string) bool {
	return t.Get(name) != nil
}

// Delete removes a function.
func (t *FunctionTable) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.store, name)
}

// Names returns the defined function names, sorted.
func (t *FunctionTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.store))
	for n := range t.store {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone creates a shallow copy of the table.
func (t *FunctionTable) Clone() *FunctionTable {
	if t == nil {
		return NewFunctionTable()
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	clone := NewFunctionTable()
	for k, v := range t.store {
		clone.store[k] = v
	}
	return clone
}
