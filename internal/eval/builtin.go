package eval

import (
	"sort"
	"strings"
	"sync"
)

// Kind distinguishes callable commands from structural keywords.
type Kind int

const (
	KindFunc Kind = iota
	// KindDocOnly entries are interpreted by the evaluator and never invoked.
	KindDocOnly
)

// Callback is the signature for command implementations. args are already
// evaluated. vars is the current temp variable scope.
type Callback func(args []string, ctx *Context, vars map[string]string) (Output, error)

// Output is what a callback produces.
type Output struct {
	Text string
	// Decline leaves the original {{...}} text in place.
	Decline bool
	// Vars, when non-nil, replaces the temp variable scope.
	Vars map[string]string
}

// Text is a plain substitution.
func Text(s string) (Output, error) { return Output{Text: s}, nil }

// Decline emits the original tag unchanged.
func Decline() (Output, error) { return Output{Decline: true}, nil }

// Command is a registry entry.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Kind        Kind
	Fn          Callback
}

// Registry maps lowercased names and aliases to commands.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Command
	commands []*Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Command)}
}

// Register adds cmd under its name and every alias. Later registrations win.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &cmd
	c.Name = strings.ToLower(c.Name)
	r.byName[c.Name] = c
	aliases := make([]string, len(c.Aliases))
	for i, a := range c.Aliases {
		aliases[i] = strings.ToLower(a)
		r.byName[aliases[i]] = c
	}
	c.Aliases = aliases
	r.commands = append(r.commands, c)
}

// Lookup finds a command by case-insensitive name.
func (r *Registry) Lookup(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[strings.ToLower(name)]
	return c, ok
}

// Commands returns every registered command in registration order.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Command(nil), r.commands...)
}

// Names returns every callable name and alias, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Clone creates a shallow copy that can be extended independently.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewRegistry()
	for k, v := range r.byName {
		clone.byName[k] = v
	}
	clone.commands = append(clone.commands, r.commands...)
	return clone
}

var (
	builtinOnce sync.Once
	builtins    *Registry
)

// Builtins returns the shared registry of builtin commands. Callers that
// want to add commands should Clone it first.
func Builtins() *Registry {
	builtinOnce.Do(func() {
		builtins = NewRegistry()
		for _, group := range [][]Command{
			structuralCommands,
			contextCommands,
			varCommands,
			mathCommands,
			logicCommands,
			stringCommands,
			arrayCommands,
			randomCommands,
			timeCommands,
			historyCommands,
			displayCommands,
		} {
			for _, c := range group {
				builtins.Register(c)
			}
		}
	})
	return builtins
}

// Structural keywords. The evaluator intercepts these by name.
var structuralCommands = []Command{
	{Name: "#if", Kind: KindDocOnly, Description: "Conditional block, legacy whitespace rules"},
	{Name: "#if_pure", Kind: KindDocOnly, Description: "Conditional block that keeps whitespace"},
	{Name: "#when", Kind: KindDocOnly, Description: "Conditional block with operators"},
	{Name: ":else", Kind: KindDocOnly, Description: "Else branch marker"},
	{Name: "#pure", Kind: KindDocOnly, Description: "Emit body unevaluated"},
	{Name: "#puredisplay", Aliases: []string{"#pure_display"}, Kind: KindDocOnly, Description: "Emit body unevaluated with braces escaped"},
	{Name: "#each", Kind: KindDocOnly, Description: "Loop over an array"},
	{Name: "#func", Kind: KindDocOnly, Description: "Define a function"},
	{Name: "#code", Kind: KindDocOnly, Description: "Normalize escapes in the body"},
	{Name: "#escape", Kind: KindDocOnly, Description: "HTML-escape the literal body"},
	{Name: "slot", Kind: KindDocOnly, Description: "Current loop binding"},
	{Name: "call", Kind: KindDocOnly, Description: "Call a function"},
	{Name: "arg", Kind: KindDocOnly, Description: "Function argument"},
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func hasArg(args []string, i int) bool {
	return i < len(args)
}

// writer wraps a variable-writing callback with the rmVar/runVar gate.
func writer(fn func(args []string, ctx *Context)) Callback {
	return func(args []string, ctx *Context, _ map[string]string) (Output, error) {
		if ctx.RmVar {
			return Text("")
		}
		if !ctx.RunVar {
			return Decline()
		}
		fn(args, ctx)
		return Text("")
	}
}

// constant returns a callback that always emits s.
func constant(s string) Callback {
	return func([]string, *Context, map[string]string) (Output, error) {
		return Text(s)
	}
}

// unary applies fn to the first argument.
func unary(fn func(string) string) Callback {
	return func(args []string, _ *Context, _ map[string]string) (Output, error) {
		return Text(fn(argAt(args, 0)))
	}
}

// binary applies fn to the first two arguments.
func binary(fn func(a, b string) string) Callback {
	return func(args []string, _ *Context, _ map[string]string) (Output, error) {
		return Text(fn(argAt(args, 0), argAt(args, 1)))
	}
}
