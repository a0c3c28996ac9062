package eval

import (
	"nickandperla.net/cbs/internal/jsnum"
)

// unset reports whether a stored value counts as missing for getvar defaults.
func unset(v string) bool {
	return v == "" || v == "null" || v == "nil"
}

var varCommands = []Command{
	{
		Name:        "getvar",
		Description: "Chat variable, or the second argument when unset",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			v := ctx.ChatVars[argAt(args, 0)]
			if unset(v) && hasArg(args, 1) {
				return Text(args[1])
			}
			return Text(v)
		},
	},
	{
		Name:        "setvar",
		Description: "Set a chat variable",
		Fn: writer(func(args []string, ctx *Context) {
			ctx.ChatVars[argAt(args, 0)] = argAt(args, 1)
		}),
	},
	{
		Name:        "addvar",
		Description: "Add a number to a chat variable",
		Fn: writer(func(args []string, ctx *Context) {
			name := argAt(args, 0)
			cur := jsnum.Number(orFallback([]string{ctx.ChatVars[name]}, 0, "0"))
			add := jsnum.Number(orFallback(args, 1, "0"))
			ctx.ChatVars[name] = jsnum.Format(cur + add)
		}),
	},
	{
		Name:        "setdefaultvar",
		Description: "Set a chat variable only when it is empty",
		Fn: writer(func(args []string, ctx *Context) {
			name := argAt(args, 0)
			if ctx.ChatVars[name] == "" {
				ctx.ChatVars[name] = argAt(args, 1)
			}
		}),
	},
	{
		Name:        "getglobalvar",
		Description: "Global variable, or the second argument when unset",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			v := ctx.GlobalVars[argAt(args, 0)]
			if unset(v) && hasArg(args, 1) {
				return Text(args[1])
			}
			return Text(v)
		},
	},
	{
		Name:        "tempvar",
		Aliases:     []string{"gettempvar"},
		Description: "Temp variable for this evaluation",
		Fn: func(args []string, _ *Context, vars map[string]string) (Output, error) {
			return Output{Text: vars[argAt(args, 0)], Vars: vars}, nil
		},
	},
	{
		Name:        "settempvar",
		Description: "Set a temp variable",
		Fn: func(args []string, _ *Context, vars map[string]string) (Output, error) {
			vars[argAt(args, 0)] = argAt(args, 1)
			return Output{Vars: vars}, nil
		},
	},
	{
		Name:        "return",
		Description: "Stop evaluating and make the argument the whole result",
		Fn: func(args []string, _ *Context, vars map[string]string) (Output, error) {
			vars[VarReturn] = argAt(args, 0)
			vars[VarForceReturn] = "1"
			return Output{Vars: vars}, nil
		},
	},
}
