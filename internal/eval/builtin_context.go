package eval

import (
	"slices"
	"strconv"

	"nickandperla.net/cbs/internal/jsnum"
)

// field returns a callback reading a string from the context.
func field(get func(*Context) string) Callback {
	return func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
		return Text(get(ctx))
	}
}

// fieldOr is field with a fallback for empty values.
func fieldOr(get func(*Context) string, def string) Callback {
	return field(func(ctx *Context) string {
		if v := get(ctx); v != "" {
			return v
		}
		return def
	})
}

func jsonList(list []string) string {
	if list == nil {
		list = []string{}
	}
	return jsnum.Stringify(list)
}

var contextCommands = []Command{
	{
		Name:        "char",
		Aliases:     []string{"bot"},
		Description: "Character nickname, or name",
		Fn: field(func(ctx *Context) string {
			if ctx.Char.Nickname != "" {
				return ctx.Char.Nickname
			}
			return ctx.Char.Name
		}),
	},
	{Name: "user", Description: "User name", Fn: field(func(ctx *Context) string { return ctx.User })},
	{Name: "persona", Description: "User persona prompt", Fn: field(func(ctx *Context) string { return ctx.Persona })},
	{Name: "personality", Description: "Character personality", Fn: field(func(ctx *Context) string { return ctx.Char.Personality })},
	{Name: "description", Aliases: []string{"desc"}, Description: "Character description", Fn: field(func(ctx *Context) string { return ctx.Char.Description })},
	{Name: "scenario", Description: "Scenario", Fn: field(func(ctx *Context) string { return ctx.Char.Scenario })},
	{
		Name:        "exampledialogue",
		Aliases:     []string{"example_dialogue", "mesexample"},
		Description: "Example dialogue",
		Fn:          field(func(ctx *Context) string { return ctx.Char.ExampleDialogue }),
	},
	{Name: "mainprompt", Aliases: []string{"systemprompt"}, Description: "System prompt", Fn: field(func(ctx *Context) string { return ctx.Char.SystemPrompt })},
	{Name: "jb", Aliases: []string{"jailbreak"}, Description: "Jailbreak prompt", Fn: field(func(ctx *Context) string { return ctx.Jailbreak })},
	{Name: "globalnote", Description: "Global note", Fn: field(func(ctx *Context) string { return ctx.GlobalNote })},
	{Name: "jbtoggled", Description: "1 when the jailbreak is on", Fn: field(func(ctx *Context) string { return jsnum.Bool(ctx.JailbreakToggled) })},
	{
		Name:        "maxcontext",
		Description: "Context size in tokens",
		Fn: field(func(ctx *Context) string {
			if ctx.MaxContext == 0 {
				return "4096"
			}
			return strconv.Itoa(ctx.MaxContext)
		}),
	},
	{Name: "model", Description: "Model identifier", Fn: fieldOr(func(ctx *Context) string { return ctx.Model }, "unknown")},
	{Name: "role", Description: "Role being generated", Fn: fieldOr(func(ctx *Context) string { return ctx.Role }, "unknown")},
	{Name: "trigger_id", Aliases: []string{"triggerid"}, Description: "Trigger that started evaluation", Fn: fieldOr(func(ctx *Context) string { return ctx.TriggerID }, "null")},
	{Name: "chatindex", Aliases: []string{"chat_index"}, Description: "Index of the message being evaluated", Fn: field(func(ctx *Context) string { return strconv.Itoa(ctx.ChatIndex) })},
	{Name: "emotionlist", Description: "Emotion names as JSON", Fn: field(func(ctx *Context) string { return jsonList(ctx.Char.Emotions) })},
	{Name: "assetlist", Description: "Asset names as JSON", Fn: field(func(ctx *Context) string { return jsonList(ctx.Char.Assets) })},
	{
		Name:        "moduleenabled",
		Description: "1 when the named module is enabled",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(jsnum.Bool(slices.Contains(ctx.EnabledModules, argAt(args, 0))))
		},
	},
	{Name: "prefillsupported", Description: "Prefill support, always 0", Fn: constant("0")},
	{Name: "screenwidth", Description: "Screen width", Fn: constant("1920")},
	{Name: "screenheight", Description: "Screen height", Fn: constant("1080")},
	{Name: "risu", Description: "Host name", Fn: constant("RisuStudio")},
}
