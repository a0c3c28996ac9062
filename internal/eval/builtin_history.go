// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"strconv"
	"strings"

	"nickandperla.net/cbs/internal/jsnum"
)

func byRole(history []Message, role string) []Message {
	var out []Message
	for _, m := range history {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

func lastContent(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}

// contentAt reads history with at() indexing.
func contentAt(history []Message, arg string) string {
	i, ok := at(len(history), jsnum.Number(arg))
	if !ok {
		return ""
	}
	return history[i].Content
}

var historyCommands = []Command{
	{
		Name:        "previouscharchat",
		Description: "Last character message",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(lastContent(byRole(ctx.History, RoleChar)))
		},
	},
	{
		Name:        "previoususerchat",
		Description: "Last user message",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(lastContent(byRole(ctx.History, RoleUser)))
		},
	},
	{
		Name:        "lastmessage",
		Description: "Last message",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(lastContent(ctx.History))
		},
	},
	{
		Name:        "lastmessageid",
		Description: "Index of the last message",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(strconv.Itoa(len(ctx.History) - 1))
		},
	},
	{
		Name:        "history",
		Description: "Message at an index; negative counts from the end",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(contentAt(ctx.History, argAt(args, 0)))
		},
	},
	{
		Name:        "previouschatlog",
		Description: "The last N messages, one per line",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			count := jsnum.Number(orDefault(args, 0, "1"))
			start := sliceStart(len(ctx.History), -count)
			parts := make([]string, 0, len(ctx.History)-start)
			for _, m := range ctx.History[start:] {
				parts = append(parts, m.Content)
			}
			return Text(strings.Join(parts, "\n"))
		},
	},
	{
		Name:        "userhistory",
		Description: "User message at an index",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(contentAt(byRole(ctx.History, RoleUser), argAt(args, 0)))
		},
	},
	{
		Name:        "charhistory",
		Description: "Character message at an index",
		Fn: func(args []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(contentAt(byRole(ctx.History, RoleChar), argAt(args, 0)))
		},
	},
	{Name: "firstmsgindex", Description: "Index of the first message", Fn: constant("0")},
	{
		Name:        "isfirstmsg",
		Description: "1 when evaluating the first message",
		Fn: func(_ []string, ctx *Context, _ map[string]string) (Output, error) {
			return Text(jsnum.Bool(ctx.ChatIndex == 0))
		},
	},
}
