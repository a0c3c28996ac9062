// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"maps"
	"math/rand/v2"
	"time"
)

// Message roles used in chat history.
const (
	RoleUser   = "user"
	RoleChar   = "char"
	RoleSystem = "system"
)

// Character is the character sheet commands read from.
type Character struct {
	Name            string   `yaml:"name" json:"name"`
	Nickname        string   `yaml:"nickname" json:"nickname,omitempty"`
	Personality     string   `yaml:"personality" json:"personality,omitempty"`
	Description     string   `yaml:"description" json:"description,omitempty"`
	Scenario        string   `yaml:"scenario" json:"scenario,omitempty"`
	ExampleDialogue string   `yaml:"example_dialogue" json:"example_dialogue,omitempty"`
	SystemPrompt    string   `yaml:"system_prompt" json:"system_prompt,omitempty"`
	Emotions        []string `yaml:"emotions" json:"emotions,omitempty"`
	Assets          []string `yaml:"assets" json:"assets,omitempty"`
}

// Message is one chat history entry.
type Message struct {
	Role    string    `yaml:"role" json:"role"`
	Content string    `yaml:"content" json:"content"`
	Time    time.Time `yaml:"time" json:"time,omitempty"`
}

// Context is everything a template can read, plus the variable stores it
// may write. ChatVars and GlobalVars are mutated in place; the engine does
// no locking, so a host sharing them across goroutines must serialize access.
type Context struct {
	ChatVars   map[string]string
	GlobalVars map[string]string
	TempVars   map[string]string // Initial temp vars; copied, never mutated

	Char      Character
	User      string
	Persona   string
	History   []Message
	ChatIndex int

	Jailbreak        string
	GlobalNote       string
	JailbreakToggled bool
	Model            string
	Role             string
	TriggerID        string
	MaxContext       int
	EnabledModules   []string

	// Mode flags
	Displaying       bool // Markup commands render HTML
	TokenizeAccurate bool // Clock commands return fixed values
	RmVar            bool // Variable writers emit "" without writing
	RunVar           bool // Variable writers write; otherwise they decline

	// CallStackDepth counts nested call:: frames.
	CallStackDepth int

	Now  func() time.Time
	Rand *rand.Rand
}

// NewContext returns a context with the defaults an interactive chat uses.
func NewContext() *Context {
	return &Context{
		ChatVars:   make(map[string]string),
		GlobalVars: make(map[string]string),
		ChatIndex:  -1,
		MaxContext: 4096,
		RunVar:     true,
	}
}

func (c *Context) ensure() {
	if c.ChatVars == nil {
		c.ChatVars = make(map[string]string)
	}
	if c.GlobalVars == nil {
		c.GlobalVars = make(map[string]string)
	}
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Context) float64() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()
	}
	return rand.Float64()
}

// Clone copies the context with independent variable maps.
func (c *Context) Clone() *Context {
	clone := *c
	clone.ChatVars = maps.Clone(c.ChatVars)
	clone.GlobalVars = maps.Clone(c.GlobalVars)
	clone.TempVars = maps.Clone(c.TempVars)
	clone.History = append([]Message(nil), c.History...)
	clone.EnabledModules = append([]string(nil), c.EnabledModules...)
	return &clone
}
