// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package cbs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEvaluate(t *testing.T) {
	r := newRuntime(t, WithLogger(zaptest.NewLogger(t)))

	ctx := NewContext()
	ctx.Char = Character{Name: "Sera"}
	ctx.User = "Ann"
	res := r.Evaluate("{{setvar::hp::10}}{{char}} greets {{user}} with {{getvar::hp}} hp", ctx)

	assert.Equal(t, "Sera greets Ann with 10 hp", res.Output)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "10", ctx.ChatVars["hp"])
}

func TestEvaluateFile(t *testing.T) {
	r := newRuntime(t)
	path := filepath.Join(t.TempDir(), "greet.cbs")
	require.NoError(t, os.WriteFile(path, []byte("{{upper::hi}} {{calc::6*7}}"), 0o644))

	res, err := r.EvaluateFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "HI 42", res.Output)

	_, err = r.EvaluateFile(filepath.Join(t.TempDir(), "missing.cbs"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestEvaluateReader(t *testing.T) {
	r := newRuntime(t)

	res, err := r.EvaluateReader(strings.NewReader("{{lower::ABC}}"), nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Output)

	_, err = r.EvaluateReader(failingReader{}, nil)
	assert.ErrorContains(t, err, "disk on fire")
}

func shout(args []string, _ *Context, _ map[string]string) (Output, error) {
	return Output{Text: strings.ToUpper(strings.Join(args, " ")) + "!"}, nil
}

func TestCustomCommands(t *testing.T) {
	r := newRuntime(t, WithCommand(Command{Name: "Shout", Aliases: []string{"yell"}, Fn: shout}))

	assert.Equal(t, "HEY YOU!", r.Evaluate("{{shout::hey::you}}", nil).Output)
	assert.Equal(t, "HI!", r.Evaluate("{{YELL::hi}}", nil).Output)
	assert.Contains(t, r.Commands(), "yell")

	r.RegisterCommand(Command{Name: "whisper", Fn: func(args []string, _ *Context, _ map[string]string) (Output, error) {
		return Output{Text: strings.ToLower(args[0])}, nil
	}})
	assert.Equal(t, "psst", r.Evaluate("{{whisper::PSST}}", nil).Output)

	// Builtins can be replaced per runtime without touching others
	r.RegisterCommand(Command{Name: "upper", Fn: func([]string, *Context, map[string]string) (Output, error) {
		return Output{Text: "nope"}, nil
	}})
	assert.Equal(t, "nope", r.Evaluate("{{upper::x}}", nil).Output)
	other := newRuntime(t)
	assert.Equal(t, "X", other.Evaluate("{{upper::x}}", nil).Output)
	_, ok := other.registry.Lookup("whisper")
	assert.False(t, ok)
}

func TestSuggestAndExtract(t *testing.T) {
	r := newRuntime(t)

	assert.Equal(t, "getvar", r.Suggest("getvr"))
	refs := r.ExtractVariables("{{setvar::hp::1}}{{getglobalvar::mode}}")
	require.Len(t, refs, 2)
	assert.Equal(t, "hp", refs[0].Name)
	assert.Equal(t, "mode", refs[1].Name)
}

func TestBadSQLitePath(t *testing.T) {
	dir := t.TempDir()
	// A directory cannot be opened as a database file
	_, err := New(WithSQLiteStore(dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite store")
}

func TestNoStore(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	defer r.Close()

	_, err = r.NewSession()
	assert.ErrorIs(t, err, ErrNoStore)
	assert.ErrorIs(t, r.LoadSession("x", NewContext()), ErrNoStore)
	_, err = r.SaveSession("x", r.Evaluate("", nil))
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = r.History("x", 0)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.ErrorIs(t, r.SavePrelude(""), ErrNoStore)
}

func TestRenderAll(t *testing.T) {
	r := newRuntime(t, WithWorkers(3))

	shared := NewContext()
	shared.ChatVars["n"] = "0"
	var jobs []Job
	for i := range 20 {
		jobs = append(jobs, Job{
			Source:  fmt.Sprintf("{{setvar::n::%d}}{{calc::%d*2}}", i, i),
			Context: shared,
			Isolate: true,
		})
	}
	jobs[0].ID = "first"

	out, err := r.RenderAll(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, out, len(jobs))

	assert.Equal(t, "first", out[0].ID)
	seen := make(map[string]bool)
	for i, o := range out {
		require.NotNil(t, o.Result, "job %d", i)
		assert.Equal(t, fmt.Sprint(i*2), o.Result.Output)
		assert.Equal(t, fmt.Sprint(i), o.Result.ChatVars["n"])
		assert.NotEmpty(t, o.ID)
		assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
	}
	// Isolated jobs leave the shared context alone
	assert.Equal(t, "0", shared.ChatVars["n"])
}

func TestRenderAllWithoutContexts(t *testing.T) {
	r := newRuntime(t, WithWorkers(0))

	out, err := r.RenderAll(context.Background(), []Job{{Source: "{{calc::1+1}}"}, {Source: "{{setvar::a::b}}{{getvar::a}}"}})
	require.NoError(t, err)
	assert.Equal(t, "2", out[0].Result.Output)
	assert.Equal(t, "b", out[1].Result.Output)
}

func TestRenderAllCancelled(t *testing.T) {
	r := newRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.RenderAll(ctx, []Job{{Source: "a"}, {Source: "b"}})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, out, 2)
	for _, o := range out {
		assert.Nil(t, o.Result)
		assert.NotEmpty(t, o.ID)
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	r := newRuntime(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := NewContext()
			res := r.Evaluate(fmt.Sprintf("{{setvar::i::%d}}{{call::clamp::{{getvar::i}}::0::9}}", i), ctx)
			assert.Equal(t, fmt.Sprint(min(i, 9)), res.Output)
		}()
	}
	wg.Wait()
}
