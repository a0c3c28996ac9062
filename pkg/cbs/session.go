package cbs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nickandperla.net/cbs/internal/store"
)

// NewSession creates an empty session and returns its ID.
func (r *Runtime) NewSession() (string, error) {
	if r.store == nil {
		return "", ErrNoStore
	}
	id := uuid.NewString()
	if err := r.store.PutChatVars(id, nil); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Sessions lists stored session IDs, oldest first.
func (r *Runtime) Sessions() ([]string, error) {
	if r.store == nil {
		return nil, ErrNoStore
	}
	return r.store.Sessions()
}

// DeleteSession removes a session and its history.
func (r *Runtime) DeleteSession(id string) error {
	if r.store == nil {
		return ErrNoStore
	}
	return r.store.DeleteSession(id)
}

// LoadSession copies the session's chat variables and the shared global
// variables into ctx. Stored values replace same-named ones already there.
func (r *Runtime) LoadSession(id string, ctx *Context) error {
	if r.store == nil {
		return ErrNoStore
	}
	chat, err := r.store.ChatVars(id)
	if err != nil {
		return fmt.Errorf("load chat vars for %s: %w", id, err)
	}
	global, err := r.store.GlobalVars()
	if err != nil {
		return fmt.Errorf("load global vars: %w", err)
	}
	if ctx.ChatVars == nil {
		ctx.ChatVars = make(map[string]string, len(chat))
	}
	if ctx.GlobalVars == nil {
		ctx.GlobalVars = make(map[string]string, len(global))
	}
	for k, v := range chat {
		ctx.ChatVars[k] = v
	}
	for k, v := range global {
		ctx.GlobalVars[k] = v
	}
	return nil
}

// SaveSession writes the result's variables back to the store. When the
// store keeps history, the result is also appended as the next snapshot
// and its version is returned; otherwise the version is 0.
func (r *Runtime) SaveSession(id string, res *Result) (int, error) {
	if r.store == nil {
		return 0, ErrNoStore
	}
	if err := r.store.PutChatVars(id, res.ChatVars); err != nil {
		return 0, fmt.Errorf("save chat vars for %s: %w", id, err)
	}
	if err := r.store.PutGlobalVars(res.GlobalVars); err != nil {
		return 0, fmt.Errorf("save global vars: %w", err)
	}

	hs, ok := r.store.(store.HistoryStore)
	if !ok {
		return 0, nil
	}
	snap := Snapshot{
		Ts:         time.Now().UTC(),
		Output:     res.Output,
		ChatVars:   res.ChatVars,
		GlobalVars: res.GlobalVars,
	}
	for _, e := range res.Errors {
		snap.Errors = append(snap.Errors, e.Error())
	}
	version, err := hs.AppendSnapshot(id, snap)
	if err != nil {
		return 0, fmt.Errorf("append snapshot for %s: %w", id, err)
	}
	r.logger.Debug("saved session",
		zap.String("session", id),
		zap.Int("version", version),
		zap.Int("chat_vars", len(res.ChatVars)),
	)
	return version, nil
}

// History returns a session's snapshots, newest first. limit <= 0 returns
// all of them.
func (r *Runtime) History(id string, limit int) ([]Snapshot, error) {
	hs, ok := r.store.(store.HistoryStore)
	if !ok {
		return nil, ErrNoStore
	}
	return hs.History(id, limit)
}
