// Package store persists CBS variables between evaluations. Chat variables
// belong to a session; global variables are shared by every session.
package store

import "time"

// Store is the interface for variable persistence.
type Store interface {
	// ChatVars returns a session's chat variables. An unknown session has none.
	ChatVars(session string) (map[string]string, error)
	// PutChatVars replaces a session's chat variables, creating the session.
	PutChatVars(session string, vars map[string]string) error
	// GlobalVars returns the variables shared by all sessions.
	GlobalVars() (map[string]string, error)
	// PutGlobalVars replaces the shared variables.
	PutGlobalVars(vars map[string]string) error
	// Sessions lists known session IDs, oldest first.
	Sessions() ([]string, error)
	// DeleteSession removes a session's variables and history.
	DeleteSession(session string) error
	// Close releases resources.
	Close() error
}

// Snapshot is one evaluation's result as recorded in a session's history.
type Snapshot struct {
	Version    int               `cbor:"1,keyasint"`
	Ts         time.Time         `cbor:"2,keyasint"`
	Output     string            `cbor:"3,keyasint"`
	ChatVars   map[string]string `cbor:"4,keyasint,omitempty"`
	GlobalVars map[string]string `cbor:"5,keyasint,omitempty"`
	Errors     []string          `cbor:"6,keyasint,omitempty"`
}

// HistoryStore extends Store with per-session snapshot history.
type HistoryStore interface {
	// AppendSnapshot records snap as the session's next version and returns it.
	AppendSnapshot(session string, snap Snapshot) (int, error)
	// History returns snapshots newest first. limit <= 0 returns all.
	History(session string, limit int) ([]Snapshot, error)
}
