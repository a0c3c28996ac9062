package store

import (
	"maps"
	"sync"
	"time"
)

// Memory is an in-memory store for testing and one-shot CLI runs.
type Memory struct {
	mu       sync.RWMutex
	sessions []string
	chat     map[string]map[string]string
	global   map[string]string
	history  map[string][][]byte // Encoded snapshots, oldest first
	metadata map[string]string
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		chat:     make(map[string]map[string]string),
		global:   make(map[string]string),
		history:  make(map[string][][]byte),
		metadata: make(map[string]string),
	}
}

// ChatVars returns a copy of a session's chat variables.
func (m *Memory) ChatVars(session string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyVars(m.chat[session]), nil
}

// PutChatVars replaces a session's chat variables.
func (m *Memory) PutChatVars(session string, vars map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(session)
	m.chat[session] = copyVars(vars)
	return nil
}

// GlobalVars returns a copy of the shared variables.
func (m *Memory) GlobalVars() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyVars(m.global), nil
}

// PutGlobalVars replaces the shared variables.
func (m *Memory) PutGlobalVars(vars map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = copyVars(vars)
	return nil
}

// Sessions lists sessions in creation order.
func (m *Memory) Sessions() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.sessions...), nil
}

// DeleteSession removes a session.
func (m *Memory) DeleteSession(session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chat, session)
	delete(m.history, session)
	for i, s := range m.sessions {
		if s == session {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			break
		}
	}
	return nil
}

// AppendSnapshot records the next version of a session.
func (m *Memory) AppendSnapshot(session string, snap Snapshot) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch(session)
	snap.Version = len(m.history[session]) + 1
	if snap.Ts.IsZero() {
		snap.Ts = time.Now().UTC()
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return 0, err
	}
	m.history[session] = append(m.history[session], data)
	return snap.Version, nil
}

// History returns snapshots newest first.
func (m *Memory) History(session string, limit int) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := m.history[session]
	if len(rows) == 0 {
		return nil, nil
	}
	var out []Snapshot
	for i := len(rows) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		s, err := DecodeSnapshot(rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// GetMetadata retrieves a metadata value by key.
func (m *Memory) GetMetadata(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[key], nil
}

// SetMetadata stores a metadata value by key.
func (m *Memory) SetMetadata(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[key] = value
	return nil
}

// touch registers a session; caller must hold the write lock.
func (m *Memory) touch(session string) {
	if _, ok := m.chat[session]; ok {
		return
	}
	m.chat[session] = make(map[string]string)
	m.sessions = append(m.sessions, session)
}

func copyVars(vars map[string]string) map[string]string {
	out := maps.Clone(vars)
	if out == nil {
		out = make(map[string]string)
	}
	return out
}
