package app

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/stretchr/testify/require"
)

var eventSeq atomic.Int64

type mockEvent struct {
	seq   int64
	close bool
	code  int
	frame core.Frame
}

type mockConn struct {
	id      core.ConnID
	mu      sync.Mutex
	events  []mockEvent
	closed  bool
	stale   bool
	sendErr error
}

func newMockConn(id string) *mockConn { return &mockConn{id: core.ConnID(id)} }

func (m *mockConn) ID() core.ConnID { return m.id }

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrConnectionClosed
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.events = append(m.events, mockEvent{seq: eventSeq.Add(1), frame: f})
	return nil
}

func (m *mockConn) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && !m.stale
}

func (m *mockConn) Close(code int, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.events = append(m.events, mockEvent{seq: eventSeq.Add(1), close: true, code: code})
}

// markStale makes the connection report not-open without recording a close.
func (m *mockConn) markStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale = true
}

func (m *mockConn) closeCode() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.close {
			return e.code, true
		}
	}
	return 0, false
}

func (m *mockConn) frames() []core.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Frame
	for _, e := range m.events {
		if !e.close {
			out = append(out, e.frame)
		}
	}
	return out
}

func (m *mockConn) types() []string {
	var out []string
	for _, f := range m.frames() {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &env)
		out = append(out, env.Type)
	}
	return out
}

func decodeFrame(t *testing.T, f core.Frame) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(f, &out))
	return out
}

// framesOfType decodes every frame of the given type.
func framesOfType(t *testing.T, m *mockConn, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, f := range m.frames() {
		msg := decodeFrame(t, f)
		if msg["type"] == typ {
			out = append(out, msg)
		}
	}
	return out
}
