package orch

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/dkeye/Soundroom/internal/core"
)

// seq orders events across every mock connection.
var seq atomic.Int64

type recorded struct {
	seq   int64
	close bool
	code  int
	frame core.Frame
}

type mockConn struct {
	id     core.ConnID
	mu     sync.Mutex
	events []recorded
	closed bool
	stale  bool
}

func newMockConn(id string) *mockConn { return &mockConn{id: core.ConnID(id)} }

func (m *mockConn) ID() core.ConnID { return m.id }

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrConnectionClosed
	}
	m.events = append(m.events, recorded{seq: seq.Add(1), frame: f})
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
	m.events = append(m.events, recorded{seq: seq.Add(1), close: true, code: code})
}

func (m *mockConn) markStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stale = true
}

func (m *mockConn) closedWith() (code int, at int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.close {
			return e.code, e.seq, true
		}
	}
	return 0, 0, false
}

// received decodes every frame of type typ, with its sequence number.
func (m *mockConn) received(typ string) ([]map[string]any, []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		msgs []map[string]any
		seqs []int64
	)
	for _, e := range m.events {
		if e.close {
			continue
		}
		var msg map[string]any
		if json.Unmarshal(e.frame, &msg) != nil || msg["type"] != typ {
			continue
		}
		msgs = append(msgs, msg)
		seqs = append(seqs, e.seq)
	}
	return msgs, seqs
}

func (m *mockConn) count(typ string) int {
	msgs, _ := m.received(typ)
	return len(msgs)
}
