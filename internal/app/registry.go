package app

import (
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/rs/zerolog/log"
)

// Binding is a connection's claimed identity.
type Binding struct {
	Conn        core.SignalConnection
	Participant domain.ParticipantID
	Room        domain.RoomID
}

// Registration describes what Register changed.
type Registration struct {
	Binding Binding
	// Rebound is set when the connection already held exactly this binding.
	Rebound bool
	// Previous is the binding this connection held before, under another
	// participant or room. It has been removed.
	Previous *Binding
	// Replaced is the binding of another connection for the same
	// participant. That connection has been closed and removed.
	Replaced *Binding
}

// Registry maps live connections to participants and enforces at most one
// connection per participant. It is owned by the event loop.
type Registry struct {
	rooms  *RoomManager
	byConn map[core.ConnID]Binding
	byUser map[domain.ParticipantID]core.ConnID
}

func NewRegistry(rooms *RoomManager) *Registry {
	return &Registry{
		rooms:  rooms,
		byConn: make(map[core.ConnID]Binding),
		byUser: make(map[domain.ParticipantID]core.ConnID),
	}
}

func (r *Registry) Register(conn core.SignalConnection, pid domain.ParticipantID, roomID domain.RoomID) Registration {
	b := Binding{Conn: conn, Participant: pid, Room: roomID}
	res := Registration{Binding: b}

	if cur, ok := r.byConn[conn.ID()]; ok {
		if cur.Participant == pid && cur.Room == roomID {
			res.Rebound = true
			return res
		}
		r.remove(cur)
		res.Previous = &cur
	}

	if oldID, ok := r.byUser[pid]; ok && oldID != conn.ID() {
		old := r.byConn[oldID]
		r.remove(old)
		old.Conn.Close(core.CloseDuplicateConnection, "duplicate connection")
		res.Replaced = &old
		log.Info().Str("module", "app.registry").Str("participant", string(pid)).Str("conn", string(oldID)).Msg("evicted duplicate connection")
	}

	r.byConn[conn.ID()] = b
	r.byUser[pid] = conn.ID()
	r.rooms.GetOrCreate(roomID).Conns[pid] = conn
	log.Info().Str("module", "app.registry").Str("conn", string(conn.ID())).Str("participant", string(pid)).Str("room", string(roomID)).Msg("bound connection")
	return res
}

// Unregister removes the connection's binding, if any.
func (r *Registry) Unregister(id core.ConnID) (Binding, bool) {
	b, ok := r.byConn[id]
	if !ok {
		return Binding{}, false
	}
	r.remove(b)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("participant", string(b.Participant)).Str("room", string(b.Room)).Msg("unbound connection")
	return b, true
}

func (r *Registry) Lookup(id core.ConnID) (Binding, bool) {
	b, ok := r.byConn[id]
	return b, ok
}

func (r *Registry) ConnOf(pid domain.ParticipantID) (core.SignalConnection, bool) {
	id, ok := r.byUser[pid]
	if !ok {
		return nil, false
	}
	return r.byConn[id].Conn, true
}

// PurgeRoom removes every binding in the room and returns them.
func (r *Registry) PurgeRoom(roomID domain.RoomID) []Binding {
	var out []Binding
	for id, b := range r.byConn {
		if b.Room != roomID {
			continue
		}
		delete(r.byConn, id)
		if r.byUser[b.Participant] == id {
			delete(r.byUser, b.Participant)
		}
		out = append(out, b)
	}
	return out
}

func (r *Registry) Len() int { return len(r.byConn) }

func (r *Registry) remove(b Binding) {
	id := b.Conn.ID()
	delete(r.byConn, id)
	if r.byUser[b.Participant] == id {
		delete(r.byUser, b.Participant)
	}
	if p, ok := r.rooms.Get(b.Room); ok {
		if c, ok := p.Conns[b.Participant]; ok && c.ID() == id {
			delete(p.Conns, b.Participant)
		}
		r.rooms.Prune(b.Room)
	}
}
