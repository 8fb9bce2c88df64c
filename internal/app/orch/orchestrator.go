package orch

import (
	"context"
	"time"

	"github.com/dkeye/Soundroom/internal/app"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// JoinAnnounceDelay holds back participant_joined so a fresh client
	// sees its join_confirmed before peers react to it.
	JoinAnnounceDelay time.Duration
	EvictionGrace     time.Duration
	StoreTimeout      time.Duration
	SoundRateLimit    int
	SoundRateInterval time.Duration
	ICEServers        []webrtc.ICEServer
	Policy            app.Policy
}

func DefaultOptions() Options {
	return Options{
		JoinAnnounceDelay: 50 * time.Millisecond,
		EvictionGrace:     3 * time.Second,
		StoreTimeout:      5 * time.Second,
		SoundRateLimit:    10,
		SoundRateInterval: 5 * time.Second,
	}
}

// Orchestrator is the room session coordinator. Its exported methods may be
// called from any goroutine; everything else runs on its event loop.
type Orchestrator struct {
	Registry    *app.Registry
	Rooms       *app.RoomManager
	Broadcaster *app.Broadcaster
	Voice       *app.VoiceTracker
	Relay       *app.SignalRelay
	Evictions   *app.EvictionScheduler
	Sounds      *app.RoomRateLimiter
	Store       core.PresenceStore

	opts     Options
	loop     *app.EventLoop
	activity *activityQueue
}

func New(store core.PresenceStore, opts Options) *Orchestrator {
	loop := app.NewEventLoop(256)
	rooms := app.NewRoomManager()
	reg := app.NewRegistry(rooms)
	bc := app.NewBroadcaster(rooms, reg, opts.Policy)

	o := &Orchestrator{
		Registry:    reg,
		Rooms:       rooms,
		Broadcaster: bc,
		Voice:       app.NewVoiceTracker(rooms, bc, opts.ICEServers),
		Relay:       app.NewSignalRelay(rooms),
		Evictions:   app.NewEvictionScheduler(loop, rooms, store, opts.EvictionGrace, opts.StoreTimeout),
		Sounds:      app.NewRoomRateLimiter(opts.SoundRateLimit, opts.SoundRateInterval),
		Store:       store,
		opts:        opts,
		loop:        loop,
		activity:    newActivityQueue(loop, store, opts.StoreTimeout),
	}
	bc.OnPrune = func(b app.Binding) { o.afterUnbind(b, true) }
	o.Evictions.OnEvict = o.onEvicted
	return o
}

// Run drives the event loop until ctx is cancelled. It returns once no
// store call is in flight, so the store may be closed afterwards.
func (o *Orchestrator) Run(ctx context.Context) {
	activityDone := make(chan struct{})
	go func() {
		defer close(activityDone)
		o.activity.run(ctx)
	}()
	o.loop.Run(ctx)
	<-activityDone
	o.loop.Wait()
}

// Do runs fn on the event loop and waits for it.
func (o *Orchestrator) Do(ctx context.Context, fn func()) error {
	return o.loop.Do(ctx, fn)
}

func (o *Orchestrator) Connect(conn core.SignalConnection) {
	log.Info().Str("module", "orch").Str("conn", string(conn.ID())).Msg("connection opened")
}

// Dispatch hands an inbound frame to the event loop.
func (o *Orchestrator) Dispatch(conn core.SignalConnection, data []byte) {
	o.loop.Post(func() { o.handleMessage(conn, data) })
}

// Disconnect runs the leave sequence for a closed transport.
func (o *Orchestrator) Disconnect(conn core.SignalConnection) {
	o.loop.Post(func() {
		b, ok := o.Registry.Unregister(conn.ID())
		if !ok {
			log.Debug().Str("module", "orch").Str("conn", string(conn.ID())).Msg("closed unbound connection")
			return
		}
		o.afterUnbind(b, true)
	})
}

func (o *Orchestrator) Snapshot(ctx context.Context, roomID domain.RoomID) (core.PresenceSnapshot, error) {
	var snap core.PresenceSnapshot
	err := o.loop.Do(ctx, func() { snap = o.Rooms.Snapshot(roomID) })
	return snap, err
}

func (o *Orchestrator) ListRooms(ctx context.Context) ([]core.RoomInfo, error) {
	var rooms []core.RoomInfo
	err := o.loop.Do(ctx, func() { rooms = o.Rooms.List() })
	return rooms, err
}

func (o *Orchestrator) Stats(ctx context.Context) (core.Stats, error) {
	var st core.Stats
	err := o.loop.Do(ctx, func() {
		st = core.Stats{
			Rooms:       o.Rooms.Len(),
			Connections: o.Registry.Len(),
			Evictions:   o.Evictions.Evicted(),
		}
	})
	return st, err
}

func (o *Orchestrator) handleMessage(conn core.SignalConnection, data []byte) {
	// A frame read before the server closed the connection must not act on
	// its behalf, or it could rebind over the connection that replaced it.
	if !conn.IsOpen() {
		log.Debug().Str("module", "orch").Str("conn", string(conn.ID())).Msg("frame from closed connection dropped")
		return
	}
	env, err := core.DecodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(conn.ID())).Msg("bad json")
		return
	}

	switch env.Type {
	case core.TypeJoinRoom:
		o.handleJoin(conn, env)
	case core.TypeLeaveRoom:
		o.handleLeave(conn, env)
	case core.TypePlaySound:
		o.handlePlaySound(conn, env)
	case core.TypeVoiceJoin:
		o.handleVoiceJoin(conn, env)
	case core.TypeVoiceLeave:
		o.handleVoiceLeave(conn, env)
	case core.TypeVoiceOffer, core.TypeVoiceAnswer, core.TypeVoiceICECandidate:
		o.handleRelay(conn, env, data)
	case core.TypeVoiceParticipantMuted:
		o.handleMuted(conn, env)
	case core.TypePing:
		_ = conn.TrySend(core.Encode(core.Pong{Type: core.TypePong}))
	default:
		log.Warn().Str("module", "orch").Str("type", env.Type).Msg("unknown message type")
	}
}

// boundAs reports the connection's binding if it matches the claimed identity.
func (o *Orchestrator) boundAs(conn core.SignalConnection, pid domain.ParticipantID, roomID domain.RoomID) (app.Binding, bool) {
	b, ok := o.Registry.Lookup(conn.ID())
	if !ok || b.Participant != pid || b.Room != roomID {
		log.Warn().Str("module", "orch").Str("conn", string(conn.ID())).Str("participant", string(pid)).Str("room", string(roomID)).Msg("message from unbound identity dropped")
		return app.Binding{}, false
	}
	return b, true
}

func malformed(conn core.SignalConnection, env core.Envelope, field string) {
	log.Warn().Str("module", "orch").Str("conn", string(conn.ID())).Str("type", env.Type).Str("field", field).Msg("malformed message dropped")
}
