package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Soundroom/internal/app/orch"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBuffer = 256
	writeWait  = 10 * time.Second
)

type SignalWSController struct {
	Orch       *orch.Orchestrator
	readLimit  int64
	pingPeriod time.Duration
}

func NewSignalWSController(o *orch.Orchestrator, readLimit int64, pingPeriod time.Duration) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		readLimit:  readLimit,
		pingPeriod: pingPeriod,
	}
}

// WsSignalConn is a websocket carrying signaling frames. Writes go through a
// buffered channel drained by a single write pump.
type WsSignalConn struct {
	id    core.ConnID
	label string
	conn  *websocket.Conn
	send  chan core.Frame

	mu          sync.RWMutex
	closed      bool
	closeCode   int
	closeReason string
}

func newWsSignalConn(ws *websocket.Conn, label string) *WsSignalConn {
	return &WsSignalConn{
		id:    core.ConnID(uuid.NewString()),
		label: label,
		conn:  ws,
		send:  make(chan core.Frame, sendBuffer),
	}
}

func (c *WsSignalConn) ID() core.ConnID { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	if f == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close stops accepting frames. The write pump flushes what is queued,
// sends a close frame with code and reason, and drops the socket.
func (c *WsSignalConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *WsSignalConn) closeMessage() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	label := c.GetString("client_token")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, label)
	log.Info().Str("module", "signal").Str("conn", string(conn.id)).Str("client", label).Msg("new WS connection")
	ctl.Orch.Connect(conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(conn)
}
