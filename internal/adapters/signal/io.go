package signal

import (
	"context"
	"time"

	"github.com/dkeye/Soundroom/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// pongWait gives the peer a tenth of the ping period of slack to answer.
func (ctl *SignalWSController) pongWait() time.Duration {
	return ctl.pingPeriod * 10 / 9
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.Close(core.CloseGoingAway, "server shutting down")
			_ = c.conn.WriteControl(websocket.CloseMessage, c.closeMessage(), time.Now().Add(writeWait))
			log.Info().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, c.closeMessage(), time.Now().Add(writeWait))
				log.Debug().Str("module", "signal").Str("conn", string(c.id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(c.id)).Str("client", c.label).Msg("readPump closing")
		ctl.Orch.Disconnect(c)
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.conn.SetReadLimit(ctl.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.id)).Msg("readPump read error")
			}
			return
		}
		ctl.Orch.Dispatch(c, data)
	}
}
