package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Soundroom/internal/app/orch"
	"github.com/dkeye/Soundroom/internal/core"
	"github.com/dkeye/Soundroom/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	orch  *orch.Orchestrator
	store core.RoomStore
	rtc   webrtc.Configuration
}

type createRoomRequest struct {
	Name     string `json:"name"`
	IsPublic bool   `json:"isPublic"`
}

type createParticipantRequest struct {
	Name string `json:"name"`
}

type createSoundRequest struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	DurationMs int64  `json:"durationMs"`
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) rtcConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.rtc.ICEServers})
}

func (h *handlers) stats(c *gin.Context) {
	st, err := h.orch.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	rooms, err := h.orch.ListRooms(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": st, "rooms": rooms})
}

func (h *handlers) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	room, err := domain.NewRoom(req.Name, req.IsPublic)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store.CreateRoom(c.Request.Context(), room); err != nil {
		fail(c, err)
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(room.ID)).Str("code", room.Code).Msg("room created")
	c.JSON(http.StatusCreated, room)
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms, err := h.store.ListPublicRooms(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *handlers) getRoom(c *gin.Context) {
	room, err := h.store.GetRoom(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) roomByCode(c *gin.Context) {
	room, err := h.store.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) listParticipants(c *gin.Context) {
	ps, err := h.store.ListParticipants(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// createParticipant also remembers the new identity in the browser session
// so a reload can rejoin as the same participant.
func (h *handlers) createParticipant(c *gin.Context) {
	var req createParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	roomID := domain.RoomID(c.Param("id"))
	p, err := domain.NewParticipant(roomID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store.CreateParticipant(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}

	sess := sessions.Default(c)
	sess.Set(sessionKey(roomID), string(p.ID))
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save failed")
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) me(c *gin.Context) {
	roomID := domain.RoomID(c.Param("id"))
	pid, _ := sessions.Default(c).Get(sessionKey(roomID)).(string)
	if pid == "" {
		fail(c, domain.ErrParticipantNotFound)
		return
	}
	p, err := h.store.GetParticipant(c.Request.Context(), domain.ParticipantID(pid))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) listSounds(c *gin.Context) {
	sounds, err := h.store.ListSounds(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sounds)
}

func (h *handlers) createSound(c *gin.Context) {
	var req createSoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	snd, err := domain.NewSound(domain.RoomID(c.Param("id")), req.Name, req.URL, req.DurationMs)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.store.CreateSound(c.Request.Context(), snd); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, snd)
}

func (h *handlers) presence(c *gin.Context) {
	snap, err := h.orch.Snapshot(c.Request.Context(), domain.RoomID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func sessionKey(roomID domain.RoomID) string {
	return "participant:" + string(roomID)
}

func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrParticipantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRoomNameEmpty),
		errors.Is(err, domain.ErrRoomNameTooLong),
		errors.Is(err, domain.ErrParticipantNameEmpty),
		errors.Is(err, domain.ErrParticipantNameTooLong),
		errors.Is(err, domain.ErrSoundNameEmpty),
		errors.Is(err, domain.ErrSoundURLEmpty),
		errors.Is(err, domain.ErrSoundDuration):
		status = http.StatusBadRequest
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
