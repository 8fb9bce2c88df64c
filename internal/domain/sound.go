package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type SoundID string

// Sound is the metadata of an uploaded clip. The file itself and its
// duration probing are handled outside the coordinator.
type Sound struct {
	ID         SoundID   `json:"id"`
	RoomID     RoomID    `json:"roomId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

func NewSound(roomID RoomID, name, url string, durationMs int64) (*Sound, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrSoundNameEmpty
	}
	if url == "" {
		return nil, ErrSoundURLEmpty
	}
	if durationMs < 0 {
		return nil, ErrSoundDuration
	}
	return &Sound{
		ID:         SoundID(uuid.NewString()),
		RoomID:     roomID,
		Name:       name,
		URL:        url,
		DurationMs: durationMs,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
