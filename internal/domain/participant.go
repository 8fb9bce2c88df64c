package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxParticipantNameLen = 36

type ParticipantID string

// Participant is a stable identity within one room, independent of
// whichever transport connection currently carries it.
type Participant struct {
	ID       ParticipantID `json:"id"`
	RoomID   RoomID        `json:"roomId"`
	Name     string        `json:"name"`
	IsActive bool          `json:"isActive"`
	JoinedAt time.Time     `json:"joinedAt"`
}

func NewParticipant(roomID RoomID, name string) (*Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrParticipantNameEmpty
	}
	if len(name) > MaxParticipantNameLen {
		return nil, ErrParticipantNameTooLong
	}
	return &Participant{
		ID:       ParticipantID(uuid.NewString()),
		RoomID:   roomID,
		Name:     name,
		JoinedAt: time.Now().UTC(),
	}, nil
}

// CountActive reports how many of ps are flagged active.
func CountActive(ps []Participant) int {
	n := 0
	for _, p := range ps {
		if p.IsActive {
			n++
		}
	}
	return n
}
