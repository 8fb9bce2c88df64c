// Package domain contains persisted entities without logic, just meta-data
package domain

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxRoomNameLen = 64
	RoomCodeLen    = 6
)

// codeAlphabet skips characters that are easy to confuse when read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type RoomID string

type Room struct {
	ID        RoomID    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	IsPublic  bool      `json:"isPublic"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewRoom builds a room with a fresh id and join code.
func NewRoom(name string, public bool) (*Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	code, err := NewRoomCode()
	if err != nil {
		return nil, err
	}
	return &Room{
		ID:        RoomID(uuid.NewString()),
		Code:      code,
		Name:      name,
		IsPublic:  public,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewRoomCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < RoomCodeLen; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
