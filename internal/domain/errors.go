package domain

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")

	ErrRoomNameEmpty          = errors.New("room name empty")
	ErrRoomNameTooLong        = errors.New("room name too long")
	ErrParticipantNameEmpty   = errors.New("participant name empty")
	ErrParticipantNameTooLong = errors.New("participant name too long")
	ErrSoundNameEmpty         = errors.New("sound name empty")
	ErrSoundURLEmpty          = errors.New("sound url empty")
	ErrSoundDuration          = errors.New("sound duration negative")
)
