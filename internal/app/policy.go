package app

import (
	"errors"

	"github.com/dkeye/Soundroom/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

func (a BackpressureAction) String() string {
	switch a {
	case KickMember:
		return "kick"
	case DropFrame:
		return "drop"
	default:
		return "none"
	}
}

// Policy decides what happens to a connection a frame could not be queued on.
type Policy interface {
	OnSendFailure(target Target, err error) BackpressureAction
}

// SimplePolicy prunes closed connections and drops frames for slow ones.
// A slow connection that is actually dead is caught by the heartbeat.
type SimplePolicy struct{}

func (SimplePolicy) OnSendFailure(_ Target, err error) BackpressureAction {
	if errors.Is(err, core.ErrBackpressure) {
		return DropFrame
	}
	return KickMember
}
