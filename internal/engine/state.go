package engine

import (
	"fmt"
	"time"
)

// State is the connection lifecycle state.
type State int

const (
	Idle State = iota
	RequestingTransport
	Opening
	Configuring
	Connected
	Disconnecting
	Disconnected
	Failed
)

var stateNames = [...]string{
	Idle:                "idle",
	RequestingTransport: "requesting_transport",
	Opening:             "opening",
	Configuring:         "configuring",
	Connected:           "connected",
	Disconnecting:       "disconnecting",
	Disconnected:        "disconnected",
	Failed:              "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether the state ends a connection attempt.
func (s State) Terminal() bool {
	return s == Disconnected || s == Failed
}

// CanConnect reports whether Connect may start from s.
func (s State) CanConnect() bool {
	return s == Idle || s.Terminal()
}

// StateChange is delivered to the state observer on every transition.
type StateChange struct {
	From    State
	To      State
	Message string
	Err     error
	At      time.Time
}
