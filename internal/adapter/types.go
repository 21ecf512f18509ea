// Package adapter defines the three pluggable contracts the connection
// state machine calls into: status supplier, target discovery, and target
// strategy (spec.md §4.9). Concrete variants live in the status/,
// discovery/, and strategy/ subpackages.
package adapter

import (
	"net"
	"strconv"
)

// Target is a selectable backend game server.
type Target struct {
	ID       string
	Host     string
	Port     int
	Metadata map[string]string
}

// Addr formats Host:Port for dialing/Transfer.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// ClientContext carries the per-connection facts handed to the
// resource-pack policy. Status, discovery and strategy each take their own
// Input type instead.
type ClientContext struct {
	ClientAddr      string
	ServerAddr      string
	ServerPort      uint16
	ProtocolVersion int32
	Username        string
	UserID          [16]byte
}
