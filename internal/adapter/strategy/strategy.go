// Package strategy implements the target-strategy adapter contract
// (spec.md §4.9): given the connection's context and the targets discovery
// produced, choose at most one target.
package strategy

import (
	"context"

	"github.com/gosuda/passage/internal/adapter"
)

// Input is what the state machine knows when a strategy is invoked.
type Input struct {
	ServerAddress string
	Username      string
	UserID        [16]byte
}

// Strategy is the single-method capability connections see; the concrete
// variant (any/player_fill/RPC) is resolved once at process start.
type Strategy interface {
	// Select returns the chosen target, or nil if none qualifies.
	Select(ctx context.Context, in Input, targets []adapter.Target) (*adapter.Target, error)
}
