// Package discovery implements the target-discovery adapter contract
// (spec.md §4.9): given a connection's identity, produce an ordered list of
// candidate targets (possibly empty) for the strategy adapter to choose
// from.
package discovery

import (
	"context"

	"github.com/gosuda/passage/internal/adapter"
)

// Input is what the state machine knows when discovery is invoked.
type Input struct {
	ClientAddr string
	ServerAddr string
	Protocol   int32
	Username   string
	UserID     [16]byte
}

// Discoverer is the single-method capability connections see; the concrete
// variant (fixed/HTTP/k8s-watch) is resolved once at process start.
type Discoverer interface {
	Targets(ctx context.Context, in Input) ([]adapter.Target, error)
}
