// Package resourcepack implements the optional resource-pack policy named
// in the configuration surface (spec.md §6 "[resourcepack{adapter,
// <variant-params>}]", §4.10 Configuration step 3): given a connection's
// identity, produce zero or more packs to push before Transfer.
package resourcepack

import (
	"context"

	"github.com/gosuda/passage/internal/adapter"
)

// Pack is one resource pack offer, mirroring protocol.AddResourcePack
// minus the wire UUID (generated at send time).
type Pack struct {
	URL       string
	Hash      string
	Forced    bool
	Prompt    string
	HasPrompt bool
}

// Policy is the single-method capability the Configuration state consults.
type Policy interface {
	Packs(ctx context.Context, in adapter.ClientContext) ([]Pack, error)
}

// Fixed is the in-process variant: a static configured list, identical for
// every connection.
type Fixed struct {
	List []Pack
}

func NewFixed(packs []Pack) Fixed { return Fixed{List: packs} }

func (f Fixed) Packs(ctx context.Context, in adapter.ClientContext) ([]Pack, error) {
	out := make([]Pack, len(f.List))
	copy(out, f.List)
	return out, nil
}

// None is the default: no resource packs offered.
type None struct{}

func (None) Packs(context.Context, adapter.ClientContext) ([]Pack, error) { return nil, nil }
