package strategy

import (
	"context"
	"encoding/hex"
	"strconv"

	"github.com/gosuda/passage/internal/adapter"
)

// Filter is one entry of a PlayerFill's target_filters list (spec.md
// "player_fill strategy details").
type Filter struct {
	ServerHost string
	Identifier string
	Metadata   map[string]string
	AllowList  []string
}

// PlayerFill implements the player_fill strategy: among targets whose
// field-valued metadata is strictly below MaxPlayers, pick the one with the
// greatest value, tie-broken by input order (spec.md property P8).
type PlayerFill struct {
	Field      string
	MaxPlayers int
	Filters    []Filter
}

func (p PlayerFill) Select(ctx context.Context, in Input, targets []adapter.Target) (*adapter.Target, error) {
	candidates := p.applyFilters(in, targets)

	var best *adapter.Target
	bestValue := -1
	for i := range candidates {
		t := candidates[i]
		value := parseNonNegative(t.Metadata[p.Field])
		if value >= p.MaxPlayers {
			continue
		}
		if value > bestValue {
			bestValue = value
			best = &t
		}
	}
	return best, nil
}

// applyFilters returns, per step 1 of the algorithm: if any filter's
// ServerHost matches the handshake server address, only targets matching
// that filter's other predicates and allow-list; otherwise every target.
func (p PlayerFill) applyFilters(in Input, targets []adapter.Target) []adapter.Target {
	for _, f := range p.Filters {
		if f.ServerHost == "" || f.ServerHost != in.ServerAddress {
			continue
		}
		out := make([]adapter.Target, 0, len(targets))
		for _, t := range targets {
			if matchesFilter(f, in, t) {
				out = append(out, t)
			}
		}
		return out
	}
	return targets
}

func matchesFilter(f Filter, in Input, t adapter.Target) bool {
	if f.Identifier != "" && f.Identifier != t.ID {
		return false
	}
	for k, v := range f.Metadata {
		if t.Metadata[k] != v {
			return false
		}
	}
	if len(f.AllowList) > 0 && !matchesAllowList(f.AllowList, in) {
		return false
	}
	return true
}

func matchesAllowList(allowList []string, in Input) bool {
	uid := hex.EncodeToString(in.UserID[:])
	for _, entry := range allowList {
		if entry == in.Username || entry == uid {
			return true
		}
	}
	return false
}

// parseNonNegative parses s as a non-negative decimal integer, defaulting to
// 0 when s is missing, non-numeric, or negative (spec.md "player_fill
// strategy details" step 2).
func parseNonNegative(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
