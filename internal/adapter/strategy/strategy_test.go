package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/passage/internal/adapter"
)

func TestAnyPicksFirst(t *testing.T) {
	targets := []adapter.Target{{ID: "a"}, {ID: "b"}}
	got, err := Any{}.Select(context.Background(), Input{}, targets)
	require.NoError(t, err)
	require.Equal(t, "a", got.ID)
}

func TestAnyEmptyReturnsNone(t *testing.T) {
	got, err := Any{}.Select(context.Background(), Input{}, nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPlayerFillExampleFromSpec(t *testing.T) {
	p := PlayerFill{Field: "players", MaxPlayers: 50}
	targets := []adapter.Target{
		{ID: "hub-1", Host: "10.0.1.10", Port: 25565, Metadata: map[string]string{"players": "5"}},
		{ID: "hub-2", Host: "10.0.1.11", Port: 25565, Metadata: map[string]string{"players": "40"}},
	}
	got, err := p.Select(context.Background(), Input{}, targets)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "hub-2", got.ID)
}

func TestPlayerFillDropsAtOrAboveMax(t *testing.T) {
	p := PlayerFill{Field: "players", MaxPlayers: 50}
	targets := []adapter.Target{
		{ID: "full", Metadata: map[string]string{"players": "50"}},
		{ID: "also-full", Metadata: map[string]string{"players": "99"}},
	}
	got, err := p.Select(context.Background(), Input{}, targets)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPlayerFillDefaultsMissingOrNonNumericToZero(t *testing.T) {
	p := PlayerFill{Field: "players", MaxPlayers: 10}
	targets := []adapter.Target{
		{ID: "no-meta"},
		{ID: "garbage", Metadata: map[string]string{"players": "not-a-number"}},
	}
	got, err := p.Select(context.Background(), Input{}, targets)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "no-meta", got.ID)
}

func TestPlayerFillTieBreaksByInputOrder(t *testing.T) {
	p := PlayerFill{Field: "players", MaxPlayers: 100}
	targets := []adapter.Target{
		{ID: "first", Metadata: map[string]string{"players": "10"}},
		{ID: "second", Metadata: map[string]string{"players": "10"}},
	}
	got, err := p.Select(context.Background(), Input{}, targets)
	require.NoError(t, err)
	require.Equal(t, "first", got.ID)
}

func TestPlayerFillServerHostFilterNarrowsCandidates(t *testing.T) {
	p := PlayerFill{
		Field:      "players",
		MaxPlayers: 100,
		Filters: []Filter{
			{ServerHost: "survival.example.com", Identifier: "hub-1"},
		},
	}
	targets := []adapter.Target{
		{ID: "hub-1", Metadata: map[string]string{"players": "1"}},
		{ID: "hub-2", Metadata: map[string]string{"players": "99"}},
	}
	got, err := p.Select(context.Background(), Input{ServerAddress: "survival.example.com"}, targets)
	require.NoError(t, err)
	require.Equal(t, "hub-1", got.ID)
}

func TestPlayerFillNonMatchingServerHostRetainsAll(t *testing.T) {
	p := PlayerFill{
		Field:      "players",
		MaxPlayers: 100,
		Filters: []Filter{
			{ServerHost: "other.example.com", Identifier: "hub-1"},
		},
	}
	targets := []adapter.Target{
		{ID: "hub-1", Metadata: map[string]string{"players": "1"}},
		{ID: "hub-2", Metadata: map[string]string{"players": "99"}},
	}
	got, err := p.Select(context.Background(), Input{ServerAddress: "survival.example.com"}, targets)
	require.NoError(t, err)
	require.Equal(t, "hub-2", got.ID)
}

func TestPlayerFillAllowListExcludesUnlistedUsers(t *testing.T) {
	p := PlayerFill{
		Field:      "players",
		MaxPlayers: 100,
		Filters: []Filter{
			{ServerHost: "vip.example.com", AllowList: []string{"Steve"}},
		},
	}
	targets := []adapter.Target{{ID: "vip-1", Metadata: map[string]string{"players": "1"}}}

	got, err := p.Select(context.Background(), Input{ServerAddress: "vip.example.com", Username: "Alex"}, targets)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = p.Select(context.Background(), Input{ServerAddress: "vip.example.com", Username: "Steve"}, targets)
	require.NoError(t, err)
	require.NotNil(t, got)
}
