package strategy

import (
	"context"

	"github.com/gosuda/passage/internal/adapter"
)

// Any is the simplest strategy: the first target of the list, grounded on
// the teacher's fixed/memory-resolver pattern of returning a single
// unconditional value (BarakaAka1Only-bdcode-proxy memory.Resolver).
type Any struct{}

func (Any) Select(ctx context.Context, in Input, targets []adapter.Target) (*adapter.Target, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	t := targets[0]
	return &t, nil
}
