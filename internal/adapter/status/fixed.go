package status

import "context"

// Fixed is the in-process status supplier backed by static configuration,
// grounded on the teacher's "memory resolver" pattern
// (BarakaAka1Only-bdcode-proxy/discovery/memory.Resolver): a constant value
// returned for every request, no network round trip.
type Fixed struct {
	Output Output
}

func NewFixed(out Output) *Fixed {
	return &Fixed{Output: out}
}

func (f *Fixed) Status(ctx context.Context, in Input) (Output, error) {
	out := f.Output
	out.Version.Protocol = f.Output.Version.Protocol
	return RewriteProtocol(out, in.ProtocolVersion), nil
}
