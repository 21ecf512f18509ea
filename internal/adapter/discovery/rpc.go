package discovery

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gosuda/passage/internal/adapter"
)

// RPC is the out-of-process discovery variant distinct from HTTP (spec.md
// §4.9 "out-of-process RPC"): it POSTs the connecting player's identity to
// an upstream decision service and returns whatever candidate list comes
// back, uncached — unlike HTTP's TTL+singleflight GET, each call reaches
// the upstream directly, the same request/response shape as strategy.RPC.
type RPC struct {
	URL    string
	Client *http.Client
}

func NewRPC(url string, client *http.Client) *RPC {
	if client == nil {
		client = http.DefaultClient
	}
	return &RPC{URL: url, Client: client}
}

type rpcDiscoveryRequest struct {
	ClientAddr string `json:"client_addr"`
	ServerAddr string `json:"server_addr"`
	Protocol   int32  `json:"protocol"`
	Username   string `json:"username"`
	UserID     string `json:"user_id"`
}

func (r *RPC) Targets(ctx context.Context, in Input) ([]adapter.Target, error) {
	body, err := json.Marshal(rpcDiscoveryRequest{
		ClientAddr: in.ClientAddr,
		ServerAddr: in.ServerAddr,
		Protocol:   in.Protocol,
		Username:   in.Username,
		UserID:     hex.EncodeToString(in.UserID[:]),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery: upstream returned %d", resp.StatusCode)
	}

	var wire []wireTarget
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, err
	}

	out := make([]adapter.Target, 0, len(wire))
	for _, w := range wire {
		out = append(out, adapter.Target{
			ID:       w.ID,
			Host:     w.Host,
			Port:     w.Port,
			Metadata: w.Metadata,
		})
	}
	return out, nil
}
