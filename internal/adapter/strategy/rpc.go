package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gosuda/passage/internal/adapter"
)

// rpcRequest/rpcResponse mirror the wire shape of discovery.wireTarget: a
// small self-contained JSON contract rather than a shared package, since
// strategy and discovery are invoked independently (spec.md §4.9).
type rpcRequest struct {
	ServerAddress string      `json:"server_address"`
	Username      string      `json:"username"`
	Targets       []rpcTarget `json:"targets"`
}

type rpcTarget struct {
	ID       string            `json:"id"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type rpcResponse struct {
	Target *rpcTarget `json:"target"`
}

// RPC is the out-of-process strategy variant: it POSTs the candidate list
// to an upstream decision service and returns its pick (spec.md §4.9
// "out-of-process RPC").
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

func (r *RPC) Select(ctx context.Context, in Input, targets []adapter.Target) (*adapter.Target, error) {
	wire := make([]rpcTarget, len(targets))
	for i, t := range targets {
		wire[i] = rpcTarget{ID: t.ID, Host: t.Host, Port: t.Port, Metadata: t.Metadata}
	}

	body, err := json.Marshal(rpcRequest{ServerAddress: in.ServerAddress, Username: in.Username, Targets: wire})
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
		return nil, fmt.Errorf("strategy: upstream returned %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Target == nil {
		return nil, nil
	}
	return &adapter.Target{ID: out.Target.ID, Host: out.Target.Host, Port: out.Target.Port, Metadata: out.Target.Metadata}, nil
}
