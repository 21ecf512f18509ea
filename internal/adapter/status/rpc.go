package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RPC is the out-of-process status supplier variant distinct from HTTP
// (spec.md §4.9): rather than polling a GET endpoint on a TTL, it POSTs the
// connection's identity to an upstream decision service per request and
// returns its answer uncached, mirroring strategy.RPC's request/response
// shape for the same kind of "ask an external service" adapter.
type RPC struct {
	URL        string
	Client     *http.Client
	MinVersion int32
	MaxVersion int32
}

func NewRPC(url string, client *http.Client, minVersion, maxVersion int32) *RPC {
	if client == nil {
		client = http.DefaultClient
	}
	return &RPC{URL: url, Client: client, MinVersion: minVersion, MaxVersion: maxVersion}
}

type rpcStatusRequest struct {
	ClientAddr      string `json:"client_addr"`
	ServerAddr      string `json:"server_addr"`
	ProtocolVersion int32  `json:"protocol_version"`
}

func (r *RPC) Status(ctx context.Context, in Input) (Output, error) {
	body, err := json.Marshal(rpcStatusRequest{
		ClientAddr:      in.ClientAddr,
		ServerAddr:      in.ServerAddr,
		ProtocolVersion: in.ProtocolVersion,
	})
	if err != nil {
		return Output{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return Output{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return Output{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return Output{}, ErrReject
	}
	if resp.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("status: upstream returned %d", resp.StatusCode)
	}

	var out Output
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Output{}, err
	}
	out.MinVersion = r.MinVersion
	out.MaxVersion = r.MaxVersion
	return RewriteProtocol(out, in.ProtocolVersion), nil
}
