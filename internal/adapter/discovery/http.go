package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gosuda/passage/internal/adapter"
)

// wireTarget is the JSON shape an RPC discovery backend returns per target.
type wireTarget struct {
	ID       string            `json:"id"`
	Host     string            `json:"host"`
	Port     int               `json:"port"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HTTP is the out-of-process discovery variant: a GET against an upstream
// URL carrying the connection's identity as query parameters, TTL-cached
// and single-flight-coalesced the same way as status.HTTP (spec.md §4.9,
// §9 "shared adapter caches").
type HTTP struct {
	URL    string
	Client *http.Client
	TTL    time.Duration

	group singleflight.Group

	mu       sync.Mutex
	cached   []adapter.Target
	cachedAt time.Time
	haveOne  bool
}

func NewHTTP(baseURL string, ttl time.Duration) *HTTP {
	return &HTTP{
		URL:    baseURL,
		Client: &http.Client{Timeout: 2 * time.Second},
		TTL:    ttl,
	}
}

func (h *HTTP) Targets(ctx context.Context, in Input) ([]adapter.Target, error) {
	key := fmt.Sprintf("%s|%d|%s", in.ServerAddr, in.Protocol, in.Username)

	h.mu.Lock()
	fresh := h.haveOne && time.Since(h.cachedAt) < h.TTL
	cached := h.cached
	h.mu.Unlock()
	if fresh {
		return cloneTargets(cached), nil
	}

	v, err, _ := h.group.Do(key, func() (any, error) {
		return h.fetch(ctx, in)
	})
	if err != nil {
		h.mu.Lock()
		have, cached := h.haveOne, h.cached
		h.mu.Unlock()
		if have {
			return cloneTargets(cached), nil
		}
		return nil, fmt.Errorf("discovery: upstream unreachable and no cached value: %w", err)
	}

	targets := v.([]adapter.Target)
	h.mu.Lock()
	h.cached = targets
	h.cachedAt = time.Now()
	h.haveOne = true
	h.mu.Unlock()

	return cloneTargets(targets), nil
}

func (h *HTTP) fetch(ctx context.Context, in Input) ([]adapter.Target, error) {
	q := url.Values{}
	q.Set("server_addr", in.ServerAddr)
	q.Set("username", in.Username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.Client.Do(req)
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

func cloneTargets(in []adapter.Target) []adapter.Target {
	out := make([]adapter.Target, len(in))
	copy(out, in)
	return out
}
