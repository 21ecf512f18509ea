package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// HTTP is the out-of-process status supplier: a GET against an upstream
// URL, cached for TTL and de-duplicated with singleflight so N concurrent
// callers trigger at most one upstream call (spec.md §4.9, §9).
type HTTP struct {
	URL        string
	Client     *http.Client
	TTL        time.Duration
	MinVersion int32
	MaxVersion int32

	group singleflight.Group

	mu       sync.Mutex
	cached   Output
	cachedAt time.Time
	haveOne  bool
}

func NewHTTP(url string, ttl time.Duration, minVersion, maxVersion int32) *HTTP {
	return &HTTP{
		URL:        url,
		Client:     &http.Client{Timeout: 2 * time.Second},
		TTL:        ttl,
		MinVersion: minVersion,
		MaxVersion: maxVersion,
	}
}

func (h *HTTP) Status(ctx context.Context, in Input) (Output, error) {
	h.mu.Lock()
	fresh := h.haveOne && time.Since(h.cachedAt) < h.TTL
	cached := h.cached
	h.mu.Unlock()
	if fresh {
		return RewriteProtocol(cached, in.ProtocolVersion), nil
	}

	v, err, _ := h.group.Do(h.URL, func() (any, error) {
		return h.fetch(ctx)
	})
	if err != nil {
		// Upstream failure: serve the previous cached value if still valid
		// (spec.md §7 "Adapter unreachable (status)").
		h.mu.Lock()
		have, cached := h.haveOne, h.cached
		h.mu.Unlock()
		if have {
			return RewriteProtocol(cached, in.ProtocolVersion), nil
		}
		return Output{}, fmt.Errorf("status: upstream unreachable and no cached value: %w", err)
	}

	out := v.(Output)
	h.mu.Lock()
	h.cached = out
	h.cachedAt = time.Now()
	h.haveOne = true
	h.mu.Unlock()

	return RewriteProtocol(out, in.ProtocolVersion), nil
}

func (h *HTTP) fetch(ctx context.Context) (Output, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Output{}, err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return Output{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("status: upstream returned %d", resp.StatusCode)
	}
	var out Output
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Output{}, err
	}
	out.MinVersion = h.MinVersion
	out.MaxVersion = h.MaxVersion
	return out, nil
}
