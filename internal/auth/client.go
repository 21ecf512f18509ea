// Package auth implements the join-hash formula and the round trip to the
// external identity provider's "has-joined" endpoint (spec.md §4.6).
package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gosuda/passage/internal/protocol"
)

// ErrNotJoined is returned when the identity provider responds with
// anything other than HTTP 200, meaning the join attempt could not be
// confirmed.
var ErrNotJoined = errors.New("auth: identity provider did not confirm join")

// Client talks to the account authority's has-joined endpoint. The default
// implementation wraps net/http with a per-attempt timeout and a small retry
// budget; every attempt and backoff runs under the caller's context, so a
// context deadline (the session passes the connection's) bounds the whole
// exchange.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries int
}

// NewClient builds a Client with sane defaults; timeout bounds each
// individual HTTP attempt, not the whole retry budget.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: 2,
	}
}

type hasJoinedResponse struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Properties []rawProfileProperty     `json:"properties"`
}

type rawProfileProperty struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// HasJoined performs the GET with username, serverId=<joinHash> and,
// if peerIP is non-empty (proxy-protocol recovered a real client address),
// ip=<peerIP>. On HTTP 200 it parses and returns the verified Profile.
func (c *Client) HasJoined(ctx context.Context, username, joinHash, peerIP string) (protocol.Profile, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return protocol.Profile{}, fmt.Errorf("auth: invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("username", username)
	q.Set("serverId", joinHash)
	if peerIP != "" {
		q.Set("ip", peerIP)
	}
	u.RawQuery = q.Encode()

	var lastErr error
	attempts := c.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		profile, err := c.attempt(ctx, u.String())
		if err == nil {
			return profile, nil
		}
		lastErr = err
		if errors.Is(err, ErrNotJoined) {
			// A definitive "no" from the authority; retrying will not help.
			return protocol.Profile{}, err
		}
		select {
		case <-ctx.Done():
			return protocol.Profile{}, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return protocol.Profile{}, fmt.Errorf("auth: has-joined request failed: %w", lastErr)
}

func (c *Client) attempt(ctx context.Context, url string) (protocol.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return protocol.Profile{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return protocol.Profile{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return protocol.Profile{}, ErrNotJoined
	}

	var body hasJoinedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return protocol.Profile{}, fmt.Errorf("auth: decode has-joined response: %w", err)
	}

	uid, err := parseHyphenlessUUID(body.ID)
	if err != nil {
		return protocol.Profile{}, fmt.Errorf("auth: invalid profile id: %w", err)
	}

	props := make([]protocol.ProfileProperty, 0, len(body.Properties))
	for _, p := range body.Properties {
		props = append(props, protocol.ProfileProperty{
			Name:      p.Name,
			Value:     p.Value,
			Signature: p.Signature,
			HasSig:    p.Signature != "",
		})
	}

	return protocol.Profile{UUID: uid, Name: body.Name, Properties: props}, nil
}

func parseHyphenlessUUID(s string) ([16]byte, error) {
	var out [16]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return out, fmt.Errorf("expected 32 hex characters, got %q", s)
	}
	copy(out[:], b)
	return out, nil
}
