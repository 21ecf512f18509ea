package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/passage/internal/adapter"
)

func TestFixedReturnsCopy(t *testing.T) {
	f := NewFixed([]adapter.Target{{ID: "hub-1", Host: "10.0.1.10", Port: 25565}})
	out, err := f.Targets(context.Background(), Input{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	out[0].ID = "mutated"
	out2, err := f.Targets(context.Background(), Input{})
	require.NoError(t, err)
	require.Equal(t, "hub-1", out2[0].ID)
}

func TestHTTPCoalescesAndDecodes(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		json.NewEncoder(w).Encode([]wireTarget{
			{ID: "hub-1", Host: "10.0.1.10", Port: 25565, Metadata: map[string]string{"players": "5"}},
			{ID: "hub-2", Host: "10.0.1.11", Port: 25565, Metadata: map[string]string{"players": "40"}},
		})
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, time.Minute)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.Targets(context.Background(), Input{ServerAddr: "play.example.com"})
			require.NoError(t, err)
			require.Len(t, out, 2)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPServesStaleOnFailure(t *testing.T) {
	up := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]wireTarget{{ID: "hub-1", Host: "10.0.1.10", Port: 25565}})
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, time.Nanosecond)
	out, err := h.Targets(context.Background(), Input{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	up = false
	time.Sleep(2 * time.Millisecond)
	out, err = h.Targets(context.Background(), Input{})
	require.NoError(t, err)
	require.Equal(t, "hub-1", out[0].ID)
}

func TestRPCPostsIdentityAndDecodes(t *testing.T) {
	var gotMethod string
	var gotBody rpcDiscoveryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode([]wireTarget{{ID: "hub-1", Host: "10.0.1.10", Port: 25565}})
	}))
	defer srv.Close()

	rpc := NewRPC(srv.URL, nil)
	out, err := rpc.Targets(context.Background(), Input{ServerAddr: "play.example.com", Username: "Steve"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "play.example.com", gotBody.ServerAddr)
	require.Equal(t, "Steve", gotBody.Username)
	require.Len(t, out, 1)
	require.Equal(t, "hub-1", out[0].ID)
}
