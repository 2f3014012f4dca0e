package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/models"
	"poolwatch/internal/store"
	chain "poolwatch/pkg/solana"
)

const (
	knownMint   = "So11111111111111111111111111111111111111112"
	unknownMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSnapshots struct {
	tokens    []models.DisplayToken
	published int
}

func (f *fakeSnapshots) Latest() []models.DisplayToken { return f.tokens }

func (f *fakeSnapshots) Publish(context.Context) { f.published++ }

type fakeRefresher struct {
	meta  models.Metadata
	err   error
	calls []string
}

func (f *fakeRefresher) RefreshMetadata(_ context.Context, mint string) (models.Metadata, error) {
	f.calls = append(f.calls, mint)
	return f.meta, f.err
}

func newTokenRouter(h *TokenHandler) *gin.Engine {
	r := gin.New()
	r.GET("/tokens", h.ListTokens)
	r.GET("/tokens/:mint", h.GetToken)
	r.POST("/tokens/:mint/metadata/refresh", h.RefreshMetadata)
	return r
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestTokenHandler(t *testing.T) {
	s := store.NewTokenStore()
	s.UpsertDiscovered(knownMint, store.Discovery{PoolAddress: "pool", LPMintAddress: "lp"}, time.Now())

	snaps := &fakeSnapshots{tokens: []models.DisplayToken{{Mint: knownMint, Name: "Wrapped SOL"}}}
	refresher := &fakeRefresher{err: store.ErrNotFound}
	r := newTokenRouter(NewTokenHandler(s, snaps, refresher))

	t.Run("List Returns Latest Snapshot", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/tokens")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Count int                   `json:"count"`
			Data  []models.DisplayToken `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "Wrapped SOL", body.Data[0].Name)
	})

	t.Run("Get Known Mint", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/tokens/"+knownMint)
		require.Equal(t, http.StatusOK, w.Code)

		var rec models.TokenRecord
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
		assert.Equal(t, knownMint, rec.Mint)
		assert.True(t, rec.HasLiquidity)
		assert.Equal(t, "pool", rec.PoolAddress)
	})

	t.Run("Get Unknown Mint", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/tokens/"+unknownMint)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Get Invalid Mint", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/tokens/not-a-key")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Refresh Unknown Mint", func(t *testing.T) {
		w := serve(r, http.MethodPost, "/tokens/"+unknownMint+"/metadata/refresh")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, 0, snaps.published)
	})

	t.Run("Refresh Known Mint Republishes", func(t *testing.T) {
		refresher.err = nil
		refresher.meta = models.Metadata{Name: "Wrapped SOL", Symbol: "SOL"}

		w := serve(r, http.MethodPost, "/tokens/"+knownMint+"/metadata/refresh")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"resolved":true`)
		assert.Equal(t, 1, snaps.published)
		assert.Equal(t, knownMint, refresher.calls[len(refresher.calls)-1])
	})
}

type fakeSubscription struct {
	status string
}

func (f fakeSubscription) Status() string         { return f.status }
func (f fakeSubscription) Reconnects() int        { return 2 }
func (f fakeSubscription) LastMessage() time.Time { return time.Time{} }

func TestHealthHandler(t *testing.T) {
	checker := func(ok bool) RPCChecker {
		return func(_ context.Context, urls []string, _ time.Duration) []chain.RPCCheckResult {
			out := make([]chain.RPCCheckResult, len(urls))
			for i, u := range urls {
				out[i] = chain.RPCCheckResult{URL: u, OK: ok}
			}
			return out
		}
	}

	cases := []struct {
		name   string
		rpcOK  bool
		status string
		code   int
	}{
		{"Healthy", true, chain.StateConnected, http.StatusOK},
		{"RPC Down", false, chain.StateConnected, http.StatusServiceUnavailable},
		{"Stream Reconnecting", true, chain.StateConnecting, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler([]string{"http://rpc"}, fakeSubscription{status: tc.status}, func() int { return 7 })
			h.check = checker(tc.rpcOK)

			r := gin.New()
			r.GET("/health", h.Health)
			w := serve(r, http.MethodGet, "/health")

			assert.Equal(t, tc.code, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, float64(7), body["tokens"])
			sub := body["subscription"].(map[string]interface{})
			assert.Equal(t, tc.status, sub["status"])
		})
	}
}
