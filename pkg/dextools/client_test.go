package dextools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v2/token/solana/mintX/info":
			_, _ = w.Write([]byte(`{"statusCode":200,"data":{"holders":120,"mcap":null,"fdv":5000}}`))
		case "/v2/pool/solana/poolP/liquidity":
			_, _ = w.Write([]byte(`{"statusCode":200,"data":{"liquidity":1234.5,"reserves":{"mainToken":1}}}`))
		case "/v2/pool/solana/empty/liquidity":
			_, _ = w.Write([]byte(`{"statusCode":200,"data":{}}`))
		case "/v2/token/solana/missing/info":
			_, _ = w.Write([]byte(`{"statusCode":200,"data":null}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient("secret", server.URL, 0)
	ctx := context.Background()

	t.Run("Token Info", func(t *testing.T) {
		info, err := client.TokenInfo(ctx, "mintX")
		require.NoError(t, err)
		assert.Equal(t, 120.0, info["holders"])
		assert.Contains(t, info, "mcap")
		assert.Nil(t, info["mcap"])
	})

	t.Run("Token Info Without Data", func(t *testing.T) {
		_, err := client.TokenInfo(ctx, "missing")
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Pool Liquidity", func(t *testing.T) {
		liq, err := client.PoolLiquidity(ctx, "poolP")
		require.NoError(t, err)
		assert.Equal(t, 1234.5, liq)
	})

	t.Run("Pool Liquidity Missing Field", func(t *testing.T) {
		_, err := client.PoolLiquidity(ctx, "empty")
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("Upstream Error", func(t *testing.T) {
		_, err := client.PoolLiquidity(ctx, "unknown")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}
