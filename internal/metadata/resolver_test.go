package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/models"
	chain "poolwatch/pkg/solana"
)

type fakeOnChain struct {
	meta  *chain.TokenMetadata
	err   error
	calls int32
}

func (f *fakeOnChain) TokenMetadata(ctx context.Context, mint string) (*chain.TokenMetadata, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.meta, nil
}

type fakeDocuments struct {
	doc   *OffChainMetadata
	err   error
	calls int32
}

func (f *fakeDocuments) Fetch(ctx context.Context, uri string) (*OffChainMetadata, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeImages struct {
	image string
	err   error
	calls int32
}

func (f *fakeImages) Image(ctx context.Context, mint string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.image, f.err
}

func newMint() string {
	return solana.NewWallet().PublicKey().String()
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("On-chain Only Without URI", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo", Symbol: "FOO"}}
		docs := &fakeDocuments{}
		images := &fakeImages{image: "https://example.com/foo.png"}
		r := NewResolver(onChain, docs, images, nil, nil)
		mint := newMint()

		got := r.Resolve(ctx, mint)
		assert.Equal(t, models.Metadata{Name: "Foo", Symbol: "FOO"}, got)
		assert.Equal(t, int32(0), docs.calls)
		assert.Equal(t, int32(0), images.calls)

		cached, ok := r.Cache().Get(mint)
		require.True(t, ok)
		assert.Equal(t, got, cached)
	})

	t.Run("On-chain Failure Yields Sentinel", func(t *testing.T) {
		onChain := &fakeOnChain{err: errors.New("account not found")}
		r := NewResolver(onChain, &fakeDocuments{}, &fakeImages{}, nil, nil)
		mint := newMint()

		got := r.Resolve(ctx, mint)
		assert.Equal(t, models.Metadata{Name: "Unknown", Symbol: "Unknown"}, got)
		assert.Equal(t, 0, r.Cache().Len())
	})

	t.Run("Invalid Mint Skips Lookups", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo", Symbol: "FOO"}}
		r := NewResolver(onChain, nil, nil, nil, nil)

		got := r.Resolve(ctx, "not base58 !!")
		assert.Equal(t, models.UnknownMetadata(), got)
		assert.Equal(t, int32(0), onChain.calls)
	})

	t.Run("Document Overlays On-chain Values", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo", Symbol: "FOO", URI: "https://example.com/foo.json"}}
		docs := &fakeDocuments{doc: &OffChainMetadata{Name: "Foo Token", ImageURL: "https://example.com/foo.png"}}
		images := &fakeImages{image: "unused"}
		r := NewResolver(onChain, docs, images, nil, nil)

		got := r.Resolve(ctx, newMint())
		assert.Equal(t, "Foo Token", got.Name)
		assert.Equal(t, "FOO", got.Symbol)
		assert.Equal(t, "https://example.com/foo.json", got.URI)
		assert.Equal(t, "https://example.com/foo.png", got.Image)
		assert.Equal(t, int32(0), images.calls)
	})

	t.Run("Secondary Image When Document Fails", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo", Symbol: "FOO", URI: "https://example.com/foo.json"}}
		docs := &fakeDocuments{err: errors.New("timeout")}
		images := &fakeImages{image: "https://cdn.example.com/foo.png"}
		r := NewResolver(onChain, docs, images, nil, nil)

		got := r.Resolve(ctx, newMint())
		assert.Equal(t, "Foo", got.Name)
		assert.Equal(t, "https://cdn.example.com/foo.png", got.Image)
		assert.Equal(t, int32(1), images.calls)
	})

	t.Run("Secondary Failure Is Not Fatal", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo", Symbol: "FOO", URI: "https://example.com/foo.json"}}
		docs := &fakeDocuments{doc: &OffChainMetadata{}}
		images := &fakeImages{err: errors.New("503")}
		r := NewResolver(onChain, docs, images, nil, nil)
		mint := newMint()

		got := r.Resolve(ctx, mint)
		assert.Equal(t, "", got.Image)
		assert.True(t, got.Resolved())
		_, ok := r.Cache().Get(mint)
		assert.True(t, ok)
	})

	t.Run("Partial Results Are Not Cached", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo"}}
		r := NewResolver(onChain, nil, nil, nil, nil)
		mint := newMint()

		got := r.Resolve(ctx, mint)
		assert.Equal(t, "Foo", got.Name)
		assert.Equal(t, models.UnknownValue, got.Symbol)
		assert.Equal(t, 0, r.Cache().Len())

		r.Resolve(ctx, mint)
		assert.Equal(t, int32(2), onChain.calls)
	})

	t.Run("Cache Hit Skips Sources", func(t *testing.T) {
		onChain := &fakeOnChain{meta: &chain.TokenMetadata{Name: "Foo", Symbol: "FOO"}}
		r := NewResolver(onChain, nil, nil, nil, nil)
		mint := newMint()

		first := r.Resolve(ctx, mint)
		second := r.Resolve(ctx, mint)
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), onChain.calls)
	})
}

func TestCachePut(t *testing.T) {
	c := NewCache()
	assert.False(t, c.Put("a", models.UnknownMetadata()))
	assert.False(t, c.Put("a", models.Metadata{Name: "Foo", Symbol: models.UnknownValue}))
	assert.True(t, c.Put("a", models.Metadata{Name: "Foo", Symbol: "FOO"}))
	assert.Equal(t, 1, c.Len())
}

func TestURIFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.json":
			_, _ = w.Write([]byte(`{"name":"Foo","symbol":"FOO","imageUrl":"https://example.com/foo.png"}`))
		case "/broken.json":
			_, _ = w.Write([]byte(`<html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	f := NewURIFetcher()

	doc, err := f.Fetch(context.Background(), server.URL+"/ok.json")
	require.NoError(t, err)
	assert.Equal(t, "Foo", doc.Name)
	assert.Equal(t, "https://example.com/foo.png", doc.ImageLink())

	_, err = f.Fetch(context.Background(), server.URL+"/broken.json")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), server.URL+"/missing.json")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "::bad uri")
	assert.Error(t, err)
}
