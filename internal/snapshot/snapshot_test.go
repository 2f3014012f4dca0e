package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/models"
	"poolwatch/internal/observability"
	"poolwatch/internal/store"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func liquidRecord(mint string, at time.Time) *models.TokenRecord {
	r := models.NewTokenRecord(mint)
	r.HasLiquidity = true
	r.DiscoveredAt = at
	r.PoolAddress = "pool-" + mint
	r.LPMintAddress = "lp-" + mint
	return r
}

func TestBuild(t *testing.T) {
	t.Run("Filters And Orders", func(t *testing.T) {
		unlisted := models.NewTokenRecord("Z")
		records := []*models.TokenRecord{
			liquidRecord("B", base),
			liquidRecord("A", base),
			liquidRecord("C", base.Add(time.Minute)),
			unlisted,
		}

		out := Build(records)
		require.Len(t, out, 3)
		assert.Equal(t, "C", out[0].Mint)
		assert.Equal(t, "A", out[1].Mint)
		assert.Equal(t, "B", out[2].Mint)
	})

	t.Run("Empty Store Gives Empty List", func(t *testing.T) {
		out := Build(nil)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("Sentinels For Missing Data", func(t *testing.T) {
		d := Display(liquidRecord("A", base))

		assert.Equal(t, models.UnknownValue, d.Name)
		assert.Equal(t, models.UnknownValue, d.Symbol)
		assert.Equal(t, "", d.Image)
		assert.Nil(t, d.Liquidity)
		assert.Equal(t, "0%", d.LiquidityBurned)
		assert.False(t, d.LiquidityBurnChecked)
		assert.False(t, d.LPLockedPct.Valid)
		assert.NotNil(t, d.DextoolsData)
		assert.NotNil(t, d.Risks)
		assert.Equal(t, "2024-05-01T12:00:00Z", d.CreationTime)

		raw, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"lpLockedPct":"N/A"`)
		assert.Contains(t, string(raw), `"liquidity":null`)
	})

	t.Run("Report Fills Metadata Gaps", func(t *testing.T) {
		r := liquidRecord("A", base)
		r.Metadata = models.Metadata{Name: "Real", Symbol: models.UnknownValue}
		r.RiskReport = &models.RiskReport{
			TokenMeta: &models.ReportMeta{Name: "Report", Symbol: "RPT", URI: "https://x/meta.json"},
			FileMeta:  &models.ReportMeta{Image: "https://x/img.png"},
			Risks:     []models.Risk{{Name: "Mutable metadata", Level: "warn"}},
			Markets:   []models.ReportMarket{{Pubkey: "m", LP: &models.MarketLP{LPLockedPct: 12.5}}},
		}

		d := Display(r)
		assert.Equal(t, "Real", d.Name)
		assert.Equal(t, "RPT", d.Symbol)
		assert.Equal(t, "https://x/meta.json", d.URI)
		assert.Equal(t, "https://x/img.png", d.Image)
		assert.True(t, d.LPLockedPct.Valid)
		assert.Equal(t, 12.5, d.LPLockedPct.Value)
		assert.Len(t, d.Risks, 1)
	})

	t.Run("Confirmed Burn", func(t *testing.T) {
		r := liquidRecord("A", base)
		r.LiquidityBurnedPct = models.StringPtr("95.00%")
		r.LiquidityUSD = models.Float64Ptr(1500)

		d := Display(r)
		assert.Equal(t, "95.00%", d.LiquidityBurned)
		assert.True(t, d.LiquidityBurnChecked)
		require.NotNil(t, d.Liquidity)
		assert.Equal(t, 1500.0, *d.Liquidity)
	})

	t.Run("Does Not Mutate Records", func(t *testing.T) {
		r := liquidRecord("A", base)
		r.Analytics = models.Analytics{"price": 1.0}

		d := Display(r)
		d.DextoolsData["price"] = 2.0
		assert.Equal(t, 1.0, r.Analytics["price"])
	})
}

type recordingSink struct {
	mu    sync.Mutex
	name  string
	err   error
	calls [][]models.DisplayToken
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, tokens []models.DisplayToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, tokens)
	return s.err
}

func TestPublisher(t *testing.T) {
	s := store.NewTokenStore()
	s.UpsertDiscovered("A", store.Discovery{PoolAddress: "p"}, base)
	s.Update("loose", func(r *models.TokenRecord) {})

	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("broker down")}
	p := NewPublisher(s, observability.NewMetrics(), bad)
	p.AddSink(good)

	assert.Empty(t, p.Latest())

	p.Publish(context.Background())

	require.Len(t, good.calls, 1)
	require.Len(t, bad.calls, 1)
	require.Len(t, good.calls[0], 1)
	assert.Equal(t, "A", good.calls[0][0].Mint)
	assert.Equal(t, good.calls[0], p.Latest())

	rec, err := s.Get("loose")
	require.NoError(t, err)
	assert.False(t, rec.HasLiquidity)
}

type capturePublisher struct {
	messages []interface{}
}

func (c *capturePublisher) Publish(_ context.Context, message interface{}) error {
	c.messages = append(c.messages, message)
	return nil
}

func TestAMQPSink(t *testing.T) {
	pub := &capturePublisher{}
	sink := NewAMQPSink(pub)

	require.NoError(t, sink.Send(context.Background(), nil))
	require.Len(t, pub.messages, 1)

	raw, err := json.Marshal(pub.messages[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"newRaydiumTokens","data":[]}`, string(raw))
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var f Frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func TestHub(t *testing.T) {
	hub := NewHub(nil, nil)
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	first := []models.DisplayToken{Display(liquidRecord("A", base))}
	require.NoError(t, hub.Send(context.Background(), first))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	t.Run("Latest Frame On Connect", func(t *testing.T) {
		f := readFrame(t, conn)
		assert.Equal(t, EventName, f.Event)
		require.Len(t, f.Data, 1)
		assert.Equal(t, "A", f.Data[0].Mint)
	})

	t.Run("Broadcast", func(t *testing.T) {
		require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

		next := []models.DisplayToken{
			Display(liquidRecord("B", base.Add(time.Minute))),
			Display(liquidRecord("A", base)),
		}
		require.NoError(t, hub.Send(context.Background(), next))

		f := readFrame(t, conn)
		require.Len(t, f.Data, 2)
		assert.Equal(t, "B", f.Data[0].Mint)
	})

	t.Run("Disconnect Removes Client", func(t *testing.T) {
		conn.Close()
		assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
	})
}

func TestHubOrigin(t *testing.T) {
	hub := NewHub([]string{"http://allowed.example"}, nil)
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)

	header = map[string][]string{"Origin": {"http://allowed.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	conn.Close()
}

func TestWatcher(t *testing.T) {
	w := NewWatcher()

	first := w.Observe([]models.DisplayToken{{Mint: "A"}, {Mint: "B"}})
	require.Len(t, first, 2)

	second := w.Observe([]models.DisplayToken{{Mint: "C"}, {Mint: "A"}, {Mint: "B"}})
	require.Len(t, second, 1)
	assert.Equal(t, "C", second[0].Mint)

	assert.Empty(t, w.Observe([]models.DisplayToken{{Mint: "A"}}))
	assert.Equal(t, 3, w.Seen())
}
