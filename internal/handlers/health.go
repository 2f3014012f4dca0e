package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	chain "poolwatch/pkg/solana"
)

const rpcCheckTimeout = 3 * time.Second

// SubscriptionStatus reports the state of the chain log stream
type SubscriptionStatus interface {
	Status() string
	Reconnects() int
	LastMessage() time.Time
}

// RPCChecker probes RPC endpoints
type RPCChecker func(ctx context.Context, urls []string, timeout time.Duration) []chain.RPCCheckResult

// HealthHandler reports liveness of the chain connections
type HealthHandler struct {
	rpcURLs      []string
	subscription SubscriptionStatus
	tokens       func() int
	check        RPCChecker
}

// NewHealthHandler creates a health handler. tokens returns the store size.
func NewHealthHandler(rpcURLs []string, subscription SubscriptionStatus, tokens func() int) *HealthHandler {
	return &HealthHandler{
		rpcURLs:      rpcURLs,
		subscription: subscription,
		tokens:       tokens,
		check:        chain.CheckRPCListAsync,
	}
}

// Health answers 200 when every RPC endpoint is reachable and the log
// stream is connected, 503 otherwise. The body is returned either way.
func (h *HealthHandler) Health(c *gin.Context) {
	results := h.check(c.Request.Context(), h.rpcURLs, rpcCheckTimeout)

	ok := true
	for _, r := range results {
		if !r.OK {
			ok = false
		}
	}

	body := gin.H{
		"rpc": results,
	}
	if h.tokens != nil {
		body["tokens"] = h.tokens()
	}
	if h.subscription != nil {
		status := h.subscription.Status()
		if status != chain.StateConnected {
			ok = false
		}
		sub := gin.H{
			"status":     status,
			"reconnects": h.subscription.Reconnects(),
		}
		if last := h.subscription.LastMessage(); !last.IsZero() {
			sub["last_message"] = last.UTC().Format(time.RFC3339)
		}
		body["subscription"] = sub
	}

	code := http.StatusOK
	body["status"] = "ok"
	if !ok {
		code = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(code, body)
}
