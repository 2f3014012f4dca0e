package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Connection states
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"

	// Reconnect settings
	minReconnectDelay = 1 * time.Second
	maxReconnectDelay = 30 * time.Second

	pingInterval = 20 * time.Second
	writeTimeout = 10 * time.Second
)

// LogEvent is one logsNotification for the subscribed program
type LogEvent struct {
	Signature string
	Logs      []string
	Err       json.RawMessage
	Slot      uint64
}

// Failed reports whether the transaction behind the event errored
func (e LogEvent) Failed() bool {
	return len(e.Err) > 0 && string(e.Err) != "null"
}

type wsMessage struct {
	ID     *int            `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Error  json.RawMessage `json:"error"`
	Params *struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// LogSubscriber keeps a logsSubscribe stream open for one program,
// reconnecting and resubscribing whenever the socket drops.
type LogSubscriber struct {
	wsEndpoint string
	programID  string
	dialer     *websocket.Dialer

	minDelay  time.Duration
	maxDelay  time.Duration
	pingEvery time.Duration

	mu             sync.RWMutex
	status         string
	subscriptionID int64
	reconnects     int
	lastMessage    time.Time
}

// NewLogSubscriber creates a subscriber for logs mentioning programID
func NewLogSubscriber(wsEndpoint, programID string) *LogSubscriber {
	return &LogSubscriber{
		wsEndpoint: wsEndpoint,
		programID:  programID,
		dialer:     websocket.DefaultDialer,
		minDelay:   minReconnectDelay,
		maxDelay:   maxReconnectDelay,
		pingEvery:  pingInterval,
		status:     StateDisconnected,
	}
}

// Status returns the connection state
func (s *LogSubscriber) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Reconnects returns how many reconnect attempts followed the first subscription
func (s *LogSubscriber) Reconnects() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reconnects
}

// SubscriptionID returns the id confirmed by the node for the current stream
func (s *LogSubscriber) SubscriptionID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscriptionID
}

// LastMessage returns when the last frame was received
func (s *LogSubscriber) LastMessage() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessage
}

func (s *LogSubscriber) setStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Run streams events into out until ctx is cancelled. Connection failures
// are retried forever with exponential backoff.
func (s *LogSubscriber) Run(ctx context.Context, out chan<- LogEvent) error {
	delay := s.minDelay
	connected := false

	for {
		if ctx.Err() != nil {
			s.setStatus(StateDisconnected)
			return ctx.Err()
		}

		if connected {
			s.mu.Lock()
			s.reconnects++
			s.mu.Unlock()
		}

		err := s.session(ctx, out, func() {
			connected = true
			delay = s.minDelay
		})
		s.setStatus(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.WithFields(log.Fields{
			"program":  s.programID,
			"error":    err,
			"retry_in": delay.String(),
		}).Warn("Log subscription dropped, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.maxDelay {
			delay = s.maxDelay
		}
	}
}

// session runs one connection until it fails. onSubscribed is called once the
// subscription request has been written.
func (s *LogSubscriber) session(ctx context.Context, out chan<- LogEvent, onSubscribed func()) error {
	s.setStatus(StateConnecting)

	c, _, err := s.dialer.DialContext(ctx, s.wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsEndpoint, err)
	}
	defer c.Close()

	subscribeMsg := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "logsSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"mentions": []string{s.programID},
			},
			map[string]interface{}{
				"commitment": "confirmed",
			},
		},
	}
	if err := c.WriteJSON(subscribeMsg); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	s.setStatus(StateConnected)
	onSubscribed()

	log.WithFields(log.Fields{
		"program": s.programID,
	}).Info("Subscribed to program logs")

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// unblock ReadMessage
				c.Close()
				return
			case <-ticker.C:
				if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
					c.Close()
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		s.mu.Lock()
		s.lastMessage = time.Now()
		s.mu.Unlock()

		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.WithFields(log.Fields{
				"error": err.Error(),
			}).Warn("Failed to unmarshal message")
			continue
		}

		if len(msg.Error) > 0 && string(msg.Error) != "null" {
			return fmt.Errorf("subscription error: %s", string(msg.Error))
		}

		if msg.ID != nil && msg.Method == "" {
			var subID int64
			if err := json.Unmarshal(msg.Result, &subID); err == nil {
				s.mu.Lock()
				s.subscriptionID = subID
				s.mu.Unlock()
				log.WithFields(log.Fields{
					"program":         s.programID,
					"subscription_id": subID,
				}).Info("Subscription confirmed")
			}
			continue
		}

		if msg.Method != "logsNotification" || msg.Params == nil {
			continue
		}

		value := msg.Params.Result.Value
		if value.Signature == "" {
			continue
		}
		ev := LogEvent{
			Signature: value.Signature,
			Logs:      value.Logs,
			Err:       value.Err,
			Slot:      msg.Params.Result.Context.Slot,
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
