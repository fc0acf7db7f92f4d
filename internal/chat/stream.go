package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/storefront-gateway/internal/resilience"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// subscriber receives messages for one conversation pair. Delivery is
// best-effort; a slow reader drops messages rather than stalling the relay.
type subscriber struct {
	a, b int64
	ch   chan upstream.ChatMessage
}

// Relay maintains a single socket connection to the upstream chat channel and
// fans incoming messages out to per-conversation subscribers.
type Relay struct {
	URL     string
	Dialer  *websocket.Dialer
	Logger  zerolog.Logger
	Backoff time.Duration

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewRelay constructs a Relay for the given socket URL.
func NewRelay(socketURL string, logger zerolog.Logger) *Relay {
	return &Relay{
		URL:     socketURL,
		Dialer:  websocket.DefaultDialer,
		Logger:  logger,
		Backoff: time.Second,
		subs:    make(map[*subscriber]struct{}),
	}
}

// Subscribe registers interest in the conversation between the two users.
// The returned cancel function must be called to release the subscription.
func (r *Relay) Subscribe(userA, userB int64) (<-chan upstream.ChatMessage, func()) {
	sub := &subscriber{a: userA, b: userB, ch: make(chan upstream.ChatMessage, 16)}
	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	cancel := func() {
		r.mu.Lock()
		delete(r.subs, sub)
		r.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers a message to every subscriber watching its conversation.
// It is also called directly after a successful send so the sender sees the
// message without a socket round trip.
func (r *Relay) Publish(msg upstream.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sub := range r.subs {
		if !sub.matches(msg) {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// Run connects to the upstream socket and relays messages until the context
// is cancelled. Connection loss triggers reconnects with growing backoff.
func (r *Relay) Run(ctx context.Context) {
	if r.URL == "" {
		r.Logger.Info().Msg("chat socket url not configured, relay disabled")
		return
	}
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := r.Dialer.DialContext(ctx, r.URL, nil)
		if err != nil {
			attempt++
			wait := resilience.Backoff(r.Backoff, attempt, 0.2)
			r.Logger.Warn().Err(err).Dur("retry_in", wait).Msg("chat socket dial failed")
			if err := sleepCtx(ctx, wait); err != nil {
				return
			}
			continue
		}
		attempt = 0
		r.Logger.Info().Str("url", r.URL).Msg("chat socket connected")
		r.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (r *Relay) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				r.Logger.Warn().Err(err).Msg("chat socket read failed")
			}
			return
		}
		var msg upstream.ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.Logger.Debug().Err(err).Msg("chat socket frame skipped")
			continue
		}
		r.Publish(msg)
	}
}

func (s *subscriber) matches(msg upstream.ChatMessage) bool {
	return (msg.SenderID == s.a && msg.ReceiverID == s.b) ||
		(msg.SenderID == s.b && msg.ReceiverID == s.a)
}
