package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

func TestRelayFiltersByConversation(t *testing.T) {
	relay := NewRelay("", zerolog.Nop())

	mine, cancelMine := relay.Subscribe(1, 2)
	defer cancelMine()
	other, cancelOther := relay.Subscribe(3, 4)
	defer cancelOther()

	relay.Publish(upstream.ChatMessage{ID: 1, SenderID: 1, ReceiverID: 2, Message: "hi"})
	relay.Publish(upstream.ChatMessage{ID: 2, SenderID: 2, ReceiverID: 1, Message: "reply"})
	relay.Publish(upstream.ChatMessage{ID: 3, SenderID: 9, ReceiverID: 1, Message: "unrelated"})

	require.Len(t, mine, 2)
	require.Empty(t, other)

	first := <-mine
	require.Equal(t, "hi", first.Message)
	second := <-mine
	require.Equal(t, "reply", second.Message)
}

func TestRelayUnsubscribeStopsDelivery(t *testing.T) {
	relay := NewRelay("", zerolog.Nop())

	ch, cancel := relay.Subscribe(1, 2)
	cancel()
	relay.Publish(upstream.ChatMessage{SenderID: 1, ReceiverID: 2})
	require.Empty(t, ch)
}

func TestRelayRelaysSocketFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		err = conn.WriteMessage(websocket.TextMessage, []byte(`{"_id":7,"senderId":1,"receiverId":2,"message":"from socket"}`))
		require.NoError(t, err)
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	relay := NewRelay("ws"+strings.TrimPrefix(srv.URL, "http"), zerolog.Nop())
	ch, cancel := relay.Subscribe(1, 2)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go relay.Run(ctx)

	select {
	case msg := <-ch:
		require.EqualValues(t, 7, msg.ID)
		require.Equal(t, "from socket", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relayed message")
	}
}
