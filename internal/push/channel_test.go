package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/connectivity"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/typing"
)

var upgrader = websocket.Upgrader{}

// pushServer upgrades a single connection and writes the given frames.
func pushServer(t *testing.T, frames []Frame) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, frame := range frames {
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestMessageFramePublished(t *testing.T) {
	srv := pushServer(t, []Frame{{
		Type:    "message",
		Message: &chat.Message{ID: "m1", ConversationID: "c1", SenderID: "other", Body: "hi"},
	}})

	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindPushMessage, 10)
	defer unsub()

	c := NewChannel(wsURL(srv), b, nil, nil)
	c.Start(context.Background())
	defer c.Stop()

	select {
	case evt := <-ch:
		msg, ok := evt.Payload.(*chat.Message)
		if !ok || msg.ID != "m1" {
			t.Errorf("payload = %v, want message m1", evt.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for push.message event")
	}
}

func TestTypingFramesPublished(t *testing.T) {
	srv := pushServer(t, []Frame{
		{Type: "typing", ConversationID: "c1", Who: "dana"},
		{Type: "stopTyping", ConversationID: "c1"},
	})

	b := bus.New()
	typingCh, unsubTyping := b.Subscribe(bus.KindPushTyping, 10)
	defer unsubTyping()
	stopCh, unsubStop := b.Subscribe(bus.KindPushStopTyping, 10)
	defer unsubStop()

	c := NewChannel(wsURL(srv), b, nil, nil)
	c.Start(context.Background())
	defer c.Stop()

	select {
	case evt := <-typingCh:
		sig, ok := evt.Payload.(typing.Signal)
		if !ok || sig.ConversationID != "c1" || sig.Who != "dana" {
			t.Errorf("payload = %v, want typing signal dana@c1", evt.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for push.typing event")
	}

	select {
	case evt := <-stopCh:
		sig, ok := evt.Payload.(typing.Signal)
		if !ok || sig.ConversationID != "c1" {
			t.Errorf("payload = %v, want stop signal for c1", evt.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for push.stop_typing event")
	}
}

func TestMalformedFrameSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(Frame{Type: "message", Message: &chat.Message{ID: "m1", ConversationID: "c1"}})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindPushMessage, 10)
	defer unsub()

	c := NewChannel(wsURL(srv), b, nil, nil)
	c.Start(context.Background())
	defer c.Stop()

	select {
	case evt := <-ch:
		msg := evt.Payload.(*chat.Message)
		if msg.ID != "m1" {
			t.Errorf("got %v, want m1 after skipping the bad frame", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for the frame after the malformed one")
	}
}

func TestDialFailureReportsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	monitor := connectivity.NewMonitor(nil)
	c := NewChannel(wsURL(srv), bus.New(), monitor, nil)
	c.Start(context.Background())
	defer c.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if monitor.Current().Status == connectivity.Offline {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("dial failure never reported offline")
}
