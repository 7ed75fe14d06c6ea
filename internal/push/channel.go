// Package push maintains the server-to-client event stream. Decoded
// frames become push.* bus events; the channel never calls the sync
// engine directly — the engine subscribes to the bus independently.
package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/chat"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/connectivity"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/typing"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Frame is the wire envelope for push channel events.
type Frame struct {
	Type           string        `json:"type"` // message | typing | stopTyping
	Message        *chat.Message `json:"message,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Who            string        `json:"who,omitempty"`
}

// Channel is the websocket push channel adapter with automatic
// reconnection.
type Channel struct {
	url     string
	bus     *bus.Bus
	monitor *connectivity.Monitor
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewChannel creates a push channel for the given websocket URL.
func NewChannel(url string, b *bus.Bus, monitor *connectivity.Monitor, logger *zap.Logger) *Channel {
	return &Channel{
		url:     url,
		bus:     b,
		monitor: monitor,
		logger:  logger,
	}
}

// Start runs the connect/read/reconnect loop until the context is
// cancelled.
func (c *Channel) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.loop(ctx)
}

// Stop tears down the channel.
func (c *Channel) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Channel) loop(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if c.monitor != nil {
				c.monitor.ReportFailure()
			}
			if c.logger != nil {
				c.logger.Warn("push channel dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		if c.monitor != nil {
			c.monitor.ReportRecovery()
		}
		if c.logger != nil {
			c.logger.Info("push channel connected", zap.String("url", c.url))
		}
		backoff = initialBackoff

		c.readFrames(ctx, conn)
		_ = conn.Close()

		if ctx.Err() == nil {
			if c.monitor != nil {
				c.monitor.ReportFailure()
			}
			if c.logger != nil {
				c.logger.Warn("push channel disconnected")
			}
		}
	}
}

func (c *Channel) readFrames(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
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
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			if c.logger != nil {
				c.logger.Warn("malformed push frame", zap.Error(err))
			}
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Channel) dispatch(frame Frame) {
	now := time.Now()
	switch frame.Type {
	case "message":
		if frame.Message == nil {
			return
		}
		c.bus.Publish(bus.Event{
			Kind:      bus.KindPushMessage,
			Timestamp: now,
			Payload:   frame.Message,
		})
	case "typing":
		c.bus.Publish(bus.Event{
			Kind:      bus.KindPushTyping,
			Timestamp: now,
			Payload:   typing.Signal{ConversationID: frame.ConversationID, Who: frame.Who},
		})
	case "stopTyping":
		c.bus.Publish(bus.Event{
			Kind:      bus.KindPushStopTyping,
			Timestamp: now,
			Payload:   typing.Signal{ConversationID: frame.ConversationID, Who: frame.Who},
		})
	}
}
