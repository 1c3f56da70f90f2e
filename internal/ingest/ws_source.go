package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsInitialBackoff   = time.Second
	wsMaxBackoff       = 30 * time.Second
)

// MessageHandler consumes one message delivered by the feed.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
}

// WSSource consumes JSON-encoded Messages from a websocket feed
// published by the host's chat layer and delivers them to the
// pipeline. It reconnects with capped exponential backoff until the
// context is canceled.
type WSSource struct {
	logger   *zap.Logger
	endpoint string
	handler  MessageHandler
}

// NewWSSource creates a feed source for the given endpoint.
func NewWSSource(logger *zap.Logger, endpoint string, handler MessageHandler) *WSSource {
	return &WSSource{logger: logger, endpoint: endpoint, handler: handler}
}

// Run blocks, consuming the feed until the context is canceled.
func (s *WSSource) Run(ctx context.Context) {
	backoff := wsInitialBackoff

	for {
		if ctx.Err() != nil {
			s.logger.Info("Stopping message feed...")
			return
		}

		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			s.logger.Info("Stopping message feed...")
			return
		}
		if connected {
			backoff = wsInitialBackoff
		}

		s.logger.Warn("Message feed disconnected, reconnecting...",
			zap.Duration("backoff", backoff), zap.Error(err))

		select {
		case <-ctx.Done():
			s.logger.Info("Stopping message feed...")
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > wsMaxBackoff {
			backoff = wsMaxBackoff
		}
	}
}

// consume runs one connection until it fails or the context ends. It
// reports whether the dial itself succeeded so the caller can reset
// its reconnect backoff.
func (s *WSSource) consume(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	s.logger.Info("Connected to message feed", zap.String("endpoint", s.endpoint))

	// Unblock ReadMessage when the context is canceled. The watcher
	// exits with this connection, otherwise every reconnect would
	// leave one goroutine behind.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			// A malformed frame is the publisher's bug, not a reason
			// to drop the connection.
			s.logger.Warn("Skipping malformed feed message", zap.Error(err))
			continue
		}

		s.handler.HandleMessage(ctx, msg)
	}
}
