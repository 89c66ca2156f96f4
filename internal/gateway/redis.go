// internal/gateway/redis.go
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"menubot/internal/common/config"
	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
)

// RedisGateway carries chat frames over a redis pub/sub channel pair.
// Outbound frames are published to the outbound channel; a subscriber
// goroutine drains the inbound channel and hands frames to the handler.
type RedisGateway struct {
	client   *redis.Client
	identity string
	inbound  string
	outbound string
	logger   logger.Logger

	mu      sync.Mutex
	handler MessageHandler
	pubsub  *redis.PubSub
	done    chan struct{}
	started bool
}

// NewRedisGateway creates a gateway over an existing redis client.
func NewRedisGateway(client *redis.Client, cfg config.GatewayConfig, identity string, log logger.Logger) *RedisGateway {
	return &RedisGateway{
		client:   client,
		identity: identity,
		inbound:  cfg.InboundChannel,
		outbound: cfg.OutboundChannel,
		logger:   log,
	}
}

func (g *RedisGateway) OnMessage(handler MessageHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = handler
}

// Start subscribes to the inbound channel and announces presence.
func (g *RedisGateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return nil
	}

	g.pubsub = g.client.Subscribe(ctx, g.inbound)

	// Wait for the subscription to be confirmed before announcing.
	if _, err := g.pubsub.Receive(ctx); err != nil {
		g.pubsub.Close()
		g.pubsub = nil
		return fmt.Errorf("failed to subscribe to %s: %w", g.inbound, err)
	}

	g.done = make(chan struct{})
	g.started = true

	go g.receiveLoop(g.pubsub.Channel(), g.handler, g.done)

	if err := g.Announce(ctx, ""); err != nil {
		g.logger.Warn("presence announcement failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	g.logger.Info("chat gateway started", map[string]interface{}{
		"identity": g.identity,
		"inbound":  g.inbound,
		"outbound": g.outbound,
	})

	return nil
}

// Stop closes the subscription and waits for the receive loop to exit.
func (g *RedisGateway) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		return nil
	}
	g.started = false

	err := g.pubsub.Close()
	<-g.done
	g.pubsub = nil

	g.logger.Info("chat gateway stopped", nil)
	return err
}

// Send publishes a message frame addressed to the given peer.
func (g *RedisGateway) Send(ctx context.Context, to, body string) error {
	msg := Message{
		Type: "message",
		From: g.identity,
		To:   to,
		Body: body,
		At:   time.Now().UTC(),
	}
	if err := g.publish(ctx, msg); err != nil {
		return apperrors.NewGatewaySendFailedError(to, err)
	}
	metrics.GatewayMessagesTotal.WithLabelValues("outbound").Inc()
	return nil
}

// Announce publishes a presence frame. An empty to is a broadcast, used
// once at startup.
func (g *RedisGateway) Announce(ctx context.Context, to string) error {
	return g.publish(ctx, Message{
		Type: "presence",
		From: g.identity,
		To:   to,
		At:   time.Now().UTC(),
	})
}

func (g *RedisGateway) publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	return g.client.Publish(ctx, g.outbound, payload).Err()
}

func (g *RedisGateway) receiveLoop(ch <-chan *redis.Message, handler MessageHandler, done chan struct{}) {
	defer close(done)

	for raw := range ch {
		var msg Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			g.logger.Warn("dropping malformed frame", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		// Presence frames carry no body to deliver.
		if msg.Type == "presence" {
			g.logger.Debug("peer presence", map[string]interface{}{
				"from": msg.From,
			})
			continue
		}

		metrics.GatewayMessagesTotal.WithLabelValues("inbound").Inc()

		if handler != nil {
			handler(msg)
		}
	}
}
