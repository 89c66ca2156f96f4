// internal/gateway/gateway.go

// Package gateway abstracts the chat transport between the relay and its
// peers. The relay never speaks a chat protocol directly; it exchanges
// text frames through a gateway and leaves protocol details to the far side.
package gateway

import (
	"context"
	"time"
)

// Message is a single text frame exchanged over the chat transport.
type Message struct {
	Type string    `json:"type"` // "message" or "presence"
	From string    `json:"from"`
	To   string    `json:"to"`
	Body string    `json:"body"`
	At   time.Time `json:"at"`
}

// MessageHandler receives every inbound message frame. Handlers must not
// block; the gateway delivers frames from a single goroutine.
type MessageHandler func(msg Message)

// ChatGateway is the transport used to reach the menu peer and chat users.
type ChatGateway interface {
	// Start connects the transport and begins delivering inbound frames.
	Start(ctx context.Context) error

	// Stop disconnects and stops delivery. Safe to call more than once.
	Stop() error

	// Send publishes a text frame addressed to the given peer.
	Send(ctx context.Context, to, body string) error

	// Announce publishes a presence frame addressed to the given peer.
	Announce(ctx context.Context, to string) error

	// OnMessage registers the inbound handler. Must be called before Start.
	OnMessage(handler MessageHandler)
}
