// internal/bridge/bridge.go

// Package bridge turns the asynchronous chat transport into a blocking
// request/reply call against the menu peer. One query is outstanding at a
// time; replies arriving with no registered waiter are dropped.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
	"menubot/internal/gateway"
)

// Sender is the outbound half of the chat gateway.
type Sender interface {
	Send(ctx context.Context, to, body string) error
	Announce(ctx context.Context, to string) error
}

// Bridge waits for the peer's next message after sending a query.
// The peer echoes no correlation data, so correlation is positional:
// the single registered slot receives the first reply, and anything
// after the slot is cleared is discarded as stale.
type Bridge struct {
	sender  Sender
	peer    string
	timeout time.Duration
	logger  logger.Logger

	// fetchMu serializes Fetch so at most one slot exists.
	fetchMu sync.Mutex

	// slotMu guards the pending slot.
	slotMu  sync.Mutex
	token   string
	replyCh chan string
}

// New creates a bridge that queries the given peer over the sender.
func New(sender Sender, peer string, timeout time.Duration, log logger.Logger) *Bridge {
	return &Bridge{
		sender:  sender,
		peer:    peer,
		timeout: timeout,
		logger:  log,
	}
}

// Fetch sends query to the peer and blocks until the peer's reply, the
// timeout, or ctx cancellation. Concurrent callers queue behind each other.
func (b *Bridge) Fetch(ctx context.Context, query string) (string, error) {
	b.fetchMu.Lock()
	defer b.fetchMu.Unlock()

	token := uuid.NewString()
	ch := make(chan string, 1)

	b.slotMu.Lock()
	b.token = token
	b.replyCh = ch
	b.slotMu.Unlock()

	defer b.clearSlot(token)

	start := time.Now()

	// Presence precedes every query; the peer only answers contacts it
	// has recently seen. A failed announcement is not fatal.
	if err := b.sender.Announce(ctx, b.peer); err != nil {
		b.logger.Warn("presence announcement failed", map[string]interface{}{
			"peer":  b.peer,
			"error": err.Error(),
		})
	}

	if err := b.sender.Send(ctx, b.peer, query); err != nil {
		metrics.RecordFetch("error", time.Since(start).Seconds())
		return "", err
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		metrics.RecordFetch("success", time.Since(start).Seconds())
		b.logger.Debug("peer reply received", map[string]interface{}{
			"query":    query,
			"duration": time.Since(start).String(),
		})
		return reply, nil

	case <-timer.C:
		metrics.RecordFetch("timeout", time.Since(start).Seconds())
		b.logger.Warn("peer reply timed out", map[string]interface{}{
			"query":   query,
			"timeout": b.timeout.String(),
		})
		return "", apperrors.NewFetchTimeoutError(b.peer, b.timeout)

	case <-ctx.Done():
		metrics.RecordFetch("error", time.Since(start).Seconds())
		return "", ctx.Err()
	}
}

// HandleMessage is the gateway inbound handler. Frames not from the peer,
// and peer frames with no waiting slot, are dropped.
func (b *Bridge) HandleMessage(msg gateway.Message) {
	if msg.From != b.peer {
		return
	}

	b.slotMu.Lock()
	defer b.slotMu.Unlock()

	if b.replyCh == nil {
		b.logger.Debug("dropping unsolicited peer message", map[string]interface{}{
			"from": msg.From,
		})
		return
	}

	// Buffered with capacity 1; the slot is cleared after delivery so a
	// second frame for the same query cannot reach a later Fetch.
	b.replyCh <- msg.Body
	b.token = ""
	b.replyCh = nil
}

// clearSlot removes the slot if it still belongs to this fetch.
func (b *Bridge) clearSlot(token string) {
	b.slotMu.Lock()
	defer b.slotMu.Unlock()
	if b.token == token {
		b.token = ""
		b.replyCh = nil
	}
}
