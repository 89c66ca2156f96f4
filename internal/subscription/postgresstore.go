// internal/subscription/postgresstore.go
package subscription

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
)

// PostgresStore keeps the mapping in memory and rewrites the whole table
// in one transaction per mutation. The mapping is small enough that the
// full rewrite stays cheaper than tracking row-level diffs.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger

	mu   sync.Mutex
	subs map[string]Subscription
}

// NewPostgresStore creates the table if needed and loads the mapping.
func NewPostgresStore(ctx context.Context, db *sql.DB, log logger.Logger) (*PostgresStore, error) {
	s := &PostgresStore{
		db:     db,
		logger: log,
		subs:   make(map[string]Subscription),
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subscriptions (
			recipient     TEXT PRIMARY KEY,
			notify_at     TEXT NOT NULL,
			last_notified TEXT
		)`); err != nil {
		return nil, fmt.Errorf("failed to create subscriptions table: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT recipient, notify_at, last_notified FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recipient, notifyAt string
		var lastNotified sql.NullString
		if err := rows.Scan(&recipient, &notifyAt, &lastNotified); err != nil {
			return nil, fmt.Errorf("failed to scan subscription row: %w", err)
		}

		at, err := ParseTimeOfDay(notifyAt)
		if err != nil {
			return nil, fmt.Errorf("invalid notify_at %q for %s: %w", notifyAt, recipient, err)
		}

		sub := Subscription{NotifyAt: at}
		if lastNotified.Valid {
			d := lastNotified.String
			sub.LastNotified = &d
		}
		s.subs[recipient] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscription rows: %w", err)
	}

	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	log.Info("subscriptions loaded", map[string]interface{}{
		"backend": "postgres",
		"count":   len(s.subs),
	})

	return s, nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, recipient string, at TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[recipient] = Subscription{NotifyAt: at}
	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	return s.persistLocked(ctx)
}

func (s *PostgresStore) Unsubscribe(ctx context.Context, recipient string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[recipient]; !ok {
		return false, nil
	}
	delete(s.subs, recipient)
	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	return true, s.persistLocked(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, recipient string) (Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[recipient]
	if ok && sub.LastNotified != nil {
		d := *sub.LastNotified
		sub.LastNotified = &d
	}
	return sub, ok, nil
}

func (s *PostgresStore) All(ctx context.Context) (map[string]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySubscriptions(s.subs), nil
}

func (s *PostgresStore) MarkNotified(ctx context.Context, recipients []string, date string) error {
	if len(recipients) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recipients {
		sub, ok := s.subs[r]
		if !ok {
			continue
		}
		d := date
		sub.LastNotified = &d
		s.subs[r] = sub
	}
	return s.persistLocked(ctx)
}

func (s *PostgresStore) persistLocked(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewPersistenceError("begin", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM subscriptions`); err != nil {
		tx.Rollback()
		return apperrors.NewPersistenceError("delete", err)
	}

	// Sorted for stable statement order.
	recipients := make([]string, 0, len(s.subs))
	for r := range s.subs {
		recipients = append(recipients, r)
	}
	sort.Strings(recipients)

	for _, r := range recipients {
		sub := s.subs[r]
		var lastNotified sql.NullString
		if sub.LastNotified != nil {
			lastNotified = sql.NullString{String: *sub.LastNotified, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO subscriptions (recipient, notify_at, last_notified) VALUES ($1, $2, $3)`,
			r, sub.NotifyAt.String(), lastNotified,
		); err != nil {
			tx.Rollback()
			return apperrors.NewPersistenceError("insert", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("commit", err)
	}
	return nil
}
