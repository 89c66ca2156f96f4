// internal/subscription/subscription.go

// Package subscription manages the durable recipient -> daily-time mapping
// that drives scheduled menu notifications.
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	apperrors "menubot/internal/common/errors"
)

var timeOfDayPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// TimeOfDay is a wall-clock notification time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "hh:mm" (single-digit hours allowed) and rejects
// out-of-range values.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayPattern.FindStringSubmatch(s)
	if m == nil {
		return TimeOfDay{}, apperrors.NewValidationError(fmt.Sprintf("invalid time %q, expected hh:mm", s))
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	if hour > 23 || minute > 59 {
		return TimeOfDay{}, apperrors.NewValidationError(fmt.Sprintf("time %q out of range", s))
	}

	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns the minute offset from midnight, for due-time comparison.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Subscription is one recipient's notification preference. LastNotified
// holds the date (menu.DateLayout) of the most recent notification attempt,
// nil before the first one.
type Subscription struct {
	NotifyAt     TimeOfDay `json:"notify_at"`
	LastNotified *string   `json:"last_notified,omitempty"`
}

// Store is the durable subscription mapping. Implementations keep the
// in-memory map authoritative and persist the whole mapping on mutation.
type Store interface {
	// Subscribe adds or replaces the recipient's notification time.
	Subscribe(ctx context.Context, recipient string, at TimeOfDay) error

	// Unsubscribe removes the recipient, reporting whether it existed.
	Unsubscribe(ctx context.Context, recipient string) (bool, error)

	// Get returns the recipient's subscription, if any.
	Get(ctx context.Context, recipient string) (Subscription, bool, error)

	// All returns a copy of the full mapping.
	All(ctx context.Context) (map[string]Subscription, error)

	// MarkNotified stamps the given date on each listed recipient and
	// persists once for the whole batch.
	MarkNotified(ctx context.Context, recipients []string, date string) error
}

// copySubscriptions deep-copies the mapping so callers cannot alias
// store-internal state.
func copySubscriptions(subs map[string]Subscription) map[string]Subscription {
	out := make(map[string]Subscription, len(subs))
	for k, v := range subs {
		if v.LastNotified != nil {
			d := *v.LastNotified
			v.LastNotified = &d
		}
		out[k] = v
	}
	return out
}
