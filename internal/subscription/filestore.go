// internal/subscription/filestore.go
package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
	"menubot/internal/common/metrics"
)

// subscriptionsSchema validates the on-disk mapping before it is trusted.
const subscriptionsSchema = `{
	"type": "object",
	"additionalProperties": {
		"type": "object",
		"properties": {
			"notify_at": {
				"type": "string",
				"pattern": "^\\d{1,2}:\\d{2}$"
			},
			"last_notified": {
				"type": ["string", "null"],
				"pattern": "^\\d{4}-\\d{2}-\\d{2}$"
			}
		},
		"required": ["notify_at"],
		"additionalProperties": false
	}
}`

// FileStore keeps the mapping in memory and rewrites a single JSON file on
// every mutation. The write is tmpfile-plus-rename so a crash mid-write
// never truncates the previous state.
type FileStore struct {
	path   string
	logger logger.Logger

	mu   sync.Mutex
	subs map[string]Subscription
}

// NewFileStore loads (or initializes) the subscription file at path.
func NewFileStore(path string, log logger.Logger) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		logger: log,
		subs:   make(map[string]Subscription),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info("subscription file absent, starting empty", map[string]interface{}{
			"path": path,
		})
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription file %s: %w", path, err)
	}

	if err := validateSubscriptionsJSON(data); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &s.subs); err != nil {
		return nil, fmt.Errorf("failed to parse subscription file %s: %w", path, err)
	}

	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	log.Info("subscriptions loaded", map[string]interface{}{
		"path":  path,
		"count": len(s.subs),
	})

	return s, nil
}

func validateSubscriptionsJSON(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(subscriptionsSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("subscription file validation error: %s", err))
	}
	if !result.Valid() {
		details := ""
		for _, desc := range result.Errors() {
			if details != "" {
				details += "; "
			}
			details += desc.String()
		}
		return apperrors.NewValidationError("subscription file invalid: " + details)
	}
	return nil
}

func (s *FileStore) Subscribe(ctx context.Context, recipient string, at TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs[recipient] = Subscription{NotifyAt: at}
	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	return s.persistLocked()
}

func (s *FileStore) Unsubscribe(ctx context.Context, recipient string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[recipient]; !ok {
		return false, nil
	}
	delete(s.subs, recipient)
	metrics.SubscriptionsActive.Set(float64(len(s.subs)))
	return true, s.persistLocked()
}

func (s *FileStore) Get(ctx context.Context, recipient string) (Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[recipient]
	if ok && sub.LastNotified != nil {
		d := *sub.LastNotified
		sub.LastNotified = &d
	}
	return sub, ok, nil
}

func (s *FileStore) All(ctx context.Context) (map[string]Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySubscriptions(s.subs), nil
}

func (s *FileStore) MarkNotified(ctx context.Context, recipients []string, date string) error {
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
	return s.persistLocked()
}

// persistLocked writes the whole mapping. Callers hold s.mu.
func (s *FileStore) persistLocked() error {
	data, err := json.MarshalIndent(s.subs, "", "  ")
	if err != nil {
		return apperrors.NewPersistenceError("marshal", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".subscriptions-*")
	if err != nil {
		return apperrors.NewPersistenceError("create temp", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewPersistenceError("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewPersistenceError("close", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewPersistenceError("rename", err)
	}

	return nil
}
