// internal/subscription/filestore_test.go
package subscription

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "menubot/internal/common/errors"
	"menubot/internal/common/logger"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscriptions.json")
	s, err := NewFileStore(path, logger.NewTestLogger(t))
	require.NoError(t, err)
	return s, path
}

func TestFileStore_StartsEmptyWithoutFile(t *testing.T) {
	s, _ := newTestFileStore(t)

	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileStore_SubscribePersistsAndReloads(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx, "alice@example.org", TimeOfDay{Hour: 8, Minute: 30}))
	require.NoError(t, s.Subscribe(ctx, "bob@example.org", TimeOfDay{Hour: 12, Minute: 0}))

	reloaded, err := NewFileStore(path, logger.NewTestLogger(t))
	require.NoError(t, err)

	all, err := reloaded.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, all["alice@example.org"].NotifyAt)
	assert.Nil(t, all["alice@example.org"].LastNotified)
}

func TestFileStore_SubscribeReplacesExistingTime(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx, "alice@example.org", TimeOfDay{Hour: 8, Minute: 30}))
	require.NoError(t, s.Subscribe(ctx, "alice@example.org", TimeOfDay{Hour: 9, Minute: 0}))

	sub, ok, err := s.Get(ctx, "alice@example.org")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 0}, sub.NotifyAt)
}

func TestFileStore_Unsubscribe(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx, "alice@example.org", TimeOfDay{Hour: 8, Minute: 30}))

	removed, err := s.Unsubscribe(ctx, "alice@example.org")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Unsubscribe(ctx, "alice@example.org")
	require.NoError(t, err)
	assert.False(t, removed)

	_, ok, err := s.Get(ctx, "alice@example.org")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_MarkNotifiedPersistsDate(t *testing.T) {
	s, path := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx, "alice@example.org", TimeOfDay{Hour: 8, Minute: 30}))
	require.NoError(t, s.Subscribe(ctx, "bob@example.org", TimeOfDay{Hour: 12, Minute: 0}))

	require.NoError(t, s.MarkNotified(ctx, []string{"alice@example.org", "ghost@example.org"}, "2026-01-05"))

	reloaded, err := NewFileStore(path, logger.NewTestLogger(t))
	require.NoError(t, err)

	sub, ok, err := reloaded.Get(ctx, "alice@example.org")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, sub.LastNotified)
	assert.Equal(t, "2026-01-05", *sub.LastNotified)

	sub, _, err = reloaded.Get(ctx, "bob@example.org")
	require.NoError(t, err)
	assert.Nil(t, sub.LastNotified)
}

func TestFileStore_AllReturnsCopy(t *testing.T) {
	s, _ := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Subscribe(ctx, "alice@example.org", TimeOfDay{Hour: 8, Minute: 30}))

	all, err := s.All(ctx)
	require.NoError(t, err)

	all["alice@example.org"] = Subscription{NotifyAt: TimeOfDay{Hour: 23, Minute: 59}}
	delete(all, "alice@example.org")

	sub, ok, err := s.Get(ctx, "alice@example.org")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 30}, sub.NotifyAt)
}

func TestFileStore_RejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{name: "bad notify_at", content: `{"alice@example.org":{"notify_at":"not-a-time"}}`},
		{name: "missing notify_at", content: `{"alice@example.org":{}}`},
		{name: "unknown field", content: `{"alice@example.org":{"notify_at":"08:30","extra":true}}`},
		{name: "wrong shape", content: `["alice@example.org"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewFileStore(path, logger.NewTestLogger(t))
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}
