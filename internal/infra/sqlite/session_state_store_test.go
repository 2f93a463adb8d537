package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gifts-assessment-service/internal/app"
	"gifts-assessment-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateStoreLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	_, err = store.Load(ctx, "missing")
	require.True(t, errors.Is(err, domain.ErrStateNotFound))

	require.NoError(t, store.Save(ctx, "k", []byte("one")))
	require.NoError(t, store.Save(ctx, "k", []byte("two")))
	got, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Load(ctx, "k")
	require.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestSessionStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return started.Add(time.Hour) }

	store, err := Open(path)
	require.NoError(t, err)
	mgr := app.NewSessionStateManagerWithClock(store, 24*time.Hour, clock, nil)
	state := domain.AssessmentState{
		SessionID:            "s-1",
		Locale:               "pt",
		Answers:              map[string]int{"mer-1": 3},
		CurrentQuestionIndex: 1,
		StartedAt:            started,
		QuestionOrder:        []string{"mer-1", "ser-2"},
	}
	require.NoError(t, mgr.Persist(context.Background(), state))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	restored, ok := app.NewSessionStateManagerWithClock(reopened, 24*time.Hour, clock, nil).Restore(context.Background())
	require.True(t, ok)
	assert.Equal(t, state, restored)
}
