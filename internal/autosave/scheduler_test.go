package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type saves struct {
	mu     sync.Mutex
	values []string
}

func (s *saves) save(v string) SaveFunc {
	return func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.values = append(s.values, v)
		return nil
	}
}

func (s *saves) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.values...)
}

func TestScheduler_OnlyLastValueIsSaved(t *testing.T) {
	var got saves
	s := New(50*time.Millisecond, zap.NewNop())

	for _, v := range []string{"d", "dr", "dra", "draft"} {
		require.NoError(t, s.Schedule("Design|2024-05-01", got.save(v)))
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, s.IsPending("Design|2024-05-01"))

	assert.Eventually(t, func() bool { return len(got.all()) == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, []string{"draft"}, got.all())
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_KeysAreIndependent(t *testing.T) {
	var got saves
	s := New(30*time.Millisecond, zap.NewNop())

	require.NoError(t, s.Schedule("a", got.save("a1")))
	require.NoError(t, s.Schedule("b", got.save("b1")))
	assert.Equal(t, 2, s.Pending())

	assert.Eventually(t, func() bool { return len(got.all()) == 2 }, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"a1", "b1"}, got.all())
}

func TestScheduler_Cancel(t *testing.T) {
	var got saves
	s := New(30*time.Millisecond, zap.NewNop())

	require.NoError(t, s.Schedule("a", got.save("a1")))
	assert.True(t, s.Cancel("a"))
	assert.False(t, s.Cancel("a"))

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, got.all())
}

func TestScheduler_FlushAndClose(t *testing.T) {
	var got saves
	s := New(time.Hour, zap.NewNop())

	require.NoError(t, s.Schedule("a", got.save("a1")))
	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"a1"}, got.all())

	require.NoError(t, s.Schedule("b", got.save("b1")))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, []string{"a1", "b1"}, got.all())

	assert.ErrorIs(t, s.Schedule("c", got.save("c1")), ErrClosed)
}

func TestScheduler_ErrorHandler(t *testing.T) {
	var failed atomic.Int32
	var saved atomic.Int32
	boom := errors.New("boom")

	s := New(10*time.Millisecond, zap.NewNop(),
		WithErrorHandler(func(key string, err error) {
			assert.Equal(t, "a", key)
			assert.ErrorIs(t, err, boom)
			failed.Add(1)
		}),
		WithSavedHandler(func(string) { saved.Add(1) }),
		WithSaveTimeout(time.Second),
	)

	require.NoError(t, s.Schedule("a", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return boom
	}))
	require.NoError(t, s.Schedule("b", func(context.Context) error { return nil }))

	assert.Eventually(t, func() bool { return failed.Load() == 1 && saved.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestScheduler_IsSavingCoversTheWrite(t *testing.T) {
	s := New(10*time.Millisecond, zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})

	require.NoError(t, s.Schedule("a", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	assert.True(t, s.IsSaving("a"))

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("save never started")
	}
	assert.False(t, s.IsPending("a"))
	assert.True(t, s.IsSaving("a"), "a save in flight still counts")

	close(release)
	assert.Eventually(t, func() bool { return !s.IsSaving("a") }, time.Second, 5*time.Millisecond)
	assert.False(t, s.IsSaving("b"))
}

func TestScheduler_FlushMarksInFlight(t *testing.T) {
	s := New(time.Hour, zap.NewNop())
	var during atomic.Bool

	require.NoError(t, s.Schedule("a", func(context.Context) error {
		during.Store(s.IsSaving("a"))
		return nil
	}))
	require.NoError(t, s.Flush(context.Background()))
	assert.True(t, during.Load())
	assert.False(t, s.IsSaving("a"))
}
