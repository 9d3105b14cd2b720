package session

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sales-dashboard/internal/dataset"
)

func newTestStore(ttl time.Duration) (*Store, *time.Time) {
	st := NewStore(ttl, slog.New(slog.NewTextHandler(io.Discard, nil)))
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }
	return st, &now
}

func TestStore_CreateAndGet(t *testing.T) {
	st, _ := newTestStore(time.Minute)

	s := st.Create()
	require.NotEmpty(t, s.ID)
	assert.Nil(t, s.Dataset(), "new sessions start idle")

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())

	_, ok = st.Get("unknown")
	assert.False(t, ok)

	other := st.Create()
	assert.NotEqual(t, s.ID, other.ID)
}

func TestSession_SetDataset(t *testing.T) {
	st, _ := newTestStore(time.Minute)
	s := st.Create()

	ds, err := dataset.Load(strings.NewReader("a\n1\n"), "a.csv")
	require.NoError(t, err)

	s.SetDataset(ds)
	assert.Same(t, ds, s.Dataset())

	s.SetDataset(nil)
	assert.Nil(t, s.Dataset())
}

func TestSession_SwapDataset(t *testing.T) {
	st, _ := newTestStore(time.Minute)
	s := st.Create()

	old, err := dataset.Load(strings.NewReader("a\n1\n"), "old.csv")
	require.NoError(t, err)
	upload, err := dataset.Load(strings.NewReader("b\n2\n"), "new.csv")
	require.NoError(t, err)
	derived, err := dataset.Load(strings.NewReader("a,Revenue\n1,1\n"), "old.csv")
	require.NoError(t, err)

	s.SetDataset(old)
	assert.True(t, s.SwapDataset(old, derived))
	assert.Same(t, derived, s.Dataset())

	s.SetDataset(upload)
	assert.False(t, s.SwapDataset(old, derived), "a stale base must not replace a newer dataset")
	assert.Same(t, upload, s.Dataset())
}

func TestStore_Expiry(t *testing.T) {
	st, now := newTestStore(time.Minute)

	stale := st.Create()
	*now = now.Add(45 * time.Second)
	fresh := st.Create()

	*now = now.Add(30 * time.Second)
	assert.Equal(t, 1, st.Sweep())

	_, ok := st.Get(stale.ID)
	assert.False(t, ok)
	_, ok = st.Get(fresh.ID)
	assert.True(t, ok)
}

func TestStore_GetExpiresLazily(t *testing.T) {
	st, now := newTestStore(time.Minute)
	s := st.Create()

	*now = now.Add(2 * time.Minute)
	_, ok := st.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, st.Len())
}

func TestStore_GetKeepsSessionAlive(t *testing.T) {
	st, now := newTestStore(time.Minute)
	s := st.Create()

	for range 5 {
		*now = now.Add(40 * time.Second)
		_, ok := st.Get(s.ID)
		require.True(t, ok)
	}
	assert.Equal(t, 0, st.Sweep())
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	st, now := newTestStore(0)
	s := st.Create()

	*now = now.Add(24 * time.Hour)
	assert.Equal(t, 0, st.Sweep())
	_, ok := st.Get(s.ID)
	assert.True(t, ok)
}

func TestStore_StartAndClose(t *testing.T) {
	st := NewStore(10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	st.Start(context.Background())
	st.Create()

	assert.Eventually(t, func() bool { return st.Len() == 0 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, st.Close(ctx))
	require.NoError(t, st.Close(ctx), "close is idempotent")
}

func TestStore_CloseWithoutStart(t *testing.T) {
	st, _ := newTestStore(time.Minute)
	assert.NoError(t, st.Close(context.Background()))
}

func TestStore_ConcurrentAccess(t *testing.T) {
	st := NewStore(time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := st.Create()
			st.Get(s.ID)
			s.SetDataset(nil)
			st.Sweep()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, st.Len())
}
