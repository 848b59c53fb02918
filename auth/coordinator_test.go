package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinatorRunsRefreshExactlyOnceForConcurrentCallers(t *testing.T) {
	store := NewMemoryTokenStore()
	coord := NewCoordinator(store)

	var calls int32
	refresh := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "new-token", nil
	}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	results := make([]string, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			token, err := coord.RefreshIfNeeded(context.Background(), refresh)
			if assert.NoError(t, err) {
				results[i] = token
			}
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt32(&calls), "expected refresh to run exactly once")
	for i, r := range results {
		assert.Equalf(t, "new-token", r, "result[%d]", i)
	}

	stored, ok := store.Token()
	require.True(t, ok)
	require.Equal(t, "new-token", stored)
}

func TestCoordinatorStartsFreshRefreshAfterCompletion(t *testing.T) {
	store := NewMemoryTokenStore()
	coord := NewCoordinator(store)

	var calls int32
	refresh := func(ctx context.Context) (string, error) {
		n := atomic.AddInt32(&calls, 1)
		return "token-" + string(rune('0'+n)), nil
	}

	first, err := coord.RefreshIfNeeded(context.Background(), refresh)
	require.NoError(t, err)
	second, err := coord.RefreshIfNeeded(context.Background(), refresh)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "expected a new refresh after completion")
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCoordinatorPropagatesRefreshError(t *testing.T) {
	store := NewMemoryTokenStore()
	coord := NewCoordinator(store)

	errRefresh := func(ctx context.Context) (string, error) {
		return "", errBoom
	}

	_, err := coord.RefreshIfNeeded(context.Background(), errRefresh)
	require.Error(t, err)
	_, ok := store.Token()
	assert.False(t, ok, "store should not have been written on a failed refresh")
}

func TestCoordinatorDoesNotClobberStoreOnNoRefreshPossible(t *testing.T) {
	store := NewMemoryTokenStore()
	store.SetToken("existing-token")
	coord := NewCoordinator(store)

	noopRefresh := func(ctx context.Context) (string, error) {
		return "", nil
	}

	token, err := coord.RefreshIfNeeded(context.Background(), noopRefresh)
	require.NoError(t, err)
	require.Equal(t, "", token)

	stored, ok := store.Token()
	require.True(t, ok)
	require.Equal(t, "existing-token", stored, "a (\"\", nil) refresh must not overwrite the stored token")
}

type boomError string

func (e boomError) Error() string { return string(e) }

var errBoom = boomError("refresh failed")
