package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func hashOf(b byte) sol.Hash {
	var h sol.Hash
	h[0] = b
	return h
}

func TestCache_GetOrFetch_CacheHitAndError(t *testing.T) {
	c := New(200 * time.Millisecond)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (Value, error) {
		calls++
		return Value{Blockhash: hashOf(42), LastValidBlockHeight: 150, FetchedAt: time.Now()}, nil
	}

	v, src, err := c.GetOrFetch(ctx, "ephem", fetch)
	require.NoError(t, err)
	require.Equal(t, "rpc", src)
	require.Equal(t, hashOf(42), v.Blockhash)

	v2, src2, err := c.GetOrFetch(ctx, "ephem", fetch)
	require.NoError(t, err)
	require.Equal(t, "cache", src2)
	require.Equal(t, uint64(150), v2.LastValidBlockHeight)
	require.Equal(t, 1, calls)

	badFetch := func(context.Context) (Value, error) { return Value{}, errors.New("fetch-fail") }
	_, src3, err := c.GetOrFetch(ctx, "proxy", badFetch)
	require.Error(t, err)
	require.Empty(t, src3)

	c.Invalidate("ephem")
	_, src4, err := c.GetOrFetch(ctx, "ephem", fetch)
	require.NoError(t, err)
	require.Equal(t, "rpc", src4)
	require.Equal(t, 2, calls)
}

func TestCache_ZeroTTLAlwaysFetches(t *testing.T) {
	c := New(0)
	var calls int
	fetch := func(context.Context) (Value, error) {
		calls++
		return Value{Blockhash: hashOf(byte(calls))}, nil
	}
	v1, _, err := c.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	v2, src, err := c.GetOrFetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.Equal(t, "rpc", src)
	require.NotEqual(t, v1.Blockhash, v2.Blockhash)
	require.Equal(t, 2, calls)
}

func TestCache_SingleflightCoalesces(t *testing.T) {
	c := New(0)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (Value, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return Value{Blockhash: hashOf(7), FetchedAt: time.Now()}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrFetch(context.Background(), "k", fetch)
			if err != nil {
				t.Errorf("err: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), calls.Load())
}
