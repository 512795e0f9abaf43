package globalmean

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mean   float64
	count  int64
	err    error
	calls  int
	saved  []Snapshot
	weight float64
}

func (f *fakeSource) WeightedMean(_ context.Context, w float64) (float64, int64, error) {
	f.calls++
	f.weight = w
	return f.mean, f.count, f.err
}

func (f *fakeSource) Save(_ context.Context, s Snapshot) error {
	f.saved = append(f.saved, s)
	return nil
}

func params(context.Context) (float64, float64) { return 0.5, 7.0 }

func TestColdStartReturnsFallback(t *testing.T) {
	src := &fakeSource{}
	c := NewCache(src, params, 5*time.Minute)

	mean, count, err := c.GetGlobalMean(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7.0, mean)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, 0.5, src.weight)
}

func TestCachedWithinTTL(t *testing.T) {
	src := &fakeSource{mean: 6.5, count: 40}
	c := NewCache(src, params, 5*time.Minute)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	mean, count, err := c.GetGlobalMean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.5, mean)
	assert.Equal(t, int64(40), count)

	src.mean = 9
	now = now.Add(4 * time.Minute)
	mean, _, _ = c.GetGlobalMean(ctx)
	assert.Equal(t, 6.5, mean)
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	mean, _, _ = c.GetGlobalMean(ctx)
	assert.Equal(t, 9.0, mean)
	assert.Equal(t, 2, src.calls)
	assert.Len(t, src.saved, 2)
}

func TestInvalidateForcesRefresh(t *testing.T) {
	src := &fakeSource{mean: 6, count: 1}
	c := NewCache(src, params, time.Hour)
	ctx := context.Background()

	_, _, _ = c.GetGlobalMean(ctx)
	c.Invalidate()
	src.mean = 8
	mean, _, _ := c.GetGlobalMean(ctx)
	assert.Equal(t, 8.0, mean)
	assert.Equal(t, 2, src.calls)
}

func TestStaleValueOnStoreError(t *testing.T) {
	src := &fakeSource{mean: 6, count: 3}
	c := NewCache(src, params, time.Hour)
	ctx := context.Background()

	_, _, err := c.GetGlobalMean(ctx)
	require.NoError(t, err)

	c.Invalidate()
	src.err = errors.New("db down")
	mean, count, err := c.GetGlobalMean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.0, mean)
	assert.Equal(t, int64(3), count)

	empty := NewCache(src, params, time.Hour)
	_, _, err = empty.GetGlobalMean(ctx)
	assert.Error(t, err)
}
