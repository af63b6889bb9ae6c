package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"komunitas/pendataan/internal/cache"
	"komunitas/pendataan/internal/config"
	"komunitas/pendataan/internal/model"
)

type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSource) Statistics(context.Context) (model.Statistics, error) {
	f.calls.Add(1)
	if f.err != nil {
		return model.Statistics{}, f.err
	}
	return model.Statistics{Total: 7, ByStatus: map[model.Status]int{model.StatusVerified: 7}}, nil
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.StatsWarmInterval = 10 * time.Millisecond
	return cfg
}

func TestStatisticsWarmJobFillsCache(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mem, err := cache.NewMemory(0)
	require.NoError(t, err)
	defer mem.Close()
	source := &fakeSource{}

	ctx, cancel := context.WithCancel(context.Background())
	done := StartStatisticsWarmJob(ctx, testConfig(), source, mem, nil)

	require.Eventually(t, func() bool {
		_, ok, _ := mem.Get(context.Background(), cache.StatisticsKey)
		return ok
	}, time.Second, 5*time.Millisecond)

	body, _, err := mem.Get(context.Background(), cache.StatisticsKey)
	require.NoError(t, err)
	var stats model.Statistics
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 7, stats.Total)

	// a warm entry is left alone
	calls := source.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, source.calls.Load())

	require.NoError(t, mem.Invalidate(context.Background(), cache.Statistics))
	require.Eventually(t, func() bool {
		return source.calls.Load() > calls
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestStatisticsWarmJobSurvivesErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	mem, err := cache.NewMemory(0)
	require.NoError(t, err)
	defer mem.Close()
	source := &fakeSource{err: errors.New("database down")}

	ctx, cancel := context.WithCancel(context.Background())
	done := StartStatisticsWarmJob(ctx, testConfig(), source, mem, nil)
	require.Eventually(t, func() bool { return source.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	_, ok, err := mem.Get(context.Background(), cache.StatisticsKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

// racingSource commits a write, and so invalidates the statistics partition,
// while its first aggregate is still being computed.
type racingSource struct {
	c     cache.Cache
	calls atomic.Int32
}

func (r *racingSource) Statistics(ctx context.Context) (model.Statistics, error) {
	if r.calls.Add(1) == 1 {
		if err := r.c.Invalidate(ctx, cache.Statistics); err != nil {
			return model.Statistics{}, err
		}
		return model.Statistics{Total: 0}, nil
	}
	return model.Statistics{Total: 1}, nil
}

func TestWarmStatisticsDropsFillRacingAWrite(t *testing.T) {
	mem, err := cache.NewMemory(0)
	require.NoError(t, err)
	defer mem.Close()
	source := &racingSource{c: mem}
	ctx := context.Background()

	warmed, err := warmStatistics(ctx, testConfig(), source, mem)
	require.NoError(t, err)
	assert.False(t, warmed)
	_, ok, err := mem.Get(ctx, cache.StatisticsKey)
	require.NoError(t, err)
	assert.False(t, ok, "an aggregate computed before the write must not be cached")

	warmed, err = warmStatistics(ctx, testConfig(), source, mem)
	require.NoError(t, err)
	assert.True(t, warmed)
	body, ok, err := mem.Get(ctx, cache.StatisticsKey)
	require.NoError(t, err)
	require.True(t, ok)
	var stats model.Statistics
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.Total)
}

func TestStatisticsWarmJobDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.StatsWarmInterval = 0
	done := StartStatisticsWarmJob(context.Background(), cfg, &fakeSource{}, nil, nil)
	select {
	case <-done:
	default:
		t.Fatalf("expected disabled job to report done")
	}
}
