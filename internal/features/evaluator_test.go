package features

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEvaluator records every request it actually serves.
type countingEvaluator struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(req ComponentRequest) (float64, error)
}

func newCountingEvaluator(fn func(req ComponentRequest) (float64, error)) *countingEvaluator {
	return &countingEvaluator{calls: make(map[string]int), fn: fn}
}

func (c *countingEvaluator) EvaluateComponent(ctx context.Context, req ComponentRequest) (float64, error) {
	c.mu.Lock()
	c.calls[req.CacheKey()]++
	c.mu.Unlock()
	return c.fn(req)
}

func (c *countingEvaluator) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func TestMemoEvaluator_OneCallPerTuple(t *testing.T) {
	inner := newCountingEvaluator(func(req ComponentRequest) (float64, error) {
		return 42.0, nil
	})
	memo := NewMemoEvaluator(inner)

	game := GameContext{HomeTeam: "BOS", AwayTeam: "LAL", Season: "2024-25", Year: 2025, Month: 1, Day: 15}

	// Many weight configurations over the same component set: the
	// underlying evaluator must see each distinct tuple exactly once.
	configs := [][]BlendComponent{
		{{TimePeriod: "season", Weight: 0.9}, {TimePeriod: "games_10", Weight: 0.1}},
		{{TimePeriod: "season", Weight: 0.7}, {TimePeriod: "games_10", Weight: 0.3}},
		{{TimePeriod: "season", Weight: 0.5}, {TimePeriod: "games_10", Weight: 0.5}},
		{{TimePeriod: "season", Weight: 0.3}, {TimePeriod: "games_10", Weight: 0.7}},
	}

	for _, components := range configs {
		spec := BlendSpec{BaseStatName: "pts", Perspective: "diff", Components: components}
		_, err := spec.Evaluate(context.Background(), memo, game)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, inner.totalCalls(), "two distinct tuples, two evaluator calls")
	for key, n := range inner.calls {
		assert.Equal(t, 1, n, "tuple %s evaluated more than once", key)
	}

	hits, misses := memo.Stats()
	assert.Equal(t, uint64(2), misses)
	assert.Equal(t, uint64(6), hits)
}

func TestMemoEvaluator_ConcurrentCallersShareOneFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	inner := EvaluatorFunc(func(ctx context.Context, req ComponentRequest) (float64, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 3.0, nil
	})
	memo := NewMemoEvaluator(inner)

	req := ComponentRequest{StatName: "pts", TimePeriod: "season", CalcWeight: "avg", Perspective: "diff"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := memo.EvaluateComponent(context.Background(), req)
			assert.NoError(t, err)
			assert.Equal(t, 3.0, value)
		}()
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "concurrent callers of one tuple must share a single evaluation")
}

func TestMemoEvaluator_CachesMissingValues(t *testing.T) {
	inner := newCountingEvaluator(func(req ComponentRequest) (float64, error) {
		return math.NaN(), nil
	})
	memo := NewMemoEvaluator(inner)

	req := ComponentRequest{StatName: "pts", TimePeriod: "season", CalcWeight: "avg", Perspective: "diff"}
	for i := 0; i < 3; i++ {
		value, err := memo.EvaluateComponent(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(value))
	}
	assert.Equal(t, 1, inner.totalCalls(), "a missing value stays missing without re-evaluation")
}

func TestRequestForIdentifier_NetDistinctFromBase(t *testing.T) {
	game := GameContext{HomeTeam: "BOS", AwayTeam: "LAL", Season: "2024-25", Year: 2025, Month: 1, Day: 15}

	base, err := Parse("pts|season|avg|diff")
	require.NoError(t, err)
	net, err := Parse("pts_net|season|avg|diff")
	require.NoError(t, err)

	baseReq := RequestForIdentifier(base, game)
	netReq := RequestForIdentifier(net, game)

	// The evaluator sees the base stat name plus the IsNet flag; the two
	// requests must be distinguishable so net and base columns can never
	// collapse into the same value stream.
	assert.Equal(t, "pts", baseReq.StatName)
	assert.Equal(t, "pts", netReq.StatName)
	assert.False(t, baseReq.IsNet)
	assert.True(t, netReq.IsNet)
	assert.NotEqual(t, baseReq.CacheKey(), netReq.CacheKey())
}

func TestNetAndBaseProduceDifferentValues(t *testing.T) {
	// A fake evaluator over a synthetic dataset: base returns the home
	// team's own average, net returns home minus away. Across the
	// dataset the two columns must diverge on nearly every row.
	homeAvg := map[string]float64{"BOS": 112, "LAL": 108, "DEN": 115, "MIA": 104}
	awayAvg := map[string]float64{"BOS": 110, "LAL": 111, "DEN": 109, "MIA": 102}

	ev := EvaluatorFunc(func(ctx context.Context, req ComponentRequest) (float64, error) {
		if req.IsNet {
			return homeAvg[req.HomeTeam] - awayAvg[req.AwayTeam], nil
		}
		return homeAvg[req.HomeTeam], nil
	})

	teams := []string{"BOS", "LAL", "DEN", "MIA"}
	identical := 0
	rows := 0
	for _, home := range teams {
		for _, away := range teams {
			if home == away {
				continue
			}
			game := GameContext{HomeTeam: home, AwayTeam: away, Season: "2024-25", Year: 2025, Month: 2, Day: 1}

			baseID, _ := Parse("pts|season|avg|diff")
			netID, _ := Parse("pts_net|season|avg|diff")

			baseVal, err := ev.EvaluateComponent(context.Background(), RequestForIdentifier(baseID, game))
			require.NoError(t, err)
			netVal, err := ev.EvaluateComponent(context.Background(), RequestForIdentifier(netID, game))
			require.NoError(t, err)

			rows++
			if baseVal == netVal {
				identical++
			}
		}
	}

	require.Greater(t, rows, 0)
	assert.Less(t, float64(identical)/float64(rows), 0.99, "net column must not mirror the base column")
}

func TestBreakerEvaluator_PassThrough(t *testing.T) {
	logger := logrus.New()
	inner := EvaluatorFunc(func(ctx context.Context, req ComponentRequest) (float64, error) {
		return 7.5, nil
	})
	breaker := NewBreakerEvaluator(inner, 5, 0, logger)

	value, err := breaker.EvaluateComponent(context.Background(), ComponentRequest{StatName: "pts"})
	require.NoError(t, err)
	assert.Equal(t, 7.5, value)
}

func TestBreakerEvaluator_OpensOnFailures(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	upstreamErr := errors.New("stat server down")
	inner := EvaluatorFunc(func(ctx context.Context, req ComponentRequest) (float64, error) {
		return math.NaN(), upstreamErr
	})
	breaker := NewBreakerEvaluator(inner, 3, 0, logger)

	var lastErr error
	for i := 0; i < 10; i++ {
		_, lastErr = breaker.EvaluateComponent(context.Background(), ComponentRequest{StatName: "pts"})
		require.Error(t, lastErr)
	}
	// After repeated failures the breaker rejects without calling
	// upstream; errors keep flowing either way, values stay NaN.
	value, err := breaker.EvaluateComponent(context.Background(), ComponentRequest{StatName: "pts"})
	assert.Error(t, err)
	assert.True(t, math.IsNaN(value))
}
