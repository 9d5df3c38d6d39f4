package features

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

// ComponentRequest is the contract with the external component
// evaluator: one time-windowed stat value for one matchup. Net features
// send the base stat name with IsNet set; the evaluator computes the
// home-minus-away differential under the stat's own semantics.
type ComponentRequest struct {
	StatName    string `json:"stat_name"`
	TimePeriod  string `json:"time_period"`
	CalcWeight  string `json:"calc_weight"`
	Perspective string `json:"perspective"`
	IsNet       bool   `json:"is_net"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	Season      string `json:"season"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
}

// CacheKey identifies the distinct evaluation tuple. Two requests with
// the same key must produce the same value.
func (r ComponentRequest) CacheKey() string {
	net := ""
	if r.IsNet {
		net = "|net"
	}
	return fmt.Sprintf("%s|%s|%s|%s%s@%s:%s:%s:%04d-%02d-%02d",
		r.StatName, r.TimePeriod, r.CalcWeight, r.Perspective, net,
		r.HomeTeam, r.AwayTeam, r.Season, r.Year, r.Month, r.Day)
}

// RequestForIdentifier builds the evaluator request for a parsed
// identifier and game. The _net suffix becomes the IsNet flag.
func RequestForIdentifier(id Identifier, game GameContext) ComponentRequest {
	return ComponentRequest{
		StatName:    id.BaseStatName(),
		TimePeriod:  id.TimePeriod,
		CalcWeight:  id.CalcWeight,
		Perspective: id.Perspective,
		IsNet:       id.IsNet(),
		HomeTeam:    game.HomeTeam,
		AwayTeam:    game.AwayTeam,
		Season:      game.Season,
		Year:        game.Year,
		Month:       game.Month,
		Day:         game.Day,
	}
}

// Evaluator computes component values. The engine never implements the
// aggregation itself; it propagates NaN rather than substituting zero.
type Evaluator interface {
	EvaluateComponent(ctx context.Context, req ComponentRequest) (float64, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, req ComponentRequest) (float64, error)

func (f EvaluatorFunc) EvaluateComponent(ctx context.Context, req ComponentRequest) (float64, error) {
	return f(ctx, req)
}

// MemoEvaluator caches component values per distinct evaluation tuple.
// Blend experimentation evaluates dozens of weight configurations
// against the same component set; each tuple must hit the underlying
// evaluator exactly once. Safe for concurrent use: in-flight requests
// for the same tuple coalesce onto one evaluator call.
type MemoEvaluator struct {
	inner Evaluator
	group singleflight.Group

	mu     sync.Mutex
	values map[string]memoEntry
	hits   uint64
	misses uint64
}

type memoEntry struct {
	value float64
	err   error
}

func NewMemoEvaluator(inner Evaluator) *MemoEvaluator {
	return &MemoEvaluator{
		inner:  inner,
		values: make(map[string]memoEntry),
	}
}

func (m *MemoEvaluator) EvaluateComponent(ctx context.Context, req ComponentRequest) (float64, error) {
	key := req.CacheKey()

	m.mu.Lock()
	if entry, ok := m.values[key]; ok {
		m.hits++
		m.mu.Unlock()
		return entry.value, entry.err
	}
	m.mu.Unlock()

	// Concurrent callers of the same tuple coalesce here; the memo check
	// repeats inside the flight so a caller arriving just after one
	// completes still reads the cached entry instead of re-evaluating.
	result, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if entry, ok := m.values[key]; ok {
			m.hits++
			m.mu.Unlock()
			return entry.value, entry.err
		}
		m.mu.Unlock()

		value, err := m.inner.EvaluateComponent(ctx, req)

		m.mu.Lock()
		// NaN and errors are cached too: a missing component stays
		// missing for every blend variant sharing the tuple.
		m.values[key] = memoEntry{value: value, err: err}
		m.misses++
		m.mu.Unlock()

		return value, err
	})

	return result.(float64), err
}

// Stats returns cache hit/miss counters.
func (m *MemoEvaluator) Stats() (hits, misses uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// BreakerEvaluator wraps an evaluator with circuit breaker protection so
// a failing upstream stats service sheds load instead of stalling every
// resolution worker.
type BreakerEvaluator struct {
	inner   Evaluator
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

func NewBreakerEvaluator(inner Evaluator, threshold int, timeout time.Duration, logger *logrus.Logger) *BreakerEvaluator {
	settings := gobreaker.Settings{
		Name:        "component-evaluator",
		MaxRequests: uint32(threshold),
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &BreakerEvaluator{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

func (b *BreakerEvaluator) EvaluateComponent(ctx context.Context, req ComponentRequest) (float64, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.EvaluateComponent(ctx, req)
	})
	if err != nil {
		return math.NaN(), err
	}
	return result.(float64), nil
}

// State returns the breaker state for health reporting.
func (b *BreakerEvaluator) State() gobreaker.State {
	return b.breaker.State()
}
