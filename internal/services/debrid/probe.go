package debrid

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/Luca1234105/torren/internal/metrics"
	"github.com/Luca1234105/torren/internal/models"
)

// AvailabilitySource performs the raw batched availability request for one service.
type AvailabilitySource interface {
	Name() string
	FetchCached(ctx context.Context, hashes []models.ContentHash, credential string) (HashSet, error)
}

// BreakerConfig holds circuit breaker settings for a prober.
type BreakerConfig struct {
	MaxFailures  uint
	ResetTimeout time.Duration
}

// DefaultBreakerConfig returns the default circuit breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:  5,
		ResetTimeout: 30 * time.Second,
	}
}

// BatchProber wraps an AvailabilitySource with input guards, a circuit
// breaker and output sanitizing. Probe results are advisory: every failure
// degrades to an empty set.
type BatchProber struct {
	source   AvailabilitySource
	executor failsafe.Executor[HashSet]
	cb       circuitbreaker.CircuitBreaker[HashSet]
	logger   *slog.Logger
}

// NewBatchProber creates a prober over source.
func NewBatchProber(source AvailabilitySource, cfg BreakerConfig, logger *slog.Logger) *BatchProber {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "prober", "service", source.Name())

	cb := circuitbreaker.NewBuilder[HashSet]().
		WithFailureThreshold(cfg.MaxFailures).
		WithSuccessThreshold(1).
		WithDelay(cfg.ResetTimeout).
		HandleIf(func(_ HashSet, err error) bool {
			return IsServiceFailure(err)
		}).
		OnOpen(func(e circuitbreaker.StateChangedEvent) {
			logger.Warn("circuit breaker opened")
		}).
		OnHalfOpen(func(e circuitbreaker.StateChangedEvent) {
			logger.Info("circuit breaker half-open, probing")
		}).
		OnClose(func(e circuitbreaker.StateChangedEvent) {
			logger.Info("circuit breaker closed")
		}).
		Build()

	return &BatchProber{
		source:   source,
		executor: failsafe.With[HashSet](cb),
		cb:       cb,
		logger:   logger,
	}
}

// Name returns the wrapped service name
func (p *BatchProber) Name() string {
	return p.source.Name()
}

// ProbeBatch returns the subset of hashes the service reports cached.
// Empty input or credential returns an empty set without any request.
func (p *BatchProber) ProbeBatch(ctx context.Context, hashes []models.ContentHash, credential string) HashSet {
	input := NewHashSet()
	for _, h := range hashes {
		if canonical, ok := models.ParseContentHash(h.String()); ok {
			input[canonical] = struct{}{}
		}
	}
	if len(input) == 0 || credential == "" {
		return HashSet{}
	}

	service := p.source.Name()
	result, err := p.executor.WithContext(ctx).Get(func() (HashSet, error) {
		return p.source.FetchCached(ctx, input.Sorted(), credential)
	})
	if err != nil {
		label := metrics.ResultFailure
		if errors.Is(err, circuitbreaker.ErrOpen) {
			label = metrics.ResultShortCircuit
		}
		metrics.ProbeRequestsTotal.WithLabelValues(service, label).Inc()
		p.logger.Warn("availability probe failed",
			"hashes", len(input),
			"fingerprint", Fingerprint(credential),
			"error", err)
		return HashSet{}
	}

	cached := make(HashSet, len(result))
	for h := range result {
		if canonical, ok := models.ParseContentHash(h.String()); ok && input.Has(canonical) {
			cached[canonical] = struct{}{}
		}
	}

	metrics.ProbeRequestsTotal.WithLabelValues(service, metrics.ResultSuccess).Inc()
	metrics.ProbeCachedHashesTotal.WithLabelValues(service).Add(float64(len(cached)))
	p.logger.Info("checked availability",
		"total", len(input),
		"cached", len(cached))

	return cached
}

// BreakerState returns the circuit breaker state for health reporting.
func (p *BatchProber) BreakerState() string {
	switch {
	case p.cb.IsClosed():
		return "closed"
	case p.cb.IsOpen():
		return "open"
	case p.cb.IsHalfOpen():
		return "half-open"
	default:
		return "unknown"
	}
}
