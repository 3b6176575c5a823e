package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"github.com/timmy/recipeclip/internal/config"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// guard bounds one provider's calls with a deadline, a non-blocking rate
// limit and a circuit breaker. It never retries.
type guard[T any] struct {
	name    string
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[T]
}

func newGuard[T any](name string, timeout time.Duration, bc config.BreakerConfig, rl config.RateLimitConfig) *guard[T] {
	threshold := bc.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	openFor := bc.OpenTimeout
	if openFor <= 0 {
		openFor = 30 * time.Second
	}

	g := &guard[T]{name: name, timeout: timeout}
	if rl.RPS > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rl.RPS), burst)
	}

	g.breaker = gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// A caller hanging up says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			available := 1.0
			if to == gobreaker.StateOpen {
				available = 0
			}
			metrics.ProviderAvailable.WithLabelValues(name).Set(available)
			logger.With(logger.Fields{logger.FieldProvider: name}).
				Warn(context.Background(), "Circuit breaker %s -> %s", from, to)
		},
	})
	metrics.ProviderAvailable.WithLabelValues(name).Set(1)
	return g
}

// do runs fn under the guard and classifies its outcome.
func (g *guard[T]) do(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, Status, string, time.Duration) {
	start := time.Now()
	var zero T

	if g.limiter != nil && !g.limiter.Allow() {
		return zero, StatusRejected, errRateLimited.Error(), time.Since(start)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.breaker.Execute(func() (T, error) {
		return fn(callCtx)
	})
	elapsed := time.Since(start)
	if err != nil {
		return zero, classify(err), err.Error(), elapsed
	}
	return out, StatusOK, "", elapsed
}

// observe records metrics and a log line for a finished call.
func observe[T any](ctx context.Context, res Result[T]) Result[T] {
	metrics.ProviderRequestsTotal.WithLabelValues(res.Provider, string(res.Status)).Inc()
	metrics.ProviderRequestDuration.WithLabelValues(res.Provider).Observe(res.Elapsed.Seconds())

	entry := logger.With(logger.Fields{logger.FieldProvider: res.Provider}).
		WithStatus(string(res.Status)).
		WithDuration(res.Elapsed).
		WithCount(len(res.Items))
	switch res.Status {
	case StatusOK, StatusEmpty, StatusDisabled:
		entry.Debug(ctx, "Provider call finished")
	default:
		entry.Warn(ctx, "Provider call degraded: %s", res.Reason)
	}
	return res
}

// newHTTPClient builds a traced resty client for one provider.
func newHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	client := resty.New()
	if baseURL != "" {
		client.SetBaseURL(baseURL)
	}
	client.SetTimeout(timeout)
	client.SetTransport(otelhttp.NewTransport(http.DefaultTransport))
	client.SetHeader("User-Agent", "Mozilla/5.0")
	return client
}
