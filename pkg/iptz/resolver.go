// Package iptz resolves the timezone for an IP address by querying several
// independent geolocation providers concurrently and combining their answers
// into a single result with a confidence score.
package iptz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// ErrAllProvidersFailed is returned when no registered provider produced a
// usable timezone before the resolution ended.
var ErrAllProvidersFailed = errors.New("all providers failed")

// Default timeouts. The first-success timeout is deliberately looser than the
// consensus per-provider timeout; first mode has no second chance.
const (
	DefaultProviderTimeout = 4 * time.Second
	DefaultTotalTimeout    = 8 * time.Second
	DefaultFirstTimeout    = 8 * time.Second
)

// Resolver fans IP lookups out to a fixed provider registry. It is safe for
// concurrent use; each resolution call keeps all of its state on the stack.
type Resolver struct {
	providers       []Provider
	httpClient      *http.Client
	logger          *slog.Logger
	providerTimeout time.Duration
	totalTimeout    time.Duration
	firstTimeout    time.Duration
}

func New(opts ...Option) *Resolver {
	return NewWithLogger(slog.Default(), opts...)
}

func NewWithLogger(logger *slog.Logger, opts ...Option) *Resolver {
	optHolder := &OptionHolder{}
	for _, opt := range opts {
		opt(optHolder)
	}

	providers := optHolder.providers
	if providers == nil {
		providers = defaultProviders()
	}
	httpClient := optHolder.httpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	providerTimeout := optHolder.providerTimeout
	if providerTimeout <= 0 {
		providerTimeout = DefaultProviderTimeout
	}
	totalTimeout := optHolder.totalTimeout
	if totalTimeout <= 0 {
		totalTimeout = DefaultTotalTimeout
	}
	firstTimeout := optHolder.firstTimeout
	if firstTimeout <= 0 {
		firstTimeout = DefaultFirstTimeout
	}

	return &Resolver{
		providers:       providers,
		httpClient:      httpClient,
		logger:          logger,
		providerTimeout: providerTimeout,
		totalTimeout:    totalTimeout,
		firstTimeout:    firstTimeout,
	}
}

// Providers reports how many providers are registered.
func (r *Resolver) Providers() int {
	return len(r.providers)
}

// Resolve queries every provider and tallies agreement on the reported
// timezone. It returns as soon as a majority of the registered providers
// agree; otherwise it waits for the stream to exhaust or the total deadline
// to fire and picks the plurality winner among the outcomes seen so far.
// Outcomes landing after the deadline are never merged into the tally.
func (r *Resolver) Resolve(ctx context.Context, ip string) (*Result, error) {
	if err := validateIP(ip); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.totalTimeout)
	defer cancel()

	r.logger.Info("resolving timezone", "ip", ip, "mode", "consensus", "providers", len(r.providers))

	start := time.Now()
	outcomes := r.fanOut(ctx, ip, r.providerTimeout)
	t := newTally(len(r.providers))

	for {
		select {
		case <-ctx.Done():
			// Deadline fired: the tally is frozen as of now. Stragglers
			// park in the buffered channel and are never read.
			return r.decide(t, ip, start, "deadline")
		case oc, ok := <-outcomes:
			if !ok {
				return r.decide(t, ip, start, "exhausted")
			}
			if result, done := t.add(oc); done {
				result.IP = ip
				r.logger.Info("majority reached",
					"ip", ip,
					"timezone", result.Timezone,
					"agreement", result.Agreement,
					"responded", result.Responded,
					"duration", time.Since(start))
				return result, nil
			}
		}
	}
}

// decide applies the plurality fallback once no further outcomes will be
// consumed.
func (r *Resolver) decide(tl *tally, ip string, start time.Time, cause string) (*Result, error) {
	result := tl.finish()
	if result == nil {
		r.logger.Warn("no provider produced a timezone",
			"ip", ip,
			"responded", tl.responded,
			"cause", cause,
			"duration", time.Since(start))
		return nil, fmt.Errorf("resolving %s: %w", ip, ErrAllProvidersFailed)
	}
	result.IP = ip
	r.logger.Info("plurality decision",
		"ip", ip,
		"timezone", result.Timezone,
		"agreement", result.Agreement,
		"responded", result.Responded,
		"cause", cause,
		"duration", time.Since(start))
	return result, nil
}

// ResolveFirst returns the earliest successful provider answer, ignoring all
// others including ones still in flight. It trades confidence for latency:
// no tally, no majority check, single-source trust.
func (r *Resolver) ResolveFirst(ctx context.Context, ip string) (*Result, error) {
	if err := validateIP(ip); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Info("resolving timezone", "ip", ip, "mode", "first", "providers", len(r.providers))

	start := time.Now()
	for oc := range r.fanOut(ctx, ip, r.firstTimeout) {
		if !oc.observed() {
			continue
		}
		r.logger.Info("first provider answered",
			"ip", ip,
			"provider", oc.provider,
			"timezone", oc.timezone,
			"duration", time.Since(start))
		return &Result{
			IP:         ip,
			Timezone:   oc.timezone,
			Location:   oc.geo,
			Method:     "first",
			Confidence: 1 / float64(len(r.providers)),
			Agreement:  1,
			Responded:  1,
			Providers:  len(r.providers),
		}, nil
	}

	r.logger.Warn("no provider produced a timezone", "ip", ip, "duration", time.Since(start))
	return nil, fmt.Errorf("resolving %s: %w", ip, ErrAllProvidersFailed)
}

func validateIP(ip string) error {
	if ip == "" {
		return errors.New("ip cannot be empty")
	}
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address %q", ip)
	}
	return nil
}
