package iptz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// maxResponseBytes bounds how much of a provider payload we are willing to
// read; the real payloads are well under a kilobyte.
const maxResponseBytes = 1 << 20

// fetch performs exactly one attempt against one provider, bounded by
// timeout. Every failure mode collapses into an absent outcome; the reason is
// logged at debug level and never reaches the caller. Retry policy, if any,
// belongs to a higher layer.
func (r *Resolver) fetch(ctx context.Context, provider Provider, ip string, timeout time.Duration) outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	absent := func(reason string) outcome {
		r.logger.Debug("provider lookup failed",
			"provider", provider.Name,
			"ip", ip,
			"reason", reason)
		return outcome{provider: provider.Name, reason: reason}
	}

	requestURL := fmt.Sprintf(provider.URL, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return absent("building request: " + err.Error())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ipTZ/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return absent("timeout")
		}
		return absent("network: " + err.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			r.logger.Debug("failed to close response body", "provider", provider.Name, "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return absent(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return absent("reading body: " + err.Error())
	}

	tz := provider.Timezone(body)
	if tz == "" {
		return absent("no timezone in payload")
	}

	r.logger.Debug("provider answered",
		"provider", provider.Name,
		"ip", ip,
		"timezone", tz)
	return outcome{
		provider: provider.Name,
		timezone: tz,
		geo:      provider.Geo(body),
	}
}
