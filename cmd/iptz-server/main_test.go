package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeGROOVE-dev/ipTZ/pkg/geoip"
	"github.com/codeGROOVE-dev/ipTZ/pkg/httpcache"
	"github.com/codeGROOVE-dev/ipTZ/pkg/iptz"
)

type fakeResolver struct {
	result *iptz.Result
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, ip string) (*iptz.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.IP = ip
	return &r, nil
}

func (f *fakeResolver) ResolveFirst(ctx context.Context, ip string) (*iptz.Result, error) {
	return f.Resolve(ctx, ip)
}

type fakeGeo struct {
	result *geoip.LookupResult
	err    error
}

func (f *fakeGeo) Geolocate(_ net.IP) (*geoip.LookupResult, error) {
	return f.result, f.err
}

func newTestServer(t *testing.T, r resolver, geo geoip.Geolocater) *server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &server{
		resolver:   r,
		geo:        geo,
		cache:      httpcache.New(100, time.Minute, logger),
		limiter:    newRateLimiter(30),
		logger:     logger,
		trustProxy: true,
	}
}

func londonResult() *iptz.Result {
	return &iptz.Result{
		Timezone:   "Europe/London",
		Location:   iptz.Location{CountryCode: "GB", City: "London"},
		Method:     "consensus",
		Confidence: 0.6,
		Agreement:  3,
		Responded:  5,
		Providers:  5,
	}
}

func TestHandleTimezone(t *testing.T) {
	s := newTestServer(t, &fakeResolver{result: londonResult()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timezone?ip=81.2.69.142", nil)
	rec := httptest.NewRecorder()
	s.handleTimezone(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body)
	}
	var resp timezoneResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Timezone != "Europe/London" {
		t.Errorf("timezone = %q, want Europe/London", resp.Timezone)
	}
	if resp.Flag != "\U0001F1EC\U0001F1E7" {
		t.Errorf("flag = %q, want the GB flag", resp.Flag)
	}
	if resp.Confidence != 0.6 {
		t.Errorf("confidence = %v, want 0.6", resp.Confidence)
	}
	if resp.UTCOffset == "" || resp.CurrentTime == "" {
		t.Errorf("clock fields not filled: offset=%q time=%q", resp.UTCOffset, resp.CurrentTime)
	}
}

func TestHandleTimezoneCaches(t *testing.T) {
	fake := &fakeResolver{result: londonResult()}
	s := newTestServer(t, fake, nil)

	for i, wantCache := range []string{"miss", "hit"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/timezone?ip=81.2.69.142", nil)
		rec := httptest.NewRecorder()
		s.handleTimezone(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		if got := rec.Header().Get("X-Cache"); got != wantCache {
			t.Errorf("request %d: X-Cache = %q, want %q", i, got, wantCache)
		}
	}
	if fake.calls != 1 {
		t.Errorf("resolver called %d times, want 1", fake.calls)
	}
}

func TestHandleTimezoneInvalidInput(t *testing.T) {
	s := newTestServer(t, &fakeResolver{result: londonResult()}, nil)

	for _, target := range []string{
		"/api/v1/timezone?ip=not-an-ip",
		"/api/v1/timezone?ip=81.2.69.142&mode=psychic",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		s.handleTimezone(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestHandleTimezoneAllProvidersFailed(t *testing.T) {
	s := newTestServer(t, &fakeResolver{err: fmt.Errorf("resolving: %w", iptz.ErrAllProvidersFailed)}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timezone?ip=81.2.69.142", nil)
	rec := httptest.NewRecorder()
	s.handleTimezone(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestHandleOwnAddressUsesLocalLookup(t *testing.T) {
	fake := &fakeResolver{result: londonResult()}
	geo := &fakeGeo{result: &geoip.LookupResult{
		CountryCode: "DE",
		City:        "Frankfurt",
		Timezone:    "Europe/Berlin",
	}}
	s := newTestServer(t, fake, geo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timezone", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	s.handleTimezone(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
	}
	var resp timezoneResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Source != "local" {
		t.Errorf("source = %q, want local", resp.Source)
	}
	if resp.IP != "203.0.113.7" {
		t.Errorf("ip = %q, want the first X-Forwarded-For hop", resp.IP)
	}
	if resp.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q, want Europe/Berlin", resp.Timezone)
	}
	if fake.calls != 0 {
		t.Errorf("remote resolver called %d times for a local lookup", fake.calls)
	}
}

func TestHandleOwnAddressFallsBackToProviders(t *testing.T) {
	fake := &fakeResolver{result: londonResult()}
	s := newTestServer(t, fake, &fakeGeo{err: geoip.ErrUnknown})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/timezone", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	s.handleTimezone(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body)
	}
	if fake.calls != 1 {
		t.Errorf("resolver called %d times, want 1 after local miss", fake.calls)
	}
}

func TestRateLimiter(t *testing.T) {
	s := newTestServer(t, &fakeResolver{result: londonResult()}, nil)
	s.limiter = newRateLimiter(2)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/timezone?ip=81.2.69.142", nil)
		req.RemoteAddr = "198.51.100.5:1234"
		rec := httptest.NewRecorder()
		s.handleTimezone(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"proxy trusted, single hop", true, "203.0.113.7", "10.0.0.1:555", "203.0.113.7"},
		{"proxy trusted, hop chain", true, "203.0.113.7, 10.0.0.2", "10.0.0.1:555", "203.0.113.7"},
		{"proxy trusted, garbage header", true, "banana", "10.0.0.1:555", "10.0.0.1"},
		{"proxy untrusted", false, "203.0.113.7", "10.0.0.1:555", "10.0.0.1"},
		{"no header", true, "", "192.0.2.4:80", "192.0.2.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &server{trustProxy: tt.trustProxy}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := s.clientIP(req); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q, want :8080", cfg.Listen)
	}
	if cfg.RateLimitPerMinute != 30 {
		t.Errorf("rate limit = %d, want 30", cfg.RateLimitPerMinute)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/iptz.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
