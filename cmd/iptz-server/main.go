// Package main implements the ipTZ web server: an HTTP API that resolves the
// timezone and local time for an IP address via multi-provider consensus,
// with a local-database fallback for the caller's own address.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/ipTZ/pkg/countryflag"
	"github.com/codeGROOVE-dev/ipTZ/pkg/geoip"
	"github.com/codeGROOVE-dev/ipTZ/pkg/httpcache"
	"github.com/codeGROOVE-dev/ipTZ/pkg/iptz"
	"github.com/codeGROOVE-dev/ipTZ/pkg/tzinfo"
)

var (
	listen     = flag.String("listen", "", "host:port for the API (overrides config file)")
	configFile = flag.String("config", "", "Path to TOML config file (or set IPTZ_CONFIG)")
	mmdbPath   = flag.String("mmdb", "", "Path to a GeoLite2 City database (overrides config file)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Show version")
)

type rateLimiter struct {
	requests map[string][]time.Time
	limit    int
	mu       sync.Mutex
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	var valid []time.Time
	for _, t := range rl.requests[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.limit {
		rl.requests[ip] = valid
		return false
	}

	rl.requests[ip] = append(valid, now)
	return true
}

// resolver is the slice of the iptz API the server needs; tests swap in a
// fake.
type resolver interface {
	Resolve(ctx context.Context, ip string) (*iptz.Result, error)
	ResolveFirst(ctx context.Context, ip string) (*iptz.Result, error)
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("ipTZ Server v1.0.0")
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *configFile == "" {
		*configFile = os.Getenv("IPTZ_CONFIG")
	}
	cfg, err := LoadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *mmdbPath != "" {
		cfg.MaxMindPath = *mmdbPath
	}

	logger.Info("server configuration",
		"listen", cfg.Listen,
		"verbose", *verbose,
		"cache_ttl_minutes", cfg.CacheTTLMinutes,
		"rate_limit_per_minute", cfg.RateLimitPerMinute,
		"trust_proxy_header", cfg.TrustProxyHeader,
		"has_maxmind", cfg.MaxMindPath != "")

	var geo geoip.Geolocater
	if cfg.MaxMindPath != "" {
		maxmind, err := geoip.OpenMaxMind(cfg.MaxMindPath)
		if err != nil {
			logger.Error("failed to open maxmind database", "path", cfg.MaxMindPath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := maxmind.Close(); err != nil {
				logger.Error("failed to close maxmind database", "error", err)
			}
		}()
		geo = maxmind
	}

	server := &server{
		resolver:   iptz.NewWithLogger(logger),
		geo:        geo,
		cache:      httpcache.New(cfg.CacheCapacity, time.Duration(cfg.CacheTTLMinutes)*time.Minute, logger),
		limiter:    newRateLimiter(cfg.RateLimitPerMinute),
		logger:     logger,
		trustProxy: cfg.TrustProxyHeader,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/timezone", server.handleTimezone)
	mux.HandleFunc("GET /healthz", server.handleHealth)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("server starting", "listen", cfg.Listen)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

type server struct {
	resolver   resolver
	geo        geoip.Geolocater
	cache      *httpcache.ResponseCache
	limiter    *rateLimiter
	logger     *slog.Logger
	trustProxy bool
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		}

		handler.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"cached": s.cache.Len(),
	}); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}

// timezoneResponse is the JSON body assembled for the caller.
type timezoneResponse struct {
	IP          string  `json:"ip"`
	Timezone    string  `json:"timezone"`
	UTCOffset   string  `json:"utc_offset,omitempty"`
	CurrentTime string  `json:"current_time,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    string  `json:"latitude,omitempty"`
	Longitude   string  `json:"longitude,omitempty"`
	Flag        string  `json:"flag,omitempty"`
	Source      string  `json:"source"`
	Confidence  float64 `json:"confidence,omitempty"`
	Agreement   int     `json:"agreement,omitempty"`
	Responded   int     `json:"responded,omitempty"`
	Providers   int     `json:"providers,omitempty"`
}

func (s *server) handleTimezone(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := w.Header().Get("X-Request-ID")
	callerIP := s.clientIP(r)

	if !s.limiter.allow(callerIP) {
		s.logger.Warn("rate limit exceeded", "request_id", requestID, "client_ip", callerIP)
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	ip := strings.TrimSpace(r.URL.Query().Get("ip"))
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "consensus"
	}
	if mode != "consensus" && mode != "first" {
		http.Error(w, "Invalid mode", http.StatusBadRequest)
		return
	}

	// No explicit subject: the caller is asking about its own address, which
	// is answered from local data instead of the remote providers.
	if ip == "" {
		s.handleOwnAddress(w, r, callerIP, mode, requestID, start)
		return
	}

	if net.ParseIP(ip) == nil {
		s.logger.Warn("invalid ip", "request_id", requestID, "ip", ip)
		http.Error(w, "Invalid IP address", http.StatusBadRequest)
		return
	}

	s.resolveAndRespond(w, r, ip, mode, requestID, start)
}

func (s *server) resolveAndRespond(w http.ResponseWriter, r *http.Request, ip, mode, requestID string, start time.Time) {
	cacheKey := mode + ":" + ip
	if data, found := s.cache.Get(cacheKey); found {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "hit")
		if _, err := w.Write(data); err != nil {
			s.logger.Error("failed to write cached response", "request_id", requestID, "error", err)
		}
		return
	}

	var result *iptz.Result
	var err error
	if mode == "first" {
		result, err = s.resolver.ResolveFirst(r.Context(), ip)
	} else {
		result, err = s.resolver.Resolve(r.Context(), ip)
	}
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Resolution failed"
		switch {
		case errors.Is(err, iptz.ErrAllProvidersFailed):
			status = http.StatusBadGateway
			msg = "No provider could resolve this address"
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
			msg = "Resolution took too long"
		case errors.Is(err, context.Canceled):
			status = http.StatusRequestTimeout
			msg = "Request was canceled"
		}
		s.logger.Error("resolution failed",
			"request_id", requestID,
			"ip", ip,
			"mode", mode,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		http.Error(w, msg, status)
		return
	}

	resp := timezoneResponse{
		IP:          result.IP,
		Timezone:    result.Timezone,
		CountryCode: result.Location.CountryCode,
		Region:      result.Location.Region,
		City:        result.Location.City,
		Latitude:    result.Location.Latitude,
		Longitude:   result.Location.Longitude,
		Flag:        countryflag.Emoji(result.Location.CountryCode),
		Source:      result.Method,
		Confidence:  result.Confidence,
		Agreement:   result.Agreement,
		Responded:   result.Responded,
		Providers:   result.Providers,
	}
	s.fillClock(&resp)

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("JSON encoding failed", "request_id", requestID, "error", err)
		http.Error(w, "Encoding failed", http.StatusInternalServerError)
		return
	}

	s.cache.Set(cacheKey, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("failed to write response", "request_id", requestID, "error", err)
		return
	}
	s.logger.Info("resolution completed",
		"request_id", requestID,
		"ip", ip,
		"mode", mode,
		"timezone", result.Timezone,
		"confidence", result.Confidence,
		"duration_ms", time.Since(start).Milliseconds())
}

// handleOwnAddress answers for the caller's own address from the local
// database, falling back to the remote providers when no local data is
// available.
func (s *server) handleOwnAddress(w http.ResponseWriter, r *http.Request, callerIP, mode, requestID string, start time.Time) {
	parsed := net.ParseIP(callerIP)
	if parsed == nil {
		http.Error(w, "Could not determine caller address", http.StatusBadRequest)
		return
	}

	if s.geo != nil {
		if lookup, err := s.geo.Geolocate(parsed); err == nil {
			resp := timezoneResponse{
				IP:          callerIP,
				Timezone:    lookup.Timezone,
				CountryCode: lookup.CountryCode,
				Region:      lookup.Region,
				City:        lookup.City,
				Flag:        countryflag.Emoji(lookup.CountryCode),
				Source:      "local",
			}
			s.fillClock(&resp)
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
				s.logger.Error("failed to encode response", "request_id", requestID, "error", err)
			}
			return
		}
		s.logger.Debug("local lookup missed, falling back to providers",
			"request_id", requestID, "client_ip", callerIP)
	}

	s.resolveAndRespond(w, r, callerIP, mode, requestID, start)
}

func (s *server) fillClock(resp *timezoneResponse) {
	now := time.Now()
	if offset, err := tzinfo.OffsetAt(resp.Timezone, now); err == nil {
		resp.UTCOffset = offset
	}
	if local, err := tzinfo.LocalTime(resp.Timezone, now); err == nil {
		resp.CurrentTime = local
	}
}

// clientIP extracts the caller's address, preferring the first hop of
// X-Forwarded-For when the upstream proxy is trusted to set it.
func (s *server) clientIP(r *http.Request) string {
	if s.trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first := fwd
			if i := strings.IndexByte(fwd, ','); i >= 0 {
				first = fwd[:i]
			}
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
