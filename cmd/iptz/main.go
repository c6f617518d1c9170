// Package main implements the iptz CLI for IP address timezone resolution.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/ipTZ/pkg/countryflag"
	"github.com/codeGROOVE-dev/ipTZ/pkg/iptz"
	"github.com/codeGROOVE-dev/ipTZ/pkg/tzinfo"
	"github.com/codeGROOVE-dev/retry"
	"github.com/fatih/color"
)

var (
	mode            = flag.String("mode", "consensus", "Resolution mode: consensus or first")
	providerTimeout = flag.Duration("provider-timeout", iptz.DefaultProviderTimeout, "Per-provider timeout in consensus mode")
	totalTimeout    = flag.Duration("total-timeout", iptz.DefaultTotalTimeout, "Total deadline for a consensus resolution")
	firstTimeout    = flag.Duration("first-timeout", iptz.DefaultFirstTimeout, "Per-provider timeout in first-success mode")
	retries         = flag.Int("retries", 0, "Retry the whole resolution this many times on failure")
	verbose         = flag.Bool("verbose", false, "Enable verbose logging")
	version         = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("ipTZ CLI v1.0.0")
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <ip-address>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	ip := args[0]

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	resolver := iptz.NewWithLogger(logger,
		iptz.WithProviderTimeout(*providerTimeout),
		iptz.WithTotalTimeout(*totalTimeout),
		iptz.WithFirstTimeout(*firstTimeout),
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := resolve(ctx, resolver, ip, logger)
	if err != nil {
		logger.Error("resolution failed", "ip", ip, "error", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	printResult(result)
}

// resolve runs one resolution, retrying the whole call on failure when asked
// to. The core gives each provider exactly one attempt per call; retry policy
// lives here, in the caller.
func resolve(ctx context.Context, resolver *iptz.Resolver, ip string, logger *slog.Logger) (*iptz.Result, error) {
	attempts := *retries + 1
	if attempts < 1 {
		attempts = 1
	}
	var result *iptz.Result

	err := retry.Do(
		func() error {
			var err error
			switch *mode {
			case "consensus":
				result, err = resolver.Resolve(ctx, ip)
			case "first":
				result, err = resolver.ResolveFirst(ctx, ip)
			default:
				return retry.Unrecoverable(fmt.Errorf("unknown mode %q", *mode))
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("retrying resolution", "attempt", n+1, "ip", ip, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func printResult(result *iptz.Result) {
	fmt.Printf("\n🌍 IP Address:    %s\n", result.IP)
	fmt.Println(strings.Repeat("─", 50))

	tzLine := result.Timezone
	if offset, err := tzinfo.Offset(result.Timezone); err == nil {
		if local, err := tzinfo.LocalTime(result.Timezone, time.Now()); err == nil {
			tzLine = fmt.Sprintf("%s (%s, now %s)", result.Timezone, offset, local)
		} else {
			tzLine = fmt.Sprintf("%s (%s)", result.Timezone, offset)
		}
	}
	fmt.Printf("🕐 Timezone:      %s\n", tzLine)

	if locationStr := formatLocation(result.Location); locationStr != "" {
		fmt.Printf("📍 Location:      %s\n", locationStr)
	}

	confidence := color.New(color.FgRed)
	switch {
	case result.Confidence >= 0.75:
		confidence = color.New(color.FgGreen)
	case result.Confidence >= 0.5:
		confidence = color.New(color.FgYellow)
	}

	switch result.Method {
	case "consensus":
		fmt.Printf("✨ Consensus:     %d/%d providers agree (%s), %d responded\n",
			result.Agreement,
			result.Providers,
			confidence.Sprintf("%.0f%% confidence", result.Confidence*100),
			result.Responded)
	default:
		fmt.Printf("✨ First answer:  single source of %d (%s)\n",
			result.Providers,
			confidence.Sprintf("%.0f%% confidence", result.Confidence*100))
	}
	fmt.Println()
}

func formatLocation(loc iptz.Location) string {
	var parts []string
	if loc.City != "" {
		parts = append(parts, loc.City)
	}
	if loc.Region != "" && loc.Region != loc.City {
		parts = append(parts, loc.Region)
	}
	s := strings.Join(parts, ", ")

	if flagEmoji := countryflag.Emoji(loc.CountryCode); flagEmoji != "" {
		if s == "" {
			return fmt.Sprintf("%s %s", flagEmoji, loc.CountryCode)
		}
		return fmt.Sprintf("%s %s", flagEmoji, s)
	}
	return s
}
