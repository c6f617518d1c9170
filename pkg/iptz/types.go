package iptz

import (
	"net/http"
	"time"
)

// Option configures a Resolver.
type Option func(*OptionHolder)

// WithProviders replaces the default provider registry. The list is copied
// and never mutated after construction.
func WithProviders(providers []Provider) Option {
	return func(o *OptionHolder) {
		o.providers = providers
	}
}

// WithHTTPClient sets the HTTP client used for provider requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OptionHolder) {
		o.httpClient = client
	}
}

// WithProviderTimeout sets the per-provider timeout for consensus mode.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.providerTimeout = d
	}
}

// WithTotalTimeout sets the absolute deadline for a consensus resolution.
func WithTotalTimeout(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.totalTimeout = d
	}
}

// WithFirstTimeout sets the per-provider timeout for first-success mode,
// which is configurable independently of the consensus timeout.
func WithFirstTimeout(d time.Duration) Option {
	return func(o *OptionHolder) {
		o.firstTimeout = d
	}
}

// OptionHolder holds configuration options.
type OptionHolder struct {
	providers       []Provider
	httpClient      *http.Client
	providerTimeout time.Duration
	totalTimeout    time.Duration
	firstTimeout    time.Duration
}

// Location holds the geographic attributes a provider reported alongside a
// timezone. All fields are optional; an empty string means the provider did
// not report that attribute.
type Location struct {
	CountryCode string `json:"country_code,omitempty"`
	Region      string `json:"region,omitempty"`
	City        string `json:"city,omitempty"`
	Latitude    string `json:"latitude,omitempty"`
	Longitude   string `json:"longitude,omitempty"`
}

// Result represents the outcome of one resolution call.
type Result struct {
	IP         string   `json:"ip"`
	Timezone   string   `json:"timezone"`
	Location   Location `json:"location"`
	Method     string   `json:"method"`
	Confidence float64  `json:"confidence"`
	Agreement  int      `json:"agreement"`
	Responded  int      `json:"responded"`
	Providers  int      `json:"providers"`
}

// outcome is the result of one provider attempt. An empty timezone marks the
// provider as absent for this call; reason is kept for logging only and never
// influences voting.
type outcome struct {
	provider string
	timezone string
	geo      Location
	reason   string
}

func (o outcome) observed() bool {
	return o.timezone != ""
}
