package iptz

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchCollapsesFailuresToAbsent(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "slow down", http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"timezone":`)
			},
		},
		{
			name: "missing timezone field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				fmt.Fprint(w, `{"country_code":"GB","city":"London"}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			r := NewWithLogger(testLogger())
			provider := Provider{
				Name:     "fake",
				URL:      server.URL + "/%s",
				Timezone: geojsTimezone,
				Geo:      geojsGeo,
			}

			oc := r.fetch(context.Background(), provider, "81.2.69.142", time.Second)
			if oc.observed() {
				t.Errorf("outcome observed with timezone %q, want absent", oc.timezone)
			}
			if oc.reason == "" {
				t.Error("absent outcome carries no diagnostic reason")
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-req.Context().Done():
			return
		}
		fmt.Fprint(w, `{"timezone":"Europe/London"}`)
	}))
	defer server.Close()

	r := NewWithLogger(testLogger())
	provider := Provider{
		Name:     "sleepy",
		URL:      server.URL + "/%s",
		Timezone: geojsTimezone,
		Geo:      geojsGeo,
	}

	start := time.Now()
	oc := r.fetch(context.Background(), provider, "81.2.69.142", 100*time.Millisecond)
	if oc.observed() {
		t.Errorf("outcome observed after timeout, timezone %q", oc.timezone)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("fetch took %v, per-provider timeout not enforced", elapsed)
	}
}

func TestFetchSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		fmt.Fprint(w, `{"timezone":"Europe/Madrid","country_code":"ES","city":"Madrid"}`)
	}))
	defer server.Close()

	r := NewWithLogger(testLogger())
	provider := Provider{
		Name:     "fake",
		URL:      server.URL + "/%s",
		Timezone: geojsTimezone,
		Geo:      geojsGeo,
	}

	oc := r.fetch(context.Background(), provider, "185.13.90.70", time.Second)
	if !oc.observed() {
		t.Fatalf("outcome absent (%s), want observed", oc.reason)
	}
	if oc.timezone != "Europe/Madrid" {
		t.Errorf("timezone = %q, want Europe/Madrid", oc.timezone)
	}
	if oc.geo.City != "Madrid" || oc.geo.CountryCode != "ES" {
		t.Errorf("geo = %+v, want Madrid/ES", oc.geo)
	}
	if gotPath != "/185.13.90.70" {
		t.Errorf("request path = %q, want the key substituted", gotPath)
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	r := NewWithLogger(testLogger())
	provider := Provider{
		Name:     "unreachable",
		URL:      "http://127.0.0.1:1/%s",
		Timezone: geojsTimezone,
		Geo:      geojsGeo,
	}

	oc := r.fetch(context.Background(), provider, "81.2.69.142", time.Second)
	if oc.observed() {
		t.Error("outcome observed from an unreachable provider")
	}
}
