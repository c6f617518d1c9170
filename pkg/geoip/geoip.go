// Package geoip resolves a timezone and rough location for an IP address
// from locally available data, without touching any remote provider. The
// server uses it for the caller's own address, where a fast local answer
// beats fanning out to the network.
package geoip

import (
	"errors"
	"net"
)

// LookupResult is the data handed back to the caller.
type LookupResult struct {
	CountryCode string
	Region      string
	City        string
	Timezone    string
}

// ErrUnknown marks an address the local data cannot place.
var ErrUnknown = errors.New("unknown IP address")

// Geolocater is the local lookup interface.
type Geolocater interface {
	Geolocate(ip net.IP) (*LookupResult, error)
}
