package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// MaxMind reads a GeoLite2/GeoIP2 City database from disk. Records missing a
// time_zone field are backfilled from the static country table, so a
// country-only database still yields an answer for single-zone countries.
type MaxMind struct {
	reader *maxminddb.Reader
}

type mmRecord struct {
	Country struct {
		Code string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Subdivisions []struct {
		Code string `maxminddb:"iso_code"`
	} `maxminddb:"subdivisions"`
	Location struct {
		Timezone string `maxminddb:"time_zone"`
	} `maxminddb:"location"`
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening maxmind database %q: %w", path, err)
	}
	return &MaxMind{reader: reader}, nil
}

func (m *MaxMind) Geolocate(ip net.IP) (*LookupResult, error) {
	var record mmRecord
	if err := m.reader.Lookup(ip, &record); err != nil {
		return nil, fmt.Errorf("maxmind lookup: %w", err)
	}

	result := &LookupResult{
		CountryCode: record.Country.Code,
		City:        record.City.Names["en"],
		Timezone:    record.Location.Timezone,
	}
	if len(record.Subdivisions) > 0 {
		result.Region = record.Subdivisions[0].Code
	}
	if result.Timezone == "" {
		result.Timezone = TimezoneFor(result.CountryCode, result.Region)
	}
	if result.Timezone == "" {
		return nil, ErrUnknown
	}
	return result, nil
}

func (m *MaxMind) Close() error {
	return m.reader.Close()
}
