package iptz

import (
	"encoding/json"
	"strconv"
)

// Provider describes one remote geolocation source: a display name, a URL
// template with a single %s slot for the IP, and two pure extractors over the
// provider's raw JSON payload. Descriptors are built once at start-up and
// never mutated.
type Provider struct {
	Name     string
	URL      string
	Timezone func(raw []byte) string
	Geo      func(raw []byte) Location
}

// defaultProviders returns the built-in registry. Order matters only for
// logging; outcomes are consumed in completion order.
func defaultProviders() []Provider {
	return []Provider{
		{
			Name:     "ip-api.com",
			URL:      "http://ip-api.com/json/%s",
			Timezone: ipAPITimezone,
			Geo:      ipAPIGeo,
		},
		{
			Name:     "ipapi.co",
			URL:      "https://ipapi.co/%s/json/",
			Timezone: ipapiCoTimezone,
			Geo:      ipapiCoGeo,
		},
		{
			Name:     "ipwho.is",
			URL:      "https://ipwho.is/%s",
			Timezone: ipwhoisTimezone,
			Geo:      ipwhoisGeo,
		},
		{
			Name:     "ipinfo.io",
			URL:      "https://ipinfo.io/%s/json",
			Timezone: ipinfoTimezone,
			Geo:      ipinfoGeo,
		},
		{
			Name:     "geojs.io",
			URL:      "https://get.geojs.io/v1/ip/geo/%s.json",
			Timezone: geojsTimezone,
			Geo:      geojsGeo,
		},
	}
}

type ipAPIResponse struct {
	Status      string  `json:"status"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"regionName"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
}

func ipAPITimezone(raw []byte) string {
	var r ipAPIResponse
	if err := json.Unmarshal(raw, &r); err != nil || r.Status != "success" {
		return ""
	}
	return r.Timezone
}

func ipAPIGeo(raw []byte) Location {
	var r ipAPIResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Location{}
	}
	return Location{
		CountryCode: r.CountryCode,
		Region:      r.Region,
		City:        r.City,
		Latitude:    formatCoord(r.Lat),
		Longitude:   formatCoord(r.Lon),
	}
}

type ipapiCoResponse struct {
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    string  `json:"timezone"`
	Error       bool    `json:"error"`
}

func ipapiCoTimezone(raw []byte) string {
	var r ipapiCoResponse
	if err := json.Unmarshal(raw, &r); err != nil || r.Error {
		return ""
	}
	return r.Timezone
}

func ipapiCoGeo(raw []byte) Location {
	var r ipapiCoResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Location{}
	}
	return Location{
		CountryCode: r.CountryCode,
		Region:      r.Region,
		City:        r.City,
		Latitude:    formatCoord(r.Latitude),
		Longitude:   formatCoord(r.Longitude),
	}
}

type ipwhoisResponse struct {
	Success     bool    `json:"success"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Timezone    struct {
		ID string `json:"id"`
	} `json:"timezone"`
}

func ipwhoisTimezone(raw []byte) string {
	var r ipwhoisResponse
	if err := json.Unmarshal(raw, &r); err != nil || !r.Success {
		return ""
	}
	return r.Timezone.ID
}

func ipwhoisGeo(raw []byte) Location {
	var r ipwhoisResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Location{}
	}
	return Location{
		CountryCode: r.CountryCode,
		Region:      r.Region,
		City:        r.City,
		Latitude:    formatCoord(r.Latitude),
		Longitude:   formatCoord(r.Longitude),
	}
}

type ipinfoResponse struct {
	Country  string `json:"country"`
	Region   string `json:"region"`
	City     string `json:"city"`
	Loc      string `json:"loc"`
	Timezone string `json:"timezone"`
}

func ipinfoTimezone(raw []byte) string {
	var r ipinfoResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return ""
	}
	return r.Timezone
}

func ipinfoGeo(raw []byte) Location {
	var r ipinfoResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Location{}
	}
	loc := Location{
		CountryCode: r.Country,
		Region:      r.Region,
		City:        r.City,
	}
	// ipinfo packs coordinates as "lat,lon"
	for i := range r.Loc {
		if r.Loc[i] == ',' {
			loc.Latitude = r.Loc[:i]
			loc.Longitude = r.Loc[i+1:]
			break
		}
	}
	return loc
}

type geojsResponse struct {
	CountryCode string `json:"country_code"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	Timezone    string `json:"timezone"`
}

func geojsTimezone(raw []byte) string {
	var r geojsResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return ""
	}
	return r.Timezone
}

func geojsGeo(raw []byte) Location {
	var r geojsResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return Location{}
	}
	return Location{
		CountryCode: r.CountryCode,
		Region:      r.Region,
		City:        r.City,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
	}
}

func formatCoord(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
