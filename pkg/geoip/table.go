package geoip

// TimezoneFor maps country (and, where a country spans several zones, region)
// identifiers to an IANA timezone. It is a pure lookup over static data and
// returns "" when the table has no entry. For multi-zone countries without a
// region match it falls back to the zone of the most populous area.
func TimezoneFor(countryCode, region string) string {
	if tz, ok := regionZones[countryCode][region]; ok {
		return tz
	}
	return countryZones[countryCode]
}

// countryZones covers single-zone countries plus a default zone for the
// multi-zone ones.
var countryZones = map[string]string{
	"AE": "Asia/Dubai",
	"AR": "America/Argentina/Buenos_Aires",
	"AT": "Europe/Vienna",
	"AU": "Australia/Sydney",
	"BD": "Asia/Dhaka",
	"BE": "Europe/Brussels",
	"BG": "Europe/Sofia",
	"BR": "America/Sao_Paulo",
	"CA": "America/Toronto",
	"CH": "Europe/Zurich",
	"CL": "America/Santiago",
	"CN": "Asia/Shanghai",
	"CO": "America/Bogota",
	"CZ": "Europe/Prague",
	"DE": "Europe/Berlin",
	"DK": "Europe/Copenhagen",
	"EG": "Africa/Cairo",
	"ES": "Europe/Madrid",
	"FI": "Europe/Helsinki",
	"FR": "Europe/Paris",
	"GB": "Europe/London",
	"GR": "Europe/Athens",
	"HK": "Asia/Hong_Kong",
	"HU": "Europe/Budapest",
	"ID": "Asia/Jakarta",
	"IE": "Europe/Dublin",
	"IL": "Asia/Jerusalem",
	"IN": "Asia/Kolkata",
	"IS": "Atlantic/Reykjavik",
	"IT": "Europe/Rome",
	"JP": "Asia/Tokyo",
	"KE": "Africa/Nairobi",
	"KR": "Asia/Seoul",
	"MA": "Africa/Casablanca",
	"MX": "America/Mexico_City",
	"MY": "Asia/Kuala_Lumpur",
	"NG": "Africa/Lagos",
	"NL": "Europe/Amsterdam",
	"NO": "Europe/Oslo",
	"NP": "Asia/Kathmandu",
	"NZ": "Pacific/Auckland",
	"PE": "America/Lima",
	"PH": "Asia/Manila",
	"PK": "Asia/Karachi",
	"PL": "Europe/Warsaw",
	"PT": "Europe/Lisbon",
	"RO": "Europe/Bucharest",
	"RU": "Europe/Moscow",
	"SA": "Asia/Riyadh",
	"SE": "Europe/Stockholm",
	"SG": "Asia/Singapore",
	"TH": "Asia/Bangkok",
	"TR": "Europe/Istanbul",
	"TW": "Asia/Taipei",
	"UA": "Europe/Kyiv",
	"US": "America/New_York",
	"VN": "Asia/Ho_Chi_Minh",
	"ZA": "Africa/Johannesburg",
}

// regionZones disambiguates the multi-zone countries we actually see traffic
// from, keyed by first-level subdivision code.
var regionZones = map[string]map[string]string{
	"US": {
		"AK": "America/Anchorage",
		"AZ": "America/Phoenix",
		"CA": "America/Los_Angeles",
		"CO": "America/Denver",
		"HI": "Pacific/Honolulu",
		"IL": "America/Chicago",
		"MN": "America/Chicago",
		"MT": "America/Denver",
		"NM": "America/Denver",
		"NV": "America/Los_Angeles",
		"OR": "America/Los_Angeles",
		"TX": "America/Chicago",
		"UT": "America/Denver",
		"WA": "America/Los_Angeles",
	},
	"CA": {
		"AB": "America/Edmonton",
		"BC": "America/Vancouver",
		"MB": "America/Winnipeg",
		"NS": "America/Halifax",
		"SK": "America/Regina",
	},
	"AU": {
		"NT":  "Australia/Darwin",
		"QLD": "Australia/Brisbane",
		"SA":  "Australia/Adelaide",
		"TAS": "Australia/Hobart",
		"WA":  "Australia/Perth",
	},
	"BR": {
		"AM": "America/Manaus",
		"AC": "America/Rio_Branco",
	},
	"RU": {
		"NVS": "Asia/Novosibirsk",
		"SVE": "Asia/Yekaterinburg",
		"PRI": "Asia/Vladivostok",
	},
	"MX": {
		"BCN": "America/Tijuana",
		"SON": "America/Hermosillo",
	},
}
