// Package mains resolves the power-line frequency removed by the EEG notch filter.
package mains

import (
	"fmt"
	"strconv"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// Notch settings accepted by Resolve besides a frequency in Hz
const (
	SettingAuto = "auto"
	SettingOff  = "off"
)

// DefaultFrequency is assumed when the timezone gives no country
const DefaultFrequency = 50

// Notch is a resolved mains notch setting
type Notch struct {
	Enabled   bool
	Frequency float64 // Hz
	Source    string  // off, flag, timezone or default
	Timezone  string  // Set when Source is timezone or default
}

// Resolve interprets a notch setting: "off", "auto" (detect from the system
// timezone) or an explicit frequency such as "50" or "60".
func Resolve(setting string) (Notch, error) {
	if strings.EqualFold(strings.TrimSpace(setting), SettingAuto) {
		timezone, err := tzlocal.RuntimeTZ()
		if err != nil {
			return Notch{Enabled: true, Frequency: DefaultFrequency, Source: "default"}, nil
		}
		return ResolveForTimezone(setting, timezone)
	}
	return ResolveForTimezone(setting, "")
}

// ResolveForTimezone is Resolve with the timezone supplied by the caller.
func ResolveForTimezone(setting, timezone string) (Notch, error) {
	s := strings.ToLower(strings.TrimSpace(setting))
	switch s {
	case "", SettingOff, "none", "false":
		return Notch{Source: SettingOff}, nil
	case SettingAuto:
		hz, known := FrequencyForTimezone(timezone)
		source := "timezone"
		if !known {
			source = "default"
		}
		return Notch{Enabled: true, Frequency: float64(hz), Source: source, Timezone: timezone}, nil
	}

	hz, err := strconv.ParseFloat(strings.TrimSuffix(s, "hz"), 64)
	if err != nil || !(hz > 0) {
		return Notch{}, fmt.Errorf("invalid notch setting %q: want off, auto or a frequency in Hz", setting)
	}
	return Notch{Enabled: true, Frequency: hz, Source: "flag"}, nil
}

// FrequencyForTimezone returns the mains frequency for an IANA timezone and
// whether the timezone mapped to a country. Unmapped zones get DefaultFrequency.
func FrequencyForTimezone(timezone string) (int, bool) {
	// UTC/GMT have no country association
	if timezone == "" || timezone == "UTC" || timezone == "GMT" || strings.HasPrefix(timezone, "Etc/") {
		return DefaultFrequency, false
	}

	tzMap, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return DefaultFrequency, false
	}

	country, err := tzMap.GetCountry(timezone)
	if err != nil {
		return DefaultFrequency, false
	}

	return frequencyForCountry(country), true
}

// frequencyForCountry returns the mains frequency for a country name.
// Returns 50Hz for unknown countries (more common globally).
func frequencyForCountry(country string) int {
	// Japan is split 50/60Hz by region; eastern Japan (Tokyo) is 50Hz
	if country == "Japan" {
		return 50
	}

	if hz60Countries[country] {
		return 60
	}
	return 50
}

// hz60Countries lists countries using 60Hz mains power.
// All other countries use 50Hz.
// Source: https://en.wikipedia.org/wiki/Mains_electricity_by_country
var hz60Countries = map[string]bool{
	// North America
	"United States": true,
	"Canada":        true,
	"Mexico":        true,

	// Central America
	"Belize":      true,
	"Costa Rica":  true,
	"El Salvador": true,
	"Guatemala":   true,
	"Honduras":    true,
	"Nicaragua":   true,
	"Panama":      true,

	// Caribbean
	"Bahamas":             true,
	"Barbados":            true,
	"Cayman Islands":      true,
	"Cuba":                true,
	"Dominican Republic":  true,
	"Haiti":               true,
	"Jamaica":             true,
	"Puerto Rico":         true,
	"Trinidad and Tobago": true,
	"U.S. Virgin Islands": true,

	// South America (partial, most use 50Hz)
	"Brazil":    true, // Note: Brazil has both 50Hz and 60Hz regions; 60Hz predominant
	"Colombia":  true,
	"Ecuador":   true,
	"Guyana":    true,
	"Peru":      true,
	"Suriname":  true,
	"Venezuela": true,

	// Asia (partial)
	"South Korea":  true,
	"Taiwan":       true,
	"Philippines":  true,
	"Saudi Arabia": true,

	// Pacific
	"Guam":             true,
	"American Samoa":   true,
	"Marshall Islands": true,
	"Micronesia":       true,
	"Palau":            true,
}
