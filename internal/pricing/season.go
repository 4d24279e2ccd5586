package pricing

import (
	"strings"
	"time"
)

var monthAliases = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

// MonthName is the canonical, locale-invariant month key ("january").
func MonthName(m time.Month) string {
	return strings.ToLower(m.String())
}

// NormalizeMonth maps an English or Spanish month token to its canonical key.
func NormalizeMonth(token string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return "", false
	}
	for m := time.January; m <= time.December; m++ {
		if MonthName(m) == t {
			return t, true
		}
	}
	if m, ok := monthAliases[t]; ok {
		return MonthName(m), true
	}
	return "", false
}

// SeasonMonths splits a season's month list into canonical keys, skipping unknown tokens.
func SeasonMonths(months string) []string {
	var out []string
	for _, token := range strings.Split(months, ",") {
		if name, ok := NormalizeMonth(token); ok {
			out = append(out, name)
		}
	}
	return out
}

// ResolveSeason returns the first season whose month list contains the date's month.
func ResolveSeason(date time.Time, seasons []Season) (Season, bool) {
	month := MonthName(date.Month())
	for _, season := range seasons {
		for _, m := range SeasonMonths(season.Months) {
			if m == month {
				return season, true
			}
		}
	}
	return Season{}, false
}
