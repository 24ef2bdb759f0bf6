package sheet

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Header aliases seen across spreadsheet exports
var (
	LatitudeAliases  = []string{"Latitude", "LAT", "Lat", "latitude", "lat", "LATITUDE"}
	LongitudeAliases = []string{"Longitude", "LNG", "Long", "LONG", "longitude", "long", "LONGITUDE", "Lng", "LON", "Lon"}
)

// Positional columns used when the coordinate headers are missing
const (
	LatitudeColumn  = 7
	LongitudeColumn = 8
)

var (
	decimalPattern = regexp.MustCompile(`-?\d+[.,]?\d*`)

	// Pasted values often carry typographic minus signs
	minusReplacer = strings.NewReplacer(
		"−", "-", // minus sign
		"‐", "-", // hyphen
		"‑", "-", // non-breaking hyphen
		"‒", "-", // figure dash
		"–", "-", // en dash
	)
)

// ParseCoordinate extracts the first signed decimal in raw, accepting a comma as decimal
// separator and ignoring surrounding text ("lat: -23,55 S" -> -23.55)
func ParseCoordinate(raw string) (float64, bool) {
	s := strings.TrimSpace(minusReplacer.Replace(raw))
	if s == "" {
		return 0, false
	}
	m := decimalPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	return parseDecimal(m)
}

// ExtractCoordinates recovers a row's latitude and longitude. Each is nil when unknown.
//
// Sources in priority order: aliased headers, positional columns 7 and 8, then a scan of
// every number in the row where the last two matches fill whichever value is still missing.
// The scan can pick up unrelated numbers (phone numbers, for example) when a row has no
// coordinate columns at all.
func ExtractCoordinates(row Row) (lat, lng *float64) {
	if v, ok := row.Lookup(LatitudeAliases...); ok {
		lat = coordinate(v)
	}
	if v, ok := row.Lookup(LongitudeAliases...); ok {
		lng = coordinate(v)
	}

	if lat == nil && len(row.Cells) > LatitudeColumn {
		lat = coordinate(row.Cells[LatitudeColumn])
	}
	if lng == nil && len(row.Cells) > LongitudeColumn {
		lng = coordinate(row.Cells[LongitudeColumn])
	}

	if lat == nil || lng == nil {
		var joined string
		if row.Cells != nil {
			joined = strings.Join(row.Cells, " ")
		} else {
			joined = strings.Join(row.Values(), " ")
		}
		matches := decimalPattern.FindAllString(minusReplacer.Replace(joined), -1)
		if len(matches) >= 2 {
			if lat == nil {
				lat = decimal(matches[len(matches)-2])
			}
			if lng == nil {
				lng = decimal(matches[len(matches)-1])
			}
		}
	}

	return lat, lng
}

func coordinate(raw string) *float64 {
	v, ok := ParseCoordinate(raw)
	if !ok {
		return nil
	}
	return &v
}

func decimal(match string) *float64 {
	v, ok := parseDecimal(match)
	if !ok {
		return nil
	}
	return &v
}

func parseDecimal(match string) (float64, bool) {
	s := strings.Replace(match, ",", ".", 1)
	s = strings.TrimSuffix(s, ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
