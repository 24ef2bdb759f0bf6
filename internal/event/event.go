package event

import (
	"crypto/sha1"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record is a single store training entry taken from one spreadsheet row
type Record struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"` // Matching key, see NormalizeKey
	Shift          string    `json:"shift,omitempty"`
	Link           string    `json:"link,omitempty"`
	ImageFlag      string    `json:"image_flag,omitempty"`
	Latitude       *float64  `json:"latitude"`  // nil when the row had no usable latitude
	Longitude      *float64  `json:"longitude"` // nil when the row had no usable longitude
	Date           time.Time `json:"date"`
	State          string    `json:"state,omitempty"`
	City           string    `json:"city,omitempty"`
}

// GenerateID creates a deterministic ID for a record based on its identifying fields
func GenerateID(name string, date time.Time, shift string) string {
	h := sha1.New()
	h.Write([]byte(NormalizeKey(name) + "|" + date.Format("2006-01-02") + "|" + strings.TrimSpace(shift)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// NewRecord creates a Record with ID and NormalizedName populated.
// A zero date is kept as is; callers drop such records during normalization.
func NewRecord(name, shift, link, imageFlag string, date time.Time, lat, lng *float64, state, city string) *Record {
	name = strings.TrimSpace(name)
	return &Record{
		ID:             GenerateID(name, date, shift),
		Name:           name,
		NormalizedName: NormalizeKey(name),
		Shift:          shift,
		Link:           link,
		ImageFlag:      imageFlag,
		Latitude:       finiteOrNil(lat),
		Longitude:      finiteOrNil(lng),
		Date:           date,
		State:          strings.TrimSpace(state),
		City:           strings.TrimSpace(city),
	}
}

// HasCoordinates reports whether both latitude and longitude are known
func (r *Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Valid reports whether the record can be part of the working set
func (r *Record) Valid() bool {
	return r.Name != "" && !r.Date.IsZero()
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	f := *v
	return &f
}

// NormalizeKey folds a name into its matching form: lowercase, diacritics removed,
// and whitespace, '-' and '_' dropped. "São Paulo" and "sao-paulo" share a key.
func NormalizeKey(s string) string {
	// Chained transformers keep state, so each call builds its own.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
