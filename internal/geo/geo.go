package geo

import (
	"fmt"
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// LogPrecision is the geohash length used when a position is written to logs (~5km cell)
const LogPrecision = 5

// Point is a latitude/longitude pair in degrees
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint validates a coordinate pair
func NewPoint(lat, lng float64) (Point, error) {
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, fmt.Errorf("invalid coordinates: %v,%v", lat, lng)
	}
	return p, nil
}

// Valid reports whether the point is finite and within latitude/longitude bounds
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// String renders the point as "lat,lng"
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// DistanceKm returns the great-circle (haversine) distance between two points in kilometres
func DistanceKm(a, b Point) float64 {
	from := s2.LatLngFromDegrees(a.Lat, a.Lng)
	to := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return from.Distance(to).Radians() * EarthRadiusKm
}

// DistanceToKm returns the distance from p to a record's coordinates, or +Inf when either is unknown
func DistanceToKm(p Point, lat, lng *float64) float64 {
	if lat == nil || lng == nil {
		return math.Inf(1)
	}
	return DistanceKm(p, Point{Lat: *lat, Lng: *lng})
}

// FormatKm formats a distance with two decimals in Brazilian Portuguese ("1.234,50").
// Non-finite distances format as "".
func FormatKm(km float64) string {
	if math.IsNaN(km) || math.IsInf(km, 0) {
		return ""
	}
	p := message.NewPrinter(language.BrazilianPortuguese)
	return p.Sprint(number.Decimal(km, number.Scale(2)))
}

// Geohash encodes the point with the given precision
func Geohash(p Point, precision int) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, precision)
}

// Redact returns a coarse geohash suitable for logging a user position
func Redact(p Point) string {
	return Geohash(p, LogPrecision)
}
