package geo

import (
	"math"
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type GeoSuite struct{}

var _ = Suite(&GeoSuite{})

var (
	saoPaulo      = Point{Lat: -23.5505, Lng: -46.6333}
	rioDeJaneiro  = Point{Lat: -22.9068, Lng: -43.1729}
	campinas      = Point{Lat: -22.9056, Lng: -47.0608}
	nullIsland    = Point{}
	equatorOneDeg = Point{Lat: 0, Lng: 1}
)

func (s *GeoSuite) TestDistanceKm(c *C) {
	// One degree of longitude on the equator is 2*pi*R/360
	want := 2 * math.Pi * EarthRadiusKm / 360
	c.Assert(math.Abs(DistanceKm(nullIsland, equatorOneDeg)-want) < 1e-6, Equals, true)

	d := DistanceKm(saoPaulo, rioDeJaneiro)
	c.Assert(d > 355 && d < 362, Equals, true, Commentf("got %.2f", d))

	c.Assert(DistanceKm(saoPaulo, saoPaulo), Equals, 0.0)
	c.Assert(DistanceKm(saoPaulo, campinas), Equals, DistanceKm(campinas, saoPaulo))
}

func (s *GeoSuite) TestDistanceToKm(c *C) {
	lat, lng := rioDeJaneiro.Lat, rioDeJaneiro.Lng
	c.Assert(DistanceToKm(saoPaulo, &lat, &lng), Equals, DistanceKm(saoPaulo, rioDeJaneiro))
	c.Assert(math.IsInf(DistanceToKm(saoPaulo, nil, &lng), 1), Equals, true)
	c.Assert(math.IsInf(DistanceToKm(saoPaulo, &lat, nil), 1), Equals, true)
}

func (s *GeoSuite) TestFormatKm(c *C) {
	c.Assert(FormatKm(3.14159), Equals, "3,14")
	c.Assert(FormatKm(0), Equals, "0,00")
	c.Assert(FormatKm(1234.5), Equals, "1.234,50")
	c.Assert(FormatKm(math.Inf(1)), Equals, "")
	c.Assert(FormatKm(math.NaN()), Equals, "")
}

func (s *GeoSuite) TestNewPoint(c *C) {
	p, err := NewPoint(-23.55, -46.63)
	c.Assert(err, IsNil)
	c.Assert(p.Lat, Equals, -23.55)

	_, err = NewPoint(91, 0)
	c.Assert(err, NotNil)

	_, err = NewPoint(0, math.NaN())
	c.Assert(err, NotNil)
}

func (s *GeoSuite) TestGeohash(c *C) {
	c.Assert(Geohash(saoPaulo, 5), Equals, "6gyf4")
	c.Assert(Redact(saoPaulo), Equals, Geohash(saoPaulo, LogPrecision))
	// Nearby points share a coarse cell
	near := Point{Lat: saoPaulo.Lat + 0.001, Lng: saoPaulo.Lng + 0.001}
	c.Assert(Geohash(near, 4), Equals, Geohash(saoPaulo, 4))
}
