// Package render turns the event collection into ordered, display-ready cards.
//
// Render is a pure function of the collection, the filter selection, an optional user
// position and the current day. It never touches the session or the network, so the HTTP
// API can render each request with its own selection and position.
package render

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/filter"
	"github.com/agenda-lojas/agenda/internal/geo"
)

// NoResultsMessage is reported when the selection leaves nothing to show
const NoResultsMessage = "Nenhum treinamento encontrado."

// Card is the view of one record
type Card struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Image        string   `json:"image"`
	Date         string   `json:"date"` // dd/mm/yy
	Shift        string   `json:"shift"`
	Subtitle     string   `json:"subtitle"` // "dd/mm/yy | shift"
	DistanceKm   *float64 `json:"distance_km,omitempty"`
	DistanceText string   `json:"distance_text,omitempty"` // pt-BR formatted km, e.g. "12,34"
	Location     string   `json:"location,omitempty"`      // "city — state"
	RecentlyPast bool     `json:"recently_past"`
	HasCoords    bool     `json:"has_coords"`
	Nearest      bool     `json:"nearest"` // same store as the nearest upcoming record
	Link         string   `json:"link,omitempty"`
}

// HasDistance reports whether the card carries a distance annotation
func (c Card) HasDistance() bool {
	return c.DistanceKm != nil
}

// TitleSuffix returns the distance annotation shown after the store name ("- à 12,34 km")
func (c Card) TitleSuffix() string {
	if !c.HasDistance() {
		return ""
	}
	return "- à " + c.DistanceText + " km"
}

// DistanceLine returns the distance line shown under the subtitle ("📍 12,34 km de você")
func (c Card) DistanceLine() string {
	if !c.HasDistance() {
		return ""
	}
	return "📍 " + c.DistanceText + " km de você"
}

// Result is the outcome of a render
type Result struct {
	Cards     []Card `json:"cards"`
	NoResults bool   `json:"no_results"`
	Message   string `json:"message,omitempty"`
	Located   bool   `json:"located"` // cards are ordered by distance
}

// Render filters records with sel and builds their cards.
//
// Without a user position the collection order is kept. With one, records dated today or
// later come first ordered by distance, with unknown coordinates last; past records follow
// in collection order and carry no distance. Every card of the nearest upcoming store
// (see Nearest, over the whole collection) is flagged Nearest.
func Render(records []*event.Record, sel *filter.Selection, user *geo.Point, today time.Time) Result {
	visible := sel.Apply(records)
	if len(visible) == 0 {
		return Result{Cards: []Card{}, NoResults: true, Message: NoResultsMessage}
	}

	located := user != nil && user.Valid()
	if !located {
		cards := make([]Card, len(visible))
		for i, r := range visible {
			cards[i] = newCard(r, today)
		}
		return Result{Cards: cards}
	}

	type ranked struct {
		record *event.Record
		dist   float64
	}

	upcoming := make([]ranked, 0, len(visible))
	var past []*event.Record
	for _, r := range visible {
		if r.IsUpcoming(today) {
			upcoming = append(upcoming, ranked{record: r, dist: geo.DistanceToKm(*user, r.Latitude, r.Longitude)})
		} else {
			past = append(past, r)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].dist < upcoming[j].dist
	})

	nearest, _ := Nearest(records, *user, today)

	cards := make([]Card, 0, len(visible))
	for _, u := range upcoming {
		c := newCard(u.record, today)
		c.Nearest = sameStore(u.record, nearest)
		if !math.IsInf(u.dist, 0) && !math.IsNaN(u.dist) {
			d := u.dist
			c.DistanceKm = &d
			c.DistanceText = geo.FormatKm(d)
		}
		cards = append(cards, c)
	}
	for _, r := range past {
		c := newCard(r, today)
		c.Nearest = sameStore(r, nearest)
		cards = append(cards, c)
	}

	return Result{Cards: cards, Located: true}
}

func newCard(r *event.Record, today time.Time) Card {
	date := event.FormatDate(r.Date)
	return Card{
		ID:           r.ID,
		Name:         r.Name,
		Image:        ImageFor(r.Name),
		Date:         date,
		Shift:        r.Shift,
		Subtitle:     date + " | " + r.Shift,
		Location:     location(r.City, r.State),
		RecentlyPast: r.IsRecentlyPast(today),
		HasCoords:    r.HasCoordinates(),
		Link:         r.Link,
	}
}

func sameStore(r, nearest *event.Record) bool {
	return nearest != nil && r.NormalizedName == nearest.NormalizedName
}

func location(city, state string) string {
	var parts []string
	if city != "" {
		parts = append(parts, city)
	}
	if state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, " — ")
}

// Nearest returns the closest upcoming record with known coordinates and its distance.
// Ties keep the first record in collection order. It returns nil when there is none.
func Nearest(records []*event.Record, user geo.Point, today time.Time) (*event.Record, float64) {
	var nearest *event.Record
	best := math.Inf(1)
	for _, r := range records {
		if !r.IsUpcoming(today) || !r.HasCoordinates() {
			continue
		}
		d := geo.DistanceToKm(user, r.Latitude, r.Longitude)
		if d < best {
			best = d
			nearest = r
		}
	}
	return nearest, best
}
