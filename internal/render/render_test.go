package render

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/agenda-lojas/agenda/internal/event"
	"github.com/agenda-lojas/agenda/internal/filter"
	"github.com/agenda-lojas/agenda/internal/geo"
)

var today = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

func fp(v float64) *float64 { return &v }

func day(offset int) time.Time {
	return today.AddDate(0, 0, offset)
}

// scenario returns two upcoming records with coordinates and one past record, in
// collection order.
func scenario() []*event.Record {
	return []*event.Record{
		event.NewRecord("Atacadão Morumbi", "Manhã", "https://example.com/a", "", day(1), fp(-23.6229), fp(-46.6989), "SP", "São Paulo"),
		event.NewRecord("Sam's Club Campinas", "Tarde", "", "", day(2), fp(-22.9056), fp(-47.0608), "SP", "Campinas"),
		event.NewRecord("Carrefour Copacabana", "Manhã", "", "", day(-2), fp(-22.9711), fp(-43.1822), "RJ", "Rio de Janeiro"),
	}
}

func cardNames(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Name
	}
	return out
}

func TestRender_WithoutLocationKeepsOrder(t *testing.T) {
	res := Render(scenario(), filter.NewSelection(), nil, today)

	got := strings.Join(cardNames(res.Cards), ",")
	want := "Atacadão Morumbi,Sam's Club Campinas,Carrefour Copacabana"
	if got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	if res.Located || res.NoResults {
		t.Errorf("Result = %+v", res)
	}
	for _, c := range res.Cards {
		if c.HasDistance() {
			t.Errorf("%s has a distance without location", c.Name)
		}
		if !c.HasCoords {
			t.Errorf("%s should report coordinates", c.Name)
		}
	}
}

func TestRender_EndToEnd(t *testing.T) {
	// Closer to Campinas than to São Paulo
	user := geo.Point{Lat: -22.95, Lng: -47.05}
	records := scenario()

	res := Render(records, filter.NewSelection(), &user, today)

	got := strings.Join(cardNames(res.Cards), ",")
	want := "Sam's Club Campinas,Atacadão Morumbi,Carrefour Copacabana"
	if got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	if !res.Located {
		t.Error("Located = false, want true")
	}
	if !res.Cards[0].HasDistance() || !res.Cards[1].HasDistance() {
		t.Error("upcoming cards should carry a distance")
	}
	if res.Cards[2].HasDistance() {
		t.Error("past card should not carry a distance")
	}
	if *res.Cards[0].DistanceKm >= *res.Cards[1].DistanceKm {
		t.Errorf("distances not ascending: %v, %v", *res.Cards[0].DistanceKm, *res.Cards[1].DistanceKm)
	}

	nearest, dist := Nearest(records, user, today)
	if nearest == nil || nearest.Name != "Sam's Club Campinas" {
		t.Fatalf("Nearest() = %v, want Sam's Club Campinas", nearest)
	}
	if math.Abs(dist-*res.Cards[0].DistanceKm) > 1e-9 {
		t.Errorf("Nearest() distance = %v, want %v", dist, *res.Cards[0].DistanceKm)
	}
}

func TestRender_NearestFlag(t *testing.T) {
	user := geo.Point{Lat: -22.95, Lng: -47.05}
	records := append(scenario(),
		// Same store, later date: flagged along with the nearest record
		event.NewRecord("SAM'S CLUB-Campinas", "Noite", "", "", day(5), fp(-22.9056), fp(-47.0608), "SP", "Campinas"),
	)

	res := Render(records, nil, &user, today)
	flagged := map[string]bool{}
	for _, c := range res.Cards {
		if c.Nearest {
			flagged[c.Name] = true
		}
	}
	if len(flagged) != 2 || !flagged["Sam's Club Campinas"] || !flagged["SAM'S CLUB-Campinas"] {
		t.Errorf("flagged = %v, want both Campinas cards", flagged)
	}

	// The nearest store is taken over the whole collection, not the filtered view
	res = Render(records, &filter.Selection{Cities: []string{"São Paulo"}}, &user, today)
	if len(res.Cards) != 1 || res.Cards[0].Nearest {
		t.Errorf("filtered cards = %+v, want one card without the flag", res.Cards)
	}

	for _, c := range Render(records, nil, nil, today).Cards {
		if c.Nearest {
			t.Errorf("%s flagged without a position", c.Name)
		}
	}
}

func TestRender_DistanceSortIsIdempotent(t *testing.T) {
	user := geo.Point{Lat: -23.0, Lng: -46.0}
	records := scenario()
	records = append(records, event.NewRecord("Coop Sem Coordenadas", "", "", "", day(0), nil, nil, "SP", ""))

	first := cardNames(Render(records, nil, &user, today).Cards)
	second := cardNames(Render(records, nil, &user, today).Cards)
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("render not idempotent: %v vs %v", first, second)
	}
	// Unknown coordinates sort after every known distance but before past records
	if first[2] != "Coop Sem Coordenadas" || first[3] != "Carrefour Copacabana" {
		t.Errorf("order = %v", first)
	}
}

func TestRender_NoResults(t *testing.T) {
	res := Render(scenario(), &filter.Selection{States: []string{"BA"}}, nil, today)
	if !res.NoResults || res.Message != NoResultsMessage || len(res.Cards) != 0 {
		t.Errorf("Result = %+v, want no results", res)
	}

	res = Render(nil, nil, nil, today)
	if !res.NoResults {
		t.Error("empty collection should report no results")
	}
}

func TestRender_FilterIntersection(t *testing.T) {
	sel := &filter.Selection{Stores: []string{"Atacadão Morumbi", "Carrefour Copacabana"}, States: []string{"São Paulo", "SP"}}
	res := Render(scenario(), sel, nil, today)
	if got := cardNames(res.Cards); len(got) != 1 || got[0] != "Atacadão Morumbi" {
		t.Errorf("cards = %v, want [Atacadão Morumbi]", got)
	}
}

func TestRender_CardFields(t *testing.T) {
	user := geo.Point{Lat: -23.6229, Lng: -46.6989}
	res := Render(scenario(), nil, &user, today)

	c := res.Cards[0]
	if c.Name != "Atacadão Morumbi" {
		t.Fatalf("first card = %s", c.Name)
	}
	if c.Subtitle != "11/06/25 | Manhã" {
		t.Errorf("Subtitle = %q", c.Subtitle)
	}
	if c.Location != "São Paulo — SP" {
		t.Errorf("Location = %q", c.Location)
	}
	if c.Image != "images/Foto Atacadão.png" {
		t.Errorf("Image = %q", c.Image)
	}
	if c.DistanceText != "0,00" || c.TitleSuffix() != "- à 0,00 km" || c.DistanceLine() != "📍 0,00 km de você" {
		t.Errorf("distance = %q / %q / %q", c.DistanceText, c.TitleSuffix(), c.DistanceLine())
	}
	if c.Link != "https://example.com/a" {
		t.Errorf("Link = %q", c.Link)
	}

	past := res.Cards[2]
	if !past.RecentlyPast {
		t.Error("record two days past should be recently past")
	}
}

func TestRender_RecentlyPast(t *testing.T) {
	tests := []struct {
		offset int
		want   bool
	}{
		{0, false},
		{-1, true},
		{-3, true},
		{-4, false},
		{2, false},
	}

	for _, tt := range tests {
		r := event.NewRecord("Delta", "", "", "", day(tt.offset), nil, nil, "", "")
		res := Render([]*event.Record{r}, nil, nil, today)
		if got := res.Cards[0].RecentlyPast; got != tt.want {
			t.Errorf("offset %d: RecentlyPast = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestNearest(t *testing.T) {
	user := geo.Point{Lat: -22.9, Lng: -43.2}

	t.Run("past records are ignored", func(t *testing.T) {
		nearest, _ := Nearest(scenario(), user, today)
		if nearest == nil || nearest.Name == "Carrefour Copacabana" {
			t.Errorf("Nearest() = %v, should skip past records", nearest)
		}
	})

	t.Run("ties keep first", func(t *testing.T) {
		a := event.NewRecord("Coop A", "", "", "", day(1), fp(-23), fp(-46), "", "")
		b := event.NewRecord("Coop B", "", "", "", day(1), fp(-23), fp(-46), "", "")
		nearest, _ := Nearest([]*event.Record{a, b}, user, today)
		if nearest != a {
			t.Errorf("Nearest() = %v, want Coop A", nearest.Name)
		}
	})

	t.Run("no candidates", func(t *testing.T) {
		r := event.NewRecord("Delta", "", "", "", day(1), nil, nil, "", "")
		nearest, dist := Nearest([]*event.Record{r}, user, today)
		if nearest != nil || !math.IsInf(dist, 1) {
			t.Errorf("Nearest() = %v, %v; want nil, +Inf", nearest, dist)
		}
	})
}

func TestImageFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Atacadão Morumbi", "images/Foto Atacadão.png"},
		{"ASSAÍ Atacadista", "images/Foto AssaiAtacadista.png"},
		{"Supermercado 99 Coop", "images/Foto 99.png"},
		{"Coop Santo André", "images/Foto COOP.png"},
		{"Roldão", "images/Foto Roldão.png"},
		{"Mercado Local", DefaultImage},
		{"", DefaultImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageFor(tt.name); got != tt.want {
				t.Errorf("ImageFor(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	user := geo.Point{Lat: -23.6229, Lng: -46.6989}
	out := FormatResult(Render(scenario(), nil, &user, today))

	for _, want := range []string{
		"Atacadão Morumbi - à 0,00 km",
		"📅 11/06/25 | Manhã",
		"📍 0,00 km de você",
		"🏬 Rio de Janeiro — RJ",
		"Carrefour Copacabana (realizado)",
		"⭐ Loja mais próxima",
		"3 treinamentos",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if got := FormatResult(Render(nil, nil, nil, today)); got != NoResultsMessage+"\n" {
		t.Errorf("no results output = %q", got)
	}
}
