package render

import (
	"strings"

	"github.com/agenda-lojas/agenda/internal/event"
)

// DefaultImage is used when no store key matches
const DefaultImage = "images/default.jpg"

// storeImages maps normalized name fragments to card images. Order matters: the first
// fragment contained in the store name wins, and "99" is checked before the rest.
var storeImages = []struct {
	key   string
	image string
}{
	{"99", "images/Foto 99.png"},
	{"atacadao", "images/Foto Atacadão.png"},
	{"sams", "images/Foto Sams.png"},
	{"carrefour", "images/Foto Carrefour.png"},
	{"atakarejo", "images/Foto Atakarejo.png"},
	{"coop", "images/Foto COOP.png"},
	{"gbarbosa", "images/Foto GBarbosa.png"},
	{"amigao", "images/Foto Amigão.png"},
	{"prezunic", "images/Foto Prezunic.png"},
	{"mercantil", "images/Foto Mercantil.png"},
	{"delta", "images/Foto Delta.png"},
	{"superlagoa", "images/Foto SuperLagoa.png"},
	{"roldao", "images/Foto Roldão.png"},
	{"paguemenosbr", "images/Foto PagueMenosBR.png"},
	{"boa", "images/Foto BOA Supermercados.png"},
	{"assai", "images/Foto AssaiAtacadista.png"},
}

// ImageFor returns the card image for a store name
func ImageFor(name string) string {
	key := event.NormalizeKey(name)
	for _, s := range storeImages {
		if strings.Contains(key, s.key) {
			return s.image
		}
	}
	return DefaultImage
}
