// Package match ranks the pharmacies around a requested location and picks the best
// one that stocks the requested SKUs.
package match

import (
	"github.com/thomhuang/PharmacyFinder/internal/directory"
	"github.com/thomhuang/PharmacyFinder/internal/geo"
)

// Directory is the read-only view of the data the matcher needs.
// *directory.Snapshot implements it.
type Directory interface {
	PostalCode(code string) (directory.LocationRecord, bool)
	CityPostalCodes(city string) []string
	PharmaciesWithin(c geo.Coord, radiusKm float64) []geo.Hit
	Pharmacy(id string) (directory.Pharmacy, bool)
	Stock(pharmacyID, sku string) (directory.InventoryLine, bool)
}

// Anchor is the resolved origin of a distance ranking.
type Anchor struct {
	Coord      geo.Coord `json:"coord"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
}

// Resolve turns a requested location into an anchor. A known postal code wins;
// otherwise the city's lowest postal code (lexical order) anchors the request.
// ok is false when neither resolves.
func Resolve(dir Directory, loc Location) (Anchor, bool) {
	if loc.PostalCode != "" {
		if rec, ok := dir.PostalCode(loc.PostalCode); ok {
			return anchorOf(rec), true
		}
	}
	if loc.City != "" {
		for _, code := range dir.CityPostalCodes(loc.City) {
			if rec, ok := dir.PostalCode(code); ok {
				return anchorOf(rec), true
			}
		}
	}
	return Anchor{}, false
}

func anchorOf(rec directory.LocationRecord) Anchor {
	return Anchor{Coord: rec.Coord(), City: rec.City, PostalCode: rec.PostalCode}
}
