package match

import (
	"sort"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// Candidate is a pharmacy inside the search radius with its tier and distance.
type Candidate struct {
	Pharmacy   directory.Pharmacy
	DistanceKm float64
	Tier       Tier
}

// less orders candidates by (tier, distance, pharmacy ID).
func less(a, b Candidate) bool {
	if a.Tier != b.Tier {
		return a.Tier < b.Tier
	}
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	return a.Pharmacy.ID < b.Pharmacy.ID
}

// Rank returns every pharmacy within radiusKm of the anchor, best first. Tiers
// compare against the requested location only, so a request without a city has no
// same-city tier.
func Rank(dir Directory, anchor Anchor, loc Location, radiusKm float64) []Candidate {
	cityKey := directory.CityKey(loc.City)

	hits := dir.PharmaciesWithin(anchor.Coord, radiusKm)
	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		p, ok := dir.Pharmacy(hit.ID)
		if !ok {
			continue
		}
		c := Candidate{Pharmacy: p, DistanceKm: hit.Km, Tier: TierNearby}
		switch {
		case loc.PostalCode != "" && p.PostalCode == loc.PostalCode:
			c.Tier = TierExactPostal
		case cityKey != "" && directory.CityKey(p.City) == cityKey:
			c.Tier = TierSameCity
		}
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool { return less(candidates[i], candidates[j]) })
	return candidates
}
