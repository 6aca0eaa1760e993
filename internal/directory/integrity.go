package directory

import (
	"fmt"
	"sort"

	"github.com/thomhuang/PharmacyFinder/internal/geo"
)

// FarFromPostalCodeKm is how far a pharmacy may sit from its postal-code centre
// before the check flags it.
const FarFromPostalCodeKm = 5.0

type IssueKind string

const (
	IssueDuplicatePostalCode    IssueKind = "duplicate_postal_code"
	IssuePostalCodeCityConflict IssueKind = "postal_code_city_conflict"
	IssueDuplicatePharmacy      IssueKind = "duplicate_pharmacy"
	IssueUnknownPostalCode      IssueKind = "unknown_postal_code"
	IssueCityMismatch           IssueKind = "city_mismatch"
	IssueFarFromPostalCode      IssueKind = "far_from_postal_code"
	IssueDanglingInventory      IssueKind = "dangling_inventory"
	IssueDuplicateInventory     IssueKind = "duplicate_inventory"
)

// Issue is one data-integrity problem. Subject is the postal code, pharmacy ID or
// inventory key it concerns.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Subject string    `json:"subject"`
	Detail  string    `json:"detail"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Kind, i.Subject, i.Detail)
}

// Check runs every integrity rule over ds. The result is sorted by kind then subject.
func Check(ds Dataset) []Issue {
	var issues []Issue
	add := func(kind IssueKind, subject, format string, args ...any) {
		issues = append(issues, Issue{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	// each postal code must map to exactly one city
	locations := make(map[string]LocationRecord, len(ds.Locations))
	for _, l := range ds.Locations {
		first, ok := locations[l.PostalCode]
		if !ok {
			locations[l.PostalCode] = l
			continue
		}
		if CityKey(first.City) != CityKey(l.City) {
			add(IssuePostalCodeCityConflict, l.PostalCode, "mapped to %q and %q, keeping %q", first.City, l.City, first.City)
		} else {
			add(IssueDuplicatePostalCode, l.PostalCode, "listed more than once for %q", first.City)
		}
	}

	pharmacies := make(map[string]struct{}, len(ds.Pharmacies))
	for _, p := range ds.Pharmacies {
		if _, ok := pharmacies[p.ID]; ok {
			add(IssueDuplicatePharmacy, p.ID, "pharmacy ID listed more than once (%q)", p.Name)
			continue
		}
		pharmacies[p.ID] = struct{}{}

		loc, ok := locations[p.PostalCode]
		if !ok {
			add(IssueUnknownPostalCode, p.ID, "postal code %q not in directory", p.PostalCode)
			continue
		}
		if CityKey(loc.City) != CityKey(p.City) {
			add(IssueCityMismatch, p.ID, "city %q but postal code %s belongs to %q", p.City, p.PostalCode, loc.City)
		}
		if loc.Coord().Validate() != nil || p.Coord().Validate() != nil {
			continue
		}
		if km := geo.DistanceKm(loc.Coord(), p.Coord()); km > FarFromPostalCodeKm {
			add(IssueFarFromPostalCode, p.ID, "%.2f km from postal code %s centre", km, p.PostalCode)
		}
	}

	seen := make(map[string]struct{}, len(ds.Inventory))
	for _, line := range ds.Inventory {
		key := line.PharmacyID + "/" + line.SKU
		if _, ok := pharmacies[line.PharmacyID]; !ok {
			add(IssueDanglingInventory, key, "pharmacy %q does not exist", line.PharmacyID)
			continue
		}
		if _, ok := seen[key]; ok {
			add(IssueDuplicateInventory, key, "inventory line listed more than once")
			continue
		}
		seen[key] = struct{}{}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Kind != issues[j].Kind {
			return issues[i].Kind < issues[j].Kind
		}
		return issues[i].Subject < issues[j].Subject
	})
	return issues
}
