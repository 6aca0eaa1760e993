// Package directory holds the read-only data the matcher works on: the postal-code
// directory, the pharmacy directory and the inventory store, bundled into an
// immutable Snapshot.
package directory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/thomhuang/PharmacyFinder/internal/geo"
)

// Snapshot is built once and never modified afterwards, so it can be shared by any
// number of concurrent readers without locking.
type Snapshot struct {
	locations  map[string]LocationRecord
	cityCodes  map[string][]string
	cityNames  map[string]string
	pharmacies map[string]Pharmacy
	pharmOrder []string
	stock      map[string]map[string]InventoryLine
	index      *geo.Index
	issues     []Issue
	inventory  int
	loadedAt   time.Time
}

// Stats summarises a snapshot.
type Stats struct {
	PostalCodes    int       `json:"postal_codes"`
	Cities         int       `json:"cities"`
	Pharmacies     int       `json:"pharmacies"`
	InventoryLines int       `json:"inventory_lines"`
	Issues         int       `json:"issues"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// CityKey is the comparison form of a city name.
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// NewSnapshot validates ds and indexes it. Any coordinate outside the valid degree
// range fails the whole build. Integrity problems (duplicate postal codes, dangling
// inventory, ...) do not fail it: the first record wins, dangling lines are dropped,
// and every problem is available from Issues.
func NewSnapshot(ds Dataset) (*Snapshot, error) {
	for _, l := range ds.Locations {
		if err := l.Coord().Validate(); err != nil {
			return nil, fmt.Errorf("postal code %q: %w", l.PostalCode, err)
		}
	}
	for _, p := range ds.Pharmacies {
		if err := p.Coord().Validate(); err != nil {
			return nil, fmt.Errorf("pharmacy %q: %w", p.ID, err)
		}
	}

	s := &Snapshot{
		locations:  make(map[string]LocationRecord, len(ds.Locations)),
		cityCodes:  make(map[string][]string),
		cityNames:  make(map[string]string),
		pharmacies: make(map[string]Pharmacy, len(ds.Pharmacies)),
		stock:      make(map[string]map[string]InventoryLine),
		index:      geo.NewIndex(),
		issues:     Check(ds),
		loadedAt:   time.Now(),
	}

	for _, l := range ds.Locations {
		if _, ok := s.locations[l.PostalCode]; ok {
			continue
		}
		s.locations[l.PostalCode] = l
		key := CityKey(l.City)
		if key == "" {
			continue
		}
		if _, ok := s.cityNames[key]; !ok {
			s.cityNames[key] = strings.TrimSpace(l.City)
		}
		s.cityCodes[key] = append(s.cityCodes[key], l.PostalCode)
	}
	for _, codes := range s.cityCodes {
		sort.Strings(codes)
	}

	for _, p := range ds.Pharmacies {
		if _, ok := s.pharmacies[p.ID]; ok {
			continue
		}
		s.pharmacies[p.ID] = p
		s.pharmOrder = append(s.pharmOrder, p.ID)
		s.index.Insert(p.ID, p.Coord())
	}
	sort.Strings(s.pharmOrder)

	for _, line := range ds.Inventory {
		if _, ok := s.pharmacies[line.PharmacyID]; !ok {
			continue
		}
		bySKU, ok := s.stock[line.PharmacyID]
		if !ok {
			bySKU = make(map[string]InventoryLine)
			s.stock[line.PharmacyID] = bySKU
		}
		if _, dup := bySKU[line.SKU]; dup {
			continue
		}
		bySKU[line.SKU] = line
		s.inventory++
	}

	return s, nil
}

// PostalCode looks up a directory entry by exact postal code.
func (s *Snapshot) PostalCode(code string) (LocationRecord, bool) {
	l, ok := s.locations[code]
	return l, ok
}

// CityPostalCodes returns the city's postal codes in ascending lexical order.
func (s *Snapshot) CityPostalCodes(city string) []string {
	codes := s.cityCodes[CityKey(city)]
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// Cities returns every city name in the directory, sorted.
func (s *Snapshot) Cities() []string {
	out := make([]string, 0, len(s.cityNames))
	for _, name := range s.cityNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Locations returns the directory entries sorted by postal code.
func (s *Snapshot) Locations() []LocationRecord {
	out := make([]LocationRecord, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostalCode < out[j].PostalCode })
	return out
}

func (s *Snapshot) Pharmacy(id string) (Pharmacy, bool) {
	p, ok := s.pharmacies[id]
	return p, ok
}

// Pharmacies returns every pharmacy sorted by ID.
func (s *Snapshot) Pharmacies() []Pharmacy {
	out := make([]Pharmacy, 0, len(s.pharmOrder))
	for _, id := range s.pharmOrder {
		out = append(out, s.pharmacies[id])
	}
	return out
}

// PharmaciesWithin returns the IDs and distances of pharmacies at most radiusKm from c.
func (s *Snapshot) PharmaciesWithin(c geo.Coord, radiusKm float64) []geo.Hit {
	return s.index.Within(c, radiusKm)
}

// Stock returns the inventory line for sku at a pharmacy.
func (s *Snapshot) Stock(pharmacyID, sku string) (InventoryLine, bool) {
	line, ok := s.stock[pharmacyID][sku]
	return line, ok
}

// Issues lists the integrity problems found while building the snapshot.
func (s *Snapshot) Issues() []Issue {
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		PostalCodes:    len(s.locations),
		Cities:         len(s.cityNames),
		Pharmacies:     len(s.pharmacies),
		InventoryLines: s.inventory,
		Issues:         len(s.issues),
		LoadedAt:       s.loadedAt,
	}
}
