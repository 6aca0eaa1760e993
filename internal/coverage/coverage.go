// Package coverage reports, for every postal code in the directory, how many
// pharmacies a patient there can reach within the search radius.
package coverage

import (
	"encoding/json"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
	"github.com/thomhuang/PharmacyFinder/internal/geo"
	"github.com/thomhuang/PharmacyFinder/internal/match"
)

// Entry is the coverage of one postal code.
type Entry struct {
	PostalCode  string  `json:"postal_code"`
	City        string  `json:"city"`
	District    string  `json:"district,omitempty"`
	InRange     int     `json:"in_range"`
	ExactPostal int     `json:"exact_postal"`
	SameCity    int     `json:"same_city"`
	Nearby      int     `json:"nearby"`
	NearestID   string  `json:"nearest_id,omitempty"`
	NearestKm   float64 `json:"nearest_km,omitempty"`
}

type Report struct {
	RadiusKm    float64   `json:"radius_km"`
	GeneratedAt time.Time `json:"generated_at"`
	PostalCodes int       `json:"postal_codes"`
	Uncovered   int       `json:"uncovered"`
	Entries     []Entry   `json:"entries"`
}

// Compute builds the report with a pool of workers. workers <= 0 uses one per CPU.
func Compute(snap *directory.Snapshot, radiusKm float64, workers int) Report {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	locations := snap.Locations()
	var wg sync.WaitGroup
	// buffered so feeding and collecting do not stall on a slow worker
	jobs := make(chan directory.LocationRecord, workers*2)
	results := make(chan Entry, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				results <- entryFor(snap, rec, radiusKm)
			}
		}()
	}

	// close results only after every worker is done
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for _, rec := range locations {
			jobs <- rec
		}
		close(jobs)
	}()

	report := Report{
		RadiusKm:    radiusKm,
		GeneratedAt: time.Now().UTC(),
		PostalCodes: len(locations),
		Entries:     make([]Entry, 0, len(locations)),
	}
	for e := range results {
		if e.InRange == 0 {
			report.Uncovered++
		}
		report.Entries = append(report.Entries, e)
	}
	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].PostalCode < report.Entries[j].PostalCode
	})
	return report
}

func entryFor(snap *directory.Snapshot, rec directory.LocationRecord, radiusKm float64) Entry {
	e := Entry{PostalCode: rec.PostalCode, City: rec.City, District: rec.District}

	anchor := match.Anchor{Coord: rec.Coord(), City: rec.City, PostalCode: rec.PostalCode}
	loc := match.Location{City: rec.City, PostalCode: rec.PostalCode}
	nearest := -1.0
	for _, c := range match.Rank(snap, anchor, loc, radiusKm) {
		e.InRange++
		switch c.Tier {
		case match.TierExactPostal:
			e.ExactPostal++
		case match.TierSameCity:
			e.SameCity++
		default:
			e.Nearby++
		}
		if nearest < 0 || c.DistanceKm < nearest || (c.DistanceKm == nearest && c.Pharmacy.ID < e.NearestID) {
			nearest = c.DistanceKm
			e.NearestID = c.Pharmacy.ID
		}
	}
	if nearest >= 0 {
		e.NearestKm = geo.RoundKm(nearest)
	}
	return e
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(jsonData)
	return err
}
