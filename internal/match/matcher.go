package match

import (
	"fmt"
	"strings"

	"github.com/thomhuang/PharmacyFinder/internal/geo"
)

// DefaultRadiusKm is the hard search radius around the anchor.
const DefaultRadiusKm = 25.0

// Matcher holds only configuration. It is safe for concurrent use; each call works
// on the Directory it is given.
type Matcher struct {
	radiusKm float64
	policy   Policy
}

type Option func(*Matcher)

// WithRadius sets the search radius. Non-positive values are ignored.
func WithRadius(km float64) Option {
	return func(m *Matcher) {
		if km > 0 {
			m.radiusKm = km
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(m *Matcher) {
		if p != "" {
			m.policy = p
		}
	}
}

func New(opts ...Option) *Matcher {
	m := &Matcher{radiusKm: DefaultRadiusKm, policy: PolicyAny}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Matcher) RadiusKm() float64 { return m.radiusKm }

func (m *Matcher) Policy() Policy { return m.policy }

// Ranking is the full ranked, stock-filtered candidate list for a request.
type Ranking struct {
	Status     Status   `json:"status"`
	Anchor     *Anchor  `json:"anchor,omitempty"`
	RadiusKm   float64  `json:"radius_km"`
	InRange    int      `json:"in_range"`
	Candidates []Result `json:"candidates"`
	Message    string   `json:"message,omitempty"`
}

// Match returns the best eligible pharmacy for req, or a result describing why
// there is none.
func (m *Matcher) Match(dir Directory, req Request) Result {
	rk := m.rank(dir, req)
	if rk.Status != StatusSuccess {
		return failure(rk.Status, rk.Message)
	}
	return rk.Candidates[0]
}

// Candidates returns up to limit eligible pharmacies in rank order. A limit of
// zero or less returns all of them.
func (m *Matcher) Candidates(dir Directory, req Request, limit int) Ranking {
	rk := m.rank(dir, req)
	if limit > 0 && len(rk.Candidates) > limit {
		rk.Candidates = rk.Candidates[:limit]
	}
	return rk
}

func (m *Matcher) rank(dir Directory, req Request) Ranking {
	req = req.normalize()
	rk := Ranking{RadiusKm: m.radiusKm, Candidates: []Result{}}

	if len(req.SKUs) == 0 {
		rk.Status, rk.Message = StatusInvalidInput, "at least one SKU is required"
		return rk
	}

	anchor, ok := Resolve(dir, req.Location)
	if !ok {
		rk.Status, rk.Message = StatusLocationUnresolved, unresolvedMessage(req.Location)
		return rk
	}
	if err := anchor.Coord.Validate(); err != nil {
		rk.Status, rk.Message = StatusInvalidInput, fmt.Sprintf("postal code %s: %s", anchor.PostalCode, err.Error())
		return rk
	}
	rk.Anchor = &anchor

	candidates := Rank(dir, anchor, req.Location, m.radiusKm)
	rk.InRange = len(candidates)
	if len(candidates) == 0 {
		rk.Status = StatusNoPharmacyInRange
		rk.Message = fmt.Sprintf("no pharmacy within %g km of %s", m.radiusKm, describe(anchor))
		return rk
	}

	eligible := FilterStock(dir, candidates, req.SKUs, m.policy)
	if len(eligible) == 0 {
		rk.Status = StatusNoStockInRange
		rk.Message = fmt.Sprintf("%d pharmacies within %g km of %s, none stock %s",
			len(candidates), m.radiusKm, describe(anchor), strings.Join(req.SKUs, ", "))
		return rk
	}

	rk.Status = StatusSuccess
	for _, e := range eligible {
		rk.Candidates = append(rk.Candidates, Result{
			Status:          StatusSuccess,
			PharmacyID:      e.Pharmacy.ID,
			PharmacyName:    e.Pharmacy.Name,
			City:            e.Pharmacy.City,
			PostalCode:      e.Pharmacy.PostalCode,
			Area:            e.Pharmacy.Area,
			DistanceKm:      geo.RoundKm(e.DistanceKm),
			LocationMatch:   e.Tier.String(),
			SKUAvailability: e.Availability,
		})
	}
	return rk
}

func describe(a Anchor) string {
	return fmt.Sprintf("%s %s", a.City, a.PostalCode)
}

func unresolvedMessage(loc Location) string {
	switch {
	case loc.PostalCode != "" && loc.City != "":
		return fmt.Sprintf("neither postal code %q nor city %q is in the directory", loc.PostalCode, loc.City)
	case loc.PostalCode != "":
		return fmt.Sprintf("postal code %q is not in the directory", loc.PostalCode)
	case loc.City != "":
		return fmt.Sprintf("city %q is not in the directory", loc.City)
	default:
		return "no city or postal code given"
	}
}
