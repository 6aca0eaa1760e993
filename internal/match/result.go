package match

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Status is the outcome of a match. Every status other than StatusSuccess is a
// result the caller branches on, not a fault.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusNoStockInRange     Status = "no_stock_in_range"
	StatusNoPharmacyInRange  Status = "no_pharmacy_in_range"
	StatusLocationUnresolved Status = "location_unresolved"
	StatusInvalidInput       Status = "invalid_input"
)

var (
	ErrLocationUnresolved = errors.New("location could not be resolved")
	ErrNoPharmacyInRange  = errors.New("no pharmacy within range")
	ErrNoStockInRange     = errors.New("no pharmacy within range stocks the requested items")
	ErrInvalidInput       = errors.New("invalid input")
)

// Err returns the sentinel error for s, or nil for StatusSuccess.
func (s Status) Err() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusNoStockInRange:
		return ErrNoStockInRange
	case StatusNoPharmacyInRange:
		return ErrNoPharmacyInRange
	case StatusLocationUnresolved:
		return ErrLocationUnresolved
	default:
		return ErrInvalidInput
	}
}

// Tier is the match-quality class of a candidate. Lower tiers always rank first.
type Tier int

const (
	TierExactPostal Tier = iota + 1
	TierSameCity
	TierNearby
)

// TierNone labels results that carry no pharmacy.
const TierNone = "none"

func (t Tier) String() string {
	switch t {
	case TierExactPostal:
		return "exact_postal_match"
	case TierSameCity:
		return "same_city_match"
	case TierNearby:
		return "nearby_match"
	default:
		return TierNone
	}
}

// Availability is the stock of one requested SKU at one pharmacy.
type Availability struct {
	InStock  bool            `json:"in_stock"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Result struct {
	Status          Status                  `json:"status"`
	PharmacyID      string                  `json:"pharmacy_id,omitempty"`
	PharmacyName    string                  `json:"pharmacy_name,omitempty"`
	City            string                  `json:"city,omitempty"`
	PostalCode      string                  `json:"postal_code,omitempty"`
	Area            string                  `json:"area,omitempty"`
	DistanceKm      float64                 `json:"distance_km"`
	LocationMatch   string                  `json:"location_match"`
	SKUAvailability map[string]Availability `json:"sku_availability,omitempty"`
	Message         string                  `json:"message,omitempty"`
}

// Err maps a failing result to its sentinel error.
func (r Result) Err() error {
	return r.Status.Err()
}

func failure(status Status, message string) Result {
	return Result{Status: status, LocationMatch: TierNone, Message: message}
}
