package match

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Policy decides which candidates can fulfil a request.
type Policy string

const (
	// PolicyAny accepts a pharmacy stocking at least one requested SKU.
	PolicyAny Policy = "any"
	// PolicyAll accepts only pharmacies stocking every requested SKU.
	PolicyAll Policy = "all"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAny, nil
	case PolicyAny, PolicyAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", s)
	}
}

// Eligible is a candidate that passed the stock filter.
type Eligible struct {
	Candidate
	Availability map[string]Availability
}

// FilterStock keeps the candidates that satisfy policy for skus. It only removes
// entries; the input order is preserved.
func FilterStock(dir Directory, candidates []Candidate, skus []string, policy Policy) []Eligible {
	var out []Eligible
	for _, c := range candidates {
		availability := make(map[string]Availability, len(skus))
		stocked := 0
		for _, sku := range skus {
			a := Availability{Price: decimal.Zero}
			if line, ok := dir.Stock(c.Pharmacy.ID, sku); ok && line.Quantity > 0 {
				a = Availability{InStock: true, Quantity: line.Quantity, Price: line.Price}
				stocked++
			}
			availability[sku] = a
		}

		if stocked == 0 || (policy == PolicyAll && stocked < len(skus)) {
			continue
		}
		out = append(out, Eligible{Candidate: c, Availability: availability})
	}
	return out
}
