package match

import "strings"

// Location is the requested place. Either field may be empty.
type Location struct {
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

type Request struct {
	SKUs     []string `json:"skus"`
	Location Location `json:"location"`
}

// normalize trims every field and drops blank and repeated SKUs, keeping the
// first occurrence order.
func (r Request) normalize() Request {
	out := Request{
		Location: Location{
			City:       strings.TrimSpace(r.Location.City),
			PostalCode: strings.TrimSpace(r.Location.PostalCode),
		},
	}
	seen := make(map[string]bool, len(r.SKUs))
	for _, sku := range r.SKUs {
		sku = strings.TrimSpace(sku)
		if sku == "" || seen[sku] {
			continue
		}
		seen[sku] = true
		out.SKUs = append(out.SKUs, sku)
	}
	return out
}
