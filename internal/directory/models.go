package directory

import (
	"github.com/shopspring/decimal"

	"github.com/thomhuang/PharmacyFinder/internal/geo"
)

// Service tags carried in Pharmacy.Services.
const (
	Service24x7           = "24x7"
	ServiceHomeDelivery   = "home_delivery"
	ServiceOnlineOrdering = "online_ordering"
)

// LocationRecord is one postal-code directory entry. PostalCode is kept as text so
// leading zeros and fixed width survive.
type LocationRecord struct {
	City       string  `json:"city"`
	PostalCode string  `json:"pincode"`
	Area       string  `json:"area,omitempty"`
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	District   string  `json:"district,omitempty"`
	State      string  `json:"state,omitempty"`
}

func (l LocationRecord) Coord() geo.Coord {
	return geo.Coord{Lat: l.Latitude, Lon: l.Longitude}
}

type Pharmacy struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	City       string   `json:"city"`
	PostalCode string   `json:"pincode"`
	Area       string   `json:"area,omitempty"`
	District   string   `json:"district,omitempty"`
	Services   []string `json:"services,omitempty"`
	DeliveryKm float64  `json:"delivery_km,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	Verified   bool     `json:"verified"`
}

func (p Pharmacy) Coord() geo.Coord {
	return geo.Coord{Lat: p.Latitude, Lon: p.Longitude}
}

func (p Pharmacy) HasService(tag string) bool {
	for _, s := range p.Services {
		if s == tag {
			return true
		}
	}
	return false
}

// InventoryLine is the stock of one SKU at one pharmacy.
type InventoryLine struct {
	PharmacyID string          `json:"pharmacy_id"`
	SKU        string          `json:"sku"`
	Quantity   int             `json:"qty_available"`
	Price      decimal.Decimal `json:"price"`
}

// Dataset is the raw material a Snapshot is built from.
type Dataset struct {
	Locations  []LocationRecord
	Pharmacies []Pharmacy
	Inventory  []InventoryLine
}
