package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/umahmood/haversine"
)

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports coordinates outside lat [-90,90] / lon [-180,180], NaN included.
func (c Coord) Validate() error {
	if math.IsNaN(c.Lat) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// DistanceKm is the great-circle distance between a and b on a 6371 km sphere.
func DistanceKm(a, b Coord) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}

// RoundKm rounds to 2 decimal places.
func RoundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
