package geo

import (
	"math"

	"github.com/dhconnelly/rtreego"
)

// km spanned by one degree of latitude
const kmPerDegree = 111.32

// pointSize is the edge length, in degrees, of the rectangle stored for a point.
const pointSize = 1e-6

// Index is an R-tree over points, used to prefilter radius searches before the
// exact haversine check. It is not safe for concurrent Insert; once built it may be
// searched from any number of goroutines.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Hit is a point found by Within together with its distance from the search centre.
type Hit struct {
	ID string
	Km float64
}

type indexItem struct {
	rect  rtreego.Rect
	id    string
	coord Coord
}

func (it *indexItem) Bounds() rtreego.Rect {
	return it.rect
}

func NewIndex() *Index {
	// dim = 2D (lon, lat), 25..50 entries per node
	return &Index{tree: rtreego.NewTree(2, 25, 50)}
}

// Insert adds a point. The coordinate must already be validated.
func (ix *Index) Insert(id string, c Coord) {
	rect, _ := rtreego.NewRect(rtreego.Point{c.Lon, c.Lat}, []float64{pointSize, pointSize})
	ix.tree.Insert(&indexItem{rect: rect, id: id, coord: c})
	ix.size++
}

func (ix *Index) Len() int {
	return ix.size
}

// Within returns every point whose great-circle distance from center is at most
// radiusKm. Order is unspecified.
func (ix *Index) Within(center Coord, radiusKm float64) []Hit {
	if radiusKm < 0 || ix.size == 0 {
		return nil
	}

	var hits []Hit
	seen := make(map[string]bool)
	for _, searchRect := range searchRects(center, radiusKm) {
		for _, s := range ix.tree.SearchIntersect(searchRect) {
			// cast from `Spatial` to our item
			it := s.(*indexItem)
			if seen[it.id] {
				continue
			}
			seen[it.id] = true
			km := DistanceKm(center, it.coord)
			if km <= radiusKm {
				hits = append(hits, Hit{ID: it.id, Km: km})
			}
		}
	}
	return hits
}

// searchRects covers the circle of radiusKm around c. A box that crosses the
// antimeridian is searched again shifted by 360 degrees, since stored longitudes
// stay within [-180, 180].
func searchRects(c Coord, radiusKm float64) []rtreego.Rect {
	west, east, dLat := boundingBox(c, radiusKm)
	rects := []rtreego.Rect{lonLatRect(west, east, c.Lat, dLat)}
	if west < -180 {
		rects = append(rects, lonLatRect(west+360, east+360, c.Lat, dLat))
	}
	if east > 180 {
		rects = append(rects, lonLatRect(west-360, east-360, c.Lat, dLat))
	}
	return rects
}

// boundingBox returns the longitude span and latitude half-height of a box that
// contains the circle of radiusKm around c.
func boundingBox(c Coord, radiusKm float64) (west, east, dLat float64) {
	dLat = radiusKm/kmPerDegree + pointSize
	dLon := 360.0
	if cos := math.Cos(c.Lat * math.Pi / 180); cos > 1e-9 {
		dLon = math.Min(radiusKm/(kmPerDegree*cos)+pointSize, 360)
	}
	// a slightly padded box; the haversine check afterwards is exact
	dLat *= 1.01
	dLon = math.Min(dLon*1.01, 360)
	return c.Lon - dLon, c.Lon + dLon, dLat
}

func lonLatRect(west, east, lat, dLat float64) rtreego.Rect {
	rect, _ := rtreego.NewRect(rtreego.Point{west, lat - dLat}, []float64{east - west, 2 * dLat})
	return rect
}
