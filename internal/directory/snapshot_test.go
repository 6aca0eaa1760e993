package directory

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/thomhuang/PharmacyFinder/internal/geo"
)

func testDataset() Dataset {
	return Dataset{
		Locations: []LocationRecord{
			{City: "Bhiwandi", PostalCode: "421308", Latitude: 19.3002, Longitude: 73.0588, District: "Thane"},
			{City: "Bhiwandi", PostalCode: "421302", Latitude: 19.2813, Longitude: 73.0483, District: "Thane"},
			{City: "Kalyan", PostalCode: "421301", Latitude: 19.2437, Longitude: 73.1355, District: "Thane"},
			{City: "Bhiwandi", PostalCode: "421305", Latitude: 19.2967, Longitude: 73.0631, District: "Thane"},
		},
		Pharmacies: []Pharmacy{
			{ID: "ph2", Name: "Apollo Bhiwandi", Latitude: 19.2820, Longitude: 73.0490, City: "Bhiwandi", PostalCode: "421302", Services: []string{Service24x7}},
			{ID: "ph1", Name: "MedPlus Kalyan", Latitude: 19.2440, Longitude: 73.1350, City: "Kalyan", PostalCode: "421301"},
		},
		Inventory: []InventoryLine{
			{PharmacyID: "ph2", SKU: "OTC001", Quantity: 40, Price: decimal.RequireFromString("25.50")},
			{PharmacyID: "ph1", SKU: "OTC002", Quantity: 0, Price: decimal.RequireFromString("80")},
		},
	}
}

func TestNewSnapshot_Indexes(t *testing.T) {
	s, err := NewSnapshot(testDataset())
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}

	if l, ok := s.PostalCode("421302"); !ok || l.City != "Bhiwandi" {
		t.Fatalf("PostalCode(421302) = %+v, %v", l, ok)
	}
	if _, ok := s.PostalCode("999999"); ok {
		t.Fatal("PostalCode(999999) found")
	}

	if got, want := s.CityPostalCodes(" bhiwandi "), []string{"421302", "421305", "421308"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("CityPostalCodes = %v; want %v", got, want)
	}
	if got, want := s.Cities(), []string{"Bhiwandi", "Kalyan"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Cities = %v; want %v", got, want)
	}

	var ids []string
	for _, p := range s.Pharmacies() {
		ids = append(ids, p.ID)
	}
	if want := []string{"ph1", "ph2"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("Pharmacies order = %v; want %v", ids, want)
	}

	line, ok := s.Stock("ph2", "OTC001")
	if !ok || line.Quantity != 40 || !line.Price.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("Stock(ph2, OTC001) = %+v, %v", line, ok)
	}
	if _, ok := s.Stock("ph2", "OTC002"); ok {
		t.Fatal("Stock(ph2, OTC002) should not exist")
	}

	stats := s.Stats()
	if stats.PostalCodes != 4 || stats.Cities != 2 || stats.Pharmacies != 2 || stats.InventoryLines != 2 {
		t.Fatalf("Stats = %+v", stats)
	}
}

func TestNewSnapshot_PharmaciesWithin(t *testing.T) {
	s, err := NewSnapshot(testDataset())
	if err != nil {
		t.Fatal(err)
	}
	anchor := geo.Coord{Lat: 19.2813, Lon: 73.0483}
	hits := s.PharmaciesWithin(anchor, 1)
	if len(hits) != 1 || hits[0].ID != "ph2" {
		t.Fatalf("PharmaciesWithin 1 km = %+v", hits)
	}
	if hits := s.PharmaciesWithin(anchor, 25); len(hits) != 2 {
		t.Fatalf("PharmaciesWithin 25 km = %+v", hits)
	}
}

func TestNewSnapshot_InvalidCoordinates(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Dataset)
	}{
		{"postal code latitude", func(ds *Dataset) { ds.Locations[0].Latitude = 91 }},
		{"pharmacy longitude", func(ds *Dataset) { ds.Pharmacies[1].Longitude = -200 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds := testDataset()
			tc.mutate(&ds)
			if _, err := NewSnapshot(ds); !errors.Is(err, geo.ErrInvalidCoordinate) {
				t.Fatalf("NewSnapshot() error = %v; want ErrInvalidCoordinate", err)
			}
		})
	}
}

func TestNewSnapshot_IntegrityProblemsDoNotFail(t *testing.T) {
	ds := testDataset()
	ds.Locations = append(ds.Locations, LocationRecord{City: "Kalyan", PostalCode: "421302", Latitude: 19.24, Longitude: 73.13})
	ds.Inventory = append(ds.Inventory,
		InventoryLine{PharmacyID: "ghost", SKU: "OTC001", Quantity: 5},
		InventoryLine{PharmacyID: "ph2", SKU: "OTC001", Quantity: 99},
	)

	s, err := NewSnapshot(ds)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if l, _ := s.PostalCode("421302"); l.City != "Bhiwandi" {
		t.Fatalf("first postal code record should win, got %+v", l)
	}
	if line, _ := s.Stock("ph2", "OTC001"); line.Quantity != 40 {
		t.Fatalf("first inventory line should win, got %+v", line)
	}
	if _, ok := s.Stock("ghost", "OTC001"); ok {
		t.Fatal("dangling inventory line kept")
	}

	kinds := map[IssueKind]bool{}
	for _, is := range s.Issues() {
		kinds[is.Kind] = true
	}
	for _, want := range []IssueKind{IssuePostalCodeCityConflict, IssueDanglingInventory, IssueDuplicateInventory} {
		if !kinds[want] {
			t.Errorf("missing issue %s in %v", want, s.Issues())
		}
	}
}

func TestStore_Swap(t *testing.T) {
	first, _ := NewSnapshot(testDataset())
	second, _ := NewSnapshot(Dataset{})
	st := NewStore(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if s := st.Current(); s != first && s != second {
					t.Errorf("Current() returned unknown snapshot %p", s)
					return
				}
			}
		}()
	}
	if old := st.Swap(second); old != first {
		t.Errorf("Swap returned %p; want %p", old, first)
	}
	wg.Wait()

	if st.Current() != second {
		t.Fatal("Current() is not the swapped-in snapshot")
	}
}
