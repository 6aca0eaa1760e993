package dataset

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const postalCodesCSV = `city,pincode,area,lat,lon,district
Bhiwandi,421302,Bhiwandi City,19.2813,73.0483,Thane
Bhiwandi,421305,Kamatghar,19.2967,73.0631,Thane
Kalyan,421301,Kalyan West,19.2437,73.1355,Thane
Mumbai,400001,Fort,not-a-number,72.8347,Mumbai
Mumbai,,Colaba,18.9067,72.8147,Mumbai
`

const pharmaciesJSON = `[
  {"id": "ph10001", "name": "Apollo Pharmacy Bhiwandi", "lat": 19.2820, "lon": 73.0490, "city": "Bhiwandi",
   "pincode": "421302", "area": "Bhiwandi City", "district": "Thane", "services": ["24x7", "home_delivery"],
   "delivery_km": 5, "rating": 4.5, "verified": true},
  {"id": 10002, "name": " MedPlus Kalyan ", "lat": 19.2440, "lon": 73.1350, "city": "Kalyan", "pincode": 421301},
  {"id": "ph10003", "name": "No Coordinates", "city": "Kalyan", "pincode": "421301"},
  {"name": "No ID", "lat": 19.0, "lon": 73.0}
]`

const inventoryCSV = `pharmacy_id,sku,qty_available,price
ph10001,OTC001,120,25.50
ph10001,OTC002,0,80
10002,OTC001,15,24.00
10002,OTC003,lots,10
,OTC004,1,1
`

func TestParsePostalCodes(t *testing.T) {
	var lg Log
	records, err := ParsePostalCodes(strings.NewReader(postalCodesCSV), &lg)
	if err != nil {
		t.Fatalf("ParsePostalCodes() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records; want 3: %+v", len(records), records)
	}
	first := records[0]
	if first.PostalCode != "421302" || first.City != "Bhiwandi" || first.Latitude != 19.2813 || first.District != "Thane" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if lg.Length != 2 {
		t.Fatalf("log length = %d; want 2 (%v)", lg.Length, lg.Records)
	}
}

func TestParsePostalCodes_KeepsLeadingZeros(t *testing.T) {
	records, err := ParsePostalCodes(strings.NewReader("postal_code,city,latitude,longitude\n01234,Springfield,42.1,-72.5\n"), &Log{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].PostalCode != "01234" {
		t.Fatalf("got %+v", records)
	}
}

func TestParsePostalCodes_MissingColumn(t *testing.T) {
	if _, err := ParsePostalCodes(strings.NewReader("city,lat,lon\nX,1,2\n"), &Log{}); err == nil {
		t.Fatal("expected error for missing pincode column")
	}
	if _, err := ParsePostalCodes(strings.NewReader(""), &Log{}); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestParsePharmacies(t *testing.T) {
	var lg Log
	pharmacies, err := ParsePharmacies(strings.NewReader(pharmaciesJSON), &lg)
	if err != nil {
		t.Fatalf("ParsePharmacies() error = %v", err)
	}
	if len(pharmacies) != 2 {
		t.Fatalf("got %d pharmacies; want 2", len(pharmacies))
	}

	apollo := pharmacies[0]
	if apollo.ID != "ph10001" || apollo.PostalCode != "421302" || !apollo.Verified || apollo.Rating != 4.5 {
		t.Fatalf("unexpected pharmacy %+v", apollo)
	}
	if want := []string{"24x7", "home_delivery"}; !reflect.DeepEqual(apollo.Services, want) {
		t.Fatalf("services = %v; want %v", apollo.Services, want)
	}

	medplus := pharmacies[1]
	if medplus.ID != "10002" || medplus.PostalCode != "421301" || medplus.Name != "MedPlus Kalyan" {
		t.Fatalf("numeric id/pincode not normalised: %+v", medplus)
	}
	if lg.Length != 2 {
		t.Fatalf("log length = %d; want 2 (%v)", lg.Length, lg.Records)
	}
}

func TestParsePharmacies_BadJSON(t *testing.T) {
	if _, err := ParsePharmacies(strings.NewReader(`{"id": "x"}`), &Log{}); err == nil {
		t.Fatal("expected error for non-array JSON")
	}
}

func TestParseInventory(t *testing.T) {
	var lg Log
	lines, err := ParseInventory(strings.NewReader(inventoryCSV), &lg)
	if err != nil {
		t.Fatalf("ParseInventory() error = %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines; want 3: %+v", len(lines), lines)
	}
	if lines[0].PharmacyID != "ph10001" || lines[0].Quantity != 120 || !lines[0].Price.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("unexpected first line %+v", lines[0])
	}
	if lines[1].Quantity != 0 {
		t.Fatalf("zero quantity line should be kept: %+v", lines[1])
	}
	if lg.Length != 2 {
		t.Fatalf("log length = %d; want 2 (%v)", lg.Length, lg.Records)
	}
}

func TestWritePostalCodes_RoundTrip(t *testing.T) {
	records, err := ParsePostalCodes(strings.NewReader(postalCodesCSV), &Log{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WritePostalCodes(&buf, records); err != nil {
		t.Fatalf("WritePostalCodes() error = %v", err)
	}
	again, err := ParsePostalCodes(&buf, &Log{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(records, again) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", records, again)
	}
}

func TestParseGeoNames(t *testing.T) {
	tsv := "IN\t421302\tBhiwandi\tMaharashtra\t16\tThane\t517\tBhiwandi\t\t19.2813\t73.0483\t4\n" +
		"IN\t421301\tKalyan\tMaharashtra\t16\tThane\t517\tKalyan\t\tbad\t73.1355\t4\n" +
		"IN\ttoo\tfew\n"

	var lg Log
	records := ParseGeoNames(strings.NewReader(tsv), &lg)
	if len(records) != 1 {
		t.Fatalf("got %d records; want 1", len(records))
	}
	r := records[0]
	if r.PostalCode != "421302" || r.City != "Bhiwandi" || r.State != "Maharashtra" || r.District != "Thane" || r.Longitude != 73.0483 {
		t.Fatalf("unexpected record %+v", r)
	}
	if lg.Length != 2 {
		t.Fatalf("log length = %d; want 2 (%v)", lg.Length, lg.Records)
	}
}
