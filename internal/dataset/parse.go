package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// header maps column names to their position in a CSV header row.
type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	row, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file, header row expected")
		}
		return nil, err
	}
	h := make(header, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		h[name] = i
	}
	return h, nil
}

// column returns the index of the first of names present in the header.
func (h header) column(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i, true
		}
	}
	return -1, false
}

func (h header) require(names ...string) (int, error) {
	if i, ok := h.column(names...); ok {
		return i, nil
	}
	return -1, fmt.Errorf("missing column %q", names[0])
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParsePostalCodes reads the postal-code directory CSV
// (city,pincode,area,lat,lon,district[,state]). Rows that cannot be parsed are
// skipped and recorded in lg.
func ParsePostalCodes(reader io.Reader, lg *Log) ([]directory.LocationRecord, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	h, err := readHeader(csvReader)
	if err != nil {
		return nil, fmt.Errorf("postal codes: %w", err)
	}
	cols := make(map[string]int)
	for name, aliases := range map[string][]string{
		"city": {"city"},
		"code": {"pincode", "postal_code", "zip_code"},
		"lat":  {"lat", "latitude"},
		"lon":  {"lon", "lng", "longitude"},
	} {
		i, err := h.require(aliases...)
		if err != nil {
			return nil, fmt.Errorf("postal codes: %w", err)
		}
		cols[name] = i
	}
	area, _ := h.column("area")
	district, _ := h.column("district")
	state, _ := h.column("state")

	var records []directory.LocationRecord
	line := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			lg.Appendf("could not read postal code record on line %d: %s", line, err.Error())
			continue
		}

		postalCode := field(record, cols["code"])
		if postalCode == "" {
			lg.Appendf("postal code missing on line %d", line)
			continue
		}
		latitude, err := strconv.ParseFloat(field(record, cols["lat"]), 64)
		if err != nil {
			lg.Appendf("could not parse latitude for postal code %s: %s", postalCode, err.Error())
			continue
		}
		longitude, err := strconv.ParseFloat(field(record, cols["lon"]), 64)
		if err != nil {
			lg.Appendf("could not parse longitude for postal code %s: %s", postalCode, err.Error())
			continue
		}

		records = append(records, directory.LocationRecord{
			City:       field(record, cols["city"]),
			PostalCode: postalCode,
			Area:       field(record, area),
			Latitude:   latitude,
			Longitude:  longitude,
			District:   field(record, district),
			State:      field(record, state),
		})
	}
	return records, nil
}

// flexString accepts a JSON string or number. Some pharmacy exports carry postal
// codes and IDs as bare numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type pharmacyJSON struct {
	ID         flexString `json:"id"`
	Name       string     `json:"name"`
	Lat        *float64   `json:"lat"`
	Lon        *float64   `json:"lon"`
	City       string     `json:"city"`
	Pincode    flexString `json:"pincode"`
	PostalCode flexString `json:"postal_code"`
	Area       string     `json:"area"`
	District   string     `json:"district"`
	Services   []string   `json:"services"`
	DeliveryKm float64    `json:"delivery_km"`
	Rating     float64    `json:"rating"`
	Verified   bool       `json:"verified"`
}

// ParsePharmacies reads the pharmacy directory, a JSON array of pharmacy objects.
// Entries without an ID or coordinates are skipped and recorded in lg.
func ParsePharmacies(reader io.Reader, lg *Log) ([]directory.Pharmacy, error) {
	var raw []pharmacyJSON
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("pharmacies: %w", err)
	}

	pharmacies := make([]directory.Pharmacy, 0, len(raw))
	for i, r := range raw {
		if r.ID == "" {
			lg.Appendf("pharmacy at index %d has no id", i)
			continue
		}
		if r.Lat == nil || r.Lon == nil {
			lg.Appendf("pharmacy %s has no coordinates", r.ID)
			continue
		}
		code := r.Pincode
		if code == "" {
			code = r.PostalCode
		}
		pharmacies = append(pharmacies, directory.Pharmacy{
			ID:         string(r.ID),
			Name:       strings.TrimSpace(r.Name),
			Latitude:   *r.Lat,
			Longitude:  *r.Lon,
			City:       strings.TrimSpace(r.City),
			PostalCode: string(code),
			Area:       r.Area,
			District:   r.District,
			Services:   r.Services,
			DeliveryKm: r.DeliveryKm,
			Rating:     r.Rating,
			Verified:   r.Verified,
		})
	}
	return pharmacies, nil
}

// ParseInventory reads the inventory CSV (pharmacy_id,sku,qty_available,price).
func ParseInventory(reader io.Reader, lg *Log) ([]directory.InventoryLine, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	h, err := readHeader(csvReader)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	pharmacyCol, err := h.require("pharmacy_id")
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	skuCol, err := h.require("sku")
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	qtyCol, err := h.require("qty_available", "qty", "quantity")
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	priceCol, _ := h.column("price")

	var lines []directory.InventoryLine
	line := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			lg.Appendf("could not read inventory record on line %d: %s", line, err.Error())
			continue
		}

		pharmacyID, sku := field(record, pharmacyCol), field(record, skuCol)
		if pharmacyID == "" || sku == "" {
			lg.Appendf("inventory line %d has no pharmacy_id or sku", line)
			continue
		}
		qty, err := strconv.Atoi(field(record, qtyCol))
		if err != nil {
			lg.Appendf("could not parse quantity for %s/%s: %s", pharmacyID, sku, err.Error())
			continue
		}
		if qty < 0 {
			lg.Appendf("negative quantity %d for %s/%s, treating as 0", qty, pharmacyID, sku)
			qty = 0
		}
		price := decimal.Zero
		if raw := field(record, priceCol); raw != "" {
			price, err = decimal.NewFromString(raw)
			if err != nil {
				lg.Appendf("could not parse price for %s/%s: %s", pharmacyID, sku, err.Error())
				continue
			}
		}

		lines = append(lines, directory.InventoryLine{
			PharmacyID: pharmacyID,
			SKU:        sku,
			Quantity:   qty,
			Price:      price,
		})
	}
	return lines, nil
}

// WritePostalCodes writes records in the format ParsePostalCodes reads.
func WritePostalCodes(w io.Writer, records []directory.LocationRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"city", "pincode", "area", "lat", "lon", "district", "state"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.City,
			r.PostalCode,
			r.Area,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			r.District,
			r.State,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
