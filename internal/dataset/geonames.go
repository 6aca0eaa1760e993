package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

const geoNamesBaseURL = "https://download.geonames.org/export/zip"

// FetchGeoNames downloads the GeoNames postal-code dump for a country (e.g. "IN")
// and parses it into directory records. Always fetches the latest file.
func FetchGeoNames(ctx context.Context, client *http.Client, country string, lg *Log) ([]directory.LocationRecord, error) {
	return fetchGeoNames(ctx, client, geoNamesBaseURL, country, lg)
}

func fetchGeoNames(ctx context.Context, client *http.Client, baseURL, country string, lg *Log) ([]directory.LocationRecord, error) {
	if client == nil {
		client = http.DefaultClient
	}
	country = strings.ToUpper(strings.TrimSpace(country))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s.zip", baseURL, country), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not download postal code data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not download postal code data: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read zipped postal code data: %w", err)
	}
	zipReader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("could not unzip postal code data: %w", err)
	}

	// Process the zip file, ignore `readme.txt`
	want := country + ".txt"
	for _, f := range zipReader.File {
		if f.Name != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("could not open %s: %w", want, err)
		}
		defer rc.Close()
		return ParseGeoNames(rc, lg), nil
	}
	return nil, fmt.Errorf("%s not found in archive", want)
}

// ParseGeoNames reads a GeoNames postal-code TSV (12 fields per record).
// The place name becomes the city, admin name 1 the state and admin name 2 the district.
func ParseGeoNames(reader io.Reader, lg *Log) []directory.LocationRecord {
	var records []directory.LocationRecord

	csvReader := csv.NewReader(reader)
	csvReader.Comma = '\t'
	csvReader.FieldsPerRecord = 12
	csvReader.LazyQuotes = true

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			lg.Appendf("could not read geonames record: %s", err.Error())
			continue
		}

		postalCode := strings.TrimSpace(record[1])
		latitude, err := strconv.ParseFloat(record[9], 64)
		if err != nil {
			lg.Appendf("could not parse latitude for given record %s: %s", postalCode, err.Error())
			continue
		}
		longitude, err := strconv.ParseFloat(record[10], 64)
		if err != nil {
			lg.Appendf("could not parse longitude for given record %s: %s", postalCode, err.Error())
			continue
		}

		records = append(records, directory.LocationRecord{
			City:       strings.TrimSpace(record[2]),
			PostalCode: postalCode,
			Area:       strings.TrimSpace(record[7]),
			Latitude:   latitude,
			Longitude:  longitude,
			District:   strings.TrimSpace(record[5]),
			State:      strings.TrimSpace(record[3]),
		})
	}
	return records
}
