package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// SQLiteStore keeps the datasets in a single SQLite file. It is both a Source and
// the target of Import, which makes it a convenient portable copy of the data layer.
type SQLiteStore struct {
	conn *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &SQLiteStore{conn: conn}
	if err := s.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS postal_codes (
  pincode TEXT PRIMARY KEY,
  city TEXT NOT NULL,
  area TEXT,
  lat REAL NOT NULL,
  lon REAL NOT NULL,
  district TEXT,
  state TEXT
);
CREATE INDEX IF NOT EXISTS idx_postal_codes_city ON postal_codes(city);

CREATE TABLE IF NOT EXISTS pharmacies (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  lat REAL NOT NULL,
  lon REAL NOT NULL,
  city TEXT NOT NULL,
  pincode TEXT NOT NULL,
  area TEXT,
  district TEXT,
  services TEXT,
  delivery_km REAL,
  rating REAL,
  verified INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS inventory (
  pharmacy_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  qty_available INTEGER NOT NULL,
  price TEXT NOT NULL,
  PRIMARY KEY (pharmacy_id, sku)
);
`
	_, err := s.conn.Exec(schema)
	return err
}

// Import replaces the stored datasets with ds in one transaction. Duplicate keys
// keep the first row, matching directory.NewSnapshot.
func (s *SQLiteStore) Import(ctx context.Context, ds directory.Dataset) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"inventory", "pharmacies", "postal_codes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, l := range ds.Locations {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO postal_codes (pincode, city, area, lat, lon, district, state)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.PostalCode, l.City, l.Area, l.Latitude, l.Longitude, l.District, l.State); err != nil {
			return fmt.Errorf("insert postal code %s: %w", l.PostalCode, err)
		}
	}
	for _, p := range ds.Pharmacies {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO pharmacies (id, name, lat, lon, city, pincode, area, district, services, delivery_km, rating, verified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Latitude, p.Longitude, p.City, p.PostalCode, p.Area, p.District,
			strings.Join(p.Services, ","), p.DeliveryKm, p.Rating, p.Verified); err != nil {
			return fmt.Errorf("insert pharmacy %s: %w", p.ID, err)
		}
	}
	for _, line := range ds.Inventory {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO inventory (pharmacy_id, sku, qty_available, price)
VALUES (?, ?, ?, ?)`,
			line.PharmacyID, line.SKU, line.Quantity, line.Price.String()); err != nil {
			return fmt.Errorf("insert inventory %s/%s: %w", line.PharmacyID, line.SKU, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Load(ctx context.Context, lg *Log) (directory.Dataset, error) {
	var ds directory.Dataset

	rows, err := s.conn.QueryContext(ctx, `
SELECT city, pincode, COALESCE(area, ''), lat, lon, COALESCE(district, ''), COALESCE(state, '')
FROM postal_codes ORDER BY pincode`)
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("query postal codes: %w", err)
	}
	for rows.Next() {
		var l directory.LocationRecord
		if err := rows.Scan(&l.City, &l.PostalCode, &l.Area, &l.Latitude, &l.Longitude, &l.District, &l.State); err != nil {
			_ = rows.Close()
			return directory.Dataset{}, err
		}
		ds.Locations = append(ds.Locations, l)
	}
	if err := closeRows(rows); err != nil {
		return directory.Dataset{}, err
	}

	rows, err = s.conn.QueryContext(ctx, `
SELECT id, name, lat, lon, city, pincode, COALESCE(area, ''), COALESCE(district, ''),
       COALESCE(services, ''), COALESCE(delivery_km, 0), COALESCE(rating, 0), verified
FROM pharmacies ORDER BY id`)
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("query pharmacies: %w", err)
	}
	for rows.Next() {
		var (
			p        directory.Pharmacy
			services string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.City, &p.PostalCode,
			&p.Area, &p.District, &services, &p.DeliveryKm, &p.Rating, &p.Verified); err != nil {
			_ = rows.Close()
			return directory.Dataset{}, err
		}
		if services != "" {
			p.Services = strings.Split(services, ",")
		}
		ds.Pharmacies = append(ds.Pharmacies, p)
	}
	if err := closeRows(rows); err != nil {
		return directory.Dataset{}, err
	}

	rows, err = s.conn.QueryContext(ctx, `
SELECT pharmacy_id, sku, qty_available, price FROM inventory ORDER BY pharmacy_id, sku`)
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("query inventory: %w", err)
	}
	for rows.Next() {
		var (
			line  directory.InventoryLine
			price string
		)
		if err := rows.Scan(&line.PharmacyID, &line.SKU, &line.Quantity, &price); err != nil {
			_ = rows.Close()
			return directory.Dataset{}, err
		}
		line.Price, err = decimal.NewFromString(price)
		if err != nil {
			lg.Appendf("could not parse price for %s/%s: %s", line.PharmacyID, line.SKU, err.Error())
			continue
		}
		ds.Inventory = append(ds.Inventory, line)
	}
	if err := closeRows(rows); err != nil {
		return directory.Dataset{}, err
	}

	return ds, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}
