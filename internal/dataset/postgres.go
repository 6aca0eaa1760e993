package dataset

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// NewPool opens and pings a Postgres connection pool.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}

// PostgresSource reads the datasets from the postal_codes, pharmacies and
// inventory tables. All three are read in one repeatable-read transaction so the
// snapshot is consistent.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

func (s *PostgresSource) Load(ctx context.Context, lg *Log) (directory.Dataset, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var ds directory.Dataset

	rows, err := tx.Query(ctx, `
		SELECT city, pincode, COALESCE(area, ''), lat, lon, COALESCE(district, ''), COALESCE(state, '')
		FROM postal_codes
		ORDER BY pincode
	`)
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to query postal codes: %w", err)
	}
	for rows.Next() {
		var l directory.LocationRecord
		if err := rows.Scan(&l.City, &l.PostalCode, &l.Area, &l.Latitude, &l.Longitude, &l.District, &l.State); err != nil {
			rows.Close()
			return directory.Dataset{}, fmt.Errorf("failed to scan postal code: %w", err)
		}
		ds.Locations = append(ds.Locations, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to read postal codes: %w", err)
	}

	rows, err = tx.Query(ctx, `
		SELECT id, name, lat, lon, city, pincode, COALESCE(area, ''), COALESCE(district, ''),
		       COALESCE(services, '{}'), COALESCE(delivery_km, 0), COALESCE(rating, 0), verified
		FROM pharmacies
		ORDER BY id
	`)
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to query pharmacies: %w", err)
	}
	for rows.Next() {
		var p directory.Pharmacy
		if err := rows.Scan(&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.City, &p.PostalCode,
			&p.Area, &p.District, &p.Services, &p.DeliveryKm, &p.Rating, &p.Verified); err != nil {
			rows.Close()
			return directory.Dataset{}, fmt.Errorf("failed to scan pharmacy: %w", err)
		}
		ds.Pharmacies = append(ds.Pharmacies, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to read pharmacies: %w", err)
	}

	rows, err = tx.Query(ctx, `
		SELECT pharmacy_id, sku, qty_available, price::text
		FROM inventory
		ORDER BY pharmacy_id, sku
	`)
	if err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			line  directory.InventoryLine
			price string
		)
		if err := rows.Scan(&line.PharmacyID, &line.SKU, &line.Quantity, &price); err != nil {
			return directory.Dataset{}, fmt.Errorf("failed to scan inventory line: %w", err)
		}
		line.Price, err = decimal.NewFromString(price)
		if err != nil {
			lg.Appendf("could not parse price for %s/%s: %s", line.PharmacyID, line.SKU, err.Error())
			continue
		}
		ds.Inventory = append(ds.Inventory, line)
	}
	if err := rows.Err(); err != nil {
		return directory.Dataset{}, fmt.Errorf("failed to read inventory: %w", err)
	}

	return ds, nil
}
