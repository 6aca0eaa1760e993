// Package dataset loads the postal-code directory, the pharmacy directory and the
// inventory store from wherever the data layer keeps them (local files, an
// S3-compatible bucket, Postgres or SQLite) and turns them into a directory.Snapshot.
package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// Default file / object names of the three datasets.
const (
	PostalCodesName = "zipcodes.csv"
	PharmaciesName  = "pharmacies.json"
	InventoryName   = "inventory.csv"
)

// Source produces a complete Dataset. Implementations must return all three parts
// from the same generation of data or fail.
type Source interface {
	Load(ctx context.Context, lg *Log) (directory.Dataset, error)
}

// Build loads a Dataset from src and turns it into a Snapshot. Integrity issues
// found by the snapshot are appended to lg.
func Build(ctx context.Context, src Source, lg *Log) (*directory.Snapshot, error) {
	ds, err := src.Load(ctx, lg)
	if err != nil {
		return nil, err
	}
	snap, err := directory.NewSnapshot(ds)
	if err != nil {
		return nil, err
	}
	for _, issue := range snap.Issues() {
		lg.Append(issue.String())
	}
	return snap, nil
}

// decode parses the three datasets from readers.
func decode(postalCodes, pharmacies, inventory io.Reader, lg *Log) (directory.Dataset, error) {
	var (
		ds  directory.Dataset
		err error
	)
	if ds.Locations, err = ParsePostalCodes(postalCodes, lg); err != nil {
		return directory.Dataset{}, err
	}
	if ds.Pharmacies, err = ParsePharmacies(pharmacies, lg); err != nil {
		return directory.Dataset{}, err
	}
	if ds.Inventory, err = ParseInventory(inventory, lg); err != nil {
		return directory.Dataset{}, err
	}
	return ds, nil
}

// FileSource reads the datasets from local files.
type FileSource struct {
	PostalCodesPath string
	PharmaciesPath  string
	InventoryPath   string
}

// NewFileSource uses the default file names inside dir.
func NewFileSource(dir string) FileSource {
	return FileSource{
		PostalCodesPath: filepath.Join(dir, PostalCodesName),
		PharmaciesPath:  filepath.Join(dir, PharmaciesName),
		InventoryPath:   filepath.Join(dir, InventoryName),
	}
}

func (f FileSource) Load(_ context.Context, lg *Log) (directory.Dataset, error) {
	var files []*os.File
	defer func() {
		for _, fh := range files {
			_ = fh.Close()
		}
	}()
	for _, path := range []string{f.PostalCodesPath, f.PharmaciesPath, f.InventoryPath} {
		fh, err := os.Open(path)
		if err != nil {
			return directory.Dataset{}, fmt.Errorf("open dataset: %w", err)
		}
		files = append(files, fh)
	}
	return decode(files[0], files[1], files[2], lg)
}
