package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thomhuang/PharmacyFinder/internal/config"
	"github.com/thomhuang/PharmacyFinder/internal/coverage"
	"github.com/thomhuang/PharmacyFinder/internal/dataset"
	"github.com/thomhuang/PharmacyFinder/internal/directory"
	"github.com/thomhuang/PharmacyFinder/internal/match"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := os.Args[1]
	switch cmd {
	case "match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		city := fs.String("city", "", "requested city")
		postalCode := fs.String("postal-code", "", "requested postal code")
		skus := fs.String("skus", "", "comma separated SKUs")
		radius := fs.Float64("radius", cfg.SearchRadiusKm, "search radius in km")
		policy := fs.String("policy", cfg.MatchStockPolicy, "any|all")
		limit := fs.Int("limit", 0, "list up to N ranked candidates instead of the best match")
		_ = fs.Parse(os.Args[2:])

		p, err := match.ParsePolicy(*policy)
		must(err)
		snap, _ := loadSnapshot(ctx, cfg)
		m := match.New(match.WithRadius(*radius), match.WithPolicy(p))
		req := match.Request{
			SKUs:     strings.Split(*skus, ","),
			Location: match.Location{City: *city, PostalCode: *postalCode},
		}
		if *limit > 0 {
			printJSON(m.Candidates(snap, req, *limit))
			return
		}
		res := m.Match(snap, req)
		printJSON(res)
		if res.Status == match.StatusInvalidInput {
			os.Exit(2)
		}
	case "check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "optional .json or .xlsx report path")
		_ = fs.Parse(os.Args[2:])

		snap, lg := loadSnapshot(ctx, cfg)
		issues := snap.Issues()
		counts := make(map[directory.IssueKind]int)
		for _, issue := range issues {
			counts[issue.Kind]++
			fmt.Println(issue)
		}
		for kind, n := range counts {
			fmt.Printf("%-26s %d\n", kind, n)
		}
		fmt.Printf("check complete issues=%d load_warnings=%d\n", len(issues), lg.Length)
		if *out != "" {
			if strings.EqualFold(filepath.Ext(*out), ".xlsx") {
				must(coverage.ExportIssuesXLSX(issues, *out))
			} else {
				writeReport(*out, coverage.Report{}, issues, issues)
			}
			fmt.Printf("wrote %s\n", *out)
		}
	case "coverage":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "coverage.json", "output .json or .xlsx path")
		radius := fs.Float64("radius", cfg.SearchRadiusKm, "search radius in km")
		workers := fs.Int("workers", 0, "worker count, 0 for one per CPU")
		_ = fs.Parse(os.Args[2:])

		snap, _ := loadSnapshot(ctx, cfg)
		start := time.Now()
		report := coverage.Compute(snap, *radius, *workers)
		writeReport(*out, report, snap.Issues(), report)
		fmt.Printf("coverage complete postal_codes=%d uncovered=%d took=%s out=%s\n",
			report.PostalCodes, report.Uncovered, time.Since(start), *out)
	case "geonames":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		country := fs.String("country", "IN", "ISO country code")
		out := fs.String("out", cfg.PostalCodesFile, "output zipcodes.csv path")
		_ = fs.Parse(os.Args[2:])

		lg := &dataset.Log{}
		client := &http.Client{Timeout: 5 * time.Minute}
		records, err := dataset.FetchGeoNames(ctx, client, *country, lg)
		must(err)
		must(os.MkdirAll(filepath.Dir(*out), 0o755))
		f, err := os.Create(*out)
		must(err)
		defer f.Close()
		must(dataset.WritePostalCodes(f, records))
		writeLoadLog(cfg, lg)
		fmt.Printf("geonames import complete country=%s postal_codes=%d skipped=%d out=%s\n",
			strings.ToUpper(*country), len(records), lg.Length, *out)
	case "import-sqlite":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dbPath := fs.String("db", cfg.SQLitePath, "sqlite database path")
		_ = fs.Parse(os.Args[2:])
		if cfg.DatasetSource == config.SourceSQLite {
			must(fmt.Errorf("import-sqlite needs a DATASET_SOURCE other than sqlite"))
		}

		src, closeSource, err := dataset.Open(ctx, cfg)
		must(err)
		defer closeSource()
		lg := &dataset.Log{}
		ds, err := src.Load(ctx, lg)
		must(err)
		store, err := dataset.OpenSQLite(*dbPath)
		must(err)
		defer store.Close()
		must(store.Import(ctx, ds))
		writeLoadLog(cfg, lg)
		fmt.Printf("sqlite import complete postal_codes=%d pharmacies=%d inventory=%d db=%s\n",
			len(ds.Locations), len(ds.Pharmacies), len(ds.Inventory), *dbPath)
	case "publish":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		dir := fs.String("dir", cfg.DataDir, "directory holding the dataset files")
		_ = fs.Parse(os.Args[2:])

		// refuse to publish data that would not load
		local := dataset.NewFileSource(*dir)
		_, err := dataset.Build(ctx, local, &dataset.Log{})
		must(err)

		objects, err := dataset.NewObjectSourceFromConfig(cfg)
		must(err)
		must(objects.EnsureBucket(ctx, cfg.MinioRegion))
		keys := objects.Keys()
		for key, path := range map[string]string{
			keys.PostalCodes: local.PostalCodesPath,
			keys.Pharmacies:  local.PharmaciesPath,
			keys.Inventory:   local.InventoryPath,
		} {
			must(publishFile(ctx, objects, key, path))
		}
		fmt.Printf("publish complete bucket=%s\n", objects.Bucket())
	default:
		usage()
		os.Exit(1)
	}
}

func loadSnapshot(ctx context.Context, cfg config.Config) (*directory.Snapshot, *dataset.Log) {
	src, closeSource, err := dataset.Open(ctx, cfg)
	must(err)
	defer closeSource()

	lg := &dataset.Log{}
	snap, err := dataset.Build(ctx, src, lg)
	must(err)
	writeLoadLog(cfg, lg)
	return snap, lg
}

func writeLoadLog(cfg config.Config, lg *dataset.Log) {
	if err := lg.WriteFile(cfg.LoadLogFile); err != nil {
		fmt.Fprintf(os.Stderr, "could not write load log: %v\n", err)
	}
}

// writeReport writes an .xlsx workbook or, for any other extension, jsonValue as JSON.
func writeReport(path string, report coverage.Report, issues []directory.Issue, jsonValue any) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		must(coverage.ExportXLSX(report, issues, path))
		return
	}
	must(os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	must(err)
	defer f.Close()
	if r, ok := jsonValue.(coverage.Report); ok {
		must(coverage.WriteJSON(f, r))
		return
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	must(enc.Encode(jsonValue))
}

func publishFile(ctx context.Context, objects *dataset.ObjectSource, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	contentType := "text/csv"
	if strings.HasSuffix(key, ".json") {
		contentType = "application/json"
	}
	return objects.Publish(ctx, key, f, info.Size(), contentType)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	must(enc.Encode(v))
}

func usage() {
	fmt.Println(`usage:
  pharmacyctl match --city Bhiwandi --postal-code 421302 --skus OTC001,OTC002 [--radius 25] [--policy any|all] [--limit N]
  pharmacyctl check [--out issues.json|issues.xlsx]
  pharmacyctl coverage [--out coverage.json|coverage.xlsx] [--radius 25] [--workers N]
  pharmacyctl geonames --country IN [--out data/zipcodes.csv]
  pharmacyctl import-sqlite [--db data/pharmacy.db]
  pharmacyctl publish [--dir data]`)
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
