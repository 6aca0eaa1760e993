package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/thomhuang/PharmacyFinder/internal/config"
	"github.com/thomhuang/PharmacyFinder/internal/dataset"
	"github.com/thomhuang/PharmacyFinder/internal/directory"
	"github.com/thomhuang/PharmacyFinder/internal/graceful"
	"github.com/thomhuang/PharmacyFinder/internal/match"
	"github.com/thomhuang/PharmacyFinder/internal/refresh"
	"github.com/thomhuang/PharmacyFinder/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	policy, err := match.ParsePolicy(cfg.MatchStockPolicy)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	matcher := match.New(match.WithRadius(cfg.SearchRadiusKm), match.WithPolicy(policy))

	src, closeSource, err := dataset.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("dataset source: %v", err)
	}
	defer closeSource()

	lg := &dataset.Log{}
	start := time.Now()
	snap, err := dataset.Build(ctx, src, lg)
	if err != nil {
		log.Fatalf("loading datasets from %s: %v", cfg.DatasetSource, err)
	}
	if err := lg.WriteFile(cfg.LoadLogFile); err != nil {
		log.Printf("Could not write load log: %v", err)
	}
	stats := snap.Stats()
	log.Printf("Loaded %d postal codes, %d pharmacies, %d inventory lines from %s in %s (%d warnings)",
		stats.PostalCodes, stats.Pharmacies, stats.InventoryLines, cfg.DatasetSource, time.Since(start), lg.Length)

	store := directory.NewStore(snap)

	if cfg.RefreshEnabled() {
		log.Printf("Watching %s on topic %s for dataset changes in bucket %s", cfg.KafkaBroker, cfg.KafkaTopic, cfg.MinioBucket)
		consumer := refresh.NewConsumer(cfg.KafkaTopic, cfg.KafkaGroupID, cfg.KafkaBroker)
		consumer.Start(ctx)
		defer consumer.Stop()

		watcher := refresh.NewWatcher(consumer, src, store, cfg.MinioBucket, dataset.DefaultObjectKeys(), cfg.LoadLogFile)
		go watcher.Run(ctx)
	} else if cfg.KafkaBroker != "" {
		log.Printf("Ignoring KAFKA_BROKER: bucket refresh needs DATASET_SOURCE=minio, got %s", cfg.DatasetSource)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           server.NewHandler(store, matcher),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := graceful.Serve(ctx, srv, time.Duration(cfg.ShutdownTimeout)*time.Second); err != nil {
		log.Fatalf("server: %v", err)
	}
}
