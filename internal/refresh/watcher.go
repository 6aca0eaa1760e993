// Package refresh rebuilds the served snapshot when the dataset objects change in
// the bucket. Bucket notifications arrive through a Kafka topic.
package refresh

import (
	"context"
	"encoding/json"
	"log"
	"net/url"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/segmentio/kafka-go"

	"github.com/thomhuang/PharmacyFinder/internal/dataset"
	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// MessageSource delivers notification messages and acknowledges handled ones.
// *Consumer implements it.
type MessageSource interface {
	Messages() <-chan kafka.Message
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// Watcher swaps a freshly built snapshot into the store whenever one of the
// dataset objects is written. A failed build leaves the current snapshot in place.
type Watcher struct {
	messages MessageSource
	source   dataset.Source
	store    *directory.Store
	bucket   string
	keys     dataset.ObjectKeys
	logFile  string
}

func NewWatcher(messages MessageSource, source dataset.Source, store *directory.Store, bucket string, keys dataset.ObjectKeys, logFile string) *Watcher {
	return &Watcher{
		messages: messages,
		source:   source,
		store:    store,
		bucket:   bucket,
		keys:     keys,
		logFile:  logFile,
	}
}

// Run handles messages until the message channel is closed or ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ch := w.messages.Messages()
	for {
		var (
			msg kafka.Message
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case msg, ok = <-ch:
			if !ok {
				return
			}
		}

		var event notification.Info
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("Error unmarshalling bucket notification: %v", err)
			continue
		}

		if key, relevant := w.relevant(event); relevant {
			log.Printf("Dataset object %s changed, rebuilding snapshot", key)
			w.rebuild(ctx)
		}

		if err := w.messages.CommitOffset(ctx, msg); err != nil {
			log.Printf("Failed to commit offset: %v", err)
		}
	}
}

// relevant reports the first record that touches a dataset object in the
// watched bucket.
func (w *Watcher) relevant(event notification.Info) (string, bool) {
	for _, record := range event.Records {
		if record.S3.Bucket.Name != w.bucket {
			continue
		}
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			log.Printf("Error decoding object key %q: %v", record.S3.Object.Key, err)
			continue
		}
		if w.keys.Contains(key) {
			return key, true
		}
	}
	return "", false
}

func (w *Watcher) rebuild(ctx context.Context) {
	lg := &dataset.Log{}
	snap, err := dataset.Build(ctx, w.source, lg)
	if err != nil {
		log.Printf("Snapshot rebuild failed, keeping current data: %v", err)
		return
	}
	if w.logFile != "" {
		if err := lg.WriteFile(w.logFile); err != nil {
			log.Printf("Could not write load log: %v", err)
		}
	}
	w.store.Swap(snap)
	stats := snap.Stats()
	log.Printf("Snapshot swapped: %d postal codes, %d pharmacies, %d inventory lines, %d warnings",
		stats.PostalCodes, stats.Pharmacies, stats.InventoryLines, lg.Length)
}
