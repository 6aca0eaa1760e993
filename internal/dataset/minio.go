package dataset

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

// ObjectKeys names the three dataset objects inside a bucket.
type ObjectKeys struct {
	PostalCodes string
	Pharmacies  string
	Inventory   string
}

func DefaultObjectKeys() ObjectKeys {
	return ObjectKeys{PostalCodes: PostalCodesName, Pharmacies: PharmaciesName, Inventory: InventoryName}
}

// Contains reports whether key is one of the dataset objects.
func (k ObjectKeys) Contains(key string) bool {
	return key == k.PostalCodes || key == k.Pharmacies || key == k.Inventory
}

// ObjectSource reads the datasets from an S3-compatible bucket (MinIO, S3).
type ObjectSource struct {
	client *minio.Client
	bucket string
	keys   ObjectKeys
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func NewObjectSource(cfg MinioConfig, keys ObjectKeys) (*ObjectSource, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("missing one or more required settings: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY, MINIO_BUCKET")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	log.Println("Using MinIO endpoint:", cfg.Endpoint)
	return &ObjectSource{client: minioClient, bucket: cfg.Bucket, keys: keys}, nil
}

func (s *ObjectSource) Bucket() string { return s.bucket }

func (s *ObjectSource) Keys() ObjectKeys { return s.keys }

func (s *ObjectSource) Load(ctx context.Context, lg *Log) (directory.Dataset, error) {
	var objects []*minio.Object
	defer func() {
		for _, o := range objects {
			_ = o.Close()
		}
	}()
	for _, key := range []string{s.keys.PostalCodes, s.keys.Pharmacies, s.keys.Inventory} {
		object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return directory.Dataset{}, fmt.Errorf("failed to get object %s from bucket %s: %w", key, s.bucket, err)
		}
		objects = append(objects, object)
	}
	return decode(objects[0], objects[1], objects[2], lg)
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *ObjectSource) EnsureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region})
}

// Publish uploads one dataset object. Publishing the three objects is what
// triggers bucket notifications picked up by the refresh watcher.
func (s *ObjectSource) Publish(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to store object %s in bucket %s: %w", key, s.bucket, err)
	}
	log.Printf("Stored dataset object '%s' in bucket '%s'", key, s.bucket)
	return nil
}
