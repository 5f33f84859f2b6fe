package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
)

// Store archives analysis records as JSON objects in a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, endpoint, region, bucket, prefix, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	if prefix == "" {
		prefix = "analyses"
	}
	return &Store{client: cli, bucketName: bucket, prefix: prefix}, nil
}

// Put implements analysis.Archive and returns the object key.
func (s *Store) Put(ctx context.Context, r *domain.Record) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record %d: %w", r.ID, err)
	}
	key := ObjectKey(s.prefix, r)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"verdict": r.Verdict,
		},
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// ObjectKey lays records out by creation day: <prefix>/YYYY/MM/DD/<id>.json
func ObjectKey(prefix string, r *domain.Record) string {
	t := r.CreatedAt.UTC()
	return fmt.Sprintf("%s/%04d/%02d/%02d/%d.json", prefix, t.Year(), t.Month(), t.Day(), r.ID)
}
