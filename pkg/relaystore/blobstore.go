package relaystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/nous-sync/nse/pkg/models"
)

// BlobStoreConfig points an S3BlobStore at a bucket, optionally through a
// non-AWS S3-compatible endpoint (MinIO, R2, etc).
type BlobStoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	KeyPrefix       string
}

// S3BlobStore offloads a namespace's largest Private-tier ciphertext
// fields — the encrypted payload and, when present, the encrypted
// embedding — to S3 instead of BYTEA columns. The encrypted_nodes row
// keeps the other fields; each object's key is derived from the node id.
type S3BlobStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewS3BlobStore builds a client from cfg and verifies the bucket is
// reachable.
func NewS3BlobStore(ctx context.Context, cfg BlobStoreConfig) (*S3BlobStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("relaystore: blob store bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("relaystore: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	store := &S3BlobStore{client: client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("relaystore: bucket %q not reachable: %w", cfg.Bucket, err)
	}
	return store, nil
}

func (b *S3BlobStore) key(id, field string) string {
	return b.keyPrefix + id + "/" + field
}

func (b *S3BlobStore) put(ctx context.Context, id, field string, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id, field)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("relaystore: put %s/%s: %w", id, field, err)
	}
	return nil
}

func (b *S3BlobStore) get(ctx context.Context, id, field string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id, field)),
	})
	if err != nil {
		return nil, fmt.Errorf("relaystore: get %s/%s: %w", id, field, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *S3BlobStore) delete(ctx context.Context, id, field string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id, field)),
	})
	if err != nil {
		return fmt.Errorf("relaystore: delete %s/%s: %w", id, field, err)
	}
	return nil
}

// PutEncryptedNodeBlobs uploads n's payload and embedding ciphertext to
// S3 and clears them from n before the caller persists n's row, so the
// bulky bytes never touch Postgres.
func (b *S3BlobStore) PutEncryptedNodeBlobs(ctx context.Context, n *models.EncryptedNode) error {
	id := n.ID.String()
	if err := b.put(ctx, id, "payload", n.EncryptedPayload); err != nil {
		return err
	}
	if err := b.put(ctx, id, "embedding", n.EncryptedEmbedding); err != nil {
		return err
	}
	n.EncryptedPayload = nil
	n.EncryptedEmbedding = nil
	return nil
}

// FillEncryptedNodeBlobs fetches n's payload and embedding ciphertext
// back from S3 after a row read that left them empty.
func (b *S3BlobStore) FillEncryptedNodeBlobs(ctx context.Context, n *models.EncryptedNode) error {
	id := n.ID.String()
	payload, err := b.get(ctx, id, "payload")
	if err != nil {
		return err
	}
	n.EncryptedPayload = payload

	embedding, err := b.get(ctx, id, "embedding")
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil
		}
		return err
	}
	n.EncryptedEmbedding = embedding
	return nil
}

// DeleteEncryptedNodeBlobs removes both of id's S3 objects.
func (b *S3BlobStore) DeleteEncryptedNodeBlobs(ctx context.Context, id string) error {
	if err := b.delete(ctx, id, "payload"); err != nil {
		return err
	}
	return b.delete(ctx, id, "embedding")
}

// WithBlobStore attaches blobs to s, routing PutEncryptedNode /
// GetEncryptedNode through S3 for the large ciphertext fields instead of
// BYTEA columns. New attaches one whenever Config.BlobStore.Bucket is
// set, for either backend.
func (s *Store) WithBlobStore(blobs *S3BlobStore) *Store {
	s.blobs = blobs
	return s
}
