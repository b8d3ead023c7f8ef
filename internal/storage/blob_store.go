// Package storage provides the document blob store backed by gocloud.dev/blob.
// The bucket is selected by URL, so local filesystem, in-memory and the cloud
// providers are interchangeable via configuration.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"

	// Register blob bucket drivers
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// BlobStore stores envelope documents: the original upload, the finalized
// signed document and the audit trail export.
type BlobStore interface {
	// Put writes content under key with the given content type.
	Put(ctx context.Context, key string, content []byte, contentType string) error
	// Get reads the full content stored under key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the content stored under key.
	Delete(ctx context.Context, key string) error
	// SignedGetURL returns a time-limited download URL for key. Not every
	// bucket driver supports signing; callers must handle the error by
	// falling back to proxied downloads.
	SignedGetURL(ctx context.Context, key string) (string, error)
	// Close releases the underlying bucket.
	Close() error
}

// blobStore implements BlobStore over a gocloud.dev bucket.
type blobStore struct {
	bucket       *blob.Bucket
	signedURLTTL time.Duration
}

// NewBlobStore opens the bucket identified by bucketURL. Supports mem://,
// file://, s3://, gs:// and azblob:// URLs.
func NewBlobStore(ctx context.Context, bucketURL string, signedURLTTL time.Duration) (BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob bucket: %w", err)
	}
	return &blobStore{bucket: bucket, signedURLTTL: signedURLTTL}, nil
}

func (b *blobStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := b.bucket.WriteAll(ctx, key, content, opts); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}

func (b *blobStore) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %q: %w", key, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return content, nil
}

func (b *blobStore) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete blob %q: %w", key, err)
	}
	return nil
}

func (b *blobStore) SignedGetURL(ctx context.Context, key string) (string, error) {
	opts := &blob.SignedURLOptions{Expiry: b.signedURLTTL, Method: "GET"}
	url, err := b.bucket.SignedURL(ctx, key, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for blob %q: %w", key, err)
	}
	return url, nil
}

func (b *blobStore) Close() error {
	return b.bucket.Close()
}
