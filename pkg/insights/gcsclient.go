package insights

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// ====================================================================================
// This file defines a set of interfaces to abstract the Google Cloud Storage
// client's read path: full-bucket listing and object readers. The abstraction
// allows the Scanner to be tested against in-memory fakes.
// ====================================================================================

// ObjectLister abstracts paginated bucket listing. Implementations must yield
// every object, not just the first page.
type ObjectLister interface {
	// Objects returns an iterator over the names of all objects under prefix.
	Objects(ctx context.Context, prefix string) ObjectIterator
}

// ObjectIterator walks a listing. Next returns iterator.Done after the final
// object.
type ObjectIterator interface {
	Next() (string, error)
}

// ObjectReader abstracts opening an object's content for reading.
type ObjectReader interface {
	NewReader(ctx context.Context, object string) (io.ReadCloser, error)
}

// ObjectStore is the full read-side contract the Scanner depends on.
type ObjectStore interface {
	ObjectLister
	ObjectReader
}

// --- Adapters to wrap the concrete Google Cloud Storage client ---

type gcsStoreAdapter struct {
	bucket *storage.BucketHandle
}

// NewGCSStoreAdapter makes one bucket of a concrete *storage.Client conform to
// the ObjectStore interface.
func NewGCSStoreAdapter(client *storage.Client, bucketName string) ObjectStore {
	if client == nil {
		return nil
	}
	return &gcsStoreAdapter{bucket: client.Bucket(bucketName)}
}

func (a *gcsStoreAdapter) Objects(ctx context.Context, prefix string) ObjectIterator {
	var query *storage.Query
	if prefix != "" {
		query = &storage.Query{Prefix: prefix}
	}
	return &gcsIteratorAdapter{it: a.bucket.Objects(ctx, query)}
}

func (a *gcsStoreAdapter) NewReader(ctx context.Context, object string) (io.ReadCloser, error) {
	return a.bucket.Object(object).NewReader(ctx)
}

type gcsIteratorAdapter struct {
	it *storage.ObjectIterator
}

// Next returns the next object name; the underlying iterator handles listing
// pagination transparently.
func (a *gcsIteratorAdapter) Next() (string, error) {
	attrs, err := a.it.Next()
	if err != nil {
		return "", err
	}
	return attrs.Name, nil
}
