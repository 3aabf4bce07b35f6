package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore implements the Store interface on the local filesystem,
// mapping buckets to directories under a base path. Used for development
// and tests; production deployments plug in a remote store behind the
// same interface.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a new LocalStore instance
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	return &LocalStore{
		basePath: basePath,
	}, nil
}

func (l *LocalStore) objectPath(bucket, key string) string {
	return filepath.Join(l.basePath, bucket, filepath.FromSlash(key))
}

// Get retrieves an object from local storage
func (l *LocalStore) Get(bucket, key string) ([]byte, error) {
	data, err := os.ReadFile(l.objectPath(bucket, key))
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// GetRange retrieves length bytes of an object starting at offset
func (l *LocalStore) GetRange(bucket, key string, offset, length int64) ([]byte, error) {
	data, err := l.Get(bucket, key)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset > int64(len(data)) {
		return nil, fmt.Errorf("range offset %d out of bounds for object %s/%s", offset, bucket, key)
	}
	end := offset + length
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}

// Put writes an object to local storage
func (l *LocalStore) Put(bucket, key string, data []byte) error {
	path := l.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Copy duplicates an object within local storage
func (l *LocalStore) Copy(srcBucket, srcKey, dstBucket, dstKey string) error {
	data, err := l.Get(srcBucket, srcKey)
	if err != nil {
		return fmt.Errorf("copying object: %w", err)
	}
	if err := l.Put(dstBucket, dstKey, data); err != nil {
		return fmt.Errorf("copying object: %w", err)
	}
	return nil
}
