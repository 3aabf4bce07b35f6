package objectstore

import (
	"fmt"
	"strings"
)

// Location identifies an object within a bucket.
type Location struct {
	Bucket string
	Key    string
}

// URI returns the s3://bucket/key form of the location.
func (l Location) URI() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// ParseURI splits an s3://bucket/key URI into a Location
func ParseURI(uri string) (Location, error) {
	if len(uri) > 7 && strings.HasPrefix(strings.ToLower(uri), "s3://") {
		rest := uri[len("s3://"):]
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("uri %q is not an object uri in the form of s3://bucket/key", uri)
		}
		return Location{Bucket: bucket, Key: key}, nil
	}
	return Location{}, fmt.Errorf("uri %q is not an object uri in the form of s3://bucket/key", uri)
}

// Store defines the interface for object store operations
type Store interface {
	// Get retrieves an object's bytes
	Get(bucket, key string) ([]byte, error)

	// GetRange retrieves length bytes of an object starting at offset
	GetRange(bucket, key string, offset, length int64) ([]byte, error)

	// Put writes an object
	Put(bucket, key string, data []byte) error

	// Copy duplicates an object byte-for-byte without touching the source
	Copy(srcBucket, srcKey, dstBucket, dstKey string) error
}
