package cache

import "errors"

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrBucketNotFound = errors.New("bucket not found")
	ErrEntryExpired   = errors.New("entry expired")
)
