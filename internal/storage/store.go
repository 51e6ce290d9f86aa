package storage

import (
	"context"
	"errors"
)

// Content types used for uploaded blobs.
const (
	ContentTypeHTML = "text/html;charset=UTF-8"
	ContentTypeJSON = "application/json;charset=UTF-8"
)

var (
	// ErrUpload is returned when a unit could not be stored.
	ErrUpload = errors.New("upload failed")

	// ErrNotFound is returned when a CID or a file inside it cannot be fetched.
	ErrNotFound = errors.New("content not found")

	// ErrNoBlobs is returned when Put is called without blobs.
	ErrNoBlobs = errors.New("no blobs to store")

	// ErrInvalidCID is returned for CIDs that cannot be parsed.
	ErrInvalidCID = errors.New("invalid CID")
)

// Blob is one named file of a unit.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store is a content-addressed blob store.
type Store interface {
	// Put stores blobs as one unit and returns its CID. A single blob is
	// addressed directly; several blobs are wrapped in a directory.
	Put(ctx context.Context, blobs ...Blob) (string, error)

	// Get returns the content of a single-blob unit.
	Get(ctx context.Context, cid string) ([]byte, error)

	// GetFile returns the named file of a directory unit.
	GetFile(ctx context.Context, cid, name string) ([]byte, error)
}
