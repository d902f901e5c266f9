package filestorage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrObjectNotFound is returned when no blob exists for a storage reference
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidReference is returned for references this store never issues
	ErrInvalidReference = errors.New("invalid storage reference")
)

// UploadTarget describes where a client should send the bytes of a new blob
type UploadTarget struct {
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	StorageRef string    `json:"storageRef"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// BlobStore is the two-phase upload contract of the external blob store. The
// service only ever stores StorageRef values and never handles file bytes.
type BlobStore interface {
	// RequestUploadURL reserves a new storage reference and returns a
	// short lived URL the client uploads to.
	RequestUploadURL(ctx context.Context) (*UploadTarget, error)

	// ResolveDownloadURL returns a time limited download URL for ref, or
	// ErrObjectNotFound for a ref the store cannot serve. Remote stores may
	// sign without checking that the object exists.
	ResolveDownloadURL(ctx context.Context, ref string) (string, error)

	// Exists reports whether bytes were uploaded under ref.
	Exists(ctx context.Context, ref string) (bool, error)
}
