package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// Namespaces used for stored objects.
const (
	NamespaceUploads = "uploads"
	NamespaceOutputs = "outputs"
)

// ErrNotFound is returned when a storage key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores r under namespace with a unique prefix added to fileName.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	// Sweep deletes every object under namespace last modified before cutoff
	// and reports how many were removed.
	Sweep(ctx context.Context, namespace string, cutoff time.Time) (int, error)
}
