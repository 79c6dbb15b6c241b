package store

import (
	"context"
	"io"
)

// Store authenticates against an object store holding the forecasting artifacts.
type Store interface {
	// Authenticate verifies access and returns a session bound to one container
	Authenticate(ctx context.Context) (Session, error)
}

// Session reads and writes blobs by key. A missing key is a DataUnavailable error.
type Session interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Close releases resources held by s when it has any.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
