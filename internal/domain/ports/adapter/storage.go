package adapter

import "context"

// MediaStore is the port for durable public object storage. Store returns a
// stable, publicly fetchable URL; failures are domain.ErrStorageUnavailable.
type MediaStore interface {
	Store(ctx context.Context, data []byte, contentType, objectKey string) (publicURL string, err error)
}
