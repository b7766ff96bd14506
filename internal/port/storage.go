package port

import "context"

// DocumentStorage resolves stored quote documents into URLs providers can download.
type DocumentStorage interface {
	GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error)
}
