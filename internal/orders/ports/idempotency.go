package ports

import "context"

// StoredResponse contains the response data to replay for a reused key.
type StoredResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       []byte `json:"body"`
	OrderID    int64  `json:"orderId"`
}

// IdempotencyStore lets reservation requests be retried safely.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
