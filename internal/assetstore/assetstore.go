package assetstore

import (
	"context"

	"github.com/google/uuid"
)

// AssetStore is the content-addressable blob store holding each card's
// rendered PNG, keyed by card id. The pipeline only reads; SavePNG exists
// for the seeder and for the card API service that shares the bucket.
type AssetStore interface {
	// GetPNG returns the card's image bytes, or domain.ErrAssetNotFound if
	// no blob exists for the card.
	GetPNG(ctx context.Context, cardID uuid.UUID) ([]byte, error)

	// SavePNG stores (or idempotently overwrites) the card's image.
	SavePNG(ctx context.Context, cardID uuid.UUID, data []byte) error
}
