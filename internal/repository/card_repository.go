package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// CardRepository defines the persistence operations the delivery pipeline
// needs. The pgx implementation is in pg_card_repository.go; tests use a
// hand-written mock (mock_card_repository.go).
type CardRepository interface {
	// FindDueCards returns cards scheduled in the half-open window
	// [start, end), each paired with the publish channels that do not yet
	// have a delivered attempt in the ledger.
	FindDueCards(ctx context.Context, start, end time.Time) ([]domain.CardWithChannels, error)

	// SaveCard persists a card and its publish channels. Used by the seeder;
	// the pipeline itself never writes cards.
	SaveCard(ctx context.Context, p domain.SaveCardParams) error

	// RecordAttempt appends one entry to the delivery-attempt ledger.
	RecordAttempt(ctx context.Context, a domain.DeliveryAttempt) error

	// HasDelivered reports whether the (card, channel) pair already has a
	// delivered attempt.
	HasDelivered(ctx context.Context, cardID, channelID uuid.UUID) (bool, error)
}
