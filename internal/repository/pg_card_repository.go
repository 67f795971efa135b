package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardloop/card-courier/internal/domain"
)

type pgCardRepository struct {
	pool *pgxpool.Pool
}

// NewPgCardRepository returns a CardRepository backed by PostgreSQL.
func NewPgCardRepository(pool *pgxpool.Pool) CardRepository {
	return &pgCardRepository{pool: pool}
}

// FindDueCards selects every (card, channel) pair whose card is scheduled
// inside [start, end) and that has no delivered ledger entry yet, then
// groups the rows per card. The delivered filter is what keeps a restart or
// a tick-boundary overlap from posting the same card to a channel twice.
func (r *pgCardRepository) FindDueCards(ctx context.Context, start, end time.Time) ([]domain.CardWithChannels, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.owner_id, c.scheduled_at, c.message, c.created_at,
		       pc.id AS channel_id
		FROM cards c
		JOIN publish_channels pc ON pc.card_id = c.id
		WHERE c.scheduled_at >= $1 AND c.scheduled_at < $2
		  AND NOT EXISTS (
		      SELECT 1 FROM delivery_attempts da
		      WHERE da.card_id = c.id
		        AND da.channel_id = pc.id
		        AND da.outcome = 'delivered')
		ORDER BY c.scheduled_at, c.id`, start, end)
	if err != nil {
		return nil, &domain.StoreError{Op: "find due cards", Err: err}
	}
	defer rows.Close()

	var (
		due  []domain.CardWithChannels
		last *domain.CardWithChannels
	)
	for rows.Next() {
		var (
			card      domain.Card
			channelID uuid.UUID
		)
		if err := rows.Scan(&card.ID, &card.OwnerID, &card.ScheduledAt, &card.Message, &card.CreatedAt, &channelID); err != nil {
			return nil, &domain.StoreError{Op: "scan due card", Err: err}
		}
		if last == nil || last.Card.ID != card.ID {
			due = append(due, domain.CardWithChannels{Card: card})
			last = &due[len(due)-1]
		}
		last.Channels = append(last.Channels, domain.PublishChannel{ID: channelID, CardID: card.ID})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "find due cards", Err: err}
	}
	return due, nil
}

// SaveCard inserts the card and its channels in one transaction so a card
// can never exist half-targeted.
func (r *pgCardRepository) SaveCard(ctx context.Context, p domain.SaveCardParams) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &domain.StoreError{Op: "begin save card", Err: err}
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO cards (id, owner_id, scheduled_at, message, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		p.ID, p.OwnerID, p.ScheduledAt, p.Message)
	if err != nil {
		return &domain.StoreError{Op: "insert card", Err: err}
	}

	for _, channelID := range p.Channels {
		_, err = tx.Exec(ctx, `
			INSERT INTO publish_channels (id, card_id) VALUES ($1, $2)`,
			channelID, p.ID)
		if err != nil {
			return &domain.StoreError{Op: "insert publish channel", Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &domain.StoreError{Op: "commit save card", Err: err}
	}
	return nil
}

func (r *pgCardRepository) RecordAttempt(ctx context.Context, a domain.DeliveryAttempt) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_attempts
			(card_id, channel_id, outcome, failed_step, error_message, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.CardID, a.ChannelID, a.Outcome, a.FailedStep, a.ErrorMessage, a.AttemptedAt)
	if err != nil {
		return &domain.StoreError{Op: "record delivery attempt", Err: err}
	}
	return nil
}

func (r *pgCardRepository) HasDelivered(ctx context.Context, cardID, channelID uuid.UUID) (bool, error) {
	var delivered bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_attempts
			WHERE card_id = $1 AND channel_id = $2 AND outcome = 'delivered')`,
		cardID, channelID).Scan(&delivered)
	if err != nil {
		return false, &domain.StoreError{Op: "check delivered", Err: err}
	}
	return delivered, nil
}
