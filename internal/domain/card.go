package domain

import (
	"time"

	"github.com/google/uuid"
)

// Card is the schedulable unit of content: a short optional message plus
// a PNG image, delivered to every publish channel once ScheduledAt arrives.
// The pipeline only reads cards; creation and deletion belong to the card
// API service.
type Card struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Message     *string   `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublishChannel is one delivery target of a card.
type PublishChannel struct {
	ID     uuid.UUID `json:"id"`
	CardID uuid.UUID `json:"card_id"`
}

// CardWithChannels pairs a due card with its undelivered targets,
// as returned by the due-window query.
type CardWithChannels struct {
	Card     Card
	Channels []PublishChannel
}

// Sender is the resolved identity of a card's owner on the chat platform.
// Name is the display name, ID the canonical mention id.
type Sender struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// SaveCardParams carries everything needed to persist a new card together
// with its publish channels in one call. Used by the seeder.
type SaveCardParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	ScheduledAt time.Time
	Message     *string
	Channels    []uuid.UUID
}

// DeliveryStep identifies which step of the per-channel protocol failed.
type DeliveryStep string

const (
	StepFetchAsset    DeliveryStep = "fetch_asset"
	StepUploadAsset   DeliveryStep = "upload_asset"
	StepResolveSender DeliveryStep = "resolve_sender"
	StepPostMessage   DeliveryStep = "post_message"
)

// Outcome is the terminal state of one (card, channel) delivery.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// DeliveryAttempt is one ledger entry for a (card, channel) pair.
// A delivered entry makes the pair invisible to future due-window queries,
// which is what gives the pipeline its at-most-once guarantee across
// restarts and window boundaries.
type DeliveryAttempt struct {
	CardID       uuid.UUID
	ChannelID    uuid.UUID
	Outcome      Outcome
	FailedStep   *DeliveryStep
	ErrorMessage *string
	AttemptedAt  time.Time
}

// DeliveredAttempt builds a ledger entry for a successful delivery.
func DeliveredAttempt(cardID, channelID uuid.UUID, at time.Time) DeliveryAttempt {
	return DeliveryAttempt{
		CardID:      cardID,
		ChannelID:   channelID,
		Outcome:     OutcomeDelivered,
		AttemptedAt: at,
	}
}

// FailedAttempt builds a ledger entry for a delivery that was aborted at
// the given step.
func FailedAttempt(cardID, channelID uuid.UUID, step DeliveryStep, cause error, at time.Time) DeliveryAttempt {
	a := DeliveryAttempt{
		CardID:      cardID,
		ChannelID:   channelID,
		Outcome:     OutcomeFailed,
		FailedStep:  &step,
		AttemptedAt: at,
	}
	if cause != nil {
		msg := cause.Error()
		a.ErrorMessage = &msg
	}
	return a
}
