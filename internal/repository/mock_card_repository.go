package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// MockCardRepository is a hand-written, in-memory implementation of
// CardRepository used in unit tests. No mock-generation library needed.
// Its FindDueCards applies the same half-open window and delivered-filter
// semantics as the pgx implementation.
type MockCardRepository struct {
	mu       sync.RWMutex
	cards    map[uuid.UUID]domain.Card
	channels map[uuid.UUID][]domain.PublishChannel // keyed by card id
	attempts []domain.DeliveryAttempt

	// Optional error overrides — set in tests to simulate failure paths.
	FindDueErr       error
	RecordAttemptErr error
	HasDeliveredErr  error
}

func NewMockCardRepository() *MockCardRepository {
	return &MockCardRepository{
		cards:    make(map[uuid.UUID]domain.Card),
		channels: make(map[uuid.UUID][]domain.PublishChannel),
	}
}

func (m *MockCardRepository) FindDueCards(_ context.Context, start, end time.Time) ([]domain.CardWithChannels, error) {
	if m.FindDueErr != nil {
		return nil, m.FindDueErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []domain.CardWithChannels
	for id, card := range m.cards {
		// Half-open: scheduled_at == start is due, scheduled_at == end is not.
		if card.ScheduledAt.Before(start) || !card.ScheduledAt.Before(end) {
			continue
		}
		var pending []domain.PublishChannel
		for _, ch := range m.channels[id] {
			if !m.deliveredLocked(id, ch.ID) {
				pending = append(pending, ch)
			}
		}
		if len(pending) > 0 {
			due = append(due, domain.CardWithChannels{Card: card, Channels: pending})
		}
	}
	return due, nil
}

func (m *MockCardRepository) SaveCard(_ context.Context, p domain.SaveCardParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[p.ID] = domain.Card{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		ScheduledAt: p.ScheduledAt,
		Message:     p.Message,
		CreatedAt:   time.Now().UTC(),
	}
	for _, channelID := range p.Channels {
		m.channels[p.ID] = append(m.channels[p.ID], domain.PublishChannel{ID: channelID, CardID: p.ID})
	}
	return nil
}

func (m *MockCardRepository) RecordAttempt(_ context.Context, a domain.DeliveryAttempt) error {
	if m.RecordAttemptErr != nil {
		return m.RecordAttemptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *MockCardRepository) HasDelivered(_ context.Context, cardID, channelID uuid.UUID) (bool, error) {
	if m.HasDeliveredErr != nil {
		return false, m.HasDeliveredErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deliveredLocked(cardID, channelID), nil
}

// Attempts returns a copy of the ledger for assertions.
func (m *MockCardRepository) Attempts() []domain.DeliveryAttempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.DeliveryAttempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

func (m *MockCardRepository) deliveredLocked(cardID, channelID uuid.UUID) bool {
	for _, a := range m.attempts {
		if a.CardID == cardID && a.ChannelID == channelID && a.Outcome == domain.OutcomeDelivered {
			return true
		}
	}
	return false
}
