package botclient

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// BotClient abstracts the chat platform's bot API: exactly the three
// operations the delivery pipeline needs. Mocking this interface in tests
// gives full control over platform behaviour without real HTTP calls.
type BotClient interface {
	// UploadFile pushes an image into the channel's file inbox and returns
	// the platform's file id.
	UploadFile(ctx context.Context, channelID uuid.UUID, data []byte, mimeType string) (uuid.UUID, error)

	// GetUser resolves a card owner's display name and mention id.
	GetUser(ctx context.Context, userID uuid.UUID) (domain.Sender, error)

	// PostMessage posts text to a channel.
	PostMessage(ctx context.Context, channelID uuid.UUID, content string) error
}
