package botclient

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cardloop/card-courier/internal/domain"
)

// Upload records one UploadFile call on the mock.
type Upload struct {
	FileID    uuid.UUID
	ChannelID uuid.UUID
	MimeType  string
	Size      int
}

// Post records one PostMessage call on the mock.
type Post struct {
	ChannelID uuid.UUID
	Content   string
}

// MockBotClient is an in-memory BotClient for tests. Per-channel error
// overrides let a test fail exactly one channel while others succeed,
// which is how the isolation property is exercised.
type MockBotClient struct {
	mu      sync.Mutex
	uploads []Upload
	posts   []Post

	Users map[uuid.UUID]domain.Sender

	UploadErrFor map[uuid.UUID]error // keyed by channel id
	PostErrFor   map[uuid.UUID]error // keyed by channel id
	GetUserErr   error
}

func NewMockBotClient() *MockBotClient {
	return &MockBotClient{
		Users:        make(map[uuid.UUID]domain.Sender),
		UploadErrFor: make(map[uuid.UUID]error),
		PostErrFor:   make(map[uuid.UUID]error),
	}
}

func (m *MockBotClient) UploadFile(_ context.Context, channelID uuid.UUID, data []byte, mimeType string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.UploadErrFor[channelID]; err != nil {
		return uuid.Nil, err
	}
	up := Upload{
		FileID:    uuid.New(),
		ChannelID: channelID,
		MimeType:  mimeType,
		Size:      len(data),
	}
	m.uploads = append(m.uploads, up)
	return up.FileID, nil
}

func (m *MockBotClient) GetUser(_ context.Context, userID uuid.UUID) (domain.Sender, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetUserErr != nil {
		return domain.Sender{}, m.GetUserErr
	}
	sender, ok := m.Users[userID]
	if !ok {
		return domain.Sender{}, &domain.APIError{Status: 404, Message: "user not found"}
	}
	return sender, nil
}

func (m *MockBotClient) PostMessage(_ context.Context, channelID uuid.UUID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.PostErrFor[channelID]; err != nil {
		return err
	}
	m.posts = append(m.posts, Post{ChannelID: channelID, Content: content})
	return nil
}

// Uploads returns a copy of recorded uploads.
func (m *MockBotClient) Uploads() []Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Upload, len(m.uploads))
	copy(out, m.uploads)
	return out
}

// Posts returns a copy of recorded posts.
func (m *MockBotClient) Posts() []Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Post, len(m.posts))
	copy(out, m.posts)
	return out
}

// PostsTo returns the posts made to one channel.
func (m *MockBotClient) PostsTo(channelID uuid.UUID) []Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Post
	for _, p := range m.posts {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

var _ BotClient = (*MockBotClient)(nil)
