package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/assetstore"
	"github.com/cardloop/card-courier/internal/botclient"
	"github.com/cardloop/card-courier/internal/domain"
	"github.com/cardloop/card-courier/internal/queue"
	"github.com/cardloop/card-courier/internal/ratelimiter"
	"github.com/cardloop/card-courier/internal/repository"
	"github.com/cardloop/card-courier/internal/worker"
)

const fileBaseURL = "https://chat.example.com/files"

type fixture struct {
	repo   *repository.MockCardRepository
	assets *assetstore.MockAssetStore
	bot    *botclient.MockBotClient
	q      *queue.Queue

	mu        sync.Mutex
	delivered int
	failed    map[domain.DeliveryStep]int
}

func newFixture(queueSize int) *fixture {
	return &fixture{
		repo:   repository.NewMockCardRepository(),
		assets: assetstore.NewMockAssetStore(),
		bot:    botclient.NewMockBotClient(),
		q:      queue.New(queueSize),
		failed: make(map[domain.DeliveryStep]int),
	}
}

// run starts a pool over the fixture's queue, waits until the expected
// number of jobs has finished, then shuts the pool down.
func (f *fixture) run(t *testing.T, workers, wantFinished int) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	finished := 0
	onDone := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		finished++
		if finished == wantFinished {
			close(done)
		}
	}

	pool := worker.NewPool(
		worker.PoolConfig{Workers: workers, FileBaseURL: fileBaseURL, DeliveryTimeout: 5 * time.Second},
		f.q, f.repo, f.assets, f.bot, ratelimiter.New(1000), zap.NewNop(),
		worker.Hooks{
			OnDelivered: func(time.Duration) {
				f.mu.Lock()
				f.delivered++
				f.mu.Unlock()
				onDone()
			},
			OnFailed: func(step domain.DeliveryStep) {
				f.mu.Lock()
				f.failed[step]++
				f.mu.Unlock()
				onDone()
			},
		},
	)
	pool.Start(ctx)

	if wantFinished > 0 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for deliveries to finish")
		}
	} else {
		// Nothing should complete; give workers a moment to drain the queue.
		deadline := time.Now().Add(time.Second)
		for f.q.Depth() > 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	pool.Wait()
}

// seedCard stores a card plus asset blob and returns it with its channels.
func (f *fixture) seedCard(t *testing.T, message *string, channels ...uuid.UUID) domain.Card {
	t.Helper()

	cardID := uuid.New()
	ownerID := uuid.New()
	f.bot.Users[ownerID] = domain.Sender{Name: "alice", ID: ownerID.String()}

	err := f.repo.SaveCard(context.Background(), domain.SaveCardParams{
		ID:          cardID,
		OwnerID:     ownerID,
		ScheduledAt: time.Now().UTC(),
		Message:     message,
		Channels:    channels,
	})
	if err != nil {
		t.Fatalf("seed card: %v", err)
	}
	if err := f.assets.SavePNG(context.Background(), cardID, []byte("png-bytes")); err != nil {
		t.Fatalf("seed asset: %v", err)
	}
	return domain.Card{ID: cardID, OwnerID: ownerID, ScheduledAt: time.Now().UTC(), Message: message}
}

func (f *fixture) enqueue(t *testing.T, card domain.Card, channelID uuid.UUID) {
	t.Helper()
	if err := f.q.Enqueue(queue.Job{Card: card, ChannelID: channelID}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
}

func findAttempt(attempts []domain.DeliveryAttempt, channelID uuid.UUID) (domain.DeliveryAttempt, bool) {
	for _, a := range attempts {
		if a.ChannelID == channelID {
			return a, true
		}
	}
	return domain.DeliveryAttempt{}, false
}

func TestWorker_DeliverSuccess(t *testing.T) {
	f := newFixture(4)
	channelID := uuid.New()
	msg := "happy birthday!"
	card := f.seedCard(t, &msg, channelID)
	f.enqueue(t, card, channelID)

	f.run(t, 1, 1)

	uploads := f.bot.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("expected exactly one upload, got %d", len(uploads))
	}
	if uploads[0].ChannelID != channelID || uploads[0].MimeType != "image/png" {
		t.Fatalf("unexpected upload: %+v", uploads[0])
	}

	posts := f.bot.Posts()
	if len(posts) != 1 {
		t.Fatalf("expected exactly one post, got %d", len(posts))
	}
	post := posts[0]
	if post.ChannelID != channelID {
		t.Fatalf("posted to wrong channel: %s", post.ChannelID)
	}
	for _, want := range []string{"@alice", card.OwnerID.String(), msg, fileBaseURL + "/" + uploads[0].FileID.String()} {
		if !strings.Contains(post.Content, want) {
			t.Fatalf("post missing %q:\n%s", want, post.Content)
		}
	}

	attempts := f.repo.Attempts()
	if len(attempts) != 1 || attempts[0].Outcome != domain.OutcomeDelivered {
		t.Fatalf("expected one delivered attempt, got %+v", attempts)
	}
	if f.delivered != 1 || len(f.failed) != 0 {
		t.Fatalf("expected delivered=1 failed=0, got %d/%v", f.delivered, f.failed)
	}
}

func TestWorker_FailureCases(t *testing.T) {
	tests := []struct {
		name        string
		arrange     func(f *fixture, card domain.Card, channelID uuid.UUID)
		wantStep    domain.DeliveryStep
		wantUploads int
	}{
		{
			name: "asset missing",
			arrange: func(f *fixture, card domain.Card, channelID uuid.UUID) {
				f.assets.GetErr = domain.ErrAssetNotFound
			},
			wantStep: domain.StepFetchAsset,
		},
		{
			name: "asset store error",
			arrange: func(f *fixture, card domain.Card, channelID uuid.UUID) {
				f.assets.GetErr = &domain.StoreError{Op: "get card image", Err: errors.New("timeout")}
			},
			wantStep: domain.StepFetchAsset,
		},
		{
			name: "upload fails",
			arrange: func(f *fixture, card domain.Card, channelID uuid.UUID) {
				f.bot.UploadErrFor[channelID] = &domain.APIError{Status: 500, Message: "storage down"}
			},
			wantStep: domain.StepUploadAsset,
		},
		{
			name: "sender lookup fails",
			arrange: func(f *fixture, card domain.Card, channelID uuid.UUID) {
				f.bot.GetUserErr = &domain.APIError{Status: 404, Message: "user not found"}
			},
			wantStep:    domain.StepResolveSender,
			wantUploads: 1,
		},
		{
			name: "post fails",
			arrange: func(f *fixture, card domain.Card, channelID uuid.UUID) {
				f.bot.PostErrFor[channelID] = &domain.APIError{Status: 403, Message: "forbidden"}
			},
			wantStep:    domain.StepPostMessage,
			wantUploads: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(4)
			channelID := uuid.New()
			card := f.seedCard(t, nil, channelID)
			tc.arrange(f, card, channelID)
			f.enqueue(t, card, channelID)

			f.run(t, 1, 1)

			if got := len(f.bot.Posts()); got != 0 {
				t.Fatalf("expected zero posts, got %d", got)
			}
			if got := len(f.bot.Uploads()); got != tc.wantUploads {
				t.Fatalf("expected %d uploads, got %d", tc.wantUploads, got)
			}

			attempts := f.repo.Attempts()
			if len(attempts) != 1 {
				t.Fatalf("expected one ledger entry, got %d", len(attempts))
			}
			a := attempts[0]
			if a.Outcome != domain.OutcomeFailed || a.FailedStep == nil || *a.FailedStep != tc.wantStep {
				t.Fatalf("expected failed attempt at %s, got %+v", tc.wantStep, a)
			}
			if a.ErrorMessage == nil || *a.ErrorMessage == "" {
				t.Fatal("failed attempt must record the cause")
			}
			if f.failed[tc.wantStep] != 1 || f.delivered != 0 {
				t.Fatalf("expected failed[%s]=1 delivered=0, got %v/%d", tc.wantStep, f.failed, f.delivered)
			}
		})
	}
}

func TestWorker_IsolationAcrossChannels(t *testing.T) {
	f := newFixture(16)

	channels := make([]uuid.UUID, 5)
	for i := range channels {
		channels[i] = uuid.New()
	}
	card := f.seedCard(t, nil, channels...)

	// One poisoned channel among five.
	bad := channels[2]
	f.bot.UploadErrFor[bad] = &domain.APIError{Status: 502, Message: "bad gateway"}

	for _, ch := range channels {
		f.enqueue(t, card, ch)
	}

	f.run(t, 4, len(channels))

	if got := len(f.bot.PostsTo(bad)); got != 0 {
		t.Fatalf("failed channel must receive zero posts, got %d", got)
	}
	for _, ch := range channels {
		if ch == bad {
			continue
		}
		if got := len(f.bot.PostsTo(ch)); got != 1 {
			t.Fatalf("channel %s: expected exactly one post, got %d", ch, got)
		}
	}

	attempts := f.repo.Attempts()
	if len(attempts) != len(channels) {
		t.Fatalf("expected %d ledger entries, got %d", len(channels), len(attempts))
	}
	badAttempt, ok := findAttempt(attempts, bad)
	if !ok || badAttempt.Outcome != domain.OutcomeFailed {
		t.Fatalf("expected failed attempt for poisoned channel, got %+v", badAttempt)
	}
	if f.delivered != len(channels)-1 || f.failed[domain.StepUploadAsset] != 1 {
		t.Fatalf("expected delivered=%d failed[upload_asset]=1, got %d/%v",
			len(channels)-1, f.delivered, f.failed)
	}
}

func TestWorker_SkipsAlreadyDeliveredPair(t *testing.T) {
	f := newFixture(4)
	channelID := uuid.New()
	card := f.seedCard(t, nil, channelID)

	// Ledger already shows a delivered attempt for this pair.
	err := f.repo.RecordAttempt(context.Background(),
		domain.DeliveredAttempt(card.ID, channelID, time.Now().UTC()))
	if err != nil {
		t.Fatalf("record attempt: %v", err)
	}

	f.enqueue(t, card, channelID)
	f.run(t, 1, 0)

	if got := len(f.bot.Posts()); got != 0 {
		t.Fatalf("expected zero posts for an already-delivered pair, got %d", got)
	}
	if got := len(f.repo.Attempts()); got != 1 {
		t.Fatalf("ledger must be unchanged, got %d entries", got)
	}
}
