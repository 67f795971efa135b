package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/domain"
	"github.com/cardloop/card-courier/internal/queue"
	"github.com/cardloop/card-courier/internal/repository"
)

// SchedulerWorker drives the tick loop: every interval it queries the card
// store for cards scheduled inside the half-open window [now, now+interval)
// and enqueues one delivery job per (card, channel) pair.
//
// The window width equals the tick interval, so consecutive windows tile
// the timeline without gaps. A failed due-window query skips only that
// tick; the loop itself never stops until ctx is cancelled.
type SchedulerWorker struct {
	repo     repository.CardRepository
	q        *queue.Queue
	interval time.Duration
	logger   *zap.Logger

	onTick      func(dueCards int)
	onTickError func()
}

// NewSchedulerWorker constructs the tick loop. onTick and onTickError are
// optional metric hooks (nil = no-op).
func NewSchedulerWorker(
	repo repository.CardRepository,
	q *queue.Queue,
	interval time.Duration,
	logger *zap.Logger,
	onTick func(int),
	onTickError func(),
) *SchedulerWorker {
	if onTick == nil {
		onTick = func(int) {}
	}
	if onTickError == nil {
		onTickError = func() {}
	}
	return &SchedulerWorker{
		repo: repo, q: q, interval: interval, logger: logger,
		onTick: onTick, onTickError: onTickError,
	}
}

// Run ticks every interval until ctx is cancelled.
func (sw *SchedulerWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("scheduler started", zap.Duration("interval", sw.interval))

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("scheduler stopping")
			return
		case t := <-ticker.C:
			sw.Tick(ctx, t)
		}
	}
}

// Tick runs one scheduling pass for the window [now, now+interval).
// Exported so tests can drive ticks without real time passing.
func (sw *SchedulerWorker) Tick(ctx context.Context, now time.Time) {
	start := now.UTC()
	end := start.Add(sw.interval)

	due, err := sw.repo.FindDueCards(ctx, start, end)
	if err != nil {
		// Best effort: log, drop this tick entirely, wait for the next.
		sw.logger.Error("due-card query failed, skipping tick",
			zap.Time("window_start", start),
			zap.Time("window_end", end),
			zap.Error(err),
		)
		sw.onTickError()
		return
	}
	sw.onTick(len(due))

	if len(due) == 0 {
		return
	}

	enqueued := 0
	for _, cw := range due {
		for _, ch := range cw.Channels {
			err := sw.q.Enqueue(queue.Job{Card: cw.Card, ChannelID: ch.ID})
			if err != nil {
				if errors.Is(err, domain.ErrQueueFull) {
					sw.logger.Warn("delivery queue full, dropping job",
						zap.String("card_id", cw.Card.ID.String()),
						zap.String("channel_id", ch.ID.String()),
					)
					continue
				}
				sw.logger.Error("could not enqueue delivery",
					zap.String("card_id", cw.Card.ID.String()), zap.Error(err))
				continue
			}
			enqueued++
		}
	}

	sw.logger.Info("enqueued due deliveries",
		zap.Int("cards", len(due)),
		zap.Int("deliveries", enqueued),
		zap.Time("window_start", start),
		zap.Time("window_end", end),
	)
}
