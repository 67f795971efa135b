package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/assetstore"
	"github.com/cardloop/card-courier/internal/botclient"
	"github.com/cardloop/card-courier/internal/composer"
	"github.com/cardloop/card-courier/internal/domain"
	"github.com/cardloop/card-courier/internal/queue"
	"github.com/cardloop/card-courier/internal/ratelimiter"
	"github.com/cardloop/card-courier/internal/repository"
)

// Worker is a single goroutine that continuously pulls delivery jobs from
// the queue and runs the four-step per-channel protocol: fetch the card
// image, upload it to the channel, resolve the sender, compose and post.
//
// Every error is handled inside the job that caused it — logged, recorded
// in the attempt ledger, and dropped. Nothing a job does can affect another
// job's outcome; that isolation is the executor's core guarantee.
type Worker struct {
	id      int
	q       *queue.Queue
	repo    repository.CardRepository
	assets  assetstore.AssetStore
	bot     botclient.BotClient
	limiter *ratelimiter.Limiter

	fileBaseURL string
	timeout     time.Duration
	logger      *zap.Logger

	// Hooks for metrics — injected by the pool so the worker stays metrics-agnostic.
	onDelivered func(latency time.Duration)
	onFailed    func(step domain.DeliveryStep)
}

// NewWorker constructs a worker. onDelivered and onFailed are optional
// (nil = no-op).
func NewWorker(
	id int,
	q *queue.Queue,
	repo repository.CardRepository,
	assets assetstore.AssetStore,
	bot botclient.BotClient,
	limiter *ratelimiter.Limiter,
	fileBaseURL string,
	timeout time.Duration,
	logger *zap.Logger,
	onDelivered func(time.Duration),
	onFailed func(domain.DeliveryStep),
) *Worker {
	if onDelivered == nil {
		onDelivered = func(time.Duration) {}
	}
	if onFailed == nil {
		onFailed = func(domain.DeliveryStep) {}
	}
	return &Worker{
		id: id, q: q, repo: repo, assets: assets, bot: bot,
		limiter: limiter, fileBaseURL: fileBaseURL, timeout: timeout,
		logger: logger, onDelivered: onDelivered, onFailed: onFailed,
	}
}

// Run blocks until ctx is cancelled, processing one delivery job per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("delivery worker started", zap.Int("id", w.id))
	for {
		job, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("delivery worker stopping", zap.Int("id", w.id))
			return
		}
		w.deliver(ctx, job)
	}
}

func (w *Worker) deliver(ctx context.Context, job queue.Job) {
	start := time.Now()
	log := w.logger.With(
		zap.String("card_id", job.Card.ID.String()),
		zap.String("channel_id", job.ChannelID.String()),
	)

	// Per-job deadline so one stuck platform call cannot occupy the worker
	// forever. jctx governs the delivery steps; the ledger write in fail()
	// uses the outer ctx so a timed-out job can still record its outcome.
	jctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		jctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	// A pair delivered by an earlier tick (queue backlog, restart) is skipped
	// rather than posted twice.
	delivered, err := w.repo.HasDelivered(jctx, job.Card.ID, job.ChannelID)
	if err != nil {
		log.Error("ledger lookup failed", zap.Error(err))
		return
	}
	if delivered {
		log.Debug("already delivered, skipping")
		return
	}

	// Step 1: fetch the card image.
	data, err := w.assets.GetPNG(jctx, job.Card.ID)
	if err != nil {
		if errors.Is(err, domain.ErrAssetNotFound) {
			log.Warn("card image missing, skipping channel")
		} else {
			log.Error("card image fetch failed", zap.Error(err))
		}
		w.fail(ctx, log, job, domain.StepFetchAsset, err)
		return
	}

	// Step 2: upload the image into the target channel.
	if err := w.limiter.Wait(jctx); err != nil {
		return
	}
	fileID, err := w.bot.UploadFile(jctx, job.ChannelID, data, "image/png")
	if err != nil {
		log.Warn("image upload failed, skipping channel", zap.Error(err))
		w.fail(ctx, log, job, domain.StepUploadAsset, err)
		return
	}

	// Step 3: resolve the sender. An upload already made for this pair is
	// left in place on failure: blobs are content-addressed upstream and
	// idempotently overwritable, so orphans are harmless.
	if err := w.limiter.Wait(jctx); err != nil {
		return
	}
	sender, err := w.bot.GetUser(jctx, job.Card.OwnerID)
	if err != nil {
		log.Warn("sender lookup failed, skipping channel",
			zap.String("owner_id", job.Card.OwnerID.String()), zap.Error(err))
		w.fail(ctx, log, job, domain.StepResolveSender, err)
		return
	}

	// Step 4: compose and post.
	var customText string
	if job.Card.Message != nil {
		customText = *job.Card.Message
	}
	text := composer.Compose(sender, customText, w.fileBaseURL+"/"+fileID.String())

	if err := w.limiter.Wait(jctx); err != nil {
		return
	}
	if err := w.bot.PostMessage(jctx, job.ChannelID, text); err != nil {
		log.Warn("message post failed, skipping channel", zap.Error(err))
		w.fail(ctx, log, job, domain.StepPostMessage, err)
		return
	}

	if err := w.repo.RecordAttempt(ctx, domain.DeliveredAttempt(job.Card.ID, job.ChannelID, time.Now().UTC())); err != nil {
		log.Error("failed to record delivered attempt", zap.Error(err))
	}

	latency := time.Since(start)
	w.onDelivered(latency)
	log.Info("card delivered",
		zap.String("file_id", fileID.String()),
		zap.Duration("latency", latency),
	)
}

// fail records the aborted attempt in the ledger. The pair is permanently
// skipped for this tick; there is no retry by design.
func (w *Worker) fail(ctx context.Context, log *zap.Logger, job queue.Job, step domain.DeliveryStep, cause error) {
	attempt := domain.FailedAttempt(job.Card.ID, job.ChannelID, step, cause, time.Now().UTC())
	if err := w.repo.RecordAttempt(ctx, attempt); err != nil {
		log.Error("failed to record delivery attempt", zap.Error(err))
	}
	w.onFailed(step)
}
