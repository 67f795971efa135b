package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cardloop/card-courier/internal/assetstore"
	"github.com/cardloop/card-courier/internal/botclient"
	"github.com/cardloop/card-courier/internal/domain"
	"github.com/cardloop/card-courier/internal/queue"
	"github.com/cardloop/card-courier/internal/ratelimiter"
	"github.com/cardloop/card-courier/internal/repository"
)

// Hooks carries the metric callback functions injected by main.
// Using a struct keeps the pool constructor signature clean.
type Hooks struct {
	OnDelivered func(latency time.Duration)
	OnFailed    func(step domain.DeliveryStep)
}

// PoolConfig bundles the per-worker delivery settings.
type PoolConfig struct {
	Workers         int
	FileBaseURL     string
	DeliveryTimeout time.Duration
}

// Pool manages the lifecycle of all delivery workers. The worker count is
// the fan-out bound: however many (card, channel) pairs a tick discovers,
// at most this many deliveries are in flight at once.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates cfg.Workers identical workers sharing one queue.
func NewPool(
	cfg PoolConfig,
	q *queue.Queue,
	repo repository.CardRepository,
	assets assetstore.AssetStore,
	bot botclient.BotClient,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
	hooks Hooks,
) *Pool {
	n := cfg.Workers
	if n <= 0 {
		n = 1
	}
	workers := make([]*Worker, n)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, repo, assets, bot, limiter,
			cfg.FileBaseURL,
			cfg.DeliveryTimeout,
			logger.With(zap.Int("worker_id", i)),
			hooks.OnDelivered,
			hooks.OnFailed,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
// Call this after cancelling the context so in-flight deliveries finish.
func (p *Pool) Wait() {
	p.wg.Wait()
}
