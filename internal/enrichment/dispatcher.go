package enrichment

import (
	"context"
	"sync"

	"github.com/pricedex/pricedex/internal/config"
	"github.com/pricedex/pricedex/internal/observability/metrics"
	"go.uber.org/zap"
)

// Executor runs one task to completion, including its retries.
type Executor interface {
	Execute(ctx context.Context, task Task)
}

// Dispatcher fans tasks out onto per-provider queues, one worker
// goroutine per provider, so a slow or throttled provider never blocks
// another. Submission is fire-and-forget: a full queue drops the task.
type Dispatcher struct {
	log       *zap.Logger
	queueSize int
	metrics   *metrics.EnrichmentMetrics

	mu       sync.Mutex
	queues   map[string]chan Task
	executor Executor
	baseCtx  context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopped  bool
}

func NewDispatcher(cfg config.Config, log *zap.Logger) *Dispatcher {
	queueSize := cfg.Enrichment.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		log:       log.Named("dispatcher"),
		queueSize: queueSize,
		metrics:   metrics.Enrichment(),
		queues:    map[string]chan Task{},
	}
}

// Start begins draining queues into the executor. Tasks submitted
// before Start sit in their queues until a worker picks them up.
func (d *Dispatcher) Start(executor Executor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.executor = executor
	d.baseCtx, d.cancel = context.WithCancel(context.Background())
	for key, queue := range d.queues {
		d.startWorker(key, queue)
	}
}

// Submit enqueues a task onto its provider's queue without blocking.
// It reports whether the task was accepted.
func (d *Dispatcher) Submit(task Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	queue, ok := d.queues[task.ProviderKey]
	if !ok {
		queue = make(chan Task, d.queueSize)
		d.queues[task.ProviderKey] = queue
		if d.started {
			d.startWorker(task.ProviderKey, queue)
		}
	}

	// The send stays under the mutex so Stop cannot close the queue
	// between the stopped check and here.
	select {
	case queue <- task:
		d.metrics.SetQueueDepth(task.ProviderKey, len(queue))
		return true
	default:
		d.metrics.IncQueueDrop(task.ProviderKey)
		d.log.Warn("queue full, dropping task",
			zap.String("provider", task.ProviderKey),
			zap.String("kind", string(task.Kind)),
			zap.Int64("game_id", int64(task.GameID)),
		)
		return false
	}
}

// startWorker must be called with d.mu held.
func (d *Dispatcher) startWorker(key string, queue chan Task) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.baseCtx.Done():
				return
			case task, ok := <-queue:
				if !ok {
					return
				}
				d.metrics.SetQueueDepth(key, len(queue))
				d.executor.Execute(d.baseCtx, task)
			}
		}
	}()
}

// Stop refuses further submissions and waits for the workers to drain,
// or until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped || !d.started {
		d.stopped = true
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	for _, queue := range d.queues {
		close(queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
