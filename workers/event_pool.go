package workers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
)

// EventProcessor validates and stores events on behalf of the pool.
type EventProcessor interface {
	Prepare(ctx context.Context, raw json.RawMessage) (*models.RawEvent, error)
	Persist(ctx context.Context, rows []models.RawEvent) error
}

type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	// PersistAttempts bounds how often a failed batch is retried before its
	// rows are dropped. RetryBackoff doubles between attempts up to maxRetryBackoff.
	PersistAttempts int
	RetryBackoff    time.Duration
	Logger          *zap.SugaredLogger
	Metrics         *metrics.Metrics
	// OnFlush runs after a batch is persisted. It must not keep rows.
	OnFlush func(rows []models.RawEvent)
}

const maxRetryBackoff = 5 * time.Second

// EventPool decouples ingestion from the database: handlers enqueue raw
// events and return, workers validate, enrich and persist them in batches.
type EventPool struct {
	cfg     PoolConfig
	proc    EventProcessor
	queue   chan json.RawMessage
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewEventPool(proc EventProcessor, cfg PoolConfig) *EventPool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.PersistAttempts <= 0 {
		cfg.PersistAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &EventPool{
		cfg:     cfg,
		proc:    proc,
		queue:   make(chan json.RawMessage, cfg.QueueSize),
		log:     logger.OrNop(cfg.Logger),
		metrics: metrics.OrNew(cfg.Metrics),
	}
}

// Start launches the workers. Work continues past ctx cancellation until
// Stop has drained the queue.
func (p *EventPool) Start(ctx context.Context) {
	workCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(workCtx, i)
	}
	p.log.Infow("[INGEST] worker pool started",
		"workers", p.cfg.WorkerCount,
		"queue_size", p.cfg.QueueSize,
		"batch_size", p.cfg.BatchSize,
	)
}

// Enqueue never blocks. A full or stopped queue sheds the event.
func (p *EventPool) Enqueue(raw json.RawMessage) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.EventsShed.Add(1)
		return false
	}
	select {
	case p.queue <- raw:
		p.metrics.EventsEnqueued.Add(1)
		return true
	default:
		p.metrics.EventsShed.Add(1)
		p.log.Warnw("[INGEST] queue full, shedding event", "queue_size", p.cfg.QueueSize)
		return false
	}
}

func (p *EventPool) QueueDepth() int { return len(p.queue) }

// Stop closes the queue and waits for workers to persist what is left.
func (p *EventPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("[INGEST] worker pool stopped")
}

func (p *EventPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	batch := make([]models.RawEvent, 0, p.cfg.BatchSize)
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if p.persist(ctx, id, batch) && p.cfg.OnFlush != nil {
			p.cfg.OnFlush(batch)
		}
		batch = batch[:0]
	}

	for {
		select {
		case raw, ok := <-p.queue:
			if !ok {
				flush()
				return
			}
			row, err := p.proc.Prepare(ctx, raw)
			if err != nil {
				p.log.Debugw("[INGEST] dropped invalid event", "worker", id, "error", err)
				continue
			}
			batch = append(batch, *row)
			if len(batch) >= p.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// persist writes rows, retrying with exponential backoff. Rows carry their
// IDs from Prepare, so a retry after a partial write does not duplicate them.
// It reports false once every attempt has failed and the rows are dropped.
func (p *EventPool) persist(ctx context.Context, worker int, rows []models.RawEvent) bool {
	backoff := p.cfg.RetryBackoff
	var err error
	for attempt := 1; attempt <= p.cfg.PersistAttempts; attempt++ {
		start := time.Now()
		if err = p.proc.Persist(ctx, rows); err == nil {
			p.log.Debugw("[INGEST] batch persisted", "worker", worker, "batch_size", len(rows), "attempt", attempt, "duration", time.Since(start))
			return true
		}
		if attempt == p.cfg.PersistAttempts {
			break
		}
		p.metrics.PersistRetries.Add(1)
		p.log.Warnw("[INGEST] batch persist failed, retrying",
			"worker", worker,
			"batch_size", len(rows),
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		time.Sleep(backoff)
		backoff = min(backoff*2, maxRetryBackoff)
	}
	p.metrics.EventsDropped.Add(int64(len(rows)))
	p.log.Errorw("[INGEST] dropping batch after retries",
		"worker", worker,
		"batch_size", len(rows),
		"attempts", p.cfg.PersistAttempts,
		"error", err,
	)
	return false
}
