package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
)

type fakeProcessor struct {
	mu        sync.Mutex
	persisted []models.RawEvent
	delay     time.Duration
}

func (f *fakeProcessor) Prepare(_ context.Context, raw json.RawMessage) (*models.RawEvent, error) {
	var ev struct {
		ID   string `json:"id"`
		Type string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &ev); err != nil || ev.ID == "" {
		return nil, errors.New("invalid")
	}
	return &models.RawEvent{ID: ev.ID, EventType: ev.Type}, nil
}

func (f *fakeProcessor) Persist(_ context.Context, rows []models.RawEvent) error {
	time.Sleep(f.delay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, rows...)
	return nil
}

func (f *fakeProcessor) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persisted)
}

func raw(id string) json.RawMessage {
	return json.RawMessage(`{"id":"` + id + `","event_type":"game_ended"}`)
}

func TestEnqueueShedsWhenFull(t *testing.T) {
	m := metrics.New()
	p := NewEventPool(&fakeProcessor{}, PoolConfig{QueueSize: 2, Metrics: m})

	for i, want := range []bool{true, true, false} {
		if got := p.Enqueue(raw("e")); got != want {
			t.Fatalf("Enqueue #%d = %v, want %v", i, got, want)
		}
	}
	if m.EventsShed.Load() != 1 || m.EventsEnqueued.Load() != 2 || p.QueueDepth() != 2 {
		t.Fatalf("shed=%d enqueued=%d depth=%d", m.EventsShed.Load(), m.EventsEnqueued.Load(), p.QueueDepth())
	}
}

func TestEnqueueDoesNotWaitForSlowPersistence(t *testing.T) {
	proc := &fakeProcessor{delay: 3 * time.Second}
	p := NewEventPool(proc, PoolConfig{WorkerCount: 1, BatchSize: 1, QueueSize: 100})
	p.Start(context.Background())

	start := time.Now()
	for i := 0; i < 20; i++ {
		p.Enqueue(raw("e"))
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("enqueue took %v", elapsed)
	}
	go p.Stop()
}

func TestStopDrainsQueue(t *testing.T) {
	proc := &fakeProcessor{}
	p := NewEventPool(proc, PoolConfig{WorkerCount: 3, BatchSize: 4, FlushInterval: time.Hour})
	p.Start(context.Background())
	for i := 0; i < 10; i++ {
		p.Enqueue(raw(string(rune('a' + i))))
	}
	p.Enqueue(json.RawMessage(`{"bad":true}`))
	p.Stop()

	if proc.count() != 10 {
		t.Fatalf("persisted %d, want 10", proc.count())
	}
	if p.Enqueue(raw("late")) {
		t.Fatal("enqueue after Stop accepted")
	}
	p.Stop()
}

func TestFlushOnIntervalCallsHook(t *testing.T) {
	proc := &fakeProcessor{}
	flushed := make(chan int, 1)
	p := NewEventPool(proc, PoolConfig{
		WorkerCount:   1,
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
		OnFlush:       func(rows []models.RawEvent) { flushed <- len(rows) },
	})
	p.Start(context.Background())
	defer p.Stop()

	p.Enqueue(raw("only"))
	select {
	case n := <-flushed:
		if n != 1 {
			t.Fatalf("flushed %d rows", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("interval flush never happened")
	}
}

// flakyProcessor fails the first failures Persist calls, or every call when
// failures is negative.
type flakyProcessor struct {
	fakeProcessor
	failures int
	calls    int
}

func (f *flakyProcessor) Persist(ctx context.Context, rows []models.RawEvent) error {
	f.mu.Lock()
	f.calls++
	fail := f.failures < 0 || f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("connection refused")
	}
	return f.fakeProcessor.Persist(ctx, rows)
}

func TestPersistFailureRetriesBatch(t *testing.T) {
	m := metrics.New()
	proc := &flakyProcessor{failures: 2}
	var flushed []int
	p := NewEventPool(proc, PoolConfig{
		WorkerCount:     1,
		BatchSize:       5,
		FlushInterval:   time.Hour,
		PersistAttempts: 5,
		RetryBackoff:    time.Millisecond,
		Metrics:         m,
		OnFlush:         func(rows []models.RawEvent) { flushed = append(flushed, len(rows)) },
	})
	p.Start(context.Background())
	for i := 0; i < 5; i++ {
		p.Enqueue(raw(string(rune('a' + i))))
	}
	p.Stop()

	if proc.count() != 5 {
		t.Fatalf("persisted %d, want 5", proc.count())
	}
	if proc.calls != 3 {
		t.Fatalf("Persist called %d times, want 3", proc.calls)
	}
	if len(flushed) != 1 || flushed[0] != 5 {
		t.Fatalf("OnFlush saw %v", flushed)
	}
	if m.PersistRetries.Load() != 2 || m.EventsDropped.Load() != 0 {
		t.Fatalf("retries=%d dropped=%d", m.PersistRetries.Load(), m.EventsDropped.Load())
	}
}

func TestPersistGivesUpAfterAttempts(t *testing.T) {
	m := metrics.New()
	proc := &flakyProcessor{failures: -1}
	p := NewEventPool(proc, PoolConfig{
		WorkerCount:     1,
		BatchSize:       5,
		FlushInterval:   time.Hour,
		PersistAttempts: 3,
		RetryBackoff:    time.Millisecond,
		Metrics:         m,
		OnFlush:         func([]models.RawEvent) { t.Error("OnFlush called for a dropped batch") },
	})
	p.Start(context.Background())
	for i := 0; i < 5; i++ {
		p.Enqueue(raw(string(rune('a' + i))))
	}
	p.Stop()

	if proc.calls != 3 {
		t.Fatalf("Persist called %d times, want 3", proc.calls)
	}
	if m.EventsDropped.Load() != 5 || m.PersistRetries.Load() != 2 {
		t.Fatalf("dropped=%d retries=%d", m.EventsDropped.Load(), m.PersistRetries.Load())
	}
	if snap := m.Snapshot(); snap["events_dropped_total"] != 5 {
		t.Fatalf("snapshot = %v", snap)
	}
}
