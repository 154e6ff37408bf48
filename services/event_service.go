package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/metrics"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
	"github.com/erezos/flappyjet-backend-sub006/telemetry"
)

// MaxBatchSize caps one ingest call. Extra events are dropped, not rejected.
const MaxBatchSize = 100

// Enqueuer hands raw events to the background pool without blocking.
type Enqueuer interface {
	Enqueue(raw json.RawMessage) bool
}

type EventService struct {
	store      store.Store
	geo        Geolocator
	geoTimeout time.Duration
	queue      Enqueuer
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewEventService(st store.Store, geo Geolocator, geoTimeout time.Duration, log *zap.SugaredLogger, m *metrics.Metrics) *EventService {
	if geoTimeout <= 0 {
		geoTimeout = 2 * time.Second
	}
	return &EventService{
		store:      st,
		geo:        geo,
		geoTimeout: geoTimeout,
		log:        logger.OrNop(log),
		metrics:    metrics.OrNew(m),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetQueue attaches the pool. The pool itself depends on the service, so
// this is wired after both exist.
func (s *EventService) SetQueue(q Enqueuer) { s.queue = q }

// NormalizeBatch accepts a bare array, an {"events": [...]} wrapper or a
// single event object.
func NormalizeBatch(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, apperr.Validation("empty body")
	}
	switch body[0] {
	case '[':
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, apperr.Validation("malformed event array")
		}
		return batch, nil
	case '{':
		var wrapper struct {
			Events []json.RawMessage `json:"events"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, apperr.Validation("malformed event object")
		}
		if wrapper.Events != nil {
			return wrapper.Events, nil
		}
		// copied: callers may reuse body once we return
		return []json.RawMessage{append(json.RawMessage(nil), body...)}, nil
	default:
		return nil, apperr.Validation("body must be a JSON array or object")
	}
}

// Ingest normalizes and enqueues a batch and returns how many events were
// accepted. Nothing here waits on validation, enrichment or the database.
func (s *EventService) Ingest(ctx context.Context, body []byte) (int, error) {
	batch, err := NormalizeBatch(body)
	if err != nil {
		s.log.Warnw("[INGEST] unreadable batch", "error", err)
		return 0, err
	}
	s.metrics.EventsReceived.Add(int64(len(batch)))
	if len(batch) > MaxBatchSize {
		s.log.Warnw("[INGEST] batch truncated", "received", len(batch), "kept", MaxBatchSize)
		batch = batch[:MaxBatchSize]
	}
	if s.queue == nil {
		return 0, apperr.Transient("event queue unavailable", nil)
	}

	accepted := 0
	for _, raw := range batch {
		if s.queue.Enqueue(raw) {
			accepted++
		}
	}
	return accepted, nil
}

// Prepare validates one event and turns it into a row. It runs on pool workers.
func (s *EventService) Prepare(ctx context.Context, raw json.RawMessage) (*models.RawEvent, error) {
	env, err := events.Decode(raw, s.now())
	if err != nil {
		s.metrics.EventsInvalid.Add(1)
		return nil, err
	}

	payload, err := json.Marshal(env.Event)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", env.EventType, err)
	}
	row := &models.RawEvent{
		ID:        ksuid.New().String(),
		EventType: env.EventType,
		UserID:    env.UserID,
		SessionID: env.SessionID,
		Timestamp: env.Timestamp,
		Payload:   payload,
	}
	if ge, ok := env.Event.(*events.GameEnded); ok {
		row.GameMode = ge.GameMode
		row.TournamentID = ge.TournamentID
	}

	code, timedOut, err := LookupWithTimeout(ctx, s.geo, env.UserID, s.geoTimeout)
	switch {
	case timedOut:
		s.metrics.GeoTimeouts.Add(1)
		s.log.Debugw("[INGEST] geolocation timed out", "user_id", env.UserID, "timeout", s.geoTimeout)
	case err != nil:
		s.log.Debugw("[INGEST] geolocation failed", "user_id", env.UserID, "error", err)
	case len(code) == 2:
		row.CountryCode = code
	}
	return row, nil
}

// Persist records a worker's batch. Rows land with processed=false before
// anything derived from them changes.
func (s *EventService) Persist(ctx context.Context, rows []models.RawEvent) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, span := telemetry.Tracer().Start(ctx, "events.persist")
	span.SetAttributes(attribute.Int("events.count", len(rows)))
	defer span.End()

	if err := s.store.InsertEvents(ctx, rows); err != nil {
		s.metrics.PersistFailures.Add(int64(len(rows)))
		span.RecordError(err)
		return apperr.Transient("persisting events", err)
	}
	s.metrics.EventsPersisted.Add(int64(len(rows)))

	seen := map[string]bool{}
	for _, row := range rows {
		if row.CountryCode == "" || seen[row.UserID] {
			continue
		}
		seen[row.UserID] = true
		if err := s.store.UpsertCountry(ctx, row.UserID, row.CountryCode); err != nil {
			s.log.Warnw("[INGEST] country update failed", "user_id", row.UserID, "error", err)
		}
	}
	return nil
}
