package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/models"
)

// InsertEvents ignores ids that already exist, so a retried batch whose first
// attempt did commit is harmless.
func (s *Store) InsertEvents(ctx context.Context, evs []models.RawEvent) error {
	if len(evs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		CreateInBatches(&evs, 100).Error
	return translate(err)
}

// UnprocessedGameEnded locks the selected rows with SKIP LOCKED so concurrent
// aggregators inside transactions work on disjoint batches.
func (s *Store) UnprocessedGameEnded(ctx context.Context, tournamentMode bool, limit int) ([]models.RawEvent, error) {
	q := s.db.WithContext(ctx).
		Where("event_type = ? AND processed = ?", events.TypeGameEnded, false)
	if tournamentMode {
		q = q.Where("game_mode = ?", events.GameModeTournament)
	} else {
		q = q.Where("game_mode <> ?", events.GameModeTournament)
	}

	var evs []models.RawEvent
	err := q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order(`"timestamp" ASC`).
		Limit(limit).
		Find(&evs).Error
	return evs, translate(err)
}

func (s *Store) MarkEventProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.RawEvent{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]any{"processed": true, "processed_at": at})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}
