package postgres

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

// InsertPrize relies on the (tournament_id, player_id) unique index: a row that
// already exists inserts nothing and is reported as ErrDuplicate.
func (s *Store) InsertPrize(ctx context.Context, p *models.Prize) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "player_id"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrDuplicate
	}
	return nil
}

func (s *Store) TournamentPrizes(ctx context.Context, tournamentID string) ([]models.Prize, error) {
	var ps []models.Prize
	err := s.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("rank ASC").
		Find(&ps).Error
	return ps, translate(err)
}

func (s *Store) PendingPrizes(ctx context.Context, playerID string) ([]models.Prize, error) {
	var ps []models.Prize
	err := s.db.WithContext(ctx).
		Where("player_id = ? AND claimed_at IS NULL", playerID).
		Order("awarded_at DESC, rank ASC").
		Find(&ps).Error
	return ps, translate(err)
}

func (s *Store) ClaimPrize(ctx context.Context, prizeID, playerID string, at time.Time) (*models.Prize, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Prize{}).
		Where("id = ? AND claimed_at IS NULL", prizeID)
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	res := q.Update("claimed_at", at)
	if res.Error != nil {
		return nil, translate(res.Error)
	}

	var p models.Prize
	if err := s.db.WithContext(ctx).First(&p, "id = ?", prizeID).Error; err != nil {
		return nil, translate(err)
	}
	if playerID != "" && p.PlayerID != playerID {
		return nil, store.ErrNotFound
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrConflict
	}
	return &p, nil
}

func (s *Store) PrizeHistory(ctx context.Context, playerID string, limit int) ([]models.Prize, error) {
	q := s.db.WithContext(ctx).Order("awarded_at DESC, rank ASC")
	if playerID != "" {
		q = q.Where("player_id = ?", playerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ps []models.Prize
	err := q.Find(&ps).Error
	return ps, translate(err)
}

func (s *Store) PrizeStats(ctx context.Context) (*models.PrizeStats, error) {
	var stats models.PrizeStats
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_prizes,
			COUNT(claimed_at) AS claimed_prizes,
			COUNT(*) - COUNT(claimed_at) AS pending_prizes,
			COALESCE(SUM(coins), 0) AS total_coins,
			COALESCE(SUM(gems), 0) AS total_gems,
			COUNT(DISTINCT tournament_id) AS tournaments
		FROM prizes`).Scan(&stats).Error
	if err != nil {
		return nil, translate(err)
	}
	return &stats, nil
}
