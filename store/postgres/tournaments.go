package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

func (s *Store) CreateTournament(ctx context.Context, t *models.Tournament) error {
	return translate(s.db.WithContext(ctx).Create(t).Error)
}

func (s *Store) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	var t models.Tournament
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) CurrentTournament(ctx context.Context) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.WithContext(ctx).
		Where("status IN ?", []models.TournamentStatus{models.TournamentActive, models.TournamentUpcoming}).
		Order("CASE WHEN status = 'active' THEN 0 ELSE 1 END, start_date ASC").
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) TransitionTournament(ctx context.Context, id string, from, to models.TournamentStatus, at time.Time) (bool, error) {
	if !from.CanTransition(to) {
		return false, nil
	}
	updates := map[string]any{"status": to}
	switch to {
	case models.TournamentActive:
		updates["started_at"] = at
	case models.TournamentEnded:
		updates["ended_at"] = at
	}
	res := s.db.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) DueTournaments(ctx context.Context, status models.TournamentStatus, now time.Time) ([]models.Tournament, error) {
	q := s.db.WithContext(ctx).Where("status = ?", status)
	switch status {
	case models.TournamentUpcoming:
		q = q.Where("start_date <= ?", now)
	case models.TournamentActive:
		q = q.Where("end_date <= ?", now)
	default:
		return nil, nil
	}
	var ts []models.Tournament
	err := q.Order("start_date ASC").Find(&ts).Error
	return ts, translate(err)
}

func (s *Store) LatestEndedWithoutPrizes(ctx context.Context) (*models.Tournament, error) {
	var t models.Tournament
	err := s.db.WithContext(ctx).
		Where("status = ? AND prizes_distributed_at IS NULL", models.TournamentEnded).
		Order("end_date DESC").
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) MarkPrizesDistributed(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Tournament{}).
		Where("id = ? AND prizes_distributed_at IS NULL", id).
		Update("prizes_distributed_at", at)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Tournament{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
	}
	return nil
}

func (s *Store) AddParticipant(ctx context.Context, p *models.TournamentParticipant) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) GetParticipant(ctx context.Context, tournamentID, playerID string) (*models.TournamentParticipant, error) {
	var p models.TournamentParticipant
	err := s.db.WithContext(ctx).
		Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) ListParticipants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	var ps []models.TournamentParticipant
	err := s.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("registered_at ASC, player_id ASC").
		Find(&ps).Error
	return ps, translate(err)
}

func (s *Store) CountParticipants(ctx context.Context, tournamentID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TournamentParticipant{}).
		Where("tournament_id = ?", tournamentID).
		Count(&n).Error
	return n, translate(err)
}

// RecordParticipantScore holds a row lock for the read-compare-write. The
// tournament row is share-locked so a concurrent end waits for the write, and a
// tournament that is no longer active yields store.ErrConflict.
func (s *Store) RecordParticipantScore(ctx context.Context, tournamentID, playerID string, score int64, at time.Time) (int64, *models.TournamentParticipant, error) {
	var prev int64
	var p models.TournamentParticipant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "status").
			Where("id = ?", tournamentID).
			First(&t).Error; err != nil {
			return err
		}
		if t.Status != models.TournamentActive {
			return store.ErrConflict
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
			First(&p).Error; err != nil {
			return err
		}
		prev = p.BestScore

		updates := map[string]any{
			"total_games": gorm.Expr("total_games + 1"),
			"updated_at":  at,
		}
		if score > p.BestScore {
			updates["best_score"] = score
		}
		if err := tx.Model(&models.TournamentParticipant{}).
			Where("id = ?", p.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if score > p.BestScore {
			p.BestScore = score
		}
		p.TotalGames++
		p.UpdatedAt = at
		return nil
	})
	if err != nil {
		return 0, nil, translate(err)
	}
	return prev, &p, nil
}

func (s *Store) CountHigherScores(ctx context.Context, tournamentID string, score int64) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND best_score > ?", tournamentID, score).
		Count(&n).Error
	return n, translate(err)
}

func (s *Store) Standings(ctx context.Context, tournamentID string, limit int) ([]models.TournamentParticipant, error) {
	q := s.db.WithContext(ctx).
		Where("tournament_id = ? AND total_games > 0", tournamentID).
		Order("best_score DESC, registered_at ASC, player_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ps []models.TournamentParticipant
	err := q.Find(&ps).Error
	return ps, translate(err)
}

func (s *Store) SetFinalRanks(ctx context.Context, tournamentID string, ranks map[string]int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for playerID, rank := range ranks {
			if err := tx.Model(&models.TournamentParticipant{}).
				Where("tournament_id = ? AND player_id = ?", tournamentID, playerID).
				Update("final_rank", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err)
}

func (s *Store) SaveSnapshots(ctx context.Context, snaps []models.LeaderboardSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tournament_id"}, {Name: "player_id"}},
		DoNothing: true,
	}).Create(&snaps).Error
	return translate(err)
}
