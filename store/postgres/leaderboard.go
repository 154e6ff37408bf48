package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

// UpsertHighScore is a single statement so concurrent writers converge on the maximum.
func (s *Store) UpsertHighScore(ctx context.Context, playerID, scope string, score int64, at time.Time) error {
	entry := models.LeaderboardEntry{
		PlayerID:   playerID,
		Scope:      scope,
		HighScore:  score,
		TotalGames: 1,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "scope"}},
		DoUpdates: clause.Assignments(map[string]any{
			"high_score":  gorm.Expr("GREATEST(leaderboard_entries.high_score, EXCLUDED.high_score)"),
			"total_games": gorm.Expr("leaderboard_entries.total_games + 1"),
			"updated_at":  gorm.Expr("GREATEST(leaderboard_entries.updated_at, EXCLUDED.updated_at)"),
		}),
	}).Create(&entry).Error
	return translate(err)
}

const rankedColumns = `e.player_id, COALESCE(p.nickname, '') AS nickname, e.high_score, e.total_games, e.updated_at`

func (s *Store) TopEntries(ctx context.Context, scope string, limit int) ([]models.RankedEntry, error) {
	var rows []models.RankedEntry
	err := s.db.WithContext(ctx).Raw(`
		SELECT `+rankedColumns+`
		FROM leaderboard_entries e
		LEFT JOIN player_profiles p ON p.player_id = e.player_id
		WHERE e.scope = ?
		ORDER BY e.high_score DESC, e.updated_at ASC, e.player_id ASC
		LIMIT ?`, scope, limit).Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for i := range rows {
		if i > 0 && rows[i].HighScore == rows[i-1].HighScore {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = int64(i + 1)
		}
	}
	return rows, nil
}

func (s *Store) EntryRank(ctx context.Context, scope, playerID string) (*models.RankedEntry, error) {
	var row models.RankedEntry
	res := s.db.WithContext(ctx).Raw(`
		SELECT `+rankedColumns+`,
			(SELECT COUNT(*) FROM leaderboard_entries h
			 WHERE h.scope = e.scope AND h.high_score > e.high_score) + 1 AS "rank"
		FROM leaderboard_entries e
		LEFT JOIN player_profiles p ON p.player_id = e.player_id
		WHERE e.scope = ? AND e.player_id = ?`, scope, playerID).Scan(&row)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (s *Store) RecordScore(ctx context.Context, rec *models.ScoreRecord) error {
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *Store) RecentScores(ctx context.Context, playerID string, limit int) ([]models.ScoreRecord, error) {
	var recs []models.ScoreRecord
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("recorded_at DESC, id DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, translate(err)
}

func (s *Store) upsertProfile(ctx context.Context, profile *models.PlayerProfile, column string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{column, "updated_at"}),
	}).Create(profile).Error
	return translate(err)
}

func (s *Store) UpsertNickname(ctx context.Context, playerID, nickname string) error {
	return s.upsertProfile(ctx, &models.PlayerProfile{PlayerID: playerID, Nickname: nickname}, "nickname")
}

func (s *Store) UpsertCountry(ctx context.Context, playerID, countryCode string) error {
	return s.upsertProfile(ctx, &models.PlayerProfile{PlayerID: playerID, CountryCode: countryCode}, "country_code")
}

func (s *Store) GetProfile(ctx context.Context, playerID string) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	if err := s.db.WithContext(ctx).First(&p, "player_id = ?", playerID).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}
