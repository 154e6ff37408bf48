// Package memory is an in-process Store used by tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

var (
	_ store.Store = (*Store)(nil)
	_ store.Store = (*view)(nil)
)

// Store serialises access to one state. Transactions run on a copy that
// replaces the live state only when the callback succeeds.
type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) read() (*view, func()) {
	s.mu.RLock()
	return &view{st: s.st}, s.mu.RUnlock
}

func (s *Store) write() (*view, func()) {
	s.mu.Lock()
	return &view{st: s.st}, s.mu.Unlock
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	if err := fn(&view{st: draft}); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// Snapshots exposes saved final standings for assertions.
func (s *Store) Snapshots(tournamentID string) []models.LeaderboardSnapshot {
	v, done := s.read()
	defer done()
	return v.Snapshots(tournamentID)
}

// Event returns a stored raw event by id.
func (s *Store) Event(id string) (models.RawEvent, bool) {
	v, done := s.read()
	defer done()
	ev, ok := v.st.events[id]
	return ev, ok
}

// EventCount returns how many raw events have been recorded.
func (s *Store) EventCount() int {
	v, done := s.read()
	defer done()
	return len(v.st.eventOrder)
}

func (s *Store) InsertEvents(ctx context.Context, evs []models.RawEvent) error {
	v, done := s.write()
	defer done()
	return v.InsertEvents(ctx, evs)
}

func (s *Store) UnprocessedGameEnded(ctx context.Context, tournamentMode bool, limit int) ([]models.RawEvent, error) {
	v, done := s.read()
	defer done()
	return v.UnprocessedGameEnded(ctx, tournamentMode, limit)
}

func (s *Store) MarkEventProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	v, done := s.write()
	defer done()
	return v.MarkEventProcessed(ctx, id, at)
}

func (s *Store) UpsertHighScore(ctx context.Context, playerID, scope string, score int64, at time.Time) error {
	v, done := s.write()
	defer done()
	return v.UpsertHighScore(ctx, playerID, scope, score, at)
}

func (s *Store) TopEntries(ctx context.Context, scope string, limit int) ([]models.RankedEntry, error) {
	v, done := s.read()
	defer done()
	return v.TopEntries(ctx, scope, limit)
}

func (s *Store) EntryRank(ctx context.Context, scope, playerID string) (*models.RankedEntry, error) {
	v, done := s.read()
	defer done()
	return v.EntryRank(ctx, scope, playerID)
}

func (s *Store) RecordScore(ctx context.Context, rec *models.ScoreRecord) error {
	v, done := s.write()
	defer done()
	return v.RecordScore(ctx, rec)
}

func (s *Store) RecentScores(ctx context.Context, playerID string, limit int) ([]models.ScoreRecord, error) {
	v, done := s.read()
	defer done()
	return v.RecentScores(ctx, playerID, limit)
}

func (s *Store) UpsertNickname(ctx context.Context, playerID, nickname string) error {
	v, done := s.write()
	defer done()
	return v.UpsertNickname(ctx, playerID, nickname)
}

func (s *Store) UpsertCountry(ctx context.Context, playerID, countryCode string) error {
	v, done := s.write()
	defer done()
	return v.UpsertCountry(ctx, playerID, countryCode)
}

func (s *Store) GetProfile(ctx context.Context, playerID string) (*models.PlayerProfile, error) {
	v, done := s.read()
	defer done()
	return v.GetProfile(ctx, playerID)
}

func (s *Store) CreateTournament(ctx context.Context, t *models.Tournament) error {
	v, done := s.write()
	defer done()
	return v.CreateTournament(ctx, t)
}

func (s *Store) GetTournament(ctx context.Context, id string) (*models.Tournament, error) {
	v, done := s.read()
	defer done()
	return v.GetTournament(ctx, id)
}

func (s *Store) CurrentTournament(ctx context.Context) (*models.Tournament, error) {
	v, done := s.read()
	defer done()
	return v.CurrentTournament(ctx)
}

func (s *Store) TransitionTournament(ctx context.Context, id string, from, to models.TournamentStatus, at time.Time) (bool, error) {
	v, done := s.write()
	defer done()
	return v.TransitionTournament(ctx, id, from, to, at)
}

func (s *Store) DueTournaments(ctx context.Context, status models.TournamentStatus, now time.Time) ([]models.Tournament, error) {
	v, done := s.read()
	defer done()
	return v.DueTournaments(ctx, status, now)
}

func (s *Store) LatestEndedWithoutPrizes(ctx context.Context) (*models.Tournament, error) {
	v, done := s.read()
	defer done()
	return v.LatestEndedWithoutPrizes(ctx)
}

func (s *Store) MarkPrizesDistributed(ctx context.Context, id string, at time.Time) error {
	v, done := s.write()
	defer done()
	return v.MarkPrizesDistributed(ctx, id, at)
}

func (s *Store) AddParticipant(ctx context.Context, p *models.TournamentParticipant) error {
	v, done := s.write()
	defer done()
	return v.AddParticipant(ctx, p)
}

func (s *Store) GetParticipant(ctx context.Context, tournamentID, playerID string) (*models.TournamentParticipant, error) {
	v, done := s.read()
	defer done()
	return v.GetParticipant(ctx, tournamentID, playerID)
}

func (s *Store) ListParticipants(ctx context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	v, done := s.read()
	defer done()
	return v.ListParticipants(ctx, tournamentID)
}

func (s *Store) CountParticipants(ctx context.Context, tournamentID string) (int64, error) {
	v, done := s.read()
	defer done()
	return v.CountParticipants(ctx, tournamentID)
}

func (s *Store) RecordParticipantScore(ctx context.Context, tournamentID, playerID string, score int64, at time.Time) (int64, *models.TournamentParticipant, error) {
	v, done := s.write()
	defer done()
	return v.RecordParticipantScore(ctx, tournamentID, playerID, score, at)
}

func (s *Store) CountHigherScores(ctx context.Context, tournamentID string, score int64) (int64, error) {
	v, done := s.read()
	defer done()
	return v.CountHigherScores(ctx, tournamentID, score)
}

func (s *Store) Standings(ctx context.Context, tournamentID string, limit int) ([]models.TournamentParticipant, error) {
	v, done := s.read()
	defer done()
	return v.Standings(ctx, tournamentID, limit)
}

func (s *Store) SetFinalRanks(ctx context.Context, tournamentID string, ranks map[string]int) error {
	v, done := s.write()
	defer done()
	return v.SetFinalRanks(ctx, tournamentID, ranks)
}

func (s *Store) SaveSnapshots(ctx context.Context, snaps []models.LeaderboardSnapshot) error {
	v, done := s.write()
	defer done()
	return v.SaveSnapshots(ctx, snaps)
}

func (s *Store) InsertPrize(ctx context.Context, p *models.Prize) error {
	v, done := s.write()
	defer done()
	return v.InsertPrize(ctx, p)
}

func (s *Store) TournamentPrizes(ctx context.Context, tournamentID string) ([]models.Prize, error) {
	v, done := s.read()
	defer done()
	return v.TournamentPrizes(ctx, tournamentID)
}

func (s *Store) PendingPrizes(ctx context.Context, playerID string) ([]models.Prize, error) {
	v, done := s.read()
	defer done()
	return v.PendingPrizes(ctx, playerID)
}

func (s *Store) ClaimPrize(ctx context.Context, prizeID, playerID string, at time.Time) (*models.Prize, error) {
	v, done := s.write()
	defer done()
	return v.ClaimPrize(ctx, prizeID, playerID, at)
}

func (s *Store) PrizeHistory(ctx context.Context, playerID string, limit int) ([]models.Prize, error) {
	v, done := s.read()
	defer done()
	return v.PrizeHistory(ctx, playerID, limit)
}

func (s *Store) PrizeStats(ctx context.Context) (*models.PrizeStats, error) {
	v, done := s.read()
	defer done()
	return v.PrizeStats(ctx)
}
