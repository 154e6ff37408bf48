package memory

import (
	"context"
	"sort"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/store"
)

type entryKey struct{ player, scope string }

type pairKey struct{ tournament, player string }

type state struct {
	events       map[string]models.RawEvent
	eventOrder   []string
	entries      map[entryKey]models.LeaderboardEntry
	scores       []models.ScoreRecord
	profiles     map[string]models.PlayerProfile
	tournaments  map[string]models.Tournament
	participants map[pairKey]models.TournamentParticipant
	snapshots    map[pairKey]models.LeaderboardSnapshot
	prizes       map[string]models.Prize
	prizeKeys    map[pairKey]string
	seq          uint
}

func newState() *state {
	return &state{
		events:       map[string]models.RawEvent{},
		entries:      map[entryKey]models.LeaderboardEntry{},
		profiles:     map[string]models.PlayerProfile{},
		tournaments:  map[string]models.Tournament{},
		participants: map[pairKey]models.TournamentParticipant{},
		snapshots:    map[pairKey]models.LeaderboardSnapshot{},
		prizes:       map[string]models.Prize{},
		prizeKeys:    map[pairKey]string{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.events {
		c.events[k] = v
	}
	c.eventOrder = append([]string(nil), s.eventOrder...)
	for k, v := range s.entries {
		c.entries[k] = v
	}
	c.scores = append([]models.ScoreRecord(nil), s.scores...)
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	for k, v := range s.tournaments {
		c.tournaments[k] = v
	}
	for k, v := range s.participants {
		c.participants[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	for k, v := range s.prizes {
		c.prizes[k] = v
	}
	for k, v := range s.prizeKeys {
		c.prizeKeys[k] = v
	}
	c.seq = s.seq
	return c
}

func (s *state) nextID() uint {
	s.seq++
	return s.seq
}

func timePtr(t time.Time) *time.Time { return &t }

// view runs store operations against one state without locking.
// The locked Store and transactions both delegate here.
type view struct {
	st *state
}

func (v *view) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(v)
}

// Events

func (v *view) InsertEvents(_ context.Context, evs []models.RawEvent) error {
	for _, ev := range evs {
		if _, ok := v.st.events[ev.ID]; ok {
			// already recorded by an earlier attempt
			continue
		}
		if ev.ReceivedAt.IsZero() {
			ev.ReceivedAt = time.Now().UTC()
		}
		v.st.events[ev.ID] = ev
		v.st.eventOrder = append(v.st.eventOrder, ev.ID)
	}
	return nil
}

func (v *view) UnprocessedGameEnded(_ context.Context, tournamentMode bool, limit int) ([]models.RawEvent, error) {
	var out []models.RawEvent
	for _, id := range v.st.eventOrder {
		ev := v.st.events[id]
		if ev.EventType != events.TypeGameEnded || ev.Processed {
			continue
		}
		if (ev.GameMode == events.GameModeTournament) != tournamentMode {
			continue
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *view) MarkEventProcessed(_ context.Context, id string, at time.Time) (bool, error) {
	ev, ok := v.st.events[id]
	if !ok || ev.Processed {
		return false, nil
	}
	ev.Processed = true
	ev.ProcessedAt = timePtr(at)
	v.st.events[id] = ev
	return true, nil
}

// Leaderboards

func (v *view) UpsertHighScore(_ context.Context, playerID, scope string, score int64, at time.Time) error {
	k := entryKey{playerID, scope}
	e, ok := v.st.entries[k]
	if !ok {
		v.st.entries[k] = models.LeaderboardEntry{
			ID:         v.st.nextID(),
			PlayerID:   playerID,
			Scope:      scope,
			HighScore:  score,
			TotalGames: 1,
			CreatedAt:  at,
			UpdatedAt:  at,
		}
		return nil
	}
	if score > e.HighScore {
		e.HighScore = score
	}
	e.TotalGames++
	if at.After(e.UpdatedAt) {
		e.UpdatedAt = at
	}
	v.st.entries[k] = e
	return nil
}

func (v *view) scopeEntries(scope string) []models.LeaderboardEntry {
	var out []models.LeaderboardEntry
	for _, e := range v.st.entries {
		if e.Scope == scope {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HighScore != out[j].HighScore {
			return out[i].HighScore > out[j].HighScore
		}
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

func (v *view) ranked(e models.LeaderboardEntry, rank int64) models.RankedEntry {
	return models.RankedEntry{
		Rank:       rank,
		PlayerID:   e.PlayerID,
		Nickname:   v.st.profiles[e.PlayerID].Nickname,
		HighScore:  e.HighScore,
		TotalGames: e.TotalGames,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (v *view) TopEntries(_ context.Context, scope string, limit int) ([]models.RankedEntry, error) {
	all := v.scopeEntries(scope)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]models.RankedEntry, 0, len(all))
	var rank int64
	for i, e := range all {
		if i == 0 || e.HighScore != all[i-1].HighScore {
			rank = int64(i + 1)
		}
		out = append(out, v.ranked(e, rank))
	}
	return out, nil
}

func (v *view) EntryRank(_ context.Context, scope, playerID string) (*models.RankedEntry, error) {
	e, ok := v.st.entries[entryKey{playerID, scope}]
	if !ok {
		return nil, store.ErrNotFound
	}
	var higher int64
	for _, other := range v.st.entries {
		if other.Scope == scope && other.HighScore > e.HighScore {
			higher++
		}
	}
	r := v.ranked(e, higher+1)
	return &r, nil
}

func (v *view) RecordScore(_ context.Context, rec *models.ScoreRecord) error {
	rec.ID = v.st.nextID()
	v.st.scores = append(v.st.scores, *rec)
	return nil
}

func (v *view) RecentScores(_ context.Context, playerID string, limit int) ([]models.ScoreRecord, error) {
	var out []models.ScoreRecord
	for _, r := range v.st.scores {
		if r.PlayerID == playerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *view) profile(playerID string) models.PlayerProfile {
	p, ok := v.st.profiles[playerID]
	if !ok {
		now := time.Now().UTC()
		p = models.PlayerProfile{PlayerID: playerID, CreatedAt: now}
	}
	p.UpdatedAt = time.Now().UTC()
	return p
}

func (v *view) UpsertNickname(_ context.Context, playerID, nickname string) error {
	p := v.profile(playerID)
	p.Nickname = nickname
	v.st.profiles[playerID] = p
	return nil
}

func (v *view) UpsertCountry(_ context.Context, playerID, countryCode string) error {
	p := v.profile(playerID)
	p.CountryCode = countryCode
	v.st.profiles[playerID] = p
	return nil
}

func (v *view) GetProfile(_ context.Context, playerID string) (*models.PlayerProfile, error) {
	p, ok := v.st.profiles[playerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

// Tournaments

func (v *view) CreateTournament(_ context.Context, t *models.Tournament) error {
	if _, ok := v.st.tournaments[t.ID]; ok {
		return store.ErrDuplicate
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	v.st.tournaments[t.ID] = *t
	return nil
}

func (v *view) GetTournament(_ context.Context, id string) (*models.Tournament, error) {
	t, ok := v.st.tournaments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (v *view) CurrentTournament(_ context.Context) (*models.Tournament, error) {
	var best *models.Tournament
	better := func(a, b models.Tournament) bool {
		if a.Status != b.Status {
			return a.Status == models.TournamentActive
		}
		return a.StartDate.Before(b.StartDate)
	}
	for _, t := range v.st.tournaments {
		if t.Status == models.TournamentEnded {
			continue
		}
		if best == nil || better(t, *best) {
			t := t
			best = &t
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func (v *view) TransitionTournament(_ context.Context, id string, from, to models.TournamentStatus, at time.Time) (bool, error) {
	t, ok := v.st.tournaments[id]
	if !ok || t.Status != from || !from.CanTransition(to) {
		return false, nil
	}
	t.Status = to
	switch to {
	case models.TournamentActive:
		t.StartedAt = timePtr(at)
	case models.TournamentEnded:
		t.EndedAt = timePtr(at)
	}
	t.UpdatedAt = at
	v.st.tournaments[id] = t
	return true, nil
}

func (v *view) DueTournaments(_ context.Context, status models.TournamentStatus, now time.Time) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range v.st.tournaments {
		if t.Status != status {
			continue
		}
		switch status {
		case models.TournamentUpcoming:
			if !t.StartDate.After(now) {
				out = append(out, t)
			}
		case models.TournamentActive:
			if !t.EndDate.After(now) {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (v *view) LatestEndedWithoutPrizes(_ context.Context) (*models.Tournament, error) {
	var best *models.Tournament
	for _, t := range v.st.tournaments {
		if t.Status != models.TournamentEnded || t.PrizesDistributedAt != nil {
			continue
		}
		if best == nil || t.EndDate.After(best.EndDate) {
			t := t
			best = &t
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func (v *view) MarkPrizesDistributed(_ context.Context, id string, at time.Time) error {
	t, ok := v.st.tournaments[id]
	if !ok {
		return store.ErrNotFound
	}
	if t.PrizesDistributedAt == nil {
		t.PrizesDistributedAt = timePtr(at)
		v.st.tournaments[id] = t
	}
	return nil
}

// Participants

func (v *view) AddParticipant(_ context.Context, p *models.TournamentParticipant) error {
	k := pairKey{p.TournamentID, p.PlayerID}
	if _, ok := v.st.participants[k]; ok {
		return store.ErrDuplicate
	}
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = time.Now().UTC()
	}
	p.UpdatedAt = p.RegisteredAt
	v.st.participants[k] = *p
	return nil
}

func (v *view) GetParticipant(_ context.Context, tournamentID, playerID string) (*models.TournamentParticipant, error) {
	p, ok := v.st.participants[pairKey{tournamentID, playerID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (v *view) participantsOf(tournamentID string) []models.TournamentParticipant {
	var out []models.TournamentParticipant
	for _, p := range v.st.participants {
		if p.TournamentID == tournamentID {
			out = append(out, p)
		}
	}
	return out
}

func (v *view) ListParticipants(_ context.Context, tournamentID string) ([]models.TournamentParticipant, error) {
	out := v.participantsOf(tournamentID)
	sort.Slice(out, func(i, j int) bool { return registeredBefore(out[i], out[j]) })
	return out, nil
}

func (v *view) CountParticipants(_ context.Context, tournamentID string) (int64, error) {
	return int64(len(v.participantsOf(tournamentID))), nil
}

func (v *view) RecordParticipantScore(_ context.Context, tournamentID, playerID string, score int64, at time.Time) (int64, *models.TournamentParticipant, error) {
	t, ok := v.st.tournaments[tournamentID]
	if !ok {
		return 0, nil, store.ErrNotFound
	}
	if t.Status != models.TournamentActive {
		return 0, nil, store.ErrConflict
	}
	k := pairKey{tournamentID, playerID}
	p, ok := v.st.participants[k]
	if !ok {
		return 0, nil, store.ErrNotFound
	}
	prev := p.BestScore
	if score > p.BestScore {
		p.BestScore = score
	}
	p.TotalGames++
	p.UpdatedAt = at
	v.st.participants[k] = p
	return prev, &p, nil
}

func (v *view) CountHigherScores(_ context.Context, tournamentID string, score int64) (int64, error) {
	var n int64
	for _, p := range v.participantsOf(tournamentID) {
		if p.BestScore > score {
			n++
		}
	}
	return n, nil
}

func (v *view) Standings(_ context.Context, tournamentID string, limit int) ([]models.TournamentParticipant, error) {
	var out []models.TournamentParticipant
	for _, p := range v.participantsOf(tournamentID) {
		if p.TotalGames > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BestScore != out[j].BestScore {
			return out[i].BestScore > out[j].BestScore
		}
		return registeredBefore(out[i], out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func registeredBefore(a, b models.TournamentParticipant) bool {
	if !a.RegisteredAt.Equal(b.RegisteredAt) {
		return a.RegisteredAt.Before(b.RegisteredAt)
	}
	return a.PlayerID < b.PlayerID
}

func (v *view) SetFinalRanks(_ context.Context, tournamentID string, ranks map[string]int) error {
	for playerID, rank := range ranks {
		k := pairKey{tournamentID, playerID}
		if p, ok := v.st.participants[k]; ok {
			p.FinalRank = rank
			v.st.participants[k] = p
		}
	}
	return nil
}

func (v *view) SaveSnapshots(_ context.Context, snaps []models.LeaderboardSnapshot) error {
	for _, s := range snaps {
		k := pairKey{s.TournamentID, s.PlayerID}
		if _, ok := v.st.snapshots[k]; ok {
			continue
		}
		s.ID = v.st.nextID()
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}
		v.st.snapshots[k] = s
	}
	return nil
}

// Snapshots returns the frozen standings of a tournament, best rank first.
func (v *view) Snapshots(tournamentID string) []models.LeaderboardSnapshot {
	var out []models.LeaderboardSnapshot
	for _, s := range v.st.snapshots {
		if s.TournamentID == tournamentID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// Prizes

func (v *view) InsertPrize(_ context.Context, p *models.Prize) error {
	k := pairKey{p.TournamentID, p.PlayerID}
	if _, ok := v.st.prizeKeys[k]; ok {
		return store.ErrDuplicate
	}
	if _, ok := v.st.prizes[p.ID]; ok {
		return store.ErrDuplicate
	}
	v.st.prizes[p.ID] = *p
	v.st.prizeKeys[k] = p.ID
	return nil
}

func (v *view) filterPrizes(keep func(models.Prize) bool) []models.Prize {
	var out []models.Prize
	for _, p := range v.st.prizes {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func newestFirst(ps []models.Prize) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].AwardedAt.Equal(ps[j].AwardedAt) {
			return ps[i].AwardedAt.After(ps[j].AwardedAt)
		}
		return ps[i].Rank < ps[j].Rank
	})
}

func (v *view) TournamentPrizes(_ context.Context, tournamentID string) ([]models.Prize, error) {
	out := v.filterPrizes(func(p models.Prize) bool { return p.TournamentID == tournamentID })
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (v *view) PendingPrizes(_ context.Context, playerID string) ([]models.Prize, error) {
	out := v.filterPrizes(func(p models.Prize) bool { return p.PlayerID == playerID && p.ClaimedAt == nil })
	newestFirst(out)
	return out, nil
}

func (v *view) ClaimPrize(_ context.Context, prizeID, playerID string, at time.Time) (*models.Prize, error) {
	p, ok := v.st.prizes[prizeID]
	if !ok || (playerID != "" && p.PlayerID != playerID) {
		return nil, store.ErrNotFound
	}
	if p.ClaimedAt != nil {
		return nil, store.ErrConflict
	}
	p.ClaimedAt = timePtr(at)
	v.st.prizes[prizeID] = p
	return &p, nil
}

func (v *view) PrizeHistory(_ context.Context, playerID string, limit int) ([]models.Prize, error) {
	out := v.filterPrizes(func(p models.Prize) bool { return playerID == "" || p.PlayerID == playerID })
	newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *view) PrizeStats(_ context.Context) (*models.PrizeStats, error) {
	stats := &models.PrizeStats{}
	tournaments := map[string]struct{}{}
	for _, p := range v.st.prizes {
		stats.TotalPrizes++
		if p.ClaimedAt != nil {
			stats.ClaimedPrizes++
		} else {
			stats.PendingPrizes++
		}
		stats.TotalCoins += p.Coins
		stats.TotalGems += p.Gems
		tournaments[p.TournamentID] = struct{}{}
	}
	stats.Tournaments = int64(len(tournaments))
	return stats, nil
}
