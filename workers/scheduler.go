package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/erezos/flappyjet-backend-sub006/logger"
	"github.com/erezos/flappyjet-backend-sub006/models"
	"github.com/erezos/flappyjet-backend-sub006/services"
)

type Lifecycle interface {
	StartDueTournaments(ctx context.Context) (int, error)
	EndDueTournaments(ctx context.Context) (int, error)
	CreateWeeklyTournament(ctx context.Context, opts services.CreateTournamentOptions) (*models.Tournament, error)
}

type PrizeRecovery interface {
	ProcessLastWeekPrizes(ctx context.Context) (*services.PrizeResult, error)
}

// Scheduler drives the tournament calendar: due starts and ends every
// interval, a new weekly tournament each Monday 00:00 UTC and a daily prize
// recovery pass.
type Scheduler struct {
	sched       gocron.Scheduler
	ctx         context.Context
	tournaments Lifecycle
	prizes      PrizeRecovery
	log         *zap.SugaredLogger
}

func NewScheduler(ctx context.Context, tournaments Lifecycle, prizes PrizeRecovery, interval time.Duration, log *zap.SugaredLogger) (*Scheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	s := &Scheduler{sched: sched, ctx: ctx, tournaments: tournaments, prizes: prizes, log: logger.OrNop(log)}

	jobs := []struct {
		name string
		def  gocron.JobDefinition
		task func()
	}{
		{"tournament-lifecycle", gocron.DurationJob(interval), s.lifecycleTick},
		{"weekly-tournament", gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))), s.createWeekly},
		{"prize-recovery", gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(1, 0, 0))), s.recoverPrizes},
	}
	for _, j := range jobs {
		if _, err := sched.NewJob(j.def, gocron.NewTask(j.task),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, fmt.Errorf("registering %s: %w", j.name, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info("[Scheduler] started")
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) lifecycleTick() {
	started, err := s.tournaments.StartDueTournaments(s.ctx)
	if err != nil {
		s.log.Errorw("[Scheduler] starting due tournaments", "error", err)
	} else if started > 0 {
		s.log.Infow("✅ [Scheduler] tournaments started", "count", started)
	}
	ended, err := s.tournaments.EndDueTournaments(s.ctx)
	if err != nil {
		s.log.Errorw("[Scheduler] ending due tournaments", "error", err)
	} else if ended > 0 {
		s.log.Infow("✅ [Scheduler] tournaments ended", "count", ended)
	}
}

func (s *Scheduler) createWeekly() {
	t, err := s.tournaments.CreateWeeklyTournament(s.ctx, services.CreateTournamentOptions{})
	if err != nil {
		s.log.Errorw("[Scheduler] weekly tournament creation failed", "error", err)
		return
	}
	s.log.Infow("✅ [Scheduler] weekly tournament created", "tournament_id", t.ID, "name", t.Name)
}

func (s *Scheduler) recoverPrizes() {
	res, err := s.prizes.ProcessLastWeekPrizes(s.ctx)
	if err != nil {
		s.log.Errorw("[Scheduler] prize recovery failed", "error", err)
		return
	}
	if res.TournamentID != "" {
		s.log.Infow("✅ [Scheduler] prize recovery", "tournament_id", res.TournamentID, "awarded", res.PrizesAwarded)
	}
}
