package services

import (
	"fmt"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/events"
	"github.com/erezos/flappyjet-backend-sub006/models"
)

type AntiCheatConfig struct {
	MaxScore           int64
	MaxPointsPerSecond float64
	// HistoryWindow is how many recent accepted scores the velocity check reads.
	HistoryWindow int
	// A score above MaxImprovementMultiplier x recent best, by at least
	// MinSuspiciousJump points, within SuspiciousInterval of the previous
	// score is rejected.
	MaxImprovementMultiplier float64
	MinSuspiciousJump        int64
	SuspiciousInterval       time.Duration
	// MinSurvival stands in for a zero survival time in the ratio check.
	MinSurvival time.Duration
}

func DefaultAntiCheatConfig() AntiCheatConfig {
	return AntiCheatConfig{
		MaxScore:                 events.MaxScore,
		MaxPointsPerSecond:       10,
		HistoryWindow:            10,
		MaxImprovementMultiplier: 3,
		MinSuspiciousJump:        50,
		SuspiciousInterval:       10 * time.Minute,
		MinSurvival:              time.Millisecond,
	}
}

type ScoreSubmission struct {
	Score        int64
	SurvivalTime time.Duration
	SubmittedAt  time.Time
}

type Verdict struct {
	IsValid    bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

type AntiCheat struct {
	cfg AntiCheatConfig
}

func NewAntiCheat(cfg AntiCheatConfig) *AntiCheat {
	def := DefaultAntiCheatConfig()
	if cfg.MaxScore <= 0 {
		cfg.MaxScore = def.MaxScore
	}
	if cfg.MaxPointsPerSecond <= 0 {
		cfg.MaxPointsPerSecond = def.MaxPointsPerSecond
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.MaxImprovementMultiplier <= 1 {
		cfg.MaxImprovementMultiplier = def.MaxImprovementMultiplier
	}
	if cfg.SuspiciousInterval <= 0 {
		cfg.SuspiciousInterval = def.SuspiciousInterval
	}
	if cfg.MinSurvival <= 0 {
		cfg.MinSurvival = def.MinSurvival
	}
	return &AntiCheat{cfg: cfg}
}

func (a *AntiCheat) HistoryWindow() int { return a.cfg.HistoryWindow }

// ValidateScore judges a submission against the player's recent accepted
// scores (newest first). It has no side effects.
func (a *AntiCheat) ValidateScore(playerID string, sub ScoreSubmission, recent []models.ScoreRecord) Verdict {
	if sub.Score < 0 {
		return reject(1, "score cannot be negative")
	}
	if sub.Score > a.cfg.MaxScore {
		return reject(1, fmt.Sprintf("score %d exceeds maximum of %d", sub.Score, a.cfg.MaxScore))
	}
	if sub.SurvivalTime < 0 {
		return reject(1, "survival time cannot be negative")
	}

	survival := sub.SurvivalTime
	if survival < a.cfg.MinSurvival {
		survival = a.cfg.MinSurvival
	}
	if rate := float64(sub.Score) / survival.Seconds(); rate > a.cfg.MaxPointsPerSecond {
		return reject(0.9, fmt.Sprintf("score rate %.1f points/s exceeds %.1f", rate, a.cfg.MaxPointsPerSecond))
	}

	if len(recent) > a.cfg.HistoryWindow {
		recent = recent[:a.cfg.HistoryWindow]
	}
	if len(recent) == 0 {
		return Verdict{IsValid: true, Confidence: 1}
	}

	var best int64
	for _, r := range recent {
		if r.Score > best {
			best = r.Score
		}
	}
	jump := sub.Score - best
	if float64(sub.Score) > float64(best)*a.cfg.MaxImprovementMultiplier && jump >= a.cfg.MinSuspiciousJump {
		// zero timestamps count as an implausibly short interval
		last := recent[0].RecordedAt
		if last.IsZero() || sub.SubmittedAt.IsZero() || sub.SubmittedAt.Sub(last) < a.cfg.SuspiciousInterval {
			return reject(0.8, fmt.Sprintf("score %d jumps from recent best %d too quickly", sub.Score, best))
		}
	}
	return Verdict{IsValid: true, Confidence: 1}
}

func reject(confidence float64, reason string) Verdict {
	return Verdict{IsValid: false, Confidence: confidence, Reason: reason}
}
