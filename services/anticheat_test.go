package services

import (
	"strings"
	"testing"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/models"
)

func history(scores ...int64) []models.ScoreRecord {
	// newest first, one minute apart
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.ScoreRecord, len(scores))
	for i, s := range scores {
		out[len(scores)-1-i] = models.ScoreRecord{Score: s, RecordedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func TestValidateScoreBounds(t *testing.T) {
	ac := NewAntiCheat(DefaultAntiCheatConfig())
	now := time.Now()
	cases := []struct {
		name  string
		sub   ScoreSubmission
		valid bool
	}{
		{"negative", ScoreSubmission{Score: -1, SurvivalTime: time.Second, SubmittedAt: now}, false},
		{"above ceiling", ScoreSubmission{Score: 10001, SurvivalTime: time.Hour, SubmittedAt: now}, false},
		{"ratio", ScoreSubmission{Score: 1000, SurvivalTime: 5000 * time.Millisecond, SubmittedAt: now}, false},
		{"zero survival", ScoreSubmission{Score: 5, SubmittedAt: now}, false},
		{"zero score zero survival", ScoreSubmission{SubmittedAt: now}, true},
		{"plausible", ScoreSubmission{Score: 40, SurvivalTime: 20 * time.Second, SubmittedAt: now}, true},
		{"ceiling", ScoreSubmission{Score: 10000, SurvivalTime: 2 * time.Hour, SubmittedAt: now}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := ac.ValidateScore("p1", tc.sub, nil)
			if v.IsValid != tc.valid {
				t.Fatalf("IsValid = %v (%s), want %v", v.IsValid, v.Reason, tc.valid)
			}
			if !v.IsValid && v.Reason == "" {
				t.Fatal("rejection without reason")
			}
		})
	}
}

func TestValidateScoreGradualProgression(t *testing.T) {
	ac := NewAntiCheat(DefaultAntiCheatConfig())
	progression := []int64{45, 48, 52, 55, 58, 62}
	var accepted []int64
	submittedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, score := range progression {
		submittedAt = submittedAt.Add(30 * time.Second)
		sub := ScoreSubmission{Score: score, SurvivalTime: time.Duration(score) * time.Second, SubmittedAt: submittedAt}
		if v := ac.ValidateScore("p1", sub, history(accepted...)); !v.IsValid {
			t.Fatalf("score %d rejected: %s", score, v.Reason)
		}
		accepted = append(accepted, score)
	}
}

func TestValidateScoreSuddenJump(t *testing.T) {
	ac := NewAntiCheat(DefaultAntiCheatConfig())
	recent := history(20)
	sub := ScoreSubmission{Score: 500, SurvivalTime: 100 * time.Second, SubmittedAt: recent[0].RecordedAt.Add(time.Minute)}

	v := ac.ValidateScore("p1", sub, recent)
	if v.IsValid {
		t.Fatal("20 -> 500 accepted")
	}
	if !strings.Contains(v.Reason, "too quickly") {
		t.Fatalf("reason = %q", v.Reason)
	}

	// the same jump after a long gap is plausible practice
	sub.SubmittedAt = recent[0].RecordedAt.Add(24 * time.Hour)
	if v := ac.ValidateScore("p1", sub, recent); !v.IsValid {
		t.Fatalf("jump after a day rejected: %s", v.Reason)
	}
}

func TestValidateScoreSmallAbsoluteJumpAllowed(t *testing.T) {
	ac := NewAntiCheat(DefaultAntiCheatConfig())
	recent := history(2)
	sub := ScoreSubmission{Score: 30, SurvivalTime: 30 * time.Second, SubmittedAt: recent[0].RecordedAt.Add(time.Second)}
	if v := ac.ValidateScore("p1", sub, recent); !v.IsValid {
		t.Fatalf("2 -> 30 rejected: %s", v.Reason)
	}
}
