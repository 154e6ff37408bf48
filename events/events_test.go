package events

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
)

var now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestDecodeGameEnded(t *testing.T) {
	raw := json.RawMessage(`{
		"event_type": "game_ended",
		"user_id": "player-1",
		"session_id": "s-9",
		"timestamp": "2026-03-02T11:59:00Z",
		"score": 42,
		"survival_time": 61000,
		"game_mode": "tournament",
		"tournament_id": "t-1",
		"cause_of_death": "pipe"
	}`)

	env, err := Decode(raw, now)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.UserID != "player-1" || env.SessionID != "s-9" {
		t.Errorf("envelope = %+v", env)
	}
	if !env.Timestamp.Equal(time.Date(2026, 3, 2, 11, 59, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", env.Timestamp)
	}
	ge, ok := env.Event.(*GameEnded)
	if !ok {
		t.Fatalf("Event is %T", env.Event)
	}
	if ge.ScoreValue() != 42 || ge.SurvivalMs() != 61000 || !ge.IsTournament() || ge.TournamentID != "t-1" {
		t.Errorf("game_ended = %+v", ge)
	}
}

func TestDecodeEpochMillisAndDefaultTimestamp(t *testing.T) {
	env, err := Decode(json.RawMessage(`{"event_type":"tournament_viewed","user_id":"u","tournament_id":"t","timestamp":1772452800000}`), now)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Timestamp.UnixMilli() != 1772452800000 {
		t.Errorf("Timestamp = %v", env.Timestamp)
	}

	env, err = Decode(json.RawMessage(`{"event_type":"tournament_viewed","user_id":"u","tournament_id":"t"}`), now)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !env.Timestamp.Equal(now) {
		t.Errorf("default Timestamp = %v, want %v", env.Timestamp, now)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"not an object":     `[1,2]`,
		"missing type":      `{"user_id":"u"}`,
		"missing user":      `{"event_type":"app_launched","platform":"ios","app_version":"1.0"}`,
		"unknown type":      `{"event_type":"teleported","user_id":"u"}`,
		"unknown field":     `{"event_type":"skin_equipped","user_id":"u","skin_id":"red","hacked":true}`,
		"missing score":     `{"event_type":"game_ended","user_id":"u","survival_time":1000,"game_mode":"endless"}`,
		"negative score":    `{"event_type":"game_ended","user_id":"u","score":-1,"survival_time":1000,"game_mode":"endless"}`,
		"score over max":    `{"event_type":"game_ended","user_id":"u","score":10001,"survival_time":1000,"game_mode":"endless"}`,
		"bad game mode":     `{"event_type":"game_ended","user_id":"u","score":1,"survival_time":1000,"game_mode":"battle"}`,
		"bad enum":          `{"event_type":"currency_earned","user_id":"u","currency":"gold","amount":5,"source":"x"}`,
		"wrong field type":  `{"event_type":"level_started","user_id":"u","level":"three"}`,
		"future timestamp":  `{"event_type":"tournament_viewed","user_id":"u","tournament_id":"t","timestamp":"2026-03-05T00:00:00Z"}`,
		"garbage timestamp": `{"event_type":"tournament_viewed","user_id":"u","tournament_id":"t","timestamp":"yesterday"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(json.RawMessage(body), now)
			if err == nil {
				t.Fatal("expected error")
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("error kind = %v, want validation", apperr.KindOf(err))
			}
		})
	}
}

func TestEveryTypeIsDispatched(t *testing.T) {
	types := Types()
	if len(types) != 28 {
		t.Fatalf("len(Types()) = %d, want 28", len(types))
	}
	seen := map[string]bool{}
	for _, typ := range types {
		if seen[typ] {
			t.Errorf("duplicate type %s", typ)
		}
		seen[typ] = true
		ev, err := newEvent(typ)
		if err != nil {
			t.Errorf("newEvent(%s): %v", typ, err)
			continue
		}
		if ev.Type() != typ {
			t.Errorf("newEvent(%s).Type() = %s", typ, ev.Type())
		}
		// validation errors are prefixed with the event type
		if err := ev.Validate(); err != nil && !strings.HasPrefix(err.Error(), typ+":") {
			t.Errorf("%s validation error not prefixed: %v", typ, err)
		}
	}
}

func TestParseGameEndedRoundTrip(t *testing.T) {
	env, err := Decode(json.RawMessage(`{"event_type":"game_ended","user_id":"u","score":7,"survival_time":9000,"game_mode":"endless"}`), now)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	payload, err := json.Marshal(env.Event)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	ge, err := ParseGameEnded(payload)
	if err != nil {
		t.Fatalf("ParseGameEnded: %v", err)
	}
	if ge.ScoreValue() != 7 || ge.IsTournament() {
		t.Errorf("parsed = %+v", ge)
	}

	if _, err := ParseGameEnded([]byte(`{"score":5}`)); err == nil {
		t.Error("expected error for incomplete payload")
	}
}
