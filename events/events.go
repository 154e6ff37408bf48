// Package events defines the client telemetry schemas. Each event_type maps to
// one closed struct; Decode rejects unknown types and unknown fields.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/erezos/flappyjet-backend-sub006/apperr"
)

// MaxScore is the hard ceiling for any single run.
const MaxScore = 10000

// MaxClockSkew bounds how far in the future a client timestamp may be.
const MaxClockSkew = 24 * time.Hour

type Event interface {
	Type() string
	Validate() error
}

// Envelope is a decoded event together with the fields every type shares.
type Envelope struct {
	EventType string
	UserID    string
	SessionID string
	Timestamp time.Time
	Event     Event
}

// Decode parses one raw client event. now is used when the client sent no timestamp.
func Decode(raw json.RawMessage, now time.Time) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, apperr.Validation("event must be a JSON object")
	}

	env := &Envelope{}
	var err error
	if env.EventType, err = takeString(fields, "event_type"); err != nil {
		return nil, err
	}
	if env.EventType == "" {
		return nil, apperr.Validation("event_type is required")
	}
	if env.UserID, err = takeString(fields, "user_id"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(env.UserID) == "" {
		return nil, apperr.Validation("user_id is required")
	}
	if env.SessionID, err = takeString(fields, "session_id"); err != nil {
		return nil, err
	}
	if env.Timestamp, err = takeTimestamp(fields, now); err != nil {
		return nil, err
	}

	ev, err := newEvent(env.EventType)
	if err != nil {
		return nil, err
	}

	rest, _ := json.Marshal(fields)
	dec := json.NewDecoder(bytes.NewReader(rest))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ev); err != nil {
		return nil, apperr.Validationf("%s: %v", env.EventType, err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	env.Event = ev
	return env, nil
}

// ParseGameEnded reads a persisted game_ended payload back into its struct.
func ParseGameEnded(payload []byte) (*GameEnded, error) {
	var ev GameEnded
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, apperr.Validationf("game_ended: %v", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}

func takeString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", nil
	}
	delete(fields, key)
	if string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", apperr.Validationf("%s must be a string", key)
	}
	return s, nil
}

// takeTimestamp accepts RFC3339 strings or epoch milliseconds.
func takeTimestamp(fields map[string]json.RawMessage, now time.Time) (time.Time, error) {
	raw, ok := fields["timestamp"]
	if !ok || string(raw) == "null" {
		delete(fields, "timestamp")
		return now.UTC(), nil
	}
	delete(fields, "timestamp")

	var ts time.Time
	var s string
	var ms float64
	switch {
	case json.Unmarshal(raw, &s) == nil:
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, apperr.Validation("timestamp must be RFC3339 or epoch milliseconds")
		}
		ts = parsed
	case json.Unmarshal(raw, &ms) == nil:
		if ms <= 0 || math.IsInf(ms, 0) {
			return time.Time{}, apperr.Validation("timestamp must be positive")
		}
		ts = time.UnixMilli(int64(ms))
	default:
		return time.Time{}, apperr.Validation("timestamp must be RFC3339 or epoch milliseconds")
	}

	if ts.After(now.Add(MaxClockSkew)) {
		return time.Time{}, apperr.Validation("timestamp is too far in the future")
	}
	return ts.UTC(), nil
}

// checker collects field violations for one event type.
type checker struct {
	typ  string
	errs []string
}

func newChecker(typ string) *checker { return &checker{typ: typ} }

func (c *checker) fail(format string, args ...any) {
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

func (c *checker) str(name, v string, required bool, maxLen int) {
	if v == "" {
		if required {
			c.fail("%s is required", name)
		}
		return
	}
	if maxLen > 0 && len(v) > maxLen {
		c.fail("%s must be at most %d characters", name, maxLen)
	}
}

func (c *checker) enum(name, v string, required bool, allowed ...string) {
	if v == "" {
		if required {
			c.fail("%s is required", name)
		}
		return
	}
	for _, a := range allowed {
		if v == a {
			return
		}
	}
	c.fail("%s must be one of %s", name, strings.Join(allowed, ", "))
}

func (c *checker) num(name string, v *int64, required bool, min, max int64) {
	if v == nil {
		if required {
			c.fail("%s is required", name)
		}
		return
	}
	if *v < min || *v > max {
		if max == math.MaxInt64 {
			c.fail("%s must be >= %d", name, min)
		} else {
			c.fail("%s must be between %d and %d", name, min, max)
		}
	}
}

func (c *checker) amount(name string, v *float64, required bool) {
	if v == nil {
		if required {
			c.fail("%s is required", name)
		}
		return
	}
	if *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		c.fail("%s must be a non-negative number", name)
	}
}

func (c *checker) err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return apperr.Validationf("%s: %s", c.typ, strings.Join(c.errs, "; "))
}

const noMax = math.MaxInt64
