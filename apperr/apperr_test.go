package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{AntiCheat("too fast"), http.StatusBadRequest},
		{Conflict("not active"), http.StatusBadRequest},
		{Forbidden("not registered"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Transient("db down", errors.New("dial")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", Forbidden("player is not registered"))
	if !Is(err, KindForbidden) {
		t.Fatalf("expected forbidden kind, got %v", KindOf(err))
	}
	if got := PublicMessage(err); got != "player is not registered" {
		t.Fatalf("PublicMessage = %q", got)
	}
}

func TestTransientHidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Transient("failed to load tournament", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause should be reachable with errors.Is")
	}
	if got := PublicMessage(err); got != "failed to load tournament" {
		t.Fatalf("PublicMessage = %q", got)
	}
	if got := PublicMessage(errors.New("boom")); got != "internal server error" {
		t.Fatalf("PublicMessage(unclassified) = %q", got)
	}
}
