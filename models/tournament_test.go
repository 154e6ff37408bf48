package models

import "testing"

func TestTournamentStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to TournamentStatus
		want     bool
	}{
		{TournamentUpcoming, TournamentActive, true},
		{TournamentActive, TournamentEnded, true},
		{TournamentUpcoming, TournamentEnded, false},
		{TournamentActive, TournamentUpcoming, false},
		{TournamentEnded, TournamentActive, false},
		{TournamentEnded, TournamentEnded, false},
		{TournamentActive, TournamentActive, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
