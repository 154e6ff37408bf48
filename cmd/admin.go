package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/erezos/flappyjet-backend-sub006/services"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Fold pending game_ended events into the leaderboards once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			global := a.leaderboard.UpdateGlobalLeaderboard(cmd.Context())
			tournament := a.leaderboard.UpdateTournamentLeaderboard(cmd.Context())
			if err := printJSON(map[string]any{"global": global, "tournament": tournament}); err != nil {
				return err
			}
			if !global.Success || !tournament.Success {
				return fmt.Errorf("aggregation failed")
			}
			return nil
		})
	},
}

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Manage tournaments",
}

var (
	createName      string
	createStart     string
	createEnd       string
	createPrizePool int64
)

var tournamentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a weekly tournament",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := services.CreateTournamentOptions{Name: createName}
		if createStart != "" {
			ts, err := time.Parse(time.RFC3339, createStart)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			opts.StartDate = &ts
		}
		if createEnd != "" {
			ts, err := time.Parse(time.RFC3339, createEnd)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			opts.EndDate = &ts
		}
		if cmd.Flags().Changed("prize-pool") {
			opts.PrizePool = &createPrizePool
		}
		return withApp(cmd.Context(), func(a *app) error {
			t, err := a.tournaments.CreateWeeklyTournament(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(t)
		})
	},
}

var tournamentStartCmd = &cobra.Command{
	Use:   "start <tournament-id>",
	Short: "Activate an upcoming tournament",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			t, err := a.tournaments.StartTournament(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(t)
		})
	},
}

var tournamentEndCmd = &cobra.Command{
	Use:   "end <tournament-id>",
	Short: "End a tournament, award prizes and archive final standings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			res, err := a.tournaments.EndTournament(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var prizesCmd = &cobra.Command{
	Use:   "prizes",
	Short: "Prize maintenance",
}

var prizesProcessCmd = &cobra.Command{
	Use:   "process-last-week",
	Short: "Award prizes for the most recent ended tournament still missing them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			res, err := a.prizes.ProcessLastWeekPrizes(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

func init() {
	f := tournamentCreateCmd.Flags()
	f.StringVar(&createName, "name", "", "tournament name (default: Weekly Championship <ISO week>)")
	f.StringVar(&createStart, "start", "", "start time, RFC3339 (default: now)")
	f.StringVar(&createEnd, "end", "", "end time, RFC3339 (default: start + 7 days)")
	f.Int64Var(&createPrizePool, "prize-pool", services.DefaultPrizePool, "prize pool in coins")

	tournamentCmd.AddCommand(tournamentCreateCmd, tournamentStartCmd, tournamentEndCmd)
	prizesCmd.AddCommand(prizesProcessCmd)
}
