package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debate-arena/client-go/pkg/arena"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available debate templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		api := arena.NewClient(viper.GetString("base_url"), arena.WithLogger(newLogger()))
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		templates, err := api.Templates(ctx)
		if err != nil {
			return err
		}
		for _, t := range templates {
			fmt.Printf("%-24s %s (%d debaters)\n", t.Name, t.Topic, t.NumDebaters)
			if t.Description != "" {
				fmt.Printf("%-24s %s\n", "", t.Description)
			}
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <debate-id>",
	Short: "Show the current state of a debate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api := arena.NewClient(viper.GetString("base_url"), arena.WithLogger(newLogger()))
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		status, err := api.Status(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("debate:  %s\n", status.DebateID)
		fmt.Printf("topic:   %s\n", status.Topic)
		fmt.Printf("phase:   %s\n", status.Phase)
		fmt.Printf("round:   %d/%d\n", status.CurrentRound, status.TotalRounds)
		fmt.Printf("active:  %v\n", status.IsActive)
		fmt.Printf("turns:   %d\n", status.TotalTurns)
		for _, d := range status.Debaters {
			fmt.Printf("debater: %s (%s)\n", d.Name, d.Position)
		}
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <debate-id>",
	Short: "Print the backend-formatted transcript of a debate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api := arena.NewClient(viper.GetString("base_url"), arena.WithLogger(newLogger()))
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		tr, err := api.Transcript(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(tr.Transcript)
		fmt.Printf("\nturns: %d, rounds completed: %d\n",
			tr.Statistics.TotalTurns, tr.Statistics.RoundsCompleted)
		return nil
	},
}
