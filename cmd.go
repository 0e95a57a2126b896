package main

import (
	"fmt"

	"github.com/spf13/cobra"

	app "github.com/rocketscienceinc/guessgame-backend/internal"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "guessgame",
	Short: "Guessgame is a twenty-questions game that learns new titles from its players",
	Long: `Guessgame walks a yes/no decision tree until it guesses a game title.
When the guess is wrong the player teaches it a distinguishing question.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket servers",
	RunE:  runServe,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Provision the root of the decision tree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf := initConfig(configPath)

		if err := app.RunSeed(cmd.Context(), initLogger(conf), conf); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}

		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the size of the decision tree and its newest titles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		conf := initConfig(configPath)

		if err := app.RunStats(cmd.Context(), initLogger(conf), conf, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("stats failed: %w", err)
		}

		return nil
	},
}

func runServe(_ *cobra.Command, _ []string) error {
	conf := initConfig(configPath)

	if err := app.RunApp(initLogger(conf), conf); err != nil {
		return fmt.Errorf("app run failed: %w", err)
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yml", "Path to the config file")

	rootCmd.AddCommand(serveCmd, seedCmd, statsCmd)
}
