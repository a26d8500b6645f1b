// arena-watch creates or attaches to a live debate session and renders it in
// the terminal: transcript, participant panel, and spoken turns.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/debate-arena/client-go/internal/dotenv"
)

var rootCmd = &cobra.Command{
	Use:   "arena-watch",
	Short: "Watch a live multi-party debate session",
	Long: `arena-watch connects to a debate arena backend, creates a debate (from a
template or a custom topic) or attaches to an existing one, and renders the
live session in the terminal with spoken turns.`,
	RunE: runWatch,
}

func main() {
	if err := dotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.String("template", "", "create the debate from a named template")
	flags.String("topic", "", "create a custom debate on this topic")
	flags.StringArray("position", nil, "custom debate position as name[:stance], repeatable")
	flags.String("debate", "", "attach to an existing debate id instead of creating one")
	flags.Int("rounds", 0, "override the number of debate rounds")
	flags.String("strictness", "", "moderator strictness for custom debates (lenient|moderate|strict)")

	pflags := rootCmd.PersistentFlags()
	pflags.String("base-url", "", "backend REST base URL")
	pflags.String("ws-url", "", "backend websocket URL")
	pflags.String("voices-file", "", "voice catalog JSON file (hot reloaded)")
	pflags.Float64("gain", 0, "playback gain 0.0-1.0")
	pflags.Bool("no-speaker", false, "disable audio output")
	pflags.String("log-level", "", "log level (debug|info|warn|error)")

	_ = viper.BindPFlag("base_url", pflags.Lookup("base-url"))
	_ = viper.BindPFlag("ws_url", pflags.Lookup("ws-url"))
	_ = viper.BindPFlag("voices_file", pflags.Lookup("voices-file"))
	_ = viper.BindPFlag("gain", pflags.Lookup("gain"))
	_ = viper.BindPFlag("no_speaker", pflags.Lookup("no-speaker"))
	_ = viper.BindPFlag("log_level", pflags.Lookup("log-level"))

	rootCmd.AddCommand(templatesCmd, statusCmd, transcriptCmd)
}

func initConfig() {
	viper.SetDefault("base_url", "http://localhost:8080")
	viper.SetDefault("ws_url", "ws://localhost:8080/ws")
	viper.SetDefault("gain", 0.8)
	viper.SetDefault("log_level", "info")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ARENA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
