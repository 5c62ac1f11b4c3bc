package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "necklace",
	Short: "Voice assistant daemon for the AI pendant",
	Long: `necklace - the wearable voice assistant daemon.

Press the button and speak; the assistant transcribes, reasons (email,
alarms, camera, translation, voice notes to the phone), and answers
aloud. Alarms and inbound voice notes play in the background between
turns.

Configuration lives in ~/.necklace/config.yaml; secrets such as
GOOGLE_API_KEY come from the environment or ~/.necklace/.env.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
