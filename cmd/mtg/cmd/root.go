package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/debug"
)

var (
	cfgFile  string
	jsonOut  bool
	debugOut bool
)

var rootCmd = &cobra.Command{
	Use:   "mtg",
	Short: "Media source browser with a terminal UI",
	Long: `mtg browses media sources (local directories and imported catalogs)
while their listings stream in, and collects playable items into playlists.

Running 'mtg' without arguments launches the TUI.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugOut {
			debug.SetEnabled(true)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return tuiCmd.RunE(cmd, args)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/mtg/config.json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&debugOut, "debug", false, "log debug output to stderr (same as MTG_DEBUG=1)")
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
