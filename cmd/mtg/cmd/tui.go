package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive browser",
	Long:  `Opens the terminal user interface for browsing sources and building the playlist.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// The TUI owns the terminal, so debug output goes to a file.
		if debug.Enabled() && os.Getenv("MTG_DEBUG_FILE") == "" {
			if f, err := os.OpenFile(a.cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				defer f.Close()
				debug.SetOutput(f)
			}
		}

		mode, err := a.mode()
		if err != nil {
			return err
		}
		return tui.Run(tui.Options{
			Registry:      a.registry,
			Playlist:      a.playlist,
			Mode:          mode,
			BatchSize:     a.cfg.BatchSize,
			BrowseTimeout: a.cfg.BrowseTimeout.Duration,
		})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
