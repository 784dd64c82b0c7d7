package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/playlist"
	"github.com/tormodhaugland/mtg/internal/tui"
)

var (
	playlistName  string
	playlistTitle string
	playlistYes   bool
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Inspect and edit playlists",
	Long: `Playlists hold object ids added from the browser. Positions shown by
'mtg playlist show' start at 1. Each playlist keeps its own shuffle and
repeat flags, used by the renderer in the TUI.`,
}

// openPlaylist opens the playlist named by --name, or the configured one.
func openPlaylist() (*app, *playlist.Playlist, error) {
	a, err := loadApp()
	if err != nil {
		return nil, nil, err
	}
	if playlistName == "" {
		return a, a.playlist, nil
	}
	return a, playlist.New(a.db, playlistName), nil
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return n - 1, nil
}

var playlistLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List playlists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		lists, err := a.db.Playlists()
		if err != nil {
			return err
		}
		if jsonOut {
			return outputJSON(lists)
		}
		if len(lists) == 0 {
			fmt.Println("No playlists")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tITEMS\tSHUFFLE\tREPEAT")
		for _, pl := range lists {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", pl.Name, pl.Items, onOff(pl.Shuffle), onOff(pl.Repeat))
		}
		return w.Flush()
	},
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

var playlistNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create an empty playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := playlist.Create(a.db, args[0]); err != nil {
			return err
		}
		fmt.Printf("Created playlist %s\n", args[0])
		return nil
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a playlist and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pl := playlist.New(a.db, args[0])
		if !playlistYes {
			ok, err := confirm(fmt.Sprintf("Delete playlist %s?", pl.Name()))
			if err != nil || !ok {
				return err
			}
		}
		if err := pl.Delete(); err != nil {
			return err
		}
		fmt.Printf("Deleted playlist %s\n", pl.Name())
		return nil
	},
}

var playlistRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := playlist.New(a.db, args[0]).Rename(args[1]); err != nil {
			return err
		}
		if args[0] == a.cfg.Playlist {
			warnf("%s was the configured playlist; update \"playlist\" in the config to keep using it", args[0])
		}
		fmt.Printf("Renamed %s to %s\n", args[0], args[1])
		return nil
	},
}

func flagCmd(use, short string, set func(*playlist.Playlist, bool) error) *cobra.Command {
	return &cobra.Command{
		Use:       use + " on|off",
		Short:     short,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			a, pl, err := openPlaylist()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := set(pl, on); err != nil {
				return err
			}
			fmt.Printf("%s %s for %s\n", use, onOff(on), pl.Name())
			return nil
		},
	}
}

var playlistShuffleCmd = flagCmd("shuffle", "Turn shuffled play order on or off", (*playlist.Playlist).SetShuffle)

var playlistRepeatCmd = flagCmd("repeat", "Turn wrap-around at the playlist ends on or off", (*playlist.Playlist).SetRepeat)

// confirm asks on the terminal. Without one it refuses, so scripts must
// pass --yes.
func confirm(prompt string) (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return false, fmt.Errorf("refusing without --yes: %s", prompt)
	}
	res, err := tui.RunConfirm(prompt, false)
	if err != nil {
		return false, err
	}
	return res.Confirmed, nil
}

var playlistShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show playlist entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, pl, err := openPlaylist()
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := pl.Items()
		if err != nil {
			return err
		}
		if jsonOut {
			return outputJSON(items)
		}
		if len(items) == 0 {
			fmt.Printf("Playlist %s is empty\n", pl.Name())
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tTITLE\tOBJECT ID\tADDED")
		for _, it := range items {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", it.Position+1, it.Title, it.ObjectID, it.AddedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var playlistAddCmd = &cobra.Command{
	Use:   "add <object-id>",
	Short: "Append an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, pl, err := openPlaylist()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := pl.Enqueue(args[0], playlistTitle); err != nil {
			return err
		}
		fmt.Printf("Added %s to %s\n", args[0], pl.Name())
		return nil
	},
}

var playlistRmCmd = &cobra.Command{
	Use:   "rm <position>",
	Short: "Remove an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		a, pl, err := openPlaylist()
		if err != nil {
			return err
		}
		defer a.Close()
		return pl.Remove(pos)
	},
}

var playlistMvCmd = &cobra.Command{
	Use:   "mv <from> <to>",
	Short: "Move an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		to, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		a, pl, err := openPlaylist()
		if err != nil {
			return err
		}
		defer a.Close()
		return pl.Move(from, to)
	},
}

var playlistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every item",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, pl, err := openPlaylist()
		if err != nil {
			return err
		}
		defer a.Close()

		if !playlistYes {
			ok, err := confirm(fmt.Sprintf("Clear playlist %s?", pl.Name()))
			if err != nil || !ok {
				return err
			}
		}
		return pl.Clear()
	},
}

func init() {
	playlistCmd.PersistentFlags().StringVar(&playlistName, "name", "", "playlist name (default from config)")
	playlistAddCmd.Flags().StringVar(&playlistTitle, "title", "", "title to show (default: the object id)")
	playlistClearCmd.Flags().BoolVarP(&playlistYes, "yes", "y", false, "do not ask for confirmation")
	playlistDeleteCmd.Flags().BoolVarP(&playlistYes, "yes", "y", false, "do not ask for confirmation")

	playlistCmd.AddCommand(playlistLsCmd, playlistShowCmd, playlistAddCmd, playlistRmCmd, playlistMvCmd, playlistClearCmd,
		playlistNewCmd, playlistDeleteCmd, playlistRenameCmd, playlistShuffleCmd, playlistRepeatCmd)
	rootCmd.AddCommand(playlistCmd)
}
