package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/browser"
	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/tui"
)

var (
	browseMode    string
	browseTimeout time.Duration
	browseFind    string
)

type rowRecord struct {
	Title     string `json:"title"`
	ObjectID  string `json:"object_id"`
	MIME      string `json:"mime_type"`
	Container bool   `json:"container"`
}

type browseRecord struct {
	Container string        `json:"container"`
	State     string        `json:"state"`
	Items     int           `json:"items"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	Rows      []rowRecord   `json:"rows"`
}

var browseCmd = &cobra.Command{
	Use:   "browse [object-id|source]",
	Short: "List the contents of a container",
	Long: `Browses one container and prints its rows once the listing completes.

The argument is an object id (<source-uuid>::<path>) or a source name;
source names are matched fuzzily. Without an argument an interactive
source picker is shown.

Examples:
  mtg browse Music
  mtg browse 'music::albums/1999'
  mtg browse Music --find beatles --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func runBrowse(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var target string
	if len(args) == 1 {
		target, err = resolveTarget(a.registry, args[0])
		if err != nil {
			return err
		}
	} else {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("browse needs an object id or source name")
		}
		res, err := tui.RunSourceSelect(a.registry)
		if err != nil {
			return err
		}
		if res.Abort {
			return nil
		}
		target = res.ObjectID
	}

	modeName := a.cfg.ModelMode
	if browseMode != "" {
		modeName = browseMode
	}
	mode, err := browser.ParseMode(modeName)
	if err != nil {
		return err
	}
	timeout := a.cfg.BrowseTimeout.Duration
	if cmd.Flags().Changed("timeout") {
		timeout = browseTimeout
	}

	loop := browser.NewLoop(64, 250*time.Millisecond)
	ctrl := browser.New(a.registry, browser.Options{
		Mode:          mode,
		BatchSize:     a.cfg.BatchSize,
		BrowseTimeout: timeout,
		Post:          loop.Post,
		Notify:        func(msg string) { warnf("%s", msg) },
	})

	if err := ctrl.Descend(target); err != nil {
		return err
	}
	sess := ctrl.Current()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := driveBrowse(ctx, loop, ctrl); err != nil {
		return fmt.Errorf("browse of %s interrupted: %w", target, err)
	}
	if sess.State() == browser.StateFailed {
		return sess.Err()
	}

	rows := ctrl.Model().Rows()
	if browseFind != "" {
		rows = findRows(rows, browseFind)
	}

	if jsonOut {
		rec := browseRecord{
			Container: target,
			State:     sess.State().String(),
			Items:     sess.Rows(),
			Elapsed:   sess.Elapsed(time.Now()),
			Rows:      make([]rowRecord, len(rows)),
		}
		for i, r := range rows {
			rec.Rows[i] = rowRecord{Title: r.Title, ObjectID: r.ObjectID, MIME: r.MIME, Container: r.IsContainer()}
		}
		return outputJSON(rec)
	}

	if len(rows) == 0 {
		fmt.Println("Empty container")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tTYPE\tOBJECT ID")
	for _, r := range rows {
		kind := r.MIME
		if r.IsContainer() {
			kind = "container"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Title, kind, r.ObjectID)
	}
	return w.Flush()
}

// findRows keeps the rows whose titles fuzzily match query, best first.
func findRows(rows []browser.Row, query string) []browser.Row {
	titles := make([]string, len(rows))
	for i, r := range rows {
		titles[i] = r.Title
	}
	matches := fuzzy.Find(query, titles)
	out := make([]browser.Row, len(matches))
	for i, m := range matches {
		out[i] = rows[m.Index]
	}
	return out
}

func init() {
	browseCmd.Flags().StringVar(&browseMode, "mode", "", "display model mode (direct, batched, detached)")
	browseCmd.Flags().DurationVar(&browseTimeout, "timeout", browser.DefaultBrowseTimeout, "fail browses that take longer (0 disables)")
	browseCmd.Flags().StringVar(&browseFind, "find", "", "only print rows fuzzily matching this text")
	rootCmd.AddCommand(browseCmd)
}

// driveBrowse feeds loop events to ctrl until no browse is outstanding.
// Dispatch errors were already shown through Notify and are only logged.
func driveBrowse(ctx context.Context, loop *browser.Loop, ctrl *browser.Controller) error {
	return loop.Run(ctx, func(ev browser.Event) bool {
		if err := ctrl.Dispatch(ev); err != nil {
			debug.Log("browse: %T: %v", ev, err)
		}
		return !ctrl.Busy()
	})
}
