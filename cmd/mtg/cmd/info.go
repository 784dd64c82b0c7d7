package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/source"
)

var infoKeys []string

var infoCmd = &cobra.Command{
	Use:   "info <object-id|source>",
	Short: "Show the metadata of an object",
	Long: `Asks the object's source for its metadata and prints every key it
reports, title first.

Examples:
  mtg info 'music::albums/1999/track.mp3'
  mtg info Music --key title --key mime-type --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		target, err := resolveTarget(a.registry, args[0])
		if err != nil {
			return err
		}
		md, err := lookupMetadata(context.Background(), a.registry, target, infoKeys, a.cfg.BrowseTimeout.Duration)
		if err != nil {
			return err
		}
		if jsonOut {
			return outputJSON(md)
		}
		return writeMetadata(os.Stdout, md)
	},
}

// lookupMetadata fetches metadata for objectID from its source. A zero
// timeout waits for as long as the source takes.
func lookupMetadata(ctx context.Context, reg *source.Registry, objectID string, keys []string, timeout time.Duration) (source.Metadata, error) {
	uuid, _, err := objectid.Split(objectID)
	if err != nil {
		return nil, err
	}
	src, ok := reg.Get(uuid)
	if !ok {
		return nil, fmt.Errorf("source %s is not available", uuid)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return source.FetchMetadata(ctx, src, objectID, keys)
}

func writeMetadata(out io.Writer, md source.Metadata) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE")
	for _, k := range md.Keys() {
		fmt.Fprintf(w, "%s\t%s\n", k, md[k])
	}
	return w.Flush()
}

func init() {
	infoCmd.Flags().StringSliceVar(&infoKeys, "key", nil, "only ask for these keys (repeatable)")
	rootCmd.AddCommand(infoCmd)
}
