package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/catalog"
	"github.com/tormodhaugland/mtg/internal/config"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/store"
)

var (
	catalogName   string
	catalogUUID   string
	catalogHidden bool
	catalogQuiet  bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage imported catalogs",
	Long: `A catalog is a snapshot of a directory tree stored in the database.
Imported catalogs show up as sources and browse without touching the disk.`,
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := store.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := catalog.Options{Name: catalogName, UUID: catalogUUID, ShowHidden: catalogHidden}
		if !catalogQuiet && !jsonOut {
			opts.Progress = func(n int) { fmt.Fprintf(os.Stderr, "\rimported %d objects", n) }
		}
		res, err := catalog.Import(ctx, db, args[0], opts)
		if opts.Progress != nil {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		if jsonOut {
			return outputJSON(res)
		}
		fmt.Printf("Imported %d objects from %s as %s (%s) in %v\n",
			res.Objects, res.Source.Root, res.Source.Name, objectid.Root(res.Source.UUID), res.Duration.Round(1e6))
		return nil
	},
}

var catalogLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List imported catalogs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := store.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		catalogs, err := db.CatalogSources()
		if err != nil {
			return err
		}
		if jsonOut {
			return outputJSON(catalogs)
		}
		if len(catalogs) == 0 {
			fmt.Println("No catalogs imported")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tUUID\tROOT")
		for _, c := range catalogs {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.UUID, c.Root)
		}
		return w.Flush()
	},
}

func init() {
	catalogImportCmd.Flags().StringVar(&catalogName, "name", "", "source name (default: directory name)")
	catalogImportCmd.Flags().StringVar(&catalogUUID, "uuid", "", "source uuid (default: derived from the path)")
	catalogImportCmd.Flags().BoolVar(&catalogHidden, "hidden", false, "include dotfiles")
	catalogImportCmd.Flags().BoolVarP(&catalogQuiet, "quiet", "q", false, "no progress output")

	catalogCmd.AddCommand(catalogImportCmd, catalogLsCmd)
	rootCmd.AddCommand(catalogCmd)
}
