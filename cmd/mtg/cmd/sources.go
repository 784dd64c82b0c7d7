package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/source"
)

type sourceRecord struct {
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Root     string `json:"root,omitempty"`
	ObjectID string `json:"object_id"`
}

func sourceRecords(reg *source.Registry) []sourceRecord {
	var out []sourceRecord
	for _, s := range reg.Sources() {
		r := sourceRecord{UUID: s.UUID(), Name: s.Name(), ObjectID: objectid.Root(s.UUID())}
		switch s := s.(type) {
		case *source.FSSource:
			r.Type, r.Root = "fs", s.Root()
		case *source.CatalogSource:
			r.Type, r.Root = "catalog", s.Root()
		}
		out = append(out, r)
	}
	return out
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List browsable sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		records := sourceRecords(a.registry)
		if jsonOut {
			return outputJSON(records)
		}

		if len(records) == 0 {
			fmt.Println("No sources available")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tOBJECT ID\tROOT")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Type, r.ObjectID, r.Root)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
