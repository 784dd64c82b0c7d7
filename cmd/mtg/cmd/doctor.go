package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tormodhaugland/mtg/internal/doctor"
)

var doctorFix bool

type doctorResult struct {
	Config   string           `json:"config,omitempty"`
	Database string           `json:"database"`
	Problems []doctor.Problem `json:"problems"`
	Fixed    int              `json:"fixed,omitempty"`
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check sources, catalogs and playlists",
	Long: `Reports configured sources that cannot be opened, catalogs whose
directory disappeared, leftovers of interrupted catalog imports and
playlist entries that no source can resolve. With --fix the leftovers and
the unresolvable playlist entries are removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		problems, err := doctor.Check(a.cfg, a.db, a.registry)
		if err != nil {
			return fmt.Errorf("failed to check: %w", err)
		}
		result := doctorResult{Config: a.cfg.Path(), Database: a.db.Path(), Problems: problems}

		if doctorFix {
			result.Fixed, err = doctor.Fix(a.db, problems)
			if err != nil {
				return err
			}
		}

		if jsonOut {
			return outputJSON(result)
		}

		if len(problems) == 0 {
			fmt.Println("No problems found")
			return nil
		}
		for _, p := range problems {
			fmt.Printf("%-24s %s: %s\n", p.Kind, p.Subject, p.Detail)
		}
		if doctorFix {
			fmt.Printf("\nFixed %d problems\n", result.Fixed)
		} else {
			fmt.Println("\nRun 'mtg doctor --fix' to remove import leftovers and unresolvable playlist entries")
		}
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "remove import leftovers and unresolvable playlist entries")
	rootCmd.AddCommand(doctorCmd)
}
