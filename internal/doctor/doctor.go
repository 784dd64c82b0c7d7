package doctor

import (
	"fmt"
	"os"
	"sort"

	"github.com/tormodhaugland/mtg/internal/config"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/source"
	"github.com/tormodhaugland/mtg/internal/store"
)

type Kind string

const (
	// SourcePathMissing: a configured fs source points at no directory.
	SourcePathMissing Kind = "source-path-missing"
	// CatalogRootMissing: an imported catalog's directory is gone. The
	// catalog still browses but its uris are dead.
	CatalogRootMissing Kind = "catalog-root-missing"
	// DanglingItem: a playlist entry whose source is not registered.
	DanglingItem Kind = "dangling-playlist-item"
	// StaleStaging: rows of an import that never finished.
	StaleStaging Kind = "stale-import-staging"
)

type Problem struct {
	Kind     Kind   `json:"kind"`
	Subject  string `json:"subject"`
	Detail   string `json:"detail"`
	Playlist string `json:"playlist,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Fixable reports whether Fix can repair p.
func (p Problem) Fixable() bool {
	return p.Kind == DanglingItem || p.Kind == StaleStaging
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Check looks for configured sources that cannot be opened, catalogs whose
// root vanished and playlist entries no source can resolve.
func Check(cfg *config.Config, db *store.DB, reg *source.Registry) ([]Problem, error) {
	problems := make([]Problem, 0)

	for _, sc := range cfg.Sources {
		if sc.Type == config.SourceFS && !isDir(sc.Path) {
			problems = append(problems, Problem{
				Kind:    SourcePathMissing,
				Subject: sc.Name,
				Detail:  fmt.Sprintf("%s is not a directory", sc.Path),
			})
		}
	}

	catalogs, err := db.CatalogSources()
	if err != nil {
		return nil, err
	}
	for _, c := range catalogs {
		if !isDir(c.Root) {
			problems = append(problems, Problem{
				Kind:    CatalogRootMissing,
				Subject: c.Name,
				Detail:  fmt.Sprintf("%s no longer exists", c.Root),
			})
		}
	}

	staging, err := db.StagingSources()
	if err != nil {
		return nil, err
	}
	for _, id := range staging {
		problems = append(problems, Problem{
			Kind:    StaleStaging,
			Subject: id,
			Detail:  "left behind by an interrupted catalog import",
		})
	}

	playlists, err := db.Playlists()
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		name := pl.Name
		items, err := db.Items(name)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			uuid, err := objectid.UUID(it.ObjectID)
			detail := ""
			switch {
			case err != nil:
				detail = err.Error()
			default:
				if _, ok := reg.Get(uuid); !ok {
					detail = fmt.Sprintf("no source %s", uuid)
				}
			}
			if detail == "" {
				continue
			}
			problems = append(problems, Problem{
				Kind:     DanglingItem,
				Subject:  it.ObjectID,
				Detail:   detail,
				Playlist: name,
				Position: it.Position,
			})
		}
	}

	return problems, nil
}

// Fix removes the dangling playlist entries and stale import staging among
// problems and returns how many were removed.
func Fix(db *store.DB, problems []Problem) (int, error) {
	var fixable []Problem
	for _, p := range problems {
		if p.Fixable() {
			fixable = append(fixable, p)
		}
	}
	// Highest positions first so earlier removals do not shift later ones.
	sort.Slice(fixable, func(i, j int) bool {
		if fixable[i].Playlist != fixable[j].Playlist {
			return fixable[i].Playlist < fixable[j].Playlist
		}
		return fixable[i].Position > fixable[j].Position
	})

	fixed := 0
	for _, p := range fixable {
		if p.Kind == StaleStaging {
			if err := db.DeleteSource(p.Subject); err != nil {
				return fixed, fmt.Errorf("dropping %s: %w", p.Subject, err)
			}
			fixed++
			continue
		}
		if err := db.RemoveAt(p.Playlist, p.Position); err != nil {
			return fixed, fmt.Errorf("removing %s from %s: %w", p.Subject, p.Playlist, err)
		}
		fixed++
	}
	return fixed, nil
}
