package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/tormodhaugland/mtg/internal/browser"
	"github.com/tormodhaugland/mtg/internal/config"
	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/playlist"
	"github.com/tormodhaugland/mtg/internal/source"
	"github.com/tormodhaugland/mtg/internal/store"
)

// app bundles what every command needs once the config is loaded.
type app struct {
	cfg      *config.Config
	db       *store.DB
	registry *source.Registry
	playlist *playlist.Playlist
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return openApp(cfg)
}

func openApp(cfg *config.Config) (*app, error) {
	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	reg, err := buildRegistry(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &app{
		cfg:      cfg,
		db:       db,
		registry: reg,
		playlist: playlist.New(db, cfg.Playlist),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.registry.Close(), a.db.Close())
}

func (a *app) mode() (browser.Mode, error) {
	return browser.ParseMode(a.cfg.ModelMode)
}

// buildRegistry registers the configured sources and every imported
// catalog. A configured source that cannot be opened is skipped with a
// warning so one missing disk does not hide the others.
func buildRegistry(cfg *config.Config, db *store.DB) (*source.Registry, error) {
	reg := source.NewRegistry(cfg.HiddenSources...)

	catalogs, err := db.CatalogSources()
	if err != nil {
		return nil, err
	}
	byUUID := make(map[string]store.CatalogSource, len(catalogs))
	for _, c := range catalogs {
		byUUID[c.UUID] = c
	}

	for _, sc := range cfg.Sources {
		switch sc.Type {
		case config.SourceFS:
			fs, err := source.NewFSSource(sc.Name, sc.Path, sc.UUID)
			if err != nil {
				warnf("skipping source %s: %v", sc.Name, err)
				continue
			}
			fs.SetShowHidden(sc.ShowHidden)
			if err := reg.Add(fs); err != nil {
				warnf("skipping source %s: %v", sc.Name, err)
			}
		case config.SourceCatalog:
			info, ok := findCatalog(catalogs, sc)
			if !ok {
				warnf("skipping catalog %s: not imported", sc.Name)
				continue
			}
			if sc.Name != "" {
				info.Name = sc.Name
			}
			delete(byUUID, info.UUID)
			if err := reg.Add(source.NewCatalogSource(db, info)); err != nil {
				warnf("skipping catalog %s: %v", info.Name, err)
			}
		}
	}

	// Imported catalogs not named in the config are still browsable.
	for _, c := range catalogs {
		if _, ok := byUUID[c.UUID]; !ok {
			continue
		}
		if err := reg.Add(source.NewCatalogSource(db, c)); err != nil {
			debug.Log("catalog %s: %v", c.Name, err)
		}
	}
	return reg, nil
}

func findCatalog(catalogs []store.CatalogSource, sc config.SourceConfig) (store.CatalogSource, bool) {
	for _, c := range catalogs {
		if sc.UUID != "" && c.UUID == sc.UUID {
			return c, true
		}
		if sc.UUID == "" && sc.Path != "" && c.Root == sc.Path {
			return c, true
		}
	}
	return store.CatalogSource{}, false
}

// resolveTarget turns a command line argument into an object id. Object ids
// pass through; anything else is matched against source uuids and names,
// falling back to fuzzy matching on names.
func resolveTarget(reg *source.Registry, query string) (string, error) {
	if _, _, err := objectid.Split(query); err == nil {
		return query, nil
	}
	if s, ok := reg.Get(query); ok {
		return objectid.Root(s.UUID()), nil
	}

	sources := reg.Sources()
	names := make([]string, len(sources))
	for i, s := range sources {
		if strings.EqualFold(s.Name(), query) {
			return objectid.Root(s.UUID()), nil
		}
		names[i] = s.Name()
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 || matches[0].Score < -10 {
		return "", fmt.Errorf("no source found matching: %s", query)
	}
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		warnf("Ambiguous match, using: %s", matches[0].Str)
	}
	return objectid.Root(sources[matches[0].Index].UUID()), nil
}
