// Package catalog imports directory trees into the sqlite catalog so they
// can be browsed without touching the filesystem again.
package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/source"
	"github.com/tormodhaugland/mtg/internal/store"
)

// DefaultBatchSize is the number of objects written per transaction.
const DefaultBatchSize = 500

// Options control an import.
type Options struct {
	// Name of the catalog source. Defaults to the directory's base name.
	Name string
	// UUID of the catalog source. Defaults to one derived from the root.
	UUID       string
	BatchSize  int
	ShowHidden bool
	// Progress is called after every written batch with the running total.
	Progress func(written int)
}

// Result describes a finished import.
type Result struct {
	Source   store.CatalogSource `json:"source"`
	Objects  int                 `json:"objects"`
	Duration time.Duration       `json:"duration_ns"`
}

// SourceUUID returns the uuid a catalog of root gets by default. It never
// collides with the uuid of a directory source over the same root.
func SourceUUID(root string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("catalog://"+filepath.ToSlash(root))).String()
}

// Import walks dir and replaces the catalog of the matching source with
// its contents. A walker goroutine feeds a writer that commits in batches;
// the new rows replace the old ones only once every batch is written.
func Import(ctx context.Context, db *store.DB, dir string, opts Options) (*Result, error) {
	start := time.Now()
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, source.ErrNotContainer)
	}

	src := store.CatalogSource{UUID: opts.UUID, Name: opts.Name, Root: root}
	if src.UUID == "" {
		src.UUID = SourceUUID(root)
	}
	if src.Name == "" {
		src.Name = filepath.Base(root)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// Objects land under a staging source until the whole tree is written,
	// so a failed or cancelled import leaves the previous catalog intact.
	staging := "staging-" + uuid.NewString()
	if err := db.BeginStaging(staging, root); err != nil {
		return nil, err
	}
	promoted := false
	defer func() {
		if promoted {
			return
		}
		if err := db.DeleteSource(staging); err != nil {
			debug.Log("catalog import: dropping %s: %v", staging, err)
		}
	}()

	objs := make(chan store.Object, batchSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(objs)
		return walk(ctx, root, opts.ShowHidden, objs)
	})

	written := 0
	g.Go(func() error {
		batch := make([]store.Object, 0, batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := db.InsertObjects(staging, batch); err != nil {
				return err
			}
			written += len(batch)
			batch = batch[:0]
			if opts.Progress != nil {
				opts.Progress(written)
			}
			return nil
		}
		for o := range objs {
			batch = append(batch, o)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("importing %s: %w", root, err)
	}
	if err := db.PromoteStaging(staging, src); err != nil {
		return nil, fmt.Errorf("importing %s: %w", root, err)
	}
	promoted = true

	res := &Result{Source: src, Objects: written, Duration: time.Since(start)}
	debug.LogTiming("catalog import of "+root, res.Duration)
	return res, nil
}

func walk(ctx context.Context, root string, showHidden bool, out chan<- store.Object) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}
		if rel != "" && !showHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		o := store.Object{
			Path:  rel,
			Title: d.Name(),
			URI:   "file://" + filepath.ToSlash(p),
		}
		if rel != "" {
			o.Parent = path.Dir(rel)
			if o.Parent == "." {
				o.Parent = ""
			}
		}
		if d.IsDir() {
			o.MIME = source.MIMEContainer
		} else {
			o.MIME = source.MIMEForFile(d.Name())
		}

		select {
		case out <- o:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
