package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/store"
)

// CatalogSource serves a tree previously imported into the sqlite catalog.
type CatalogSource struct {
	info    store.CatalogSource
	db      *store.DB
	browses browseTable
}

func NewCatalogSource(db *store.DB, info store.CatalogSource) *CatalogSource {
	return &CatalogSource{info: info, db: db}
}

func (s *CatalogSource) UUID() string { return s.info.UUID }
func (s *CatalogSource) Name() string { return s.info.Name }
func (s *CatalogSource) Root() string { return s.info.Root }

func (s *CatalogSource) resolve(id string) (string, error) {
	srcUUID, p, err := objectid.Split(id)
	if err != nil {
		return "", err
	}
	if srcUUID != s.info.UUID {
		return "", fmt.Errorf("%w: %s", ErrWrongSource, id)
	}
	return strings.Trim(path.Clean("/"+p), "/"), nil
}

func (s *CatalogSource) metadataFor(o store.Object) Metadata {
	md := Metadata{KeyTitle: o.Title, KeyMIME: o.MIME}
	if o.URI != "" {
		md[KeyURI] = o.URI
	}
	return md
}

// Browse lists a catalog container. The root container always exists.
func (s *CatalogSource) Browse(req BrowseRequest, cb BrowseFunc) (BrowseID, error) {
	parent, err := s.resolve(req.ObjectID)
	if err != nil {
		return InvalidBrowseID, err
	}
	if parent != "" {
		obj, err := s.db.Object(s.info.UUID, parent)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return InvalidBrowseID, fmt.Errorf("%w: %s", ErrNoSuchObject, req.ObjectID)
			}
			return InvalidBrowseID, err
		}
		if obj.MIME != MIMEContainer {
			return InvalidBrowseID, fmt.Errorf("%w: %s", ErrNotContainer, req.ObjectID)
		}
	}

	return s.browses.start(func(ctx context.Context, id BrowseID) {
		objs, err := s.db.Children(s.info.UUID, parent, req.Skip, req.Count)
		if err != nil {
			cb(BrowseResult{ID: id, Err: err})
			return
		}
		items := make([]item, len(objs))
		for i, o := range objs {
			items[i] = item{objectID: objectid.Join(s.info.UUID, o.Path), md: s.metadataFor(o)}
		}
		stream(ctx, id, items, req.Keys, cb)
	}), nil
}

func (s *CatalogSource) CancelBrowse(id BrowseID) error {
	return s.browses.cancel(id)
}

func (s *CatalogSource) Metadata(id string, keys []string, cb MetadataFunc) {
	go func() {
		p, err := s.resolve(id)
		if err != nil {
			cb(id, nil, err)
			return
		}
		if p == "" {
			cb(id, Metadata{KeyTitle: s.info.Name, KeyMIME: MIMEContainer}.Only(keys), nil)
			return
		}
		obj, err := s.db.Object(s.info.UUID, p)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ErrNoSuchObject, id)
			}
			cb(id, nil, err)
			return
		}
		cb(id, s.metadataFor(*obj).Only(keys), nil)
	}()
}
