package source

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/objectid"
)

// changeDebounce coalesces bursts of filesystem events for one object.
const changeDebounce = 200 * time.Millisecond

// FSSource serves a local directory tree. Object paths are slash-separated
// and relative to the root; directories are containers.
type FSSource struct {
	uuid       string
	name       string
	root       string
	showHidden bool

	browses browseTable

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watched  map[string]bool
	onChange func(Change)
	timers   map[Change]*time.Timer
	done     chan struct{}
}

// DeriveUUID returns a stable uuid for a directory root.
func DeriveUUID(root string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+root)).String()
}

// NewFSSource creates a source over root. An empty id derives a stable one
// from the absolute root path.
func NewFSSource(name, root, id string) (*FSSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s: %w", abs, ErrNotContainer)
	}
	if id == "" {
		id = DeriveUUID(abs)
	}
	if name == "" {
		name = filepath.Base(abs)
	}
	return &FSSource{uuid: id, name: name, root: abs}, nil
}

// SetShowHidden includes dotfiles in listings.
func (s *FSSource) SetShowHidden(show bool) { s.showHidden = show }

func (s *FSSource) UUID() string { return s.uuid }
func (s *FSSource) Name() string { return s.name }
func (s *FSSource) Root() string { return s.root }

// resolve maps an object id of this source onto the filesystem.
func (s *FSSource) resolve(id string) (string, string, error) {
	srcUUID, rel, err := objectid.Split(id)
	if err != nil {
		return "", "", err
	}
	if srcUUID != s.uuid {
		return "", "", fmt.Errorf("%w: %s", ErrWrongSource, id)
	}
	rel = strings.Trim(path.Clean("/"+rel), "/")
	return filepath.Join(s.root, filepath.FromSlash(rel)), rel, nil
}

func (s *FSSource) objectID(rel string) string {
	return objectid.Join(s.uuid, rel)
}

func (s *FSSource) metadataFor(abs, rel string, isDir bool) Metadata {
	title := path.Base(rel)
	if rel == "" {
		title = s.name
	}
	md := Metadata{
		KeyTitle: title,
		KeyURI:   "file://" + filepath.ToSlash(abs),
	}
	if isDir {
		md[KeyMIME] = MIMEContainer
	} else {
		md[KeyMIME] = MIMEForFile(abs)
	}
	return md
}

// mediaTypes covers the common media extensions that the system MIME
// tables often lack.
var mediaTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wma":  "audio/x-ms-wma",
	".m3u":  "audio/x-mpegurl",
	".pls":  "audio/x-scpls",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".ogv":  "video/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// MIMEForFile guesses a media type from a file name.
func MIMEForFile(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	t := mime.TypeByExtension(ext)
	if t == "" {
		return MIMEUnknown
	}
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return t
}

// Browse lists the children of a directory.
func (s *FSSource) Browse(req BrowseRequest, cb BrowseFunc) (BrowseID, error) {
	dir, rel, err := s.resolve(req.ObjectID)
	if err != nil {
		return InvalidBrowseID, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return InvalidBrowseID, fmt.Errorf("%w: %s", ErrNoSuchObject, req.ObjectID)
		}
		return InvalidBrowseID, err
	}
	if !info.IsDir() {
		return InvalidBrowseID, fmt.Errorf("%w: %s", ErrNotContainer, req.ObjectID)
	}

	s.addWatch(dir)

	return s.browses.start(func(ctx context.Context, id BrowseID) {
		start := time.Now()
		items, err := s.list(dir, rel)
		if err != nil {
			cb(BrowseResult{ID: id, Err: fmt.Errorf("listing %s: %w", req.ObjectID, err)})
			return
		}
		stream(ctx, id, window(items, req.Skip, req.Count), req.Keys, cb)
		debug.LogTiming("fs browse "+req.ObjectID, time.Since(start))
	}), nil
}

func (s *FSSource) list(dir, rel string) ([]item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	items := make([]item, 0, len(entries))
	for _, e := range entries {
		if !s.showHidden && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		childRel := path.Join(rel, e.Name())
		abs := filepath.Join(dir, e.Name())
		isDir := e.IsDir()
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(abs); err == nil {
				isDir = info.IsDir()
			}
		}
		items = append(items, item{
			objectID: s.objectID(childRel),
			md:       s.metadataFor(abs, childRel, isDir),
		})
	}
	sortContainersFirst(items)
	return items, nil
}

func (s *FSSource) CancelBrowse(id BrowseID) error {
	return s.browses.cancel(id)
}

// Metadata stats one object asynchronously. Besides the listing keys it
// reports size, modification time and, for mp3 and wav, duration.
func (s *FSSource) Metadata(id string, keys []string, cb MetadataFunc) {
	go func() {
		abs, rel, err := s.resolve(id)
		if err != nil {
			cb(id, nil, err)
			return
		}
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				err = fmt.Errorf("%w: %s", ErrNoSuchObject, id)
			}
			cb(id, nil, err)
			return
		}
		md := s.metadataFor(abs, rel, info.IsDir())
		md[KeyModified] = info.ModTime().UTC().Format(time.RFC3339)
		if !info.IsDir() {
			md[KeySize] = strconv.FormatInt(info.Size(), 10)
			if d, ok := audioDuration(abs, md[KeyMIME]); ok {
				md[KeyDuration] = strconv.Itoa(int(d.Round(time.Second) / time.Second))
			}
		}
		cb(id, md.Only(keys), nil)
	}()
}

// Watch reports changes in every directory browsed from now on.
func (s *FSSource) Watch(fn func(Change)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		s.onChange = fn
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(s.root); err != nil {
		w.Close()
		return err
	}
	s.watcher = w
	s.watched = map[string]bool{s.root: true}
	s.timers = make(map[Change]*time.Timer)
	s.onChange = fn
	s.done = make(chan struct{})
	go s.watchLoop(w.Events, w.Errors, s.done)
	return nil
}

func (s *FSSource) addWatch(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil || s.watched[dir] {
		return
	}
	if err := s.watcher.Add(dir); err != nil {
		debug.Log("fs source %s: watching %s: %v", s.name, dir, err)
		return
	}
	s.watched[dir] = true
}

func (s *FSSource) watchLoop(events <-chan fsnotify.Event, errs <-chan error, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			debug.Log("fs source %s: watcher error: %v", s.name, err)
		}
	}
}

func (s *FSSource) handleEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)
	parent := path.Dir(rel)
	if parent == "." {
		parent = ""
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0:
		s.notify(Change{Kind: ContainerChanged, Source: s.uuid, ObjectID: s.objectID(parent)})
	case ev.Op&(fsnotify.Write|fsnotify.Chmod) != 0:
		s.notify(Change{Kind: MetadataChanged, Source: s.uuid, ObjectID: s.objectID(rel)})
	}
}

// notify fires the change callback once per debounce window.
func (s *FSSource) notify(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onChange == nil {
		return
	}
	if t, ok := s.timers[c]; ok {
		t.Reset(changeDebounce)
		return
	}
	fn := s.onChange
	s.timers[c] = time.AfterFunc(changeDebounce, func() {
		s.mu.Lock()
		delete(s.timers, c)
		s.mu.Unlock()
		fn(c)
	})
}

// Close stops watching and cancels outstanding browses.
func (s *FSSource) Close() error {
	s.browses.cancelAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	for c, t := range s.timers {
		t.Stop()
		delete(s.timers, c)
	}
	err := s.watcher.Close()
	s.watcher = nil
	s.watched = nil
	return err
}
