// Package browser keeps a navigable path through the container hierarchy of
// media sources while browse results stream in asynchronously.
//
// A Controller must only be used from one goroutine. Sources call back on
// their own goroutines; those callbacks are turned into events and handed to
// the Post function, which must queue them for the controller's goroutine.
// Results are applied only when their session is still the live token of the
// container on top of the stack, so anything from a superseded or cancelled
// browse is dropped.
package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/source"
)

// DefaultBrowseTimeout bounds how long a browse may stay unfinished.
const DefaultBrowseTimeout = 30 * time.Second

// Enqueuer receives playable items activated by the user.
type Enqueuer interface {
	Enqueue(objectID, title string) error
}

// Options configure a Controller.
type Options struct {
	Mode      Mode
	BatchSize int
	// BrowseTimeout fails browses that have not finished in time. Zero
	// disables the check.
	BrowseTimeout time.Duration
	Keys          []string

	// Post queues an event for the controller's goroutine. It is called
	// from source goroutines.
	Post func(Event)
	// Notify shows a transient message to the user.
	Notify func(msg string)
	// Enqueue receives activated items; nil disables enqueueing.
	Enqueue Enqueuer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Controller owns the container stack, the display model and the live
// browse session.
type Controller struct {
	registry *source.Registry
	stack    Stack
	model    *Model
	opts     Options
	lastErr  error
}

func New(registry *source.Registry, opts Options) *Controller {
	if opts.Post == nil {
		panic("browser: Options.Post is required")
	}
	if opts.Notify == nil {
		opts.Notify = func(string) {}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Keys == nil {
		opts.Keys = source.DefaultKeys
	}
	return &Controller{
		registry: registry,
		model:    NewModel(opts.Mode, opts.BatchSize),
		opts:     opts,
	}
}

func (c *Controller) Model() *Model              { return c.model }
func (c *Controller) Stack() *Stack              { return &c.stack }
func (c *Controller) Registry() *source.Registry { return c.registry }

// LastError returns the most recently reported error.
func (c *Controller) LastError() error { return c.lastErr }

// Current returns the live session of the current container, if any.
func (c *Controller) Current() *Session {
	tok, _ := c.stack.PeekToken()
	return tok
}

// Busy reports whether a browse is outstanding.
func (c *Controller) Busy() bool {
	s := c.Current()
	return s != nil && s.Live()
}

// AtTop reports whether the sources list is shown.
func (c *Controller) AtTop() bool {
	return c.stack.Len() == 0
}

// SetMode switches the display model mode.
func (c *Controller) SetMode(mode Mode) {
	c.model.SetMode(mode)
}

func (c *Controller) report(err error) {
	c.lastErr = err
	debug.Log("browser: %v", err)
	c.opts.Notify(err.Error())
}

// Dispatch handles one event.
func (c *Controller) Dispatch(ev Event) error {
	switch ev := ev.(type) {
	case NavigateEvent:
		switch ev.Action {
		case NavActivate:
			return c.Activate(ev.Row)
		case NavDescend:
			return c.Descend(ev.ObjectID)
		case NavAscend:
			return c.Ascend()
		case NavHome:
			c.ShowSources()
			return nil
		case NavRefresh:
			return c.Refresh()
		}
		return fmt.Errorf("unknown navigation action %d", ev.Action)
	case ResultEvent:
		return c.handleResult(ev.Session, ev.Result)
	case MetadataEvent:
		return c.handleMetadata(ev)
	case SourceEvent:
		if ev.Added {
			c.sourceAdded(ev.Source)
		} else {
			c.sourceRemoved(ev.Source)
		}
		return nil
	case ChangeEvent:
		return c.handleChange(ev.Change)
	case TickEvent:
		return c.checkTimeout(ev.Now)
	}
	return fmt.Errorf("unhandled event %T", ev)
}

// ShowSources empties the stack, cancelling outstanding browses, and lists
// the registered sources.
func (c *Controller) ShowSources() {
	for {
		_, tok, ok := c.stack.Pop()
		if !ok {
			break
		}
		c.cancel(tok)
	}

	c.model.Clear()
	sources := c.registry.Sources()
	if len(sources) == 0 {
		c.opts.Notify("No sources available")
		return
	}
	for _, s := range sources {
		c.model.Append(sourceRow(s))
	}
}

// Activate enters a container row or enqueues an item row.
func (c *Controller) Activate(row Row) error {
	if row.IsContainer() {
		return c.Descend(row.ObjectID)
	}
	if c.opts.Enqueue == nil {
		return nil
	}
	if err := c.opts.Enqueue.Enqueue(row.ObjectID, row.Title); err != nil {
		err = fmt.Errorf("adding %s to playlist: %w", row.Title, err)
		c.report(err)
		return err
	}
	c.opts.Notify(fmt.Sprintf("Added %s to playlist", row.Title))
	return nil
}

func (c *Controller) resolve(id string) (source.Source, error) {
	uuid, err := objectid.UUID(id)
	if err != nil {
		return nil, err
	}
	src, ok := c.registry.Get(uuid)
	if !ok {
		return nil, &BrowseError{Kind: ErrSourceUnavailable, ObjectID: id, Err: fmt.Errorf("no source for uuid %s", uuid)}
	}
	return src, nil
}

// Descend enters containerID and starts browsing it.
func (c *Controller) Descend(containerID string) error {
	src, err := c.resolve(containerID)
	if err != nil {
		c.report(err)
		return err
	}

	// The parent's rows stay valid unless its browse is cut short here.
	parentInterrupted := false
	if tok, _ := c.stack.PeekToken(); tok != nil && tok.Live() {
		c.cancel(tok)
		c.stack.SetToken(nil)
		parentInterrupted = true
	}

	c.stack.Push(containerID)
	if err := c.browse(src, containerID); err != nil {
		c.stack.Pop()
		if parentInterrupted {
			c.showTop()
		}
		return err
	}
	return nil
}

// Ascend leaves the current container. At the top level it re-lists the
// sources.
func (c *Controller) Ascend() error {
	_, tok, ok := c.stack.Pop()
	if !ok {
		c.ShowSources()
		return nil
	}
	c.cancel(tok)
	return c.showTop()
}

// Refresh re-browses the current container in place.
func (c *Controller) Refresh() error {
	if c.stack.Len() == 0 {
		c.ShowSources()
		return nil
	}
	return c.showTop()
}

// showTop browses the container on top of the stack, or lists the sources
// if the stack is empty. A container that cannot be browsed is popped.
func (c *Controller) showTop() error {
	for {
		id, ok := c.stack.PeekID()
		if !ok {
			c.ShowSources()
			return nil
		}
		src, err := c.resolve(id)
		if err != nil {
			c.report(err)
			c.ShowSources()
			return err
		}
		if err := c.browse(src, id); err != nil {
			_, tok, _ := c.stack.Pop()
			c.cancel(tok)
			continue
		}
		return nil
	}
}

// browse starts a new session for the container on top of the stack,
// cancelling the one it replaces.
func (c *Controller) browse(src source.Source, containerID string) error {
	if tok, _ := c.stack.PeekToken(); tok != nil {
		c.cancel(tok)
		c.stack.SetToken(nil)
	}

	sess := newSession(src, containerID, c.opts.Now(), c.opts.BrowseTimeout)
	c.model.BeginSession()

	post := c.opts.Post
	id, err := src.Browse(source.BrowseRequest{
		ObjectID: containerID,
		Keys:     c.opts.Keys,
	}, func(r source.BrowseResult) {
		post(ResultEvent{Session: sess, Result: r})
	})
	if err != nil {
		sess.rejected(err)
		c.model.EndSession()
		berr := &BrowseError{Kind: ErrBrowseRejected, ObjectID: containerID, Err: err}
		c.report(berr)
		return berr
	}

	sess.requested(id)
	c.model.Clear()
	c.stack.SetToken(sess)
	debug.Log("browse %d started for %s", id, containerID)
	return nil
}

// cancel stops a live session at its source.
func (c *Controller) cancel(sess *Session) {
	if sess == nil || !sess.finish(StateCancelled, nil, c.opts.Now()) {
		return
	}
	c.model.AbortSession()
	if sess.browseID == source.InvalidBrowseID {
		return
	}
	if err := sess.source.CancelBrowse(sess.browseID); err != nil && !errors.Is(err, source.ErrUnknownBrowse) {
		c.report(fmt.Errorf("cancelling browse of %s: %w", sess.containerID, err))
	}
}

func (c *Controller) stale(sess *Session) bool {
	tok, ok := c.stack.PeekToken()
	return !ok || tok == nil || tok != sess || !sess.Live()
}

func (c *Controller) handleResult(sess *Session, r source.BrowseResult) error {
	if c.stale(sess) {
		debug.Log("dropping stale result for browse %d (%s)", r.ID, r.ObjectID)
		return nil
	}

	if r.Err != nil {
		return c.fail(sess, &BrowseError{Kind: ErrBrowseFailed, ObjectID: sess.containerID, Err: r.Err})
	}

	appended := r.ObjectID != ""
	if appended {
		c.model.Append(RowFromMetadata(r.ObjectID, r.Metadata))
	}
	sess.received(appended)

	if r.Remaining == 0 {
		now := c.opts.Now()
		sess.finish(StateCompleted, nil, now)
		c.model.EndSession()
		c.stack.SetToken(nil)
		debug.Log("browsed %d items in %v", sess.events, sess.Elapsed(now))
	}
	return nil
}

// fail ends the live session with err. A browse that failed before
// producing any row gives up on its container.
func (c *Controller) fail(sess *Session, err error) error {
	sess.finish(StateFailed, err, c.opts.Now())
	c.model.EndSession()
	c.stack.SetToken(nil)
	c.report(err)

	if sess.rows == 0 {
		c.stack.Pop()
		c.showTop()
	}
	return err
}

func (c *Controller) checkTimeout(now time.Time) error {
	sess := c.Current()
	if sess == nil || !sess.expired(now) {
		return nil
	}
	if err := sess.source.CancelBrowse(sess.browseID); err != nil && !errors.Is(err, source.ErrUnknownBrowse) {
		debug.Log("cancelling timed out browse %d: %v", sess.browseID, err)
	}
	return c.fail(sess, &BrowseError{Kind: ErrBrowseFailed, ObjectID: sess.containerID, Err: ErrBrowseTimeout})
}

func (c *Controller) sourceAdded(s source.Source) {
	if c.stack.Len() > 0 || c.registry.Hidden(s.UUID()) {
		return
	}
	c.model.Append(sourceRow(s))
}

func (c *Controller) sourceRemoved(s source.Source) {
	id, ok := c.stack.PeekID()
	if !ok {
		c.model.Remove(objectid.Root(s.UUID()))
		return
	}
	if uuid, err := objectid.UUID(id); err == nil && uuid == s.UUID() {
		c.opts.Notify(fmt.Sprintf("Source %s went away", s.Name()))
		c.ShowSources()
	}
}

func (c *Controller) handleChange(ch source.Change) error {
	switch ch.Kind {
	case source.ContainerChanged:
		if id, ok := c.stack.PeekID(); ok && id == ch.ObjectID {
			return c.showTop()
		}
	case source.MetadataChanged:
		if _, ok := c.model.Find(ch.ObjectID); !ok {
			return nil
		}
		src, ok := c.registry.Get(ch.Source)
		if !ok {
			return nil
		}
		post := c.opts.Post
		src.Metadata(ch.ObjectID, c.opts.Keys, func(id string, md source.Metadata, err error) {
			post(MetadataEvent{ObjectID: id, Metadata: md, Err: err})
		})
	}
	return nil
}

func (c *Controller) handleMetadata(ev MetadataEvent) error {
	if ev.Err != nil {
		c.report(ev.Err)
		return ev.Err
	}
	// The row may have scrolled out of the model while the lookup ran.
	c.model.Update(ev.ObjectID, RowFromMetadata(ev.ObjectID, ev.Metadata))
	return nil
}

// SelectedIsContainer reports whether the selected row can be entered.
func SelectedIsContainer(selected *Row) bool {
	return selected != nil && selected.IsContainer()
}

// SourceFor returns the source of the current container, or of the
// selected row at the top level.
func (c *Controller) SourceFor(selected *Row) (source.Source, error) {
	id, ok := c.stack.PeekID()
	if !ok {
		if selected == nil {
			return nil, fmt.Errorf("%w: nothing selected", ErrSourceUnavailable)
		}
		id = selected.ObjectID
	}
	return c.resolve(id)
}
