package controller

import (
	"context"
	"regexp"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

// EditState is where an inline edit session stands.
type EditState int

const (
	Viewing EditState = iota
	Editing
	Committing
	Deleted
)

func (s EditState) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	case Deleted:
		return "deleted"
	}
	return "unknown"
}

// EditSession is one inline edit of a row's title. While it is active the
// controller routes keys to it; committing removes it.
type EditSession struct {
	c     *Controller
	id    string
	state EditState
}

func (s *EditSession) ID() string { return s.id }

func (s *EditSession) State() EditState {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	return s.state
}

// BeginEdit puts the row for id in edit mode. It is reached both by focusing
// the title and through the row's edit control. Starting a new session
// replaces any active one; the UI only ever focuses one row.
func (c *Controller) BeginEdit(id string) *EditSession {
	c.mustTask(id)

	s := &EditSession{c: c, id: id, state: Editing}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.view.SetEditable(id, true)
	return s
}

// ActiveEdit returns the session currently receiving keys, or nil.
func (c *Controller) ActiveEdit() *EditSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// HandleKey feeds a key to the active edit session. It reports true when the
// key ends editing (enter or escape); the view should then blur the field,
// which leads to CommitEdit.
func (c *Controller) HandleKey(key string) bool {
	c.mu.Lock()
	active := c.session != nil
	c.mu.Unlock()
	if !active {
		return false
	}
	switch key {
	case "enter", "esc":
		return true
	}
	return false
}

// CommitEdit finalizes the edit of id with the text the field holds when it
// loses focus. Empty text deletes the task, unchanged text is a no-op and
// anything else is sent as a title patch followed by a refresh. On a failed
// patch the view keeps the edited text and the alert shows the error.
func (c *Controller) CommitEdit(ctx context.Context, id, text string) error {
	c.mu.Lock()
	s := c.session
	if s != nil && s.id == id {
		c.session = nil
		s.state = Committing
	} else {
		s = nil
	}
	c.mu.Unlock()

	c.view.SetEditable(id, false)

	title := NormalizeTitle(text)
	if title == "" {
		c.setState(s, Deleted)
		return c.RemoveRow(ctx, id)
	}

	original := c.mustTask(id)
	if title == original.Title {
		c.setState(s, Viewing)
		return nil
	}

	err := c.call(ctx, func(ctx context.Context) error {
		_, err := c.store.Patch(ctx, titlePatch(id, title))
		return err
	})
	c.setState(s, Viewing)
	if err != nil {
		return c.fail(err)
	}
	c.logger.Printf("renamed task %s", id)
	return c.refresh(ctx)
}

func titlePatch(id, title string) model.TaskPatch {
	return model.TaskPatch{ID: id, Title: &title}
}

func (c *Controller) setState(s *EditSession, st EditState) {
	if s == nil {
		return
	}
	c.mu.Lock()
	s.state = st
	c.mu.Unlock()
}

var (
	nbspRegexp   = regexp.MustCompile(`&nbsp;|\x{00A0}`)
	delTagRegexp = regexp.MustCompile(`</?del>`)
)

// NormalizeTitle strips non-breaking-space artifacts, strikethrough markup
// and surrounding whitespace from edited text.
func NormalizeTitle(text string) string {
	text = nbspRegexp.ReplaceAllString(text, "")
	text = delTagRegexp.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
