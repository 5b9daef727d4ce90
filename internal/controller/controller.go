// Package controller keeps the task snapshot, the rendered rows and the
// remote collection in step.
//
// Every successful write is followed by a full re-fetch; the fetched list
// replaces the snapshot wholesale and the view is rebuilt from it. The
// controller never patches its snapshot locally, so after each operation the
// rows match what the collection returned.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/model"
)

// DefaultTimeout bounds each remote call.
const DefaultTimeout = 10 * time.Second

var (
	ErrEmptyTitle         = errors.New("task title cannot be empty")
	ErrAlreadyInitialized = errors.New("controller already initialized")
)

// Store is the remote task collection.
type Store interface {
	FetchAll(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Patch(ctx context.Context, p model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id string) error
}

// View receives the controller's output. RenderRows always carries the full
// list to show; implementations discard what they had and rebuild.
// Implementations must not call back into the controller from these methods.
type View interface {
	RenderRows(rows []Row)
	SetEditable(id string, on bool)
	ClearInput()
	ShowAlert(msg string)
	HideAlert()
}

// Row is one rendered task.
type Row struct {
	ID    string
	Title string
	Done  bool
}

type Option func(*Controller)

// WithTimeout sets the per-call limit; zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithIDGenerator replaces NewID, mostly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

type Controller struct {
	store   Store
	view    View
	timeout time.Duration
	newID   func() string
	logger  *log.Logger

	// renderMu serializes row computation and delivery so a later render
	// cannot reach the view before an earlier one.
	renderMu sync.Mutex

	mu       sync.Mutex
	bound    bool
	allTasks []model.Task
	filter   model.Filter
	rows     []Row
	session  *EditSession
}

func New(store Store, view View, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		view:    view,
		timeout: DefaultTimeout,
		newID:   NewID,
		logger:  log.New(io.Discard, "", 0),
		filter:  model.FilterAll,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewID returns a random 32-character hexadecimal token.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Init loads the collection and renders it. It runs once; later calls return
// ErrAlreadyInitialized. If the fetch fails the view shows an empty list and
// the error in the alert; there is no automatic retry (see Refresh).
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.bound {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.bound = true
	c.mu.Unlock()

	if err := c.refresh(ctx); err != nil {
		c.render()
		return err
	}
	return nil
}

// Refresh re-fetches and re-renders. On failure the snapshot is kept.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// Tasks returns a copy of the current snapshot.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Task(nil), c.allTasks...)
}

// Rows returns a copy of the rows last handed to the view.
func (c *Controller) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Row(nil), c.rows...)
}

// RowID maps a rendered row position to its task id.
func (c *Controller) RowID(index int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.rows) {
		return "", false
	}
	return c.rows[index].ID, true
}

func (c *Controller) Filter() model.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Stats counts done and pending tasks in the snapshot.
func (c *Controller) Stats() (done, pending int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.Stats(c.allTasks)
}

// AddTask creates a task from the input text. Blank input clears the input
// and raises the alert without touching the network.
func (c *Controller) AddTask(ctx context.Context, input string) error {
	title := strings.TrimSpace(input)
	if title == "" {
		c.view.ClearInput()
		c.view.ShowAlert(ErrEmptyTitle.Error())
		return ErrEmptyTitle
	}

	t := model.Task{ID: c.newID(), Title: title, IsDone: false}
	if err := c.call(ctx, func(ctx context.Context) error {
		_, err := c.store.Create(ctx, t)
		return err
	}); err != nil {
		return c.fail(err)
	}
	c.logger.Printf("created task %s", t.ID)
	c.view.ClearInput()
	return c.refresh(ctx)
}

// InputChanged hides the alert once the user starts typing again.
func (c *Controller) InputChanged(value string) {
	if value != "" {
		c.view.HideAlert()
	}
}

func (c *Controller) DismissAlert() {
	c.view.HideAlert()
}

// CrossOut flips the done flag of id, then refreshes.
func (c *Controller) CrossOut(ctx context.Context, id string) error {
	t := c.mustTask(id)
	done := !t.IsDone
	if err := c.call(ctx, func(ctx context.Context) error {
		_, err := c.store.Patch(ctx, model.TaskPatch{ID: id, IsDone: &done})
		return err
	}); err != nil {
		return c.fail(err)
	}
	c.logger.Printf("task %s done=%t", id, done)
	return c.refresh(ctx)
}

// RemoveRow deletes id, then refreshes. On failure the row stays.
func (c *Controller) RemoveRow(ctx context.Context, id string) error {
	if err := c.call(ctx, func(ctx context.Context) error {
		return c.store.Delete(ctx, id)
	}); err != nil {
		return c.fail(err)
	}
	c.logger.Printf("deleted task %s", id)
	return c.refresh(ctx)
}

// FilterTasks shows the subset of the snapshot selected by f. It never
// fetches. An unknown filter panics and leaves the current one in place.
func (c *Controller) FilterTasks(f model.Filter) {
	f.Apply(nil) // panics on unknown selectors

	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
	c.render()
}

func (c *Controller) refresh(ctx context.Context) error {
	var tasks []model.Task
	if err := c.call(ctx, func(ctx context.Context) error {
		var err error
		tasks, err = c.store.FetchAll(ctx)
		return err
	}); err != nil {
		return c.fail(err)
	}
	c.replaceSnapshot(tasks)
	c.render()
	return nil
}

// replaceSnapshot is the only place allTasks changes.
func (c *Controller) replaceSnapshot(tasks []model.Task) {
	c.mu.Lock()
	c.allTasks = append([]model.Task(nil), tasks...)
	c.mu.Unlock()
}

func (c *Controller) render() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.view.RenderRows(c.renderTasks())
}

// renderTasks builds the rows for the active filter and records them as the
// row-to-id mapping.
func (c *Controller) renderTasks() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := c.filter.Apply(c.allTasks)
	rows := make([]Row, 0, len(visible))
	for _, t := range visible {
		rows = append(rows, generateRow(t.ID, t.Title, t.IsDone))
	}
	c.rows = rows
	return append([]Row(nil), rows...)
}

func generateRow(id, title string, done bool) Row {
	return Row{ID: id, Title: title, Done: done}
}

func (c *Controller) call(ctx context.Context, fn func(context.Context) error) error {
	if c.timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(ctx)
}

func (c *Controller) fail(err error) error {
	c.logger.Printf("error: %v", err)
	c.view.ShowAlert(err.Error())
	return err
}

// mustTask panics when id is not in the snapshot: rows are only ever built
// from the snapshot, so a miss is a bug in the caller.
func (c *Controller) mustTask(id string) model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.allTasks {
		if t.ID == id {
			return t
		}
	}
	panic(fmt.Sprintf("task %q not in snapshot", id))
}
