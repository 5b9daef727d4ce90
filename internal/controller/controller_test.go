package controller

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Makepad-fr/tada/internal/model"
)

func buyMilk() model.Task { return model.Task{ID: "a1", Title: "Buy milk"} }

func newTestController(t *testing.T, tasks ...model.Task) (*Controller, *fakeStore, *fakeView) {
	t.Helper()
	st := newFakeStore(tasks...)
	v := newFakeView()
	n := 0
	c := New(st, v, WithIDGenerator(func() string {
		n++
		return "id" + string(rune('0'+n))
	}))
	if err := c.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	st.resetCalls()
	return c, st, v
}

// rowsMatchSnapshot checks the rendered rows equal the controller's snapshot.
func rowsMatchSnapshot(t *testing.T, c *Controller, v *fakeView) {
	t.Helper()
	snap := c.Tasks()
	rows := v.lastRows()
	if len(rows) != len(snap) {
		t.Fatalf("rendered %d rows, snapshot has %d", len(rows), len(snap))
	}
	for i := range snap {
		want := Row{ID: snap[i].ID, Title: snap[i].Title, Done: snap[i].IsDone}
		if rows[i] != want {
			t.Fatalf("row %d = %+v, want %+v", i, rows[i], want)
		}
	}
}

func TestInit_RendersSnapshotInOrder(t *testing.T) {
	c, _, v := newTestController(t,
		model.Task{ID: "b", Title: "second"},
		model.Task{ID: "a", Title: "first", IsDone: true},
	)
	if len(v.renders) != 1 {
		t.Fatalf("renders = %d", len(v.renders))
	}
	rowsMatchSnapshot(t, c, v)
	if id, ok := c.RowID(1); !ok || id != "a" {
		t.Fatalf("RowID(1) = %q, %v", id, ok)
	}
	if _, ok := c.RowID(2); ok {
		t.Fatalf("RowID out of range must report false")
	}
}

func TestInit_OnlyOnce(t *testing.T) {
	c, st, _ := newTestController(t)
	if err := c.Init(context.Background()); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Init err = %v", err)
	}
	if len(st.Calls()) != 0 {
		t.Fatalf("second Init must not fetch: %v", st.Calls())
	}
}

func TestInit_FetchFailureRendersEmptyAndAlerts(t *testing.T) {
	st := newFakeStore()
	st.FetchAllFunc = func() ([]model.Task, error) { return nil, ErrMockRemote }
	v := newFakeView()
	c := New(st, v)

	err := c.Init(context.Background())
	if !errors.Is(err, ErrMockRemote) {
		t.Fatalf("Init err = %v", err)
	}
	if len(v.renders) != 1 || len(v.lastRows()) != 0 {
		t.Fatalf("want one empty render, got %+v", v.renders)
	}
	if !v.alertVisible || v.alert != ErrMockRemote.Error() {
		t.Fatalf("alert = %q visible=%v", v.alert, v.alertVisible)
	}

	st.FetchAllFunc = nil
	st.tasks = []model.Task{buyMilk()}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	rowsMatchSnapshot(t, c, v)
}

func TestAddTask_CreatesThenRefreshes(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())

	if err := c.AddTask(context.Background(), "  Walk the dog "); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if got := st.Calls(); !reflect.DeepEqual(got, []string{"create", "fetchAll"}) {
		t.Fatalf("calls = %v", got)
	}
	want := model.Task{ID: "id1", Title: "Walk the dog", IsDone: false}
	if st.creates[0] != want {
		t.Fatalf("created %+v, want %+v", st.creates[0], want)
	}
	if v.inputCleared != 1 {
		t.Fatalf("input cleared %d times", v.inputCleared)
	}
	rowsMatchSnapshot(t, c, v)
	if len(c.Tasks()) != 2 {
		t.Fatalf("snapshot = %+v", c.Tasks())
	}
}

func TestAddTask_BlankInputNoNetwork(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())
	before := c.Tasks()
	renders := len(v.renders)

	err := c.AddTask(context.Background(), "  ")
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("err = %v", err)
	}
	if len(st.Calls()) != 0 {
		t.Fatalf("calls = %v", st.Calls())
	}
	if v.inputCleared != 1 || !v.alertVisible {
		t.Fatalf("input cleared=%d alert=%v", v.inputCleared, v.alertVisible)
	}
	if !reflect.DeepEqual(before, c.Tasks()) || len(v.renders) != renders {
		t.Fatalf("snapshot or view changed")
	}
}

func TestAddTask_CreateFailureKeepsSnapshot(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())
	st.CreateFunc = func(model.Task) (model.Task, error) { return model.Task{}, ErrMockRemote }
	renders := len(v.renders)

	if err := c.AddTask(context.Background(), "new"); !errors.Is(err, ErrMockRemote) {
		t.Fatalf("err = %v", err)
	}
	if got := st.Calls(); !reflect.DeepEqual(got, []string{"create"}) {
		t.Fatalf("calls = %v", got)
	}
	if !v.alertVisible || v.alert != ErrMockRemote.Error() {
		t.Fatalf("alert = %q", v.alert)
	}
	if len(v.renders) != renders || len(c.Tasks()) != 1 || v.inputCleared != 0 {
		t.Fatalf("view or snapshot changed on failure")
	}
}

func TestInputChanged_HidesAlert(t *testing.T) {
	c, _, v := newTestController(t)
	_ = c.AddTask(context.Background(), "")
	c.InputChanged("")
	if !v.alertVisible {
		t.Fatalf("empty input must keep the alert")
	}
	c.InputChanged("b")
	if v.alertVisible {
		t.Fatalf("typing must hide the alert")
	}
	_ = c.AddTask(context.Background(), "")
	c.DismissAlert()
	if v.alertVisible {
		t.Fatalf("dismiss must hide the alert")
	}
}

func TestCrossOut_PatchThenFetchThenRender(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())

	if err := c.CrossOut(context.Background(), "a1"); err != nil {
		t.Fatalf("CrossOut: %v", err)
	}
	if got := st.Calls(); !reflect.DeepEqual(got, []string{"patch", "fetchAll"}) {
		t.Fatalf("calls = %v", got)
	}
	p := st.patches[0]
	if p.ID != "a1" || p.IsDone == nil || !*p.IsDone || p.Title != nil {
		t.Fatalf("patch = %+v", p)
	}
	rows := v.lastRows()
	if len(rows) != 1 || !rows[0].Done || rows[0].Title != "Buy milk" {
		t.Fatalf("rows = %+v", rows)
	}

	st.resetCalls()
	if err := c.CrossOut(context.Background(), "a1"); err != nil {
		t.Fatalf("CrossOut back: %v", err)
	}
	if *st.patches[0].IsDone {
		t.Fatalf("second toggle must uncomplete")
	}
	rowsMatchSnapshot(t, c, v)
}

func TestCrossOut_FailureNoRefresh(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())
	st.PatchFunc = func(model.TaskPatch) (model.Task, error) { return model.Task{}, ErrMockRemote }

	if err := c.CrossOut(context.Background(), "a1"); !errors.Is(err, ErrMockRemote) {
		t.Fatalf("err = %v", err)
	}
	if got := st.Calls(); !reflect.DeepEqual(got, []string{"patch"}) {
		t.Fatalf("calls = %v", got)
	}
	if !v.alertVisible || c.Tasks()[0].IsDone {
		t.Fatalf("alert=%v snapshot=%+v", v.alertVisible, c.Tasks())
	}
}

func TestCrossOut_UnknownIDPanics(t *testing.T) {
	c, st, _ := newTestController(t, buyMilk())
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
		if len(st.Calls()) != 0 {
			t.Fatalf("no call expected, got %v", st.Calls())
		}
	}()
	_ = c.CrossOut(context.Background(), "zz")
}

func TestRemoveRow(t *testing.T) {
	c, st, v := newTestController(t, buyMilk(), model.Task{ID: "b2", Title: "Walk"})

	if err := c.RemoveRow(context.Background(), "a1"); err != nil {
		t.Fatalf("RemoveRow: %v", err)
	}
	if got := st.Calls(); !reflect.DeepEqual(got, []string{"delete", "fetchAll"}) {
		t.Fatalf("calls = %v", got)
	}
	rowsMatchSnapshot(t, c, v)
	if len(v.lastRows()) != 1 || v.lastRows()[0].ID != "b2" {
		t.Fatalf("rows = %+v", v.lastRows())
	}
}

func TestRemoveRow_FailureKeepsRow(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())
	st.DeleteFunc = func(string) error { return ErrMockRemote }
	renders := len(v.renders)

	if err := c.RemoveRow(context.Background(), "a1"); !errors.Is(err, ErrMockRemote) {
		t.Fatalf("err = %v", err)
	}
	if len(v.renders) != renders || len(c.Tasks()) != 1 || !v.alertVisible {
		t.Fatalf("row must stay and alert must show")
	}
}

func TestRefreshFailureAfterWriteKeepsSnapshot(t *testing.T) {
	c, st, v := newTestController(t, buyMilk())
	st.FetchAllFunc = func() ([]model.Task, error) { return nil, ErrMockRemote }

	if err := c.CrossOut(context.Background(), "a1"); !errors.Is(err, ErrMockRemote) {
		t.Fatalf("err = %v", err)
	}
	if c.Tasks()[0].IsDone {
		t.Fatalf("snapshot must not be patched locally")
	}
	if !v.alertVisible {
		t.Fatalf("alert must show")
	}
}

func TestFilterTasks_IsSnapshotLocal(t *testing.T) {
	c, st, v := newTestController(t,
		model.Task{ID: "a", Title: "one", IsDone: true},
		model.Task{ID: "b", Title: "two"},
		model.Task{ID: "c", Title: "three", IsDone: true},
	)
	full := v.lastRows()

	c.FilterTasks(model.FilterCompleted)
	if rows := v.lastRows(); len(rows) != 2 || rows[0].ID != "a" || rows[1].ID != "c" {
		t.Fatalf("completed rows = %+v", rows)
	}
	if id, _ := c.RowID(1); id != "c" {
		t.Fatalf("RowID must follow the filtered rows, got %q", id)
	}

	c.FilterTasks(model.FilterUncompleted)
	if rows := v.lastRows(); len(rows) != 1 || rows[0].ID != "b" {
		t.Fatalf("uncompleted rows = %+v", rows)
	}

	c.FilterTasks(model.FilterAll)
	if !reflect.DeepEqual(v.lastRows(), full) {
		t.Fatalf("All must restore %+v, got %+v", full, v.lastRows())
	}
	if len(st.Calls()) != 0 {
		t.Fatalf("filtering must not hit the network: %v", st.Calls())
	}
	if len(c.Tasks()) != 3 {
		t.Fatalf("snapshot changed")
	}
}

func TestFilterTasks_UnknownPanics(t *testing.T) {
	c, _, v := newTestController(t, buyMilk())
	renders := len(v.renders)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for Archived")
		}
		if c.Filter() != model.FilterAll || len(v.renders) != renders {
			t.Fatalf("unknown filter must not change state")
		}
	}()
	c.FilterTasks(model.Filter("Archived"))
}

func TestActiveFilterSurvivesRefresh(t *testing.T) {
	c, _, v := newTestController(t, buyMilk(), model.Task{ID: "b2", Title: "Walk", IsDone: true})
	c.FilterTasks(model.FilterCompleted)

	if err := c.CrossOut(context.Background(), "a1"); err != nil {
		t.Fatalf("CrossOut: %v", err)
	}
	if rows := v.lastRows(); len(rows) != 2 {
		t.Fatalf("both tasks are done now, rows = %+v", rows)
	}
}

func TestSuccessfulSequenceKeepsViewInSync(t *testing.T) {
	c, _, v := newTestController(t, buyMilk())
	ctx := context.Background()

	steps := []func() error{
		func() error { return c.AddTask(ctx, "Walk") },
		func() error { return c.CrossOut(ctx, "a1") },
		func() error { return c.CommitEdit(ctx, "id1", "Walk the dog") },
		func() error { return c.RemoveRow(ctx, "a1") },
		func() error { return c.AddTask(ctx, "Read") },
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		rowsMatchSnapshot(t, c, v)
	}
	if got := c.Tasks(); len(got) != 2 || got[0].Title != "Walk the dog" || got[1].Title != "Read" {
		t.Fatalf("final snapshot = %+v", got)
	}
}

func TestStats(t *testing.T) {
	c, _, _ := newTestController(t, buyMilk(), model.Task{ID: "b", Title: "x", IsDone: true})
	if d, p := c.Stats(); d != 1 || p != 1 {
		t.Fatalf("stats = %d/%d", d, p)
	}
}

func TestCallTimeoutSurfacesAsFailure(t *testing.T) {
	st := newFakeStore()
	v := newFakeView()
	c := New(&slowStore{fakeStore: st}, v, WithTimeout(10*time.Millisecond))

	err := c.Init(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if !v.alertVisible || !strings.Contains(v.alert, "deadline") {
		t.Fatalf("alert = %q", v.alert)
	}
}

type slowStore struct{ *fakeStore }

func (s *slowStore) FetchAll(ctx context.Context) ([]model.Task, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestNewIDIsHex(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 32 || a == b {
		t.Fatalf("ids %q %q", a, b)
	}
	for _, r := range a {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("non-hex rune %q in %q", r, a)
		}
	}
}
