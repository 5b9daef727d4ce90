package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
)

var ErrMockRemote = errors.New("remote failure")

// fakeStore is an in-memory collection that records every call. The *Func
// fields override the default behavior when set.
type fakeStore struct {
	mu    sync.Mutex
	tasks []model.Task
	calls []string

	patches []model.TaskPatch
	deletes []string
	creates []model.Task

	FetchAllFunc func() ([]model.Task, error)
	CreateFunc   func(t model.Task) (model.Task, error)
	PatchFunc    func(p model.TaskPatch) (model.Task, error)
	DeleteFunc   func(id string) error
}

func newFakeStore(tasks ...model.Task) *fakeStore {
	return &fakeStore{tasks: tasks}
}

func (s *fakeStore) FetchAll(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "fetchAll")
	if s.FetchAllFunc != nil {
		return s.FetchAllFunc()
	}
	return append([]model.Task(nil), s.tasks...), nil
}

func (s *fakeStore) Create(ctx context.Context, t model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "create")
	s.creates = append(s.creates, t)
	if s.CreateFunc != nil {
		return s.CreateFunc(t)
	}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *fakeStore) Patch(ctx context.Context, p model.TaskPatch) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "patch")
	s.patches = append(s.patches, p)
	if s.PatchFunc != nil {
		return s.PatchFunc(p)
	}
	for i, t := range s.tasks {
		if t.ID == p.ID {
			s.tasks[i] = p.Apply(t)
			return s.tasks[i], nil
		}
	}
	return model.Task{}, fmt.Errorf("update task: 404 Not Found")
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete")
	s.deletes = append(s.deletes, id)
	if s.DeleteFunc != nil {
		return s.DeleteFunc(id)
	}
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete task: 404 Not Found")
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.patches = nil
	s.deletes = nil
	s.creates = nil
}

// fakeView records what the controller asked it to show.
type fakeView struct {
	renders      [][]Row
	editable     map[string]bool
	inputCleared int
	alert        string
	alertVisible bool
}

func newFakeView() *fakeView {
	return &fakeView{editable: map[string]bool{}}
}

func (v *fakeView) RenderRows(rows []Row) { v.renders = append(v.renders, rows) }

func (v *fakeView) SetEditable(id string, on bool) { v.editable[id] = on }

func (v *fakeView) ClearInput() { v.inputCleared++ }

func (v *fakeView) ShowAlert(msg string) {
	v.alert = msg
	v.alertVisible = true
}

func (v *fakeView) HideAlert() { v.alertVisible = false }

func (v *fakeView) lastRows() []Row {
	if len(v.renders) == 0 {
		return nil
	}
	return v.renders[len(v.renders)-1]
}
