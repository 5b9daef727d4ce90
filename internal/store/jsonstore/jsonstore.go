package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// JSON-backed collection. Single file, human-readable, portable.
// The whole file is rewritten on every change; fine for a local dev server.

const DefaultFileName = "tasks.json"

type Store struct {
	path string
	mu   sync.Mutex
}

// New returns a store backed by path (DefaultFileName in the working
// directory when empty). The file is created on first write.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(wd, DefaultFileName)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) List(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) Get(ctx context.Context, id string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return model.Task{}, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	return tasks[i], nil
}

func (s *Store) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" || strings.TrimSpace(t.Title) == "" {
		return model.Task{}, store.ErrInvalidTask
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return model.Task{}, err
	}
	if indexOf(tasks, t.ID) >= 0 {
		return model.Task{}, store.ErrDuplicateID
	}
	tasks = append(tasks, t)
	if err := s.save(tasks); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *Store) Patch(ctx context.Context, p model.TaskPatch) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return model.Task{}, err
	}
	i := indexOf(tasks, p.ID)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	tasks[i] = p.Apply(tasks[i])
	if err := s.save(tasks); err != nil {
		return model.Task{}, err
	}
	return tasks[i], nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks, err := s.load()
	if err != nil {
		return err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return store.ErrNotFound
	}
	tasks = append(tasks[:i], tasks[i+1:]...)
	return s.save(tasks)
}

func (s *Store) Close() error { return nil }

func (s *Store) load() ([]model.Task, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Task{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var tasks []model.Task
	if err := json.Unmarshal(b, &tasks); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func (s *Store) save(tasks []model.Task) error {
	b, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func indexOf(tasks []model.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
