// Package sqlitestore keeps the task collection in a SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	id      TEXT NOT NULL UNIQUE,
	title   TEXT NOT NULL,
	is_done INTEGER NOT NULL DEFAULT 0
);`

type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) List(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, is_done FROM tasks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.IsDone); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (model.Task, error) {
	var t model.Task
	err := s.db.QueryRowContext(ctx, `SELECT id, title, is_done FROM tasks WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.IsDone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, store.ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" || strings.TrimSpace(t.Title) == "" {
		return model.Task{}, store.ErrInvalidTask
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, t.ID).Scan(&n); err != nil {
		return model.Task{}, fmt.Errorf("check id: %w", err)
	}
	if n > 0 {
		return model.Task{}, store.ErrDuplicateID
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tasks (id, title, is_done) VALUES (?, ?, ?)`, t.ID, t.Title, t.IsDone); err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (s *Store) Patch(ctx context.Context, p model.TaskPatch) (model.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var t model.Task
	err = tx.QueryRowContext(ctx, `SELECT id, title, is_done FROM tasks WHERE id = ?`, p.ID).
		Scan(&t.ID, &t.Title, &t.IsDone)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, store.ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	t = p.Apply(t)
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET title = ?, is_done = ? WHERE id = ?`, t.Title, t.IsDone, t.ID); err != nil {
		return model.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
