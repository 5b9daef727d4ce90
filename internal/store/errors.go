// Package store holds what the collection backends share.
package store

import "errors"

var (
	ErrNotFound    = errors.New("task not found")
	ErrDuplicateID = errors.New("task id already exists")
	ErrInvalidTask = errors.New("task needs an id and a title")
)
