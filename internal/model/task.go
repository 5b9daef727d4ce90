package model

// Task is the domain model for a todo entry as stored by the remote
// collection. Field names follow the collection's JSON.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	IsDone bool   `json:"isDone"`
}

// TaskPatch is a partial update keyed by ID. Nil fields are left untouched.
type TaskPatch struct {
	ID     string  `json:"id"`
	Title  *string `json:"title,omitempty"`
	IsDone *bool   `json:"isDone,omitempty"`
}

// Apply returns t with the patch's non-nil fields set.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.IsDone != nil {
		t.IsDone = *p.IsDone
	}
	return t
}

// Stats counts done and pending tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.IsDone {
			done++
		} else {
			pending++
		}
	}
	return
}
