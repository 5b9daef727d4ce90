package model

import (
	"fmt"
	"strings"
)

// Filter selects which part of the snapshot is shown.
type Filter string

const (
	FilterAll         Filter = "All"
	FilterCompleted   Filter = "Completed"
	FilterUncompleted Filter = "Uncompleted"
)

// Filters lists the selectors offered to the user, in display order.
var Filters = []Filter{FilterAll, FilterCompleted, FilterUncompleted}

// ParseFilter maps user input (any case) to a Filter.
func ParseFilter(s string) (Filter, error) {
	for _, f := range Filters {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q (want all, completed or uncompleted)", s)
}

// Apply returns the tasks matching f, keeping their order. It never modifies
// tasks. An unknown filter is a programming error and panics.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	switch f {
	case FilterAll:
		out = append(out, tasks...)
	case FilterCompleted:
		for _, t := range tasks {
			if t.IsDone {
				out = append(out, t)
			}
		}
	case FilterUncompleted:
		for _, t := range tasks {
			if !t.IsDone {
				out = append(out, t)
			}
		}
	default:
		panic(fmt.Sprintf("filter not found: %q", string(f)))
	}
	return out
}

// Next cycles All -> Completed -> Uncompleted -> All.
func (f Filter) Next() Filter {
	for i, x := range Filters {
		if x == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}
