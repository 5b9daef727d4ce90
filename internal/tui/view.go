package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/controller"
)

// The controller writes to viewBuffer from whatever goroutine it runs on;
// Update drains it and applies the ops to the model in order.

type rowsMsg []controller.Row

type editableMsg struct {
	id string
	on bool
}

type clearInputMsg struct{}

type alertMsg struct {
	text    string
	visible bool
}

type viewBuffer struct {
	mu  sync.Mutex
	ops []tea.Msg
}

func (b *viewBuffer) push(m tea.Msg) {
	b.mu.Lock()
	b.ops = append(b.ops, m)
	b.mu.Unlock()
}

func (b *viewBuffer) drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := b.ops
	b.ops = nil
	return ops
}

func (b *viewBuffer) RenderRows(rows []controller.Row) { b.push(rowsMsg(rows)) }

func (b *viewBuffer) SetEditable(id string, on bool) { b.push(editableMsg{id: id, on: on}) }

func (b *viewBuffer) ClearInput() { b.push(clearInputMsg{}) }

func (b *viewBuffer) ShowAlert(msg string) { b.push(alertMsg{text: msg, visible: true}) }

func (b *viewBuffer) HideAlert() { b.push(alertMsg{}) }
