// Package views renders store state as text and turns user actions into client
// updates and engine requests.
package views

import (
	"context"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/atomic"

	"nuclight.org/tgweb/pkg/emitter"
	"nuclight.org/tgweb/pkg/td"
)

// View is a component whose subscriptions live exactly as long as it is mounted.
type View interface {
	Mount(ctx context.Context)
	Unmount()
	Render() string
}

// Gateway is the part of the controller views talk to.
type Gateway interface {
	SendThen(ctx context.Context, req td.Request, fn func(td.Response, error))
	ClientUpdate(u td.ClientUpdate)
}

// Poster defers work to the next turn of the task queue.
type Poster interface {
	Post(task func())
}

type lifecycle struct {
	subs    emitter.Bag
	mounted atomic.Bool
}

// Mounted reports whether the view is mounted. Async callbacks check it before
// touching view state.
func (l *lifecycle) Mounted() bool {
	return l.mounted.Load()
}

// mount reports false if the view was already mounted.
func (l *lifecycle) mount() bool {
	return l.mounted.CompareAndSwap(false, true)
}

func (l *lifecycle) unmount() {
	if l.mounted.CompareAndSwap(true, false) {
		l.subs.Close()
	}
}

var (
	colorPrimary = lipgloss.Color("#7AA2F7")
	colorMuted   = lipgloss.Color("#565F89")
	colorError   = lipgloss.Color("#F7768E")

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleMuted = lipgloss.NewStyle().
			Foreground(colorMuted)

	styleError = lipgloss.NewStyle().
			Foreground(colorError)

	styleFocused = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	styleButton = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Padding(0, 1)

	styleDialog = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

func button(label string) string {
	return styleButton.Render("[" + label + "]")
}
