// Package tui is the terminal front-end: one text field over a search view.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"wikilist/internal/search"
)

const notFoundArt = "   (╥﹏╥)\n  nobody here"

type stateChangedMsg struct{}

type Model struct {
	input    textinput.Model
	view     *search.View
	changes  chan struct{}
	state    search.State
	pageSize int
	quitting bool
}

func New(fetcher search.Fetcher, opts search.Options) Model {
	changes := make(chan struct{}, 1)
	opts.OnChange = func(search.Event) {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	if opts.PageSize <= 0 {
		opts.PageSize = search.DefaultPageSize
	}

	ti := textinput.New()
	ti.Placeholder = "Type a name to search"
	ti.CharLimit = 64
	ti.Focus()

	return Model{
		input:    ti,
		view:     search.NewView(fetcher, opts),
		changes:  changes,
		state:    search.State{Page: 1},
		pageSize: opts.PageSize,
	}
}

// waitForChange delivers one stateChangedMsg per burst of view changes.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-changes
		return stateChangedMsg{}
	}
}

func (m Model) mount() tea.Msg {
	m.view.Mount()
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.mount, waitForChange(m.changes))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateChangedMsg:
		m.state = m.view.State()
		return m, waitForChange(m.changes)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.view.Close()
			m.quitting = true
			return m, tea.Quit
		case tea.KeyPgDown:
			s := m.view.State()
			if s.Page*m.pageSize < s.TotalCount {
				m.view.SetPage(s.Page + 1)
			}
			return m, nil
		case tea.KeyPgUp:
			if s := m.view.State(); s.Page > 1 {
				m.view.SetPage(s.Page - 1)
			}
			return m, nil
		}
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != prev {
		m.view.InputChange(value)
	}
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("Wiki profiles\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	screen := search.Render(m.state)
	if screen.Status != search.StatusNone {
		b.WriteString(screen.Message)
		b.WriteString("\n")
	}
	if screen.NotFoundImage {
		b.WriteString(notFoundArt)
		b.WriteString("\n")
	}
	if len(screen.Items) > 0 {
		b.WriteString("\n")
		for _, item := range screen.Items {
			picture := item.Image
			if item.UsesFallback() {
				picture = "default picture"
			}
			fmt.Fprintf(&b, "  • %-24s %s\n", item.Name, picture)
		}
		fmt.Fprintf(&b, "\n  page %d\n", m.state.Page)
	}

	b.WriteString("\npgup/pgdown: page • esc: quit\n")
	return b.String()
}

// Close tears the view down when the program exits some other way than
// through a key press.
func (m Model) Close() {
	m.view.Close()
}
