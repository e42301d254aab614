package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikilist/internal/debounce"
	"wikilist/internal/model"
	"wikilist/internal/search"
)

type recordingFetcher struct {
	mu    sync.Mutex
	names []string
	pages []int
}

func (f *recordingFetcher) ListProfiles(ctx context.Context, name string, page, pageSize int) (*model.ProfilePage, error) {
	f.mu.Lock()
	f.names = append(f.names, name)
	f.pages = append(f.pages, page)
	f.mu.Unlock()

	switch name {
	case "":
		return &model.ProfilePage{TotalCount: 8, Profiles: []model.Profile{{Name: "Kim", Image: "https://img/kim.png"}, {Name: "Lee"}}}, nil
	default:
		return &model.ProfilePage{TotalCount: 0}, nil
	}
}

func (f *recordingFetcher) calls() ([]string, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...), append([]int(nil), f.pages...)
}

type heldTimer struct{}

func (heldTimer) Stop() bool { return true }

type heldClock struct {
	mu      sync.Mutex
	pending []func()
}

func (c *heldClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, f)
	return heldTimer{}
}

func (c *heldClock) fire() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

func newTestModel(t *testing.T) (Model, *recordingFetcher, *heldClock) {
	t.Helper()
	fetcher := &recordingFetcher{}
	clock := &heldClock{}
	m := New(fetcher, search.Options{AfterFunc: clock.AfterFunc})
	t.Cleanup(m.Close)
	return m, fetcher, clock
}

// settle waits for the view to report a change and feeds it to the model.
func settle(t *testing.T, m Model) Model {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- waitForChange(m.changes)() }()
	select {
	case msg := <-done:
		next, _ := m.Update(msg)
		return next.(Model)
	case <-time.After(2 * time.Second):
		t.Fatal("view never reported a change")
		return m
	}
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func TestMountShowsGridWithoutStatus(t *testing.T) {
	m, fetcher, _ := newTestModel(t)

	m.mount()
	m = settle(t, m)

	names, _ := fetcher.calls()
	assert.Equal(t, []string{""}, names)

	out := m.View()
	assert.Contains(t, out, "Kim")
	assert.Contains(t, out, "https://img/kim.png")
	assert.Contains(t, out, "default picture")
	assert.NotContains(t, out, "Found")
	assert.NotContains(t, out, "Looking for")
}

func TestTypingIsDebounced(t *testing.T) {
	m, fetcher, clock := newTestModel(t)

	m = typeText(m, "ab")
	assert.Equal(t, "ab", m.view.State().Input)

	m = settle(t, m)
	assert.Contains(t, m.View(), search.SearchingMessage("ab"))
	names, _ := fetcher.calls()
	assert.Empty(t, names)

	clock.fire()
	require.Eventually(t, func() bool { return !m.view.State().Loading }, 2*time.Second, 5*time.Millisecond)
	m = settle(t, m)

	names, _ = fetcher.calls()
	assert.Equal(t, []string{"ab"}, names)
	out := m.View()
	assert.Contains(t, out, search.NotFoundMessage("ab"))
	assert.Contains(t, out, notFoundArt)
}

func TestPageKeys(t *testing.T) {
	m, fetcher, _ := newTestModel(t)
	m.mount()
	m = settle(t, m)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	m = next.(Model)
	_, pages := fetcher.calls()
	assert.Equal(t, []int{1}, pages, "no page before the first")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	m = next.(Model)
	require.Eventually(t, func() bool {
		_, pages := fetcher.calls()
		return len(pages) == 2
	}, 2*time.Second, 5*time.Millisecond)
	_, pages = fetcher.calls()
	assert.Equal(t, []int{1, 2}, pages)
}

func TestQuitClosesView(t *testing.T) {
	m, fetcher, clock := newTestModel(t)
	m = typeText(m, "k")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	clock.fire()
	names, _ := fetcher.calls()
	assert.Empty(t, names)
}
