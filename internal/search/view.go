// Package search holds the debounced profile search view shared by the
// terminal and Telegram front-ends.
package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"wikilist/internal/debounce"
	"wikilist/internal/metrics"
	"wikilist/internal/model"
)

const (
	DefaultDebounce = 1300 * time.Millisecond
	DefaultPageSize = 6
)

type Fetcher interface {
	ListProfiles(ctx context.Context, name string, page, pageSize int) (*model.ProfilePage, error)
}

type State struct {
	Input      string
	Page       int
	Loading    bool
	TotalCount int
	Results    []model.Profile
}

type EventKind string

const (
	EventInput   EventKind = "input"
	EventPage    EventKind = "page"
	EventResults EventKind = "results"
	EventFailed  EventKind = "failed"
)

type Event struct {
	Kind  EventKind
	State State
}

type Options struct {
	Debounce  time.Duration
	PageSize  int
	AfterFunc debounce.AfterFunc
	Logger    *slog.Logger
	// OnChange is called with the view's lock held, in the order the
	// changes happen. It must not block or call back into the view.
	OnChange func(Event)
}

type View struct {
	fetcher   Fetcher
	debouncer *debounce.Debouncer
	pageSize  int
	onChange  func(Event)
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	state   State
	mounted bool
	closed  bool

	// seq identifies the latest issued intent; results carrying an older
	// id are dropped.
	seq uint64
}

func NewView(fetcher Fetcher, opts Options) *View {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &View{
		fetcher:   fetcher,
		debouncer: debounce.NewWithAfterFunc(opts.Debounce, opts.AfterFunc),
		pageSize:  opts.PageSize,
		onChange:  opts.OnChange,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		state:     State{Page: 1},
	}
}

// Mount performs the initial load, skipping the debounce. Later calls do
// nothing.
func (v *View) Mount() {
	v.mu.Lock()
	if v.closed || v.mounted {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	text := v.state.Input
	v.mu.Unlock()

	v.fetchResults(text)
}

// Resume restores a persisted query into a view that has not been mounted
// yet and fetches it right away.
func (v *View) Resume(text string, page int) {
	if page < 1 {
		page = 1
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.state.Input = text
	v.state.Page = page
	v.mu.Unlock()

	v.fetchResults(text)
}

// InputChange replaces the search text. A new text starts over from the
// first page.
func (v *View) InputChange(text string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.mounted = true
	v.state.Input = text
	v.state.Page = 1
	v.state.Loading = true
	v.seq++
	v.notifyLocked(EventInput)
	v.mu.Unlock()

	metrics.DebouncedInputs.Inc()
	v.scheduleSearch(text)
}

func (v *View) scheduleSearch(text string) {
	v.debouncer.Trigger(func() {
		v.fetchResults(text)
	})
}

// SetPage moves to another page of the current query and fetches it
// immediately. Pages below 1 are treated as 1.
func (v *View) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.state.Page = page
	v.state.Loading = true
	text := v.state.Input
	v.notifyLocked(EventPage)
	v.mu.Unlock()

	v.debouncer.Cancel()
	v.fetchResults(text)
}

func (v *View) fetchResults(text string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.seq++
	seq := v.seq
	page := v.state.Page
	v.state.Loading = true
	v.wg.Add(1)
	v.mu.Unlock()

	go func() {
		defer v.wg.Done()

		started := time.Now()
		result, err := v.fetcher.ListProfiles(v.ctx, text, page, v.pageSize)

		v.mu.Lock()
		if v.closed || seq != v.seq {
			v.mu.Unlock()
			metrics.ObserveFetch(metrics.ResultStale, started)
			v.logger.Debug("Dropping stale profile results", "name", text, "page", page)
			return
		}
		v.state.Loading = false
		kind := EventResults
		if err != nil {
			kind = EventFailed
			v.logger.Error("Failed to fetch profiles", "name", text, "page", page, "error", err)
		} else {
			v.state.TotalCount = result.TotalCount
			v.state.Results = result.Profiles
		}
		v.notifyLocked(kind)
		v.mu.Unlock()

		if err != nil {
			metrics.ObserveFetch(metrics.ResultError, started)
		} else {
			metrics.ObserveFetch(metrics.ResultOK, started)
		}
	}()
}

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Close cancels the pending search and any request in flight, then waits
// for outstanding fetch goroutines to return.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.debouncer.Stop()
	v.cancel()
	v.wg.Wait()
}

func (v *View) snapshotLocked() State {
	s := v.state
	if s.Results != nil {
		s.Results = append([]model.Profile(nil), s.Results...)
	}
	return s
}

func (v *View) notifyLocked(kind EventKind) {
	if v.onChange != nil {
		v.onChange(Event{Kind: kind, State: v.snapshotLocked()})
	}
}
