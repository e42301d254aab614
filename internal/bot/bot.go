package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/atomic"

	"wikilist/internal/model"
	"wikilist/internal/search"
)

const (
	telegramCaptionLimit = 1024
	redisTimeout         = 3 * time.Second
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type stateStore interface {
	SaveState(ctx context.Context, chatID int64, state model.SearchState) error
	GetState(ctx context.Context, chatID int64) (*model.SearchState, error)
	DeleteState(ctx context.Context, chatID int64) error
}

// session is one chat's search view plus the message showing its status.
// View events are queued and rendered by the session's own worker so a
// slow upload never holds up the view or the update loop.
type session struct {
	view   *search.View
	ctx    context.Context
	cancel context.CancelFunc

	lastActive *atomic.Int64

	mu    sync.Mutex
	queue []search.Event
	wake  chan struct{}

	// statusMessageID is only touched by the worker.
	statusMessageID int
}

func newSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		ctx:        ctx,
		cancel:     cancel,
		lastActive: atomic.NewInt64(time.Now().UnixNano()),
		wake:       make(chan struct{}, 1),
	}
}

func (s *session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *session) idleSince(cutoff time.Time) bool {
	return s.lastActive.Load() < cutoff.UnixNano()
}

// enqueue is the view's change listener; it never blocks.
func (s *session) enqueue(e search.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) drain() []search.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.queue
	s.queue = nil
	return events
}

// close stops the worker and aborts its downloads without waiting for a
// send that is already in progress.
func (s *session) close() {
	s.cancel()
	s.view.Close()
}

type Bot struct {
	api        telegramAPI
	username   string
	profiles   search.Fetcher
	redis      stateStore
	images     *ImageCache
	viewOpts   search.Options
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[int64]*session

	stopChan chan struct{}
	wg       sync.WaitGroup
	workers  sync.WaitGroup
}

func NewBot(token string, redisClient stateStore, profiles search.Fetcher, images *ImageCache,
	viewOpts search.Options, sessionTTL time.Duration) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(botAPI, redisClient, profiles, images, viewOpts, sessionTTL)
	b.username = botAPI.Self.UserName
	return b, nil
}

func newBot(api telegramAPI, redisClient stateStore, profiles search.Fetcher, images *ImageCache,
	viewOpts search.Options, sessionTTL time.Duration) *Bot {
	return &Bot{
		api:        api,
		profiles:   profiles,
		redis:      redisClient,
		images:     images,
		viewOpts:   viewOpts,
		sessionTTL: sessionTTL,
		sessions:   make(map[int64]*session),
		stopChan:   make(chan struct{}),
	}
}

// Start begins long polling and returns immediately.
func (b *Bot) Start() {
	slog.Info("Authorized on account", slog.String("username", b.username))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.wg.Add(2)
	go b.run(updates)
	go b.sweepIdleSessions()
}

func (b *Bot) run(updates tgbotapi.UpdatesChannel) {
	defer b.wg.Done()

	for {
		select {
		case <-b.stopChan:
			slog.Info("Stopping bot update processing")
			return
		case update, ok := <-updates:
			if !ok {
				slog.Info("Updates channel closed")
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if !update.Message.IsCommand() {
		b.handleMessage(update.Message)
		return
	}

	switch update.Message.Command() {
	case "start":
		b.handleStartCommand(update.Message)
	case "help":
		b.handleHelpCommand(update.Message)
	}
}

func (b *Bot) Stop() {
	slog.Info("Initiating bot shutdown...")
	close(b.stopChan)
	b.api.StopReceivingUpdates()
	b.wg.Wait()

	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[int64]*session)
	b.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
	b.workers.Wait()

	slog.Info("Bot shutdown complete", "sessions", len(sessions))
}

// session returns the chat's live session, creating an unmounted one when
// create is set.
func (b *Bot) session(chatID int64, create bool) (*session, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s, ok := b.sessions[chatID]; ok {
		s.touch()
		return s, false
	}
	if !create {
		return nil, false
	}

	s := newSession()
	opts := b.viewOpts
	opts.OnChange = s.enqueue
	s.view = search.NewView(b.profiles, opts)
	b.sessions[chatID] = s

	b.workers.Add(1)
	go b.runSession(chatID, s)
	return s, true
}

func (b *Bot) runSession(chatID int64, s *session) {
	defer b.workers.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}
		for _, e := range s.drain() {
			if s.ctx.Err() != nil {
				return
			}
			b.handleViewEvent(chatID, s, e)
		}
	}
}

func (b *Bot) closeSession(chatID int64) {
	b.mu.Lock()
	s, ok := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()

	if ok {
		s.close()
	}
}

func (b *Bot) sweepIdleSessions() {
	defer b.wg.Done()
	if b.sessionTTL <= 0 {
		return
	}

	ticker := time.NewTicker(b.sessionTTL)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.closeIdleSessions(time.Now().Add(-b.sessionTTL))
		}
	}
}

func (b *Bot) closeIdleSessions(cutoff time.Time) int {
	var idle []*session

	b.mu.Lock()
	for chatID, s := range b.sessions {
		if s.idleSince(cutoff) {
			idle = append(idle, s)
			delete(b.sessions, chatID)
		}
	}
	b.mu.Unlock()

	for _, s := range idle {
		s.close()
	}
	if len(idle) > 0 {
		slog.Info("Closed idle search sessions", "count", len(idle))
	}
	return len(idle)
}

func (b *Bot) saveState(chatID int64, state model.SearchState) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := b.redis.SaveState(ctx, chatID, state); err != nil {
		slog.Error("Error saving state to Redis", "chat", chatID, "error", err)
	}
}

func (b *Bot) loadState(chatID int64) (*model.SearchState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return b.redis.GetState(ctx, chatID)
}

func (b *Bot) deleteState(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := b.redis.DeleteState(ctx, chatID); err != nil {
		slog.Error("Error deleting state from Redis", "chat", chatID, "error", err)
	}
}
