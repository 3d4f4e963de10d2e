package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kinobot/internal/announce"
	"kinobot/internal/catalog"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
	"kinobot/internal/ui"
)

// Callback data prefixes owned by the workflow.
const (
	PrefixAdmin   = "adm:"
	PrefixPublish = "pub:"

	typeData   = PrefixAdmin + "type:"
	actionData = PrefixAdmin + "act:"
	skipData   = PrefixPublish + "skip:"
)

// ErrUnhandled is returned for idle-state input that is not an admin command,
// so the caller can treat it as ordinary user input.
var ErrUnhandled = errors.New("admin: update not handled")

// SessionIdleTTL is how long an unfinished workflow may sit untouched before
// another admin's activity returns it to idle and frees its reserved code.
const SessionIdleTTL = 24 * time.Hour

type stateHandler func(ctx context.Context, s *Session, upd messenger.Update) error

// Workflow owns every admin session.
type Workflow struct {
	store   *catalog.Store
	alloc   *catalog.Allocator
	mirror  *announce.Mirror
	msgr    messenger.Messenger
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*Session
	handlers map[State]stateHandler
}

// New builds the workflow.
func New(store *catalog.Store, alloc *catalog.Allocator, mirror *announce.Mirror, msgr messenger.Messenger, timeout time.Duration, logger *slog.Logger) *Workflow {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	w := &Workflow{
		store:    store,
		alloc:    alloc,
		mirror:   mirror,
		msgr:     msgr,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "admin"),
		sessions: make(map[int64]*Session),
	}
	w.handlers = map[State]stateHandler{
		StateIdle:                  w.handleIdle,
		StateSingleAwaitPoster:     w.handlePoster,
		StateSingleAwaitVideo:      w.handleSingleVideo,
		StateSeriesAwaitPoster:     w.handlePoster,
		StateSeriesCollectEpisodes: w.handleCollectEpisodes,
		StateEditSelectType:        w.handleSelectType,
		StateEditSelectCode:        w.handleSelectCode,
		StateEditSelectAction:      w.handleSelectAction,
		StateEditAwaitPayload:      w.handlePayload,
		StateDeleteAwaitCode:       w.handleDeleteCode,
	}
	return w
}

// State returns the current state of adminID's session.
func (w *Workflow) State(adminID int64) State {
	s := w.session(adminID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle feeds one update from an administrator into their session.
func (w *Workflow) Handle(ctx context.Context, upd messenger.Update) error {
	w.releaseIdle(upd.UserID, time.Now())
	s := w.session(upd.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touched = time.Now()
	s.chatID = upd.ChatID
	if s.chatID == 0 {
		s.chatID = upd.UserID
	}

	if isCancel(upd) {
		return w.cancel(ctx, s)
	}
	if strings.HasPrefix(upd.CallbackData, PrefixPublish) {
		return w.handlePublish(ctx, s, upd)
	}
	if s.state != StateIdle && ui.IsAdminMenuButton(upd.Text) {
		return w.reply(ctx, s, ui.FinishOrCancelFirst)
	}

	handler, ok := w.handlers[s.state]
	if !ok {
		// Every State has a handler; reaching this means the table is out of date.
		w.logger.Error("no handler for state", logging.String("state", s.state.String()))
		return w.cancel(ctx, s)
	}
	before := s.state
	err := handler(ctx, s, upd)
	if s.state != before {
		logging.WithContext(ctx, w.logger).Debug("admin state changed",
			logging.String("from", before.String()),
			logging.String("to", s.state.String()),
		)
	}
	return err
}

func (w *Workflow) session(adminID int64) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sessions[adminID]
	if !ok {
		s = &Session{}
		w.sessions[adminID] = s
	}
	return s
}

// ReleaseIdle returns every session untouched for SessionIdleTTL as of now to
// idle and reports how many were reset. Busy sessions are skipped.
func (w *Workflow) ReleaseIdle(now time.Time) int {
	return w.releaseIdle(0, now)
}

func (w *Workflow) releaseIdle(except int64, now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	released := 0
	for adminID, s := range w.sessions {
		if adminID == except || !s.mu.TryLock() {
			continue
		}
		if s.state != StateIdle && now.Sub(s.touched) >= SessionIdleTTL {
			w.logger.Info("abandoned admin workflow reset",
				logging.Int64("admin_id", adminID),
				logging.String("state", s.state.String()),
				logging.String("reserved", s.reserved),
			)
			w.reset(s)
			released++
		}
		s.mu.Unlock()
	}
	return released
}

func isCancel(upd messenger.Update) bool {
	if upd.Text == ui.BtnCancel {
		return true
	}
	name, _, ok := upd.Command()
	return ok && name == "cancel"
}

// cancel returns the session to idle. Anything already saved stays saved.
func (w *Workflow) cancel(ctx context.Context, s *Session) error {
	if s.state != StateIdle {
		metrics.AdminActions.WithLabelValues("cancel", metrics.ResultOK).Inc()
	}
	w.reset(s)
	return w.menu(ctx, s, ui.Cancelled)
}

func (w *Workflow) reset(s *Session) {
	if s.reserved != "" {
		w.alloc.Release(s.reserved)
	}
	s.clear()
}

// complete ends a successful workflow, noting a best-effort failure if any.
func (w *Workflow) complete(ctx context.Context, s *Session, text string, bestEffort error, note string) error {
	w.reset(s)
	if bestEffort != nil {
		text += "\n" + note
	}
	return w.menu(ctx, s, text)
}

func (w *Workflow) send(ctx context.Context, msg messenger.Message) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return w.msgr.Send(ctx, msg)
}

// reply sends text without touching the reply keyboard.
func (w *Workflow) reply(ctx context.Context, s *Session, text string) error {
	_, err := w.send(ctx, messenger.Message{ChatID: s.chatID, Text: text})
	return err
}

// prompt sends text and swaps the reply keyboard.
func (w *Workflow) prompt(ctx context.Context, s *Session, text string, menu [][]string) error {
	_, err := w.send(ctx, messenger.Message{ChatID: s.chatID, Text: text, Menu: menu})
	return err
}

// ask sends text with inline choices.
func (w *Workflow) ask(ctx context.Context, s *Session, text string, inline [][]messenger.Button) error {
	_, err := w.send(ctx, messenger.Message{ChatID: s.chatID, Text: text, Inline: inline})
	return err
}

// menu sends text with the idle admin keyboard.
func (w *Workflow) menu(ctx context.Context, s *Session, text string) error {
	return w.prompt(ctx, s, text, ui.AdminKeyboard())
}

// rejection is a user-correctable refusal carrying the re-prompt text.
type rejection struct {
	marker error
	text   string
}

func (r *rejection) Error() string { return r.marker.Error() + ": " + r.text }
func (r *rejection) Unwrap() error { return r.marker }

func reject(marker error, text string) error {
	return &rejection{marker: marker, text: text}
}

// fail re-prompts after err without changing state. Only a failed reply is returned.
func (w *Workflow) fail(ctx context.Context, s *Session, action string, err error) error {
	metrics.AdminActions.WithLabelValues(action, resultOf(err)).Inc()
	var rej *rejection
	switch {
	case errors.As(err, &rej):
		return w.reply(ctx, s, rej.text)
	case errors.Is(err, services.ErrNotFound):
		return w.reply(ctx, s, ui.CodeMissing(s.targetCode))
	case errors.Is(err, services.ErrDuplicate):
		return w.reply(ctx, s, ui.DuplicateMedia(""))
	case errors.Is(err, services.ErrMalformedInput):
		return w.reply(ctx, s, ui.InvalidCode)
	case errors.Is(err, services.ErrStorageUnwritable):
		// The store already logged and notified operators.
		return w.reply(ctx, s, ui.StorageFailure)
	default:
		logging.ErrorWithContext(logging.WithContext(ctx, w.logger), "admin action failed", "admin_action_failed",
			logging.String("action", action),
			logging.String("state", s.state.String()),
			logging.Error(err),
		)
		return w.reply(ctx, s, ui.GenericFailure)
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, services.ErrDuplicate):
		return metrics.ResultDuplicate
	case errors.Is(err, services.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, services.ErrMalformedInput):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}

func (w *Workflow) handleIdle(ctx context.Context, s *Session, upd messenger.Update) error {
	switch {
	case upd.Text == ui.BtnAddMovie:
		s.state = StateSingleAwaitPoster
		s.targetType = catalog.KindSingle
		return w.prompt(ctx, s, ui.AskPoster, ui.CancelKeyboard())
	case upd.Text == ui.BtnAddSeries:
		s.state = StateSeriesAwaitPoster
		s.targetType = catalog.KindSeries
		return w.prompt(ctx, s, ui.AskPoster, ui.CancelKeyboard())
	case upd.Text == ui.BtnEdit:
		s.state = StateEditSelectType
		if err := w.prompt(ctx, s, ui.BtnEdit, ui.CancelKeyboard()); err != nil {
			return err
		}
		return w.ask(ctx, s, ui.AskType, [][]messenger.Button{{
			{Text: ui.BtnTypeMovie, Data: typeData + string(catalog.KindSingle)},
			{Text: ui.BtnTypeSeries, Data: typeData + string(catalog.KindSeries)},
		}})
	case upd.Text == ui.BtnDelete:
		s.state = StateDeleteAwaitCode
		return w.prompt(ctx, s, ui.AskDeleteCode, ui.CancelKeyboard())
	case strings.HasPrefix(upd.CallbackData, PrefixAdmin):
		// A button from a finished or cancelled session.
		return w.menu(ctx, s, ui.AdminMenu)
	default:
		return ErrUnhandled
	}
}
