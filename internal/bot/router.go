package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"kinobot/internal/access"
	"kinobot/internal/admin"
	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/delivery"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
	"kinobot/internal/ui"
)

// Router dispatches updates. It is safe for concurrent use; ordering per
// user is the caller's responsibility.
type Router struct {
	cfg      *config.Config
	delivery *delivery.Service
	admin    *admin.Workflow
	gate     *access.Gate
	msgr     messenger.Messenger
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRouter wires the router.
func NewRouter(cfg *config.Config, svc *delivery.Service, wf *admin.Workflow, gate *access.Gate, msgr messenger.Messenger, logger *slog.Logger) *Router {
	return &Router{
		cfg:      cfg,
		delivery: svc,
		admin:    wf,
		gate:     gate,
		msgr:     msgr,
		timeout:  cfg.RequestTimeout(),
		logger:   logging.NewComponentLogger(logger, "router"),
	}
}

// Handle processes one update. Failures are reported to the user and logged;
// nothing is returned because there is no one upstream to handle them.
func (r *Router) Handle(ctx context.Context, upd messenger.Update) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	ctx = services.WithUserID(ctx, upd.UserID)
	ctx = services.WithUpdateID(ctx, upd.ID)
	if upd.ChatID == 0 {
		upd.ChatID = upd.UserID
	}
	metrics.Updates.WithLabelValues(upd.Kind()).Inc()
	logger := logging.WithContext(ctx, r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			metrics.UpdatePanics.Inc()
			logging.ErrorWithContext(logger, "update handler panicked", "update_panic",
				logging.String("panic", fmt.Sprint(rec)),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "report the stack trace; the bot keeps serving other updates"),
			)
		}
	}()

	var err error
	if upd.IsCallback() {
		err = r.handleCallback(ctx, upd)
	} else {
		err = r.handleMessage(ctx, upd)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "update handling failed", "update_failed",
			logging.String("kind", upd.Kind()),
			logging.Error(err),
		)
	}
}

func (r *Router) handleMessage(ctx context.Context, upd messenger.Update) error {
	if r.cfg.IsAdmin(upd.UserID) {
		err := r.admin.Handle(ctx, upd)
		if !errors.Is(err, admin.ErrUnhandled) {
			return err
		}
	}

	name, args, isCommand := upd.Command()
	text := strings.TrimSpace(upd.Text)
	switch {
	case isCommand && name == "start" && args == "":
		return r.welcome(ctx, upd)
	case isCommand && name == "start":
		return r.lookupInput(ctx, upd, args)
	case isCommand:
		return r.reply(ctx, upd.ChatID, ui.UsageHint)
	case text != "" && isDigits(text):
		return r.lookupInput(ctx, upd, text)
	default:
		return r.reply(ctx, upd.ChatID, ui.UsageHint)
	}
}

func (r *Router) welcome(ctx context.Context, upd messenger.Update) error {
	if r.cfg.IsAdmin(upd.UserID) {
		return r.send(ctx, messenger.Message{ChatID: upd.ChatID, Text: ui.AdminMenu, Menu: ui.AdminKeyboard()})
	}
	return r.send(ctx, messenger.Message{ChatID: upd.ChatID, Text: ui.Welcome, RemoveMenu: true})
}

// lookupInput answers a code typed by the user or carried by a deep link.
func (r *Router) lookupInput(ctx context.Context, upd messenger.Update, input string) error {
	if !isDigits(input) {
		return r.reply(ctx, upd.ChatID, ui.UsageHint)
	}
	code, ok := catalog.NormalizeCode(input)
	if !ok {
		metrics.Lookups.WithLabelValues("unknown", metrics.ResultNotFound).Inc()
		return r.reply(ctx, upd.ChatID, ui.NotFound)
	}
	return r.lookup(ctx, upd.UserID, upd.ChatID, code)
}

func (r *Router) lookup(ctx context.Context, userID, chatID int64, code string) error {
	err := r.delivery.Lookup(ctx, userID, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrNotEntitled):
		return r.delivery.JoinPrompt(ctx, userID, code)
	case errors.Is(err, services.ErrNotFound):
		return r.reply(ctx, chatID, ui.NotFound)
	default:
		if replyErr := r.reply(ctx, chatID, ui.GenericFailure); replyErr != nil {
			return errors.Join(err, replyErr)
		}
		return err
	}
}

func (r *Router) handleCallback(ctx context.Context, upd messenger.Update) (err error) {
	var answer string
	// Answered exactly once, even on panic.
	defer func() {
		if answerErr := r.answer(ctx, upd.CallbackID, answer); answerErr != nil {
			logging.WithContext(ctx, r.logger).Debug("callback answer failed", logging.Error(answerErr))
		}
	}()

	data := upd.CallbackData
	switch {
	case strings.HasPrefix(data, delivery.PrefixWatch):
		code, token, ok := delivery.ParseWatchData(data)
		if !ok {
			answer = ui.StaleControl
			return nil
		}
		answer, err = r.deliveryOutcome(services.WithCode(ctx, code), upd.UserID, code, r.delivery.Redeem(ctx, upd.UserID, code, token))
		return err
	case strings.HasPrefix(data, delivery.PrefixEpisode):
		code, n, ok := delivery.ParseEpisodeData(data)
		if !ok {
			answer = ui.StaleControl
			return nil
		}
		answer, err = r.deliveryOutcome(services.WithCode(ctx, code), upd.UserID, code, r.delivery.Episode(ctx, upd.UserID, code, n))
		return err
	case strings.HasPrefix(data, delivery.PrefixCheck):
		code, ok := delivery.ParseCheckData(data)
		if !ok {
			answer = ui.StaleControl
			return nil
		}
		answer, err = r.recheck(ctx, upd, code)
		return err
	case strings.HasPrefix(data, admin.PrefixAdmin), strings.HasPrefix(data, admin.PrefixPublish):
		if !r.cfg.IsAdmin(upd.UserID) {
			answer = ui.NotAllowed
			return nil
		}
		err = r.admin.Handle(ctx, upd)
		if errors.Is(err, admin.ErrUnhandled) {
			return nil
		}
		return err
	default:
		answer = ui.StaleControl
		return nil
	}
}

// deliveryOutcome maps a Redeem or Episode result to a callback answer.
func (r *Router) deliveryOutcome(ctx context.Context, userID int64, code string, err error) (string, error) {
	switch {
	case err == nil:
		return "", nil
	case errors.Is(err, services.ErrNotEntitled):
		return "", r.delivery.JoinPrompt(ctx, userID, code)
	case errors.Is(err, services.ErrStaleControl):
		return ui.StaleControl, nil
	case errors.Is(err, services.ErrNotFound):
		return ui.NotFound, nil
	default:
		return ui.GenericFailure, err
	}
}

// recheck handles the "I've joined" control: entitled users get the prompt
// removed and their pending code looked up.
func (r *Router) recheck(ctx context.Context, upd messenger.Update, code string) (string, error) {
	if !r.gate.IsEntitled(ctx, upd.UserID) {
		return ui.StillNotJoined, nil
	}
	if upd.MessageID != 0 {
		delCtx, cancel := context.WithTimeout(ctx, r.timeout)
		if err := r.msgr.Delete(delCtx, upd.ChatID, upd.MessageID); err != nil {
			logging.WithContext(ctx, r.logger).Debug("join prompt not removed", logging.Error(err))
		}
		cancel()
	}
	if code == "" {
		return ui.JoinConfirmed, nil
	}
	return ui.JoinConfirmed, r.lookup(services.WithCode(ctx, code), upd.UserID, upd.ChatID, code)
}

func (r *Router) send(ctx context.Context, msg messenger.Message) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	_, err := r.msgr.Send(ctx, msg)
	return err
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) error {
	return r.send(ctx, messenger.Message{ChatID: chatID, Text: text})
}

func (r *Router) answer(ctx context.Context, callbackID, text string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	return r.msgr.AnswerCallback(ctx, callbackID, text)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
