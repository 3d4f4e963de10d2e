package announce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kinobot/internal/catalog"
	"kinobot/internal/config"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
	"kinobot/internal/textutil"
	"kinobot/internal/ui"
)

var (
	// ErrAlreadyPublished is joined with services.ErrDuplicate.
	ErrAlreadyPublished = errors.New("entry already published")
	// ErrIncomplete is joined with services.ErrMalformedInput.
	ErrIncomplete = errors.New("entry has no media to announce")
)

// Mirror publishes, refreshes and retracts announcement posts.
type Mirror struct {
	store     *catalog.Store
	msgr      messenger.Messenger
	channelID int64
	bot       string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewMirror builds a mirror for the configured announcement channel.
func NewMirror(cfg *config.Config, store *catalog.Store, msgr messenger.Messenger, logger *slog.Logger) *Mirror {
	return &Mirror{
		store:     store,
		msgr:      msgr,
		channelID: cfg.Announce.ChannelID,
		bot:       cfg.Telegram.BotUsername,
		timeout:   cfg.RequestTimeout(),
		logger:    logging.NewComponentLogger(logger, "announce"),
	}
}

// DeepLink is the URL that opens the bot with a lookup for code.
func (m *Mirror) DeepLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", m.bot, code)
}

// Caption renders the channel caption for entry.
func Caption(entry catalog.Entry) string {
	return textutil.Render(entry.Caption, entry.Code)
}

func (m *Mirror) controls(code string) [][]messenger.Button {
	return [][]messenger.Button{{{Text: ui.BtnWatchBot, URL: m.DeepLink(code)}}}
}

// Publish posts the entry for code and records the channel message id.
func (m *Mirror) Publish(ctx context.Context, code string) (catalog.Entry, error) {
	entry, ok, err := m.store.Get(ctx, code)
	if err != nil {
		return catalog.Entry{}, err
	}
	if !ok {
		return catalog.Entry{}, services.Wrap(services.ErrNotFound, "announce", "publish", "code "+code, nil)
	}
	if !entry.Complete() {
		return entry, services.Wrap(services.ErrMalformedInput, "announce", "publish", "code "+code, ErrIncomplete)
	}
	if entry.Published() {
		return entry, services.Wrap(services.ErrDuplicate, "announce", "publish", "code "+code, ErrAlreadyPublished)
	}

	msg := messenger.Message{ChatID: m.channelID, Inline: m.controls(code)}
	if entry.Poster != "" {
		msg.Photo = entry.Poster
		msg.Caption = Caption(entry)
	} else {
		msg.Text = Caption(entry)
	}

	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	messageID, err := m.msgr.Send(sendCtx, msg)
	cancel()
	if err != nil {
		metrics.AnnouncementOps.WithLabelValues("publish", metrics.ResultError).Inc()
		return entry, services.Wrap(services.ErrBestEffort, "announce", "publish", "send to channel", err)
	}

	updated, err := m.store.Update(ctx, code, func(e *catalog.Entry, _ catalog.Index) error {
		if e.Published() {
			return services.Wrap(services.ErrDuplicate, "announce", "publish", "code "+code, ErrAlreadyPublished)
		}
		e.Announcement = messageID
		return nil
	})
	if err != nil {
		// The post went out but cannot be linked; take it down again.
		m.retractMessage(ctx, code, messageID, "publish_rollback")
		metrics.AnnouncementOps.WithLabelValues("publish", metrics.ResultError).Inc()
		return entry, err
	}
	metrics.AnnouncementOps.WithLabelValues("publish", metrics.ResultOK).Inc()
	m.logger.Info("entry published",
		logging.String(logging.FieldCode, code),
		logging.Int("message_id", messageID),
		logging.String(logging.FieldEventType, "announcement_published"),
	)
	return updated, nil
}

// Refresh edits the channel post after the entry changed. posterChanged
// selects a media edit instead of a caption edit.
func (m *Mirror) Refresh(ctx context.Context, entry catalog.Entry, posterChanged bool) error {
	if !entry.Published() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	caption := Caption(entry)
	var err error
	switch {
	case posterChanged && entry.Poster != "":
		err = m.msgr.EditPhoto(ctx, m.channelID, entry.Announcement, entry.Poster, caption, m.controls(entry.Code))
	case entry.Poster == "":
		err = m.msgr.EditText(ctx, m.channelID, entry.Announcement, caption, m.controls(entry.Code))
	default:
		err = m.msgr.EditCaption(ctx, m.channelID, entry.Announcement, caption, m.controls(entry.Code))
	}
	if err != nil {
		metrics.AnnouncementOps.WithLabelValues("refresh", metrics.ResultError).Inc()
		wrapped := services.Wrap(services.ErrBestEffort, "announce", "refresh", "code "+entry.Code, err)
		logging.WarnWithContext(m.logger, "announcement refresh failed", "announcement_refresh_failed",
			logging.String(logging.FieldCode, entry.Code),
			logging.Int("message_id", entry.Announcement),
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "check the bot can still edit posts in the announcement channel"),
			logging.String(logging.FieldImpact, "channel post shows the previous poster or caption"),
		)
		return wrapped
	}
	metrics.AnnouncementOps.WithLabelValues("refresh", metrics.ResultOK).Inc()
	return nil
}

// Retract deletes the channel post of a removed entry.
func (m *Mirror) Retract(ctx context.Context, entry catalog.Entry) error {
	if !entry.Published() {
		return nil
	}
	return m.retractMessage(ctx, entry.Code, entry.Announcement, "retract")
}

func (m *Mirror) retractMessage(ctx context.Context, code string, messageID int, op string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.msgr.Delete(ctx, m.channelID, messageID); err != nil {
		metrics.AnnouncementOps.WithLabelValues(op, metrics.ResultError).Inc()
		wrapped := services.Wrap(services.ErrBestEffort, "announce", op, "code "+code, err)
		logging.WarnWithContext(m.logger, "announcement retraction failed", "announcement_retract_failed",
			logging.String(logging.FieldCode, code),
			logging.Int("message_id", messageID),
			logging.Error(wrapped),
			logging.String(logging.FieldErrorHint, "delete the channel post manually"),
			logging.String(logging.FieldImpact, "a stale post remains in the channel"),
		)
		return wrapped
	}
	metrics.AnnouncementOps.WithLabelValues(op, metrics.ResultOK).Inc()
	return nil
}
