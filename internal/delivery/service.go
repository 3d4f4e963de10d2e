package delivery

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"kinobot/internal/access"
	"kinobot/internal/catalog"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
	"kinobot/internal/textutil"
	"kinobot/internal/tokens"
	"kinobot/internal/ui"
)

const episodesPerRow = 3

// Service implements the user-facing lookup and delivery paths.
type Service struct {
	store   *catalog.Store
	gate    *access.Gate
	tokens  *tokens.Registry
	msgr    messenger.Messenger
	timeout time.Duration
	logger  *slog.Logger
}

// NewService wires the delivery collaborators.
func NewService(store *catalog.Store, gate *access.Gate, registry *tokens.Registry, msgr messenger.Messenger, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:   store,
		gate:    gate,
		tokens:  registry,
		msgr:    msgr,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "delivery"),
	}
}

// Lookup answers userID's request for code with the entry's poster and controls.
func (s *Service) Lookup(ctx context.Context, userID int64, code string) error {
	ctx = services.WithCode(ctx, code)
	if err := s.gate.Check(ctx, userID); err != nil {
		metrics.Lookups.WithLabelValues("unknown", metrics.ResultNotEntitled).Inc()
		return err
	}
	entry, ok, err := s.store.Get(ctx, code)
	if err != nil {
		metrics.Lookups.WithLabelValues("unknown", metrics.ResultError).Inc()
		return err
	}
	if !ok || !entry.Complete() {
		// A failed lookup still counts as the most recent one.
		s.tokens.Supersede(userID)
		metrics.Lookups.WithLabelValues("unknown", metrics.ResultNotFound).Inc()
		return services.Wrap(services.ErrNotFound, "delivery", "lookup", "code "+code, nil)
	}

	msg := messenger.Message{ChatID: userID}
	caption := textutil.Render(entry.Caption, entry.Code)
	switch entry.Kind {
	case catalog.KindSingle:
		token, err := s.tokens.Issue(userID, entry.Code, entry.Video.Fingerprint)
		if err != nil {
			metrics.Lookups.WithLabelValues(string(entry.Kind), metrics.ResultError).Inc()
			return err
		}
		msg.Inline = [][]messenger.Button{{{Text: ui.BtnWatch, Data: WatchData(entry.Code, token)}}}
	case catalog.KindSeries:
		s.tokens.Supersede(userID)
		msg.Inline = episodeRows(entry)
		caption += "\n\n" + ui.ChooseEpisode
	}
	if entry.Poster != "" {
		msg.Photo = entry.Poster
		msg.Caption = caption
	} else {
		msg.Text = caption
	}

	if _, err := s.send(ctx, msg); err != nil {
		metrics.Lookups.WithLabelValues(string(entry.Kind), metrics.ResultError).Inc()
		return err
	}
	metrics.Lookups.WithLabelValues(string(entry.Kind), metrics.ResultOK).Inc()
	logging.WithContext(ctx, s.logger).Debug("lookup answered", logging.String("kind", string(entry.Kind)))
	return nil
}

// Redeem delivers a single item's video for a Watch control.
func (s *Service) Redeem(ctx context.Context, userID int64, code, token string) error {
	ctx = services.WithCode(ctx, code)
	entry, ok, err := s.store.Get(ctx, code)
	if err != nil {
		metrics.Deliveries.WithLabelValues("single", metrics.ResultError).Inc()
		return err
	}
	if !ok || entry.Kind != catalog.KindSingle || entry.Video == nil {
		s.tokens.Revoke(userID, code)
		metrics.Deliveries.WithLabelValues("single", metrics.ResultNotFound).Inc()
		return services.Wrap(services.ErrNotFound, "delivery", "redeem", "code "+code, nil)
	}
	media, err := s.tokens.Check(userID, code, token)
	if err != nil {
		metrics.Deliveries.WithLabelValues("single", metrics.ResultStale).Inc()
		return err
	}
	if media != entry.Video.Fingerprint {
		// The code was deleted and reused, or its video replaced, since the lookup.
		s.tokens.Revoke(userID, code)
		metrics.Deliveries.WithLabelValues("single", metrics.ResultNotFound).Inc()
		return services.Wrap(services.ErrNotFound, "delivery", "redeem", "code "+code+" content changed", nil)
	}
	if err := s.gate.Check(ctx, userID); err != nil {
		metrics.Deliveries.WithLabelValues("single", metrics.ResultNotEntitled).Inc()
		return err
	}
	claim, err := s.tokens.Consume(userID, code, token)
	if err != nil {
		metrics.Deliveries.WithLabelValues("single", metrics.ResultStale).Inc()
		return err
	}

	msg := messenger.Message{
		ChatID:  userID,
		Video:   entry.Video.Ref,
		Caption: textutil.Render(entry.Caption, entry.Code),
	}
	if _, err := s.send(ctx, msg); err != nil {
		restored := s.tokens.Restore(claim)
		metrics.Deliveries.WithLabelValues("single", metrics.ResultError).Inc()
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "video delivery failed", "delivery_failed",
			logging.Error(err),
			logging.Bool("token_restored", restored),
			logging.String(logging.FieldErrorHint, "check the stored media reference is still valid"),
			logging.String(logging.FieldImpact, "user can press Watch again"),
		)
		return err
	}
	metrics.Deliveries.WithLabelValues("single", metrics.ResultOK).Inc()
	return nil
}

// Episode delivers one series episode. Episode controls are repeatable, so
// no token is involved, but the gate is checked on every press.
func (s *Service) Episode(ctx context.Context, userID int64, code string, n int) error {
	ctx = services.WithCode(ctx, code)
	if err := s.gate.Check(ctx, userID); err != nil {
		metrics.Deliveries.WithLabelValues("episode", metrics.ResultNotEntitled).Inc()
		return err
	}
	entry, ok, err := s.store.Get(ctx, code)
	if err != nil {
		metrics.Deliveries.WithLabelValues("episode", metrics.ResultError).Inc()
		return err
	}
	var episode catalog.Episode
	if ok && entry.Kind == catalog.KindSeries {
		episode, ok = entry.Episodes[n]
	} else {
		ok = false
	}
	if !ok {
		metrics.Deliveries.WithLabelValues("episode", metrics.ResultNotFound).Inc()
		return services.Wrap(services.ErrNotFound, "delivery", "episode", "code "+code+" episode "+strconv.Itoa(n), nil)
	}

	msg := messenger.Message{
		ChatID:  userID,
		Video:   episode.Ref,
		Caption: ui.EpisodeCaption(entry.Title(), n, episode.Title),
	}
	if _, err := s.send(ctx, msg); err != nil {
		metrics.Deliveries.WithLabelValues("episode", metrics.ResultError).Inc()
		return err
	}
	metrics.Deliveries.WithLabelValues("episode", metrics.ResultOK).Inc()
	return nil
}

// JoinPrompt sends the subscribe buttons plus a check control that resumes code.
func (s *Service) JoinPrompt(ctx context.Context, userID int64, code string) error {
	var rows [][]messenger.Button
	for i, group := range s.gate.JoinLinks() {
		rows = append(rows, []messenger.Button{{Text: ui.JoinButton(i + 1), URL: group.Link}})
	}
	rows = append(rows, []messenger.Button{{Text: ui.BtnCheck, Data: CheckData(code)}})
	_, err := s.send(ctx, messenger.Message{ChatID: userID, Text: ui.JoinPrompt, Inline: rows})
	return err
}

func (s *Service) send(ctx context.Context, msg messenger.Message) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.msgr.Send(ctx, msg)
}

func episodeRows(entry catalog.Entry) [][]messenger.Button {
	var rows [][]messenger.Button
	var row []messenger.Button
	for _, n := range entry.EpisodeNumbers() {
		row = append(row, messenger.Button{Text: ui.EpisodeButton(n), Data: EpisodeData(entry.Code, n)})
		if len(row) == episodesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}
