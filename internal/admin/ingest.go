package admin

import (
	"context"
	"errors"

	"kinobot/internal/catalog"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
	"kinobot/internal/textutil"
	"kinobot/internal/ui"
)

func mediaOf(v *messenger.Video) catalog.Media {
	fp := v.UniqueID
	if fp == "" {
		fp = v.FileID
	}
	return catalog.Media{Ref: v.FileID, Fingerprint: fp}
}

// handlePoster starts an ingest: the poster is accepted, a code reserved and
// the draft created.
func (w *Workflow) handlePoster(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Photo == "" {
		return w.reply(ctx, s, ui.NeedPhoto)
	}
	body := textutil.StripTrailers(upd.Caption)
	if body == "" {
		return w.reply(ctx, s, ui.NeedCaption)
	}
	code, err := w.store.AllocateCode(ctx, w.alloc)
	if err != nil {
		return w.fail(ctx, s, "allocate", err)
	}
	s.reserved = code
	s.draft = catalog.Entry{Code: code, Kind: s.targetType, Poster: upd.Photo, Caption: body}

	if s.targetType == catalog.KindSeries {
		s.draft.Episodes = make(map[int]catalog.Episode)
		s.state = StateSeriesCollectEpisodes
		return w.prompt(ctx, s, ui.CodeReserved(code)+"\n"+ui.AskEpisodes, ui.CollectKeyboard())
	}
	s.state = StateSingleAwaitVideo
	return w.prompt(ctx, s, ui.CodeReserved(code)+"\n"+ui.AskVideo, ui.CancelKeyboard())
}

func (w *Workflow) handleSingleVideo(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Video == nil {
		return w.reply(ctx, s, ui.NeedVideo)
	}
	media := mediaOf(upd.Video)
	if err := w.checkNewMedia(ctx, media.Fingerprint); err != nil {
		return w.fail(ctx, s, "ingest_single", err)
	}
	s.draft.Video = &media
	if err := w.insert(ctx, s); err != nil {
		s.draft.Video = nil
		return w.fail(ctx, s, "ingest_single", err)
	}
	return w.saved(ctx, s, "ingest_single")
}

func (w *Workflow) handleCollectEpisodes(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Text == ui.BtnFinish {
		if len(s.draft.Episodes) == 0 {
			return w.reply(ctx, s, ui.NoEpisodesYet)
		}
		if err := w.insert(ctx, s); err != nil {
			return w.fail(ctx, s, "ingest_series", err)
		}
		return w.saved(ctx, s, "ingest_series")
	}
	if upd.Video == nil {
		return w.reply(ctx, s, ui.NeedEpisodeVideo)
	}
	n, title, err := parseEpisode(upd.Caption)
	if err != nil {
		return w.fail(ctx, s, "episode", err)
	}
	if _, exists := s.draft.Episodes[n]; exists {
		return w.fail(ctx, s, "episode", reject(services.ErrDuplicate, ui.EpisodeTaken(n)))
	}
	media := mediaOf(upd.Video)
	for _, ep := range s.draft.Episodes {
		if ep.Fingerprint == media.Fingerprint {
			return w.fail(ctx, s, "episode", reject(services.ErrDuplicate, ui.DuplicateMedia(s.draft.Code)))
		}
	}
	if err := w.checkNewMedia(ctx, media.Fingerprint); err != nil {
		return w.fail(ctx, s, "episode", err)
	}
	s.draft.Episodes[n] = catalog.Episode{Media: media, Title: title}
	metrics.AdminActions.WithLabelValues("episode", metrics.ResultOK).Inc()
	return w.reply(ctx, s, ui.EpisodeAdded(n, len(s.draft.Episodes)))
}

// parseEpisode applies the episode caption rule and turns failures into re-prompts.
func parseEpisode(caption string) (int, string, error) {
	n, title, err := textutil.ParseEpisode(caption)
	switch {
	case errors.Is(err, textutil.ErrEpisodeNumberRange):
		return 0, "", reject(services.ErrMalformedInput, ui.EpisodeRange)
	case err != nil:
		return 0, "", reject(services.ErrMalformedInput, ui.NoEpisodeNumber)
	}
	return n, title, nil
}

// checkNewMedia rejects a fingerprint that is already catalogued. The store
// repeats the check atomically on write; this one names the owning code.
func (w *Workflow) checkNewMedia(ctx context.Context, fingerprint string) error {
	slot, found, err := w.store.FindMedia(ctx, fingerprint)
	if err != nil {
		return err
	}
	if found {
		return reject(services.ErrDuplicate, ui.DuplicateMedia(slot.Code))
	}
	return nil
}

// insert stores the draft, moving it to a fresh code if its reservation was
// taken outside the workflow (for example by an import).
func (w *Workflow) insert(ctx context.Context, s *Session) error {
	err := w.store.Insert(ctx, s.draft)
	if errors.Is(err, catalog.ErrCodeTaken) {
		code, allocErr := w.store.AllocateCode(ctx, w.alloc)
		if allocErr != nil {
			return allocErr
		}
		w.alloc.Release(s.reserved)
		s.reserved = code
		s.draft.Code = code
		err = w.store.Insert(ctx, s.draft)
	}
	return err
}

// saved ends an ingest and offers to publish the new entry.
func (w *Workflow) saved(ctx context.Context, s *Session, action string) error {
	code := s.draft.Code
	metrics.AdminActions.WithLabelValues(action, metrics.ResultOK).Inc()
	w.logger.Info("catalog entry saved",
		logging.String(logging.FieldCode, code),
		logging.String("kind", string(s.draft.Kind)),
		logging.Int("episodes", len(s.draft.Episodes)),
		logging.String(logging.FieldEventType, "admin_entry_saved"),
	)
	w.reset(s)
	if err := w.menu(ctx, s, ui.AdminMenu); err != nil {
		return err
	}
	return w.ask(ctx, s, ui.Saved(code), publishButtons(code))
}

func publishButtons(code string) [][]messenger.Button {
	return [][]messenger.Button{{
		{Text: ui.BtnPublish, Data: PrefixPublish + code},
		{Text: ui.BtnSkip, Data: skipData + code},
	}}
}

// handlePublish answers the controls on a saved confirmation. It works in
// any state and never changes it.
func (w *Workflow) handlePublish(ctx context.Context, s *Session, upd messenger.Update) error {
	data := upd.CallbackData
	if code, ok := cutCode(data, skipData); ok {
		return w.editOrReply(ctx, s, upd.MessageID, ui.PublishSkipped(code))
	}
	code, ok := cutCode(data, PrefixPublish)
	if !ok {
		return nil
	}

	_, err := w.mirror.Publish(ctx, code)
	metrics.AdminActions.WithLabelValues("publish", resultOf(err)).Inc()
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, w.logger), "publish refused or failed", "publish_failed",
			logging.String(logging.FieldCode, code),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the announcement channel id and bot permissions"),
			logging.String(logging.FieldImpact, "entry is in the catalog but not announced"),
		)
		return w.editOrReply(ctx, s, upd.MessageID, ui.PublishFailed(code, publishReason(err)))
	}
	return w.editOrReply(ctx, s, upd.MessageID, ui.Published(code))
}

func publishReason(err error) string {
	switch {
	case errors.Is(err, services.ErrDuplicate):
		return "it is already published."
	case errors.Is(err, services.ErrNotFound):
		return "it no longer exists."
	case errors.Is(err, services.ErrMalformedInput):
		return "it has no video yet."
	default:
		return "the channel rejected the post."
	}
}

func cutCode(data, prefix string) (string, bool) {
	if len(data) <= len(prefix) || data[:len(prefix)] != prefix {
		return "", false
	}
	code := data[len(prefix):]
	return code, catalog.ValidCode(code)
}

// editOrReply replaces the text of the message carrying the pressed control,
// falling back to a new message.
func (w *Workflow) editOrReply(ctx context.Context, s *Session, messageID int, text string) error {
	if messageID != 0 {
		editCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.msgr.EditText(editCtx, s.chatID, messageID, text, nil)
		cancel()
		if err == nil {
			return nil
		}
		w.logger.Debug("edit of control message failed; replying instead", logging.Error(err))
	}
	return w.reply(ctx, s, text)
}

func kindLabel(kind catalog.Kind) string {
	if kind == catalog.KindSeries {
		return "series"
	}
	return "movie"
}
