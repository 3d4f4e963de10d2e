package admin

import (
	"context"
	"strings"

	"kinobot/internal/announce"
	"kinobot/internal/catalog"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
	"kinobot/internal/textutil"
	"kinobot/internal/ui"
)

var actionLabels = map[Action]string{
	ActionPoster:         ui.ActPoster,
	ActionCaption:        ui.ActCaption,
	ActionVideo:          ui.ActVideo,
	ActionAddEpisode:     ui.ActAddEpisode,
	ActionReplaceEpisode: ui.ActReplaceEpisode,
	ActionDeleteEpisode:  ui.ActDeleteEpisode,
}

var actionPrompts = map[Action]string{
	ActionPoster:         ui.AskNewPoster,
	ActionCaption:        ui.AskNewCaption,
	ActionVideo:          ui.AskNewVideo,
	ActionAddEpisode:     ui.AskAddEpisode,
	ActionReplaceEpisode: ui.AskReplaceEp,
	ActionDeleteEpisode:  ui.AskDeleteEp,
}

func (w *Workflow) handleSelectType(ctx context.Context, s *Session, upd messenger.Update) error {
	kind := catalog.Kind(strings.TrimPrefix(upd.CallbackData, typeData))
	if !strings.HasPrefix(upd.CallbackData, typeData) || (kind != catalog.KindSingle && kind != catalog.KindSeries) {
		return w.reply(ctx, s, ui.ChooseType)
	}
	s.targetType = kind
	s.state = StateEditSelectCode
	return w.reply(ctx, s, ui.AskCode)
}

func (w *Workflow) handleSelectCode(ctx context.Context, s *Session, upd messenger.Update) error {
	code, ok := catalog.NormalizeCode(upd.Text)
	if !ok {
		return w.reply(ctx, s, ui.InvalidCode)
	}
	entry, found, err := w.store.Get(ctx, code)
	if err != nil {
		return w.fail(ctx, s, "edit", err)
	}
	if !found {
		return w.reply(ctx, s, ui.CodeMissing(code))
	}
	if entry.Kind != s.targetType {
		return w.reply(ctx, s, ui.WrongType(code, kindLabel(entry.Kind)))
	}
	s.targetCode = code
	s.state = StateEditSelectAction

	var rows [][]messenger.Button
	for _, action := range actionsFor(entry.Kind) {
		rows = append(rows, []messenger.Button{{Text: actionLabels[action], Data: actionData + string(action)}})
	}
	return w.ask(ctx, s, ui.AskAction, rows)
}

func (w *Workflow) handleSelectAction(ctx context.Context, s *Session, upd messenger.Update) error {
	if !strings.HasPrefix(upd.CallbackData, actionData) {
		return w.reply(ctx, s, ui.ChooseAction)
	}
	action := Action(strings.TrimPrefix(upd.CallbackData, actionData))
	if !actionAllowed(s.targetType, action) {
		return w.reply(ctx, s, ui.ChooseAction)
	}
	s.pending = action
	s.state = StateEditAwaitPayload
	return w.reply(ctx, s, actionPrompts[action])
}

func (w *Workflow) handlePayload(ctx context.Context, s *Session, upd messenger.Update) error {
	switch s.pending {
	case ActionPoster:
		return w.editPoster(ctx, s, upd)
	case ActionCaption:
		return w.editCaption(ctx, s, upd)
	case ActionVideo:
		return w.editVideo(ctx, s, upd)
	case ActionAddEpisode:
		return w.addEpisode(ctx, s, upd)
	case ActionReplaceEpisode:
		return w.replaceEpisode(ctx, s, upd)
	case ActionDeleteEpisode:
		return w.deleteEpisode(ctx, s, upd)
	default:
		s.state = StateEditSelectAction
		return w.reply(ctx, s, ui.ChooseAction)
	}
}

// edited finishes a successful edit.
func (w *Workflow) edited(ctx context.Context, s *Session, text string, refreshErr error) error {
	metrics.AdminActions.WithLabelValues(string(s.pending), metrics.ResultOK).Inc()
	w.logger.Info("catalog entry edited",
		logging.String(logging.FieldCode, s.targetCode),
		logging.String("action", string(s.pending)),
		logging.String(logging.FieldEventType, "admin_entry_edited"),
	)
	return w.complete(ctx, s, text, refreshErr, ui.ChannelNotUpdated)
}

func (w *Workflow) editPoster(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Photo == "" {
		return w.reply(ctx, s, ui.NeedPhoto)
	}
	body := textutil.StripTrailers(upd.Caption)
	entry, err := w.store.Update(ctx, s.targetCode, func(e *catalog.Entry, _ catalog.Index) error {
		e.Poster = upd.Photo
		if body != "" {
			e.Caption = body
		}
		return nil
	})
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	return w.edited(ctx, s, ui.Updated(s.targetCode), w.mirror.Refresh(ctx, entry, true))
}

func (w *Workflow) editCaption(ctx context.Context, s *Session, upd messenger.Update) error {
	body := textutil.StripTrailers(upd.Text)
	if upd.Text == "" || body == "" {
		return w.reply(ctx, s, ui.NeedText)
	}
	entry, err := w.store.Update(ctx, s.targetCode, func(e *catalog.Entry, _ catalog.Index) error {
		e.Caption = body
		return nil
	})
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	return w.edited(ctx, s, ui.CaptionUpdated(entry.Code, announce.Caption(entry)), w.mirror.Refresh(ctx, entry, false))
}

func (w *Workflow) editVideo(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Video == nil {
		return w.reply(ctx, s, ui.NeedVideo)
	}
	media := mediaOf(upd.Video)
	_, err := w.store.Update(ctx, s.targetCode, func(e *catalog.Entry, ix catalog.Index) error {
		if e.Kind != catalog.KindSingle {
			return reject(services.ErrMalformedInput, ui.WrongType(e.Code, kindLabel(e.Kind)))
		}
		if ix.ExistsExcept(media.Fingerprint, catalog.Slot{Code: e.Code}) {
			slot, _ := ix.Find(media.Fingerprint)
			return reject(services.ErrDuplicate, ui.DuplicateMedia(slot.Code))
		}
		e.Video = &media
		return nil
	})
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	return w.edited(ctx, s, ui.Updated(s.targetCode), nil)
}

func (w *Workflow) addEpisode(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Video == nil {
		return w.reply(ctx, s, ui.NeedEpisodeVideo)
	}
	n, title, err := parseEpisode(upd.Caption)
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	media := mediaOf(upd.Video)
	_, err = w.store.Update(ctx, s.targetCode, func(e *catalog.Entry, ix catalog.Index) error {
		if _, exists := e.Episodes[n]; exists {
			return reject(services.ErrDuplicate, ui.EpisodeTaken(n))
		}
		if slot, found := ix.Find(media.Fingerprint); found {
			return reject(services.ErrDuplicate, ui.DuplicateMedia(slot.Code))
		}
		e.Episodes[n] = catalog.Episode{Media: media, Title: title}
		return nil
	})
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	return w.edited(ctx, s, ui.Updated(s.targetCode), nil)
}

func (w *Workflow) replaceEpisode(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Video == nil {
		return w.reply(ctx, s, ui.NeedEpisodeVideo)
	}
	n, title, err := parseEpisode(upd.Caption)
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	media := mediaOf(upd.Video)
	_, err = w.store.Update(ctx, s.targetCode, func(e *catalog.Entry, ix catalog.Index) error {
		episode, exists := e.Episodes[n]
		if !exists {
			return reject(services.ErrNotFound, ui.EpisodeMissing(n))
		}
		if ix.ExistsExcept(media.Fingerprint, catalog.Slot{Code: e.Code, Episode: n}) {
			slot, _ := ix.Find(media.Fingerprint)
			return reject(services.ErrDuplicate, ui.DuplicateMedia(slot.Code))
		}
		episode.Media = media
		if title != "" {
			episode.Title = title
		}
		e.Episodes[n] = episode
		return nil
	})
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	return w.edited(ctx, s, ui.Updated(s.targetCode), nil)
}

func (w *Workflow) deleteEpisode(ctx context.Context, s *Session, upd messenger.Update) error {
	if upd.Text == "" {
		return w.reply(ctx, s, ui.NeedText)
	}
	n, _, err := parseEpisode(upd.Text)
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	_, err = w.store.Update(ctx, s.targetCode, func(e *catalog.Entry, _ catalog.Index) error {
		if _, exists := e.Episodes[n]; !exists {
			return reject(services.ErrNotFound, ui.EpisodeMissing(n))
		}
		if len(e.Episodes) == 1 {
			return reject(services.ErrMalformedInput, ui.LastEpisode)
		}
		delete(e.Episodes, n)
		return nil
	})
	if err != nil {
		return w.fail(ctx, s, string(s.pending), err)
	}
	return w.edited(ctx, s, ui.Updated(s.targetCode), nil)
}

func (w *Workflow) handleDeleteCode(ctx context.Context, s *Session, upd messenger.Update) error {
	code, ok := catalog.NormalizeCode(upd.Text)
	if !ok {
		return w.reply(ctx, s, ui.InvalidCode)
	}
	s.targetCode = code
	removed, err := w.store.Delete(ctx, code)
	if err != nil {
		return w.fail(ctx, s, "delete", err)
	}
	metrics.AdminActions.WithLabelValues("delete", metrics.ResultOK).Inc()
	w.logger.Info("catalog entry deleted",
		logging.String(logging.FieldCode, code),
		logging.Bool("was_published", removed.Published()),
		logging.String(logging.FieldEventType, "admin_entry_deleted"),
	)
	return w.complete(ctx, s, ui.Deleted(code), w.mirror.Retract(ctx, removed), ui.ChannelNotRemoved)
}
