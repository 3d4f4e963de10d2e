package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kinobot/internal/logging"
	"kinobot/internal/messenger"
)

// queueDepth bounds the backlog of one worker before polling blocks.
const queueDepth = 64

// Handler processes one inbound update.
type Handler func(ctx context.Context, upd messenger.Update)

// Run long-polls for updates until ctx is cancelled. Updates already queued
// when ctx ends are still handled before Run returns.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = c.pollTimeout
	updateCfg.AllowedUpdates = []string{"message", "callback_query"}
	updates := c.api.GetUpdatesChan(updateCfg)

	workers := newPool(c.workers, handle)
	workers.start(context.WithoutCancel(ctx))
	defer workers.stop()

	c.logger.Info("polling for updates",
		logging.Int("workers", len(workers.queues)),
		logging.Int("poll_timeout", c.pollTimeout),
	)
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			c.logger.Info("update polling stopped")
			return nil
		case raw, ok := <-updates:
			if !ok {
				return nil
			}
			upd, ok := convertUpdate(raw)
			if !ok {
				c.logger.Debug("ignoring update", logging.Int("update_id", raw.UpdateID))
				continue
			}
			if !workers.submit(ctx, upd) {
				c.api.StopReceivingUpdates()
				return nil
			}
		}
	}
}

// convertUpdate maps private-chat messages and callback queries; everything
// else is ignored.
func convertUpdate(raw tgbotapi.Update) (messenger.Update, bool) {
	upd := messenger.Update{ID: raw.UpdateID}
	switch {
	case raw.CallbackQuery != nil:
		cb := raw.CallbackQuery
		if cb.From == nil {
			return upd, false
		}
		upd.UserID = cb.From.ID
		upd.ChatID = cb.From.ID
		upd.CallbackID = cb.ID
		upd.CallbackData = cb.Data
		if cb.Message != nil {
			upd.MessageID = cb.Message.MessageID
			if cb.Message.Chat != nil {
				upd.ChatID = cb.Message.Chat.ID
			}
		}
		return upd, true
	case raw.Message != nil:
		msg := raw.Message
		if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
			return upd, false
		}
		upd.UserID = msg.From.ID
		upd.ChatID = msg.Chat.ID
		upd.MessageID = msg.MessageID
		upd.Text = msg.Text
		upd.Caption = msg.Caption
		if n := len(msg.Photo); n > 0 {
			// Sizes are ordered smallest first.
			upd.Photo = msg.Photo[n-1].FileID
		}
		if msg.Video != nil {
			upd.Video = &messenger.Video{FileID: msg.Video.FileID, UniqueID: msg.Video.FileUniqueID}
		}
		return upd, true
	default:
		return upd, false
	}
}

// pool runs handlers on a fixed set of workers. Updates of one user always
// land on the same worker.
type pool struct {
	queues []chan messenger.Update
	handle Handler
	wg     sync.WaitGroup
}

func newPool(workers int, handle Handler) *pool {
	if workers < 1 {
		workers = 1
	}
	p := &pool{queues: make([]chan messenger.Update, workers), handle: handle}
	for i := range p.queues {
		p.queues[i] = make(chan messenger.Update, queueDepth)
	}
	return p
}

func (p *pool) start(ctx context.Context) {
	p.wg.Add(len(p.queues))
	for _, queue := range p.queues {
		go func(queue <-chan messenger.Update) {
			defer p.wg.Done()
			for upd := range queue {
				p.handle(ctx, upd)
			}
		}(queue)
	}
}

func (p *pool) slot(userID int64) int {
	return int(uint64(userID) % uint64(len(p.queues)))
}

// submit queues upd, blocking while its worker is busy. It returns false if
// ctx ends first.
func (p *pool) submit(ctx context.Context, upd messenger.Update) bool {
	select {
	case p.queues[p.slot(upd.UserID)] <- upd:
		return true
	case <-ctx.Done():
		return false
	}
}

// stop drains the queues and waits for the workers.
func (p *pool) stop() {
	for _, queue := range p.queues {
		close(queue)
	}
	p.wg.Wait()
}
