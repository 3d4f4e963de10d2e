package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"kinobot/internal/access"
	"kinobot/internal/config"
	"kinobot/internal/logging"
	"kinobot/internal/messenger"
	"kinobot/internal/services"
)

// botAPI is the subset of tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(c tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(c tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// maxRetryAfter caps how long a flood-control reply may stall one call.
const maxRetryAfter = 30 * time.Second

// Client talks to the Bot API.
type Client struct {
	api         botAPI
	limiter     *rate.Limiter
	pollTimeout int
	workers     int
	logger      *slog.Logger
}

var (
	_ messenger.Messenger = (*Client)(nil)
	_ access.Oracle       = (*Client)(nil)
)

// New logs in with the configured token.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger != nil {
		// The library logs through a package-level logger.
		_ = tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "login", "bot api rejected the token", err)
	}
	if cfg.Telegram.BotUsername != "" && api.Self.UserName != "" && api.Self.UserName != cfg.Telegram.BotUsername {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "telegram"), "configured bot username does not match the token", "telegram_username_mismatch",
			logging.String("configured", cfg.Telegram.BotUsername),
			logging.String("actual", api.Self.UserName),
			logging.String(logging.FieldErrorHint, "set telegram.bot_username to the bot's real username"),
			logging.String(logging.FieldImpact, "announcement deep links open the wrong bot"),
		)
	}
	return newClient(api, cfg, logger), nil
}

func newClient(api botAPI, cfg *config.Config, logger *slog.Logger) *Client {
	perSecond := cfg.Telegram.SendRate
	if perSecond <= 0 {
		perSecond = 25
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		api:         api,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), burst),
		pollTimeout: cfg.Telegram.PollTimeout,
		workers:     cfg.Telegram.Workers,
		logger:      logging.NewComponentLogger(logger, "telegram"),
	}
}

// call runs fn under the rate limiter and returns when fn finishes or ctx is
// done, whichever comes first. A flood-control reply is retried once after
// the delay the API asks for.
func call[T any](ctx context.Context, c *Client, method string, fn func() (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("telegram %s: %w", method, err)
		}
		type result struct {
			value T
			err   error
		}
		done := make(chan result, 1)
		go func() {
			value, err := fn()
			done <- result{value, err}
		}()

		var res result
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("telegram %s: %w", method, ctx.Err())
		case res = <-done:
		}
		if res.err == nil {
			return res.value, nil
		}

		delay, flood := retryAfter(res.err)
		if !flood || attempt > 0 || delay > maxRetryAfter {
			return zero, fmt.Errorf("telegram %s: %w", method, res.err)
		}
		c.logger.Debug("flood control; retrying",
			logging.String("method", method),
			logging.Duration("retry_after", delay),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("telegram %s: %w", method, ctx.Err())
		case <-timer.C:
		}
	}
}

func retryAfter(err error) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 {
		return 0, false
	}
	return time.Duration(apiErr.RetryAfter) * time.Second, true
}

func (c *Client) request(ctx context.Context, method string, cfg tgbotapi.Chattable) error {
	_, err := call(ctx, c, method, func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(cfg)
	})
	return err
}

// Send delivers msg and returns the new message id.
func (c *Client) Send(ctx context.Context, msg messenger.Message) (int, error) {
	var chattable tgbotapi.Chattable
	switch msg.Kind() {
	case "photo":
		photo := tgbotapi.NewPhoto(msg.ChatID, tgbotapi.FileID(msg.Photo))
		photo.Caption = msg.Caption
		photo.ReplyMarkup = replyMarkup(msg)
		chattable = photo
	case "video":
		video := tgbotapi.NewVideo(msg.ChatID, tgbotapi.FileID(msg.Video))
		video.Caption = msg.Caption
		video.ReplyMarkup = replyMarkup(msg)
		chattable = video
	default:
		text := tgbotapi.NewMessage(msg.ChatID, msg.Text)
		text.DisableWebPagePreview = true
		text.ReplyMarkup = replyMarkup(msg)
		chattable = text
	}
	sent, err := call(ctx, c, "send_"+msg.Kind(), func() (tgbotapi.Message, error) {
		return c.api.Send(chattable)
	})
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditCaption replaces the caption and inline controls of a media message.
func (c *Client) EditCaption(ctx context.Context, chatID int64, messageID int, caption string, inline [][]messenger.Button) error {
	edit := tgbotapi.NewEditMessageCaption(chatID, messageID, caption)
	edit.ReplyMarkup = inlineMarkup(inline)
	return c.request(ctx, "edit_caption", edit)
}

// EditPhoto replaces the photo, caption and controls of a photo message.
func (c *Client) EditPhoto(ctx context.Context, chatID int64, messageID int, photo, caption string, inline [][]messenger.Button) error {
	media := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(photo))
	media.Caption = caption
	edit := tgbotapi.EditMessageMediaConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:      chatID,
			MessageID:   messageID,
			ReplyMarkup: inlineMarkup(inline),
		},
		Media: media,
	}
	return c.request(ctx, "edit_photo", edit)
}

// EditText replaces the text and controls of a text message.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, inline [][]messenger.Button) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = inlineMarkup(inline)
	edit.DisableWebPagePreview = true
	return c.request(ctx, "edit_text", edit)
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	return c.request(ctx, "delete", tgbotapi.NewDeleteMessage(chatID, messageID))
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return c.request(ctx, "answer_callback", tgbotapi.NewCallback(callbackID, text))
}

// CheckMembership reports whether userID belongs to groupID.
func (c *Client) CheckMembership(ctx context.Context, userID, groupID int64) (access.Membership, error) {
	member, err := call(ctx, c, "get_chat_member", func() (tgbotapi.ChatMember, error) {
		return c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
			ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: groupID, UserID: userID},
		})
	})
	if err != nil {
		return access.Unknown, err
	}
	return membershipOf(member), nil
}

func membershipOf(member tgbotapi.ChatMember) access.Membership {
	switch member.Status {
	case "creator", "administrator", "member":
		return access.Member
	case "restricted":
		if member.IsMember {
			return access.Member
		}
		return access.NotMember
	case "left", "kicked":
		return access.NotMember
	default:
		return access.Unknown
	}
}

func inlineMarkup(rows [][]messenger.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(inlineRows(rows)...)
	return &markup
}

func inlineRows(rows [][]messenger.Button) [][]tgbotapi.InlineKeyboardButton {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		out = append(out, buttons)
	}
	return out
}

// replyMarkup picks the keyboard for an outbound message: inline controls
// take precedence over a reply keyboard change.
func replyMarkup(msg messenger.Message) any {
	switch {
	case len(msg.Inline) > 0:
		return tgbotapi.NewInlineKeyboardMarkup(inlineRows(msg.Inline)...)
	case len(msg.Menu) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(msg.Menu))
		for _, row := range msg.Menu {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		keyboard := tgbotapi.NewReplyKeyboard(rows...)
		keyboard.ResizeKeyboard = true
		return keyboard
	case msg.RemoveMenu:
		return tgbotapi.NewRemoveKeyboard(true)
	default:
		return nil
	}
}
