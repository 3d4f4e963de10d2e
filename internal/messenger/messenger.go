package messenger

import (
	"context"
	"strings"
)

// Button is an inline control. Exactly one of Data or URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Message is an outbound message. Photo or Video select a media message with
// Caption; otherwise Text is sent.
type Message struct {
	ChatID  int64
	Text    string
	Photo   string
	Video   string
	Caption string

	// Inline attaches buttons to the message itself.
	Inline [][]Button
	// Menu replaces the user's reply keyboard.
	Menu [][]string
	// RemoveMenu hides the reply keyboard.
	RemoveMenu bool
}

// Kind names the message shape for logs and metrics.
func (m Message) Kind() string {
	switch {
	case m.Photo != "":
		return "photo"
	case m.Video != "":
		return "video"
	default:
		return "text"
	}
}

// Video is an uploaded video. FileID is the delivery handle; UniqueID is the
// platform's stable content identity.
type Video struct {
	FileID   string
	UniqueID string
}

// Update is one inbound event from a user.
type Update struct {
	ID        int
	UserID    int64
	ChatID    int64
	MessageID int

	Text    string
	Caption string
	// Photo is the file id of the largest photo size.
	Photo string
	Video *Video

	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the update is an inline button press.
func (u Update) IsCallback() bool { return u.CallbackID != "" }

// Kind names the update shape for logs and metrics.
func (u Update) Kind() string {
	switch {
	case u.IsCallback():
		return "callback"
	case u.Video != nil:
		return "video"
	case u.Photo != "":
		return "photo"
	case strings.HasPrefix(u.Text, "/"):
		return "command"
	case u.Text != "":
		return "text"
	default:
		return "other"
	}
}

// Command splits "/start 1234" into ("start", "1234"). ok is false for
// non-command text. A "@botname" suffix on the command is dropped.
func (u Update) Command() (name, args string, ok bool) {
	text := strings.TrimSpace(u.Text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest), head != ""
}

// Messenger is the outbound side of the chat platform.
type Messenger interface {
	Send(ctx context.Context, msg Message) (int, error)
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string, inline [][]Button) error
	EditPhoto(ctx context.Context, chatID int64, messageID int, photo, caption string, inline [][]Button) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, inline [][]Button) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
