package testsupport

import (
	"context"
	"sync"

	"kinobot/internal/messenger"
)

// Edit records one edit call made through FakeMessenger.
type Edit struct {
	Kind      string
	ChatID    int64
	MessageID int
	Photo     string
	Text      string
	Inline    [][]messenger.Button
}

// Sent is a message delivered through FakeMessenger with its assigned id.
type Sent struct {
	ID int
	messenger.Message
}

// FakeMessenger records outbound calls. SendHook, when set, can fail a send.
type FakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	sent     []Sent
	edits    []Edit
	deletes  []int
	answers  map[string]string
	SendHook func(messenger.Message) error
	EditErr  error
	DelErr   error
}

// NewFakeMessenger returns an empty recorder. Message ids start at 100.
func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{nextID: 100, answers: make(map[string]string)}
}

func (f *FakeMessenger) Send(_ context.Context, msg messenger.Message) (int, error) {
	f.mu.Lock()
	hook := f.SendHook
	f.mu.Unlock()
	if hook != nil {
		if err := hook(msg); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, Sent{ID: f.nextID, Message: msg})
	return f.nextID, nil
}

func (f *FakeMessenger) EditCaption(_ context.Context, chatID int64, messageID int, caption string, inline [][]messenger.Button) error {
	return f.edit(Edit{Kind: "caption", ChatID: chatID, MessageID: messageID, Text: caption, Inline: inline})
}

func (f *FakeMessenger) EditPhoto(_ context.Context, chatID int64, messageID int, photo, caption string, inline [][]messenger.Button) error {
	return f.edit(Edit{Kind: "photo", ChatID: chatID, MessageID: messageID, Photo: photo, Text: caption, Inline: inline})
}

func (f *FakeMessenger) EditText(_ context.Context, chatID int64, messageID int, text string, inline [][]messenger.Button) error {
	return f.edit(Edit{Kind: "text", ChatID: chatID, MessageID: messageID, Text: text, Inline: inline})
}

func (f *FakeMessenger) edit(e Edit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditErr != nil {
		return f.EditErr
	}
	f.edits = append(f.edits, e)
	return nil
}

func (f *FakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DelErr != nil {
		return f.DelErr
	}
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *FakeMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[callbackID] = text
	return nil
}

// Sent returns every message sent so far.
func (f *FakeMessenger) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Sent(nil), f.sent...)
}

// SentTo returns messages sent to chatID.
func (f *FakeMessenger) SentTo(chatID int64) []Sent {
	var out []Sent
	for _, s := range f.Sent() {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

// Last returns the most recent message sent to chatID.
func (f *FakeMessenger) Last(chatID int64) (Sent, bool) {
	sent := f.SentTo(chatID)
	if len(sent) == 0 {
		return Sent{}, false
	}
	return sent[len(sent)-1], true
}

// Videos returns the video refs sent to chatID.
func (f *FakeMessenger) Videos(chatID int64) []string {
	var out []string
	for _, s := range f.SentTo(chatID) {
		if s.Video != "" {
			out = append(out, s.Video)
		}
	}
	return out
}

// Edits returns every recorded edit.
func (f *FakeMessenger) Edits() []Edit {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Edit(nil), f.edits...)
}

// Deletes returns the deleted message ids.
func (f *FakeMessenger) Deletes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deletes...)
}

// Answer returns the text a callback was answered with.
func (f *FakeMessenger) Answer(callbackID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text, ok := f.answers[callbackID]
	return text, ok
}

// SetSendHook replaces SendHook under the recorder lock.
func (f *FakeMessenger) SetSendHook(hook func(messenger.Message) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SendHook = hook
}
