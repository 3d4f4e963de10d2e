package announce_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kinobot/internal/announce"
	"kinobot/internal/catalog"
	"kinobot/internal/messenger"
	"kinobot/internal/services"
	"kinobot/internal/testsupport"
)

type fixture struct {
	store  *catalog.Store
	msgr   *testsupport.FakeMessenger
	mirror *announce.Mirror
}

func newFixture(t *testing.T, entries ...catalog.Entry) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, _ := testsupport.NewStore(t)
	for _, e := range entries {
		if err := store.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert %s: %v", e.Code, err)
		}
	}
	msgr := testsupport.NewFakeMessenger()
	return fixture{store: store, msgr: msgr, mirror: announce.NewMirror(cfg, store, msgr, nil)}
}

func TestPublishPostsDeepLinkAndRecordsRef(t *testing.T) {
	f := newFixture(t, testsupport.Series("1307", "fp-a", "fp-b"))
	ctx := context.Background()

	entry, err := f.mirror.Publish(ctx, "1307")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	post, ok := f.msgr.Last(testsupport.AnnounceChannel)
	if !ok {
		t.Fatal("expected a channel post")
	}
	if post.Photo != "poster-1307" {
		t.Fatalf("unexpected poster %q", post.Photo)
	}
	if !strings.HasSuffix(post.Caption, "\n\nCode: 1307") || strings.Count(post.Caption, "Code:") != 1 {
		t.Fatalf("caption must end with exactly one trailer: %q", post.Caption)
	}
	if len(post.Inline) != 1 || len(post.Inline[0]) != 1 {
		t.Fatalf("expected one control, got %+v", post.Inline)
	}
	control := post.Inline[0][0]
	if control.Data != "" || control.URL != "https://t.me/"+testsupport.BotUsername+"?start=1307" {
		t.Fatalf("announcement control must be a deep link, got %+v", control)
	}
	if entry.Announcement != post.ID {
		t.Fatalf("announcement ref %d, want %d", entry.Announcement, post.ID)
	}
	stored, _, _ := f.store.Get(ctx, "1307")
	if stored.Announcement != post.ID {
		t.Fatalf("stored announcement ref %d, want %d", stored.Announcement, post.ID)
	}
}

func TestPublishRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testsupport.Single("4821", "fp-1"))
	if _, err := f.mirror.Publish(ctx, "4821"); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if _, err := f.mirror.Publish(ctx, "4821"); !errors.Is(err, announce.ErrAlreadyPublished) || !errors.Is(err, services.ErrDuplicate) {
		t.Fatalf("expected already published, got %v", err)
	}
	if _, err := f.mirror.Publish(ctx, "0000"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := len(f.msgr.SentTo(testsupport.AnnounceChannel)); n != 1 {
		t.Fatalf("expected one post, got %d", n)
	}
}

func TestPublishSendFailureLeavesEntryUnpublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testsupport.Single("4821", "fp-1"))
	f.msgr.SetSendHook(func(messenger.Message) error { return errors.New("chat not found") })

	if _, err := f.mirror.Publish(ctx, "4821"); !errors.Is(err, services.ErrBestEffort) {
		t.Fatalf("expected best-effort failure, got %v", err)
	}
	stored, _, _ := f.store.Get(ctx, "4821")
	if stored.Published() {
		t.Fatal("entry must stay unpublished when the post failed")
	}
}

func TestPublishWithoutPosterSendsText(t *testing.T) {
	ctx := context.Background()
	entry := testsupport.Single("0042", "fp-1")
	entry.Poster = ""
	f := newFixture(t, entry)
	if _, err := f.mirror.Publish(ctx, "0042"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	post, _ := f.msgr.Last(testsupport.AnnounceChannel)
	if post.Photo != "" || !strings.HasSuffix(post.Text, "Code: 0042") {
		t.Fatalf("expected a text post, got %+v", post.Message)
	}
}

func TestRefreshChoosesEditKind(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testsupport.Single("4821", "fp-1"))
	published, err := f.mirror.Publish(ctx, "4821")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	published.Caption = "New text"
	if err := f.mirror.Refresh(ctx, published, false); err != nil {
		t.Fatalf("Refresh caption: %v", err)
	}
	published.Poster = "poster-new"
	if err := f.mirror.Refresh(ctx, published, true); err != nil {
		t.Fatalf("Refresh poster: %v", err)
	}

	edits := f.msgr.Edits()
	if len(edits) != 2 {
		t.Fatalf("expected two edits, got %+v", edits)
	}
	if edits[0].Kind != "caption" || edits[0].Text != "New text\n\nCode: 4821" {
		t.Fatalf("unexpected caption edit %+v", edits[0])
	}
	if edits[1].Kind != "photo" || edits[1].Photo != "poster-new" || edits[1].MessageID != published.Announcement {
		t.Fatalf("unexpected poster edit %+v", edits[1])
	}
}

func TestRefreshAndRetractAreBestEffort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testsupport.Single("4821", "fp-1"))
	published, err := f.mirror.Publish(ctx, "4821")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	f.msgr.EditErr = errors.New("message to edit not found")
	f.msgr.DelErr = errors.New("message can't be deleted")

	if err := f.mirror.Refresh(ctx, published, false); !errors.Is(err, services.ErrBestEffort) {
		t.Fatalf("Refresh: expected best-effort error, got %v", err)
	}
	if err := f.mirror.Retract(ctx, published); !errors.Is(err, services.ErrBestEffort) {
		t.Fatalf("Retract: expected best-effort error, got %v", err)
	}
}

func TestUnpublishedEntriesAreIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	entry := testsupport.Single("4821", "fp-1")
	if err := f.mirror.Refresh(ctx, entry, true); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if err := f.mirror.Retract(ctx, entry); err != nil {
		t.Fatalf("Retract: %v", err)
	}
	if len(f.msgr.Edits()) != 0 || len(f.msgr.Deletes()) != 0 {
		t.Fatal("unpublished entry must not touch the channel")
	}
}
