package delivery_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kinobot/internal/access"
	"kinobot/internal/catalog"
	"kinobot/internal/delivery"
	"kinobot/internal/messenger"
	"kinobot/internal/services"
	"kinobot/internal/testsupport"
	"kinobot/internal/tokens"
)

const user = testsupport.UserID

type fixture struct {
	store  *catalog.Store
	oracle *testsupport.FakeOracle
	msgr   *testsupport.FakeMessenger
	svc    *delivery.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, _ := testsupport.NewStore(t)
	ctx := context.Background()
	for _, e := range []catalog.Entry{
		testsupport.Single("4821", "fp-movie"),
		testsupport.Single("0042", "fp-other"),
		testsupport.Series("1307", "fp-e1", "fp-e2", "fp-e3", "fp-e4"),
	} {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	oracle := testsupport.NewFakeOracle()
	oracle.JoinAll(user)
	registry, err := tokens.New(100)
	if err != nil {
		t.Fatalf("tokens.New: %v", err)
	}
	msgr := testsupport.NewFakeMessenger()
	gate := access.NewGate(cfg, oracle, nil)
	return fixture{
		store:  store,
		oracle: oracle,
		msgr:   msgr,
		svc:    delivery.NewService(store, gate, registry, msgr, cfg.RequestTimeout(), nil),
	}
}

// watchToken returns the token carried by the latest Watch control sent to the user.
func (f fixture) watchToken(t *testing.T, code string) string {
	t.Helper()
	last, ok := f.msgr.Last(user)
	if !ok || len(last.Inline) == 0 {
		t.Fatal("expected a message with controls")
	}
	gotCode, token, ok := delivery.ParseWatchData(last.Inline[0][0].Data)
	if !ok || gotCode != code {
		t.Fatalf("unexpected watch control %q", last.Inline[0][0].Data)
	}
	return token
}

func TestLookupSingleSendsPosterWithWatchControl(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Lookup(context.Background(), user, "4821"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	last, _ := f.msgr.Last(user)
	if last.Photo != "poster-4821" || !strings.HasSuffix(last.Caption, "Code: 4821") {
		t.Fatalf("unexpected lookup message %+v", last.Message)
	}
	f.watchToken(t, "4821")
}

func TestLookupSeriesListsEpisodesInOrder(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Lookup(context.Background(), user, "1307"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	last, _ := f.msgr.Last(user)
	var data []string
	for _, row := range last.Inline {
		for _, b := range row {
			data = append(data, b.Data)
		}
	}
	want := []string{"e:1307:1", "e:1307:2", "e:1307:3", "e:1307:4"}
	if strings.Join(data, ",") != strings.Join(want, ",") {
		t.Fatalf("episode controls = %v, want %v", data, want)
	}
	if len(last.Inline) != 2 {
		t.Fatalf("expected episodes wrapped into two rows, got %d", len(last.Inline))
	}
}

func TestRedeemTwiceIsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	token := f.watchToken(t, "4821")
	if err := f.svc.Redeem(ctx, user, "4821", token); err != nil {
		t.Fatalf("first Redeem: %v", err)
	}
	if err := f.svc.Redeem(ctx, user, "4821", token); !errors.Is(err, services.ErrStaleControl) {
		t.Fatalf("second Redeem: expected ErrStaleControl, got %v", err)
	}
	if videos := f.msgr.Videos(user); len(videos) != 1 || videos[0] != "ref-fp-movie" {
		t.Fatalf("expected exactly one delivery, got %v", videos)
	}
}

func TestNewerLookupInvalidatesOlderToken(t *testing.T) {
	for _, second := range []string{"4821", "0042", "1307"} {
		t.Run(second, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
				t.Fatalf("Lookup A: %v", err)
			}
			first := f.watchToken(t, "4821")
			if err := f.svc.Lookup(ctx, user, second); err != nil {
				t.Fatalf("Lookup B: %v", err)
			}
			if err := f.svc.Redeem(ctx, user, "4821", first); !errors.Is(err, services.ErrStaleControl) {
				t.Fatalf("expected ErrStaleControl, got %v", err)
			}
		})
	}
}

func TestEntitlementFailureWithholdsContentOnEveryPath(t *testing.T) {
	failures := map[string]func(*testsupport.FakeOracle){
		"oracle error": func(o *testsupport.FakeOracle) { o.Err = errors.New("timeout") },
		"unknown": func(o *testsupport.FakeOracle) {
			o.Set(user, testsupport.ChannelTwoID, access.Unknown)
		},
		"left channel": func(o *testsupport.FakeOracle) {
			o.Set(user, testsupport.ChannelOneID, access.NotMember)
		},
	}
	for name, fail := range failures {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			token := f.watchToken(t, "4821")
			sentBefore := len(f.msgr.SentTo(user))

			fail(f.oracle)

			if err := f.svc.Lookup(ctx, user, "1307"); !errors.Is(err, services.ErrNotEntitled) {
				t.Fatalf("Lookup: expected ErrNotEntitled, got %v", err)
			}
			if err := f.svc.Redeem(ctx, user, "4821", token); !errors.Is(err, services.ErrNotEntitled) {
				t.Fatalf("Redeem: expected ErrNotEntitled, got %v", err)
			}
			if err := f.svc.Episode(ctx, user, "1307", 1); !errors.Is(err, services.ErrNotEntitled) {
				t.Fatalf("Episode: expected ErrNotEntitled, got %v", err)
			}
			if got := len(f.msgr.SentTo(user)); got != sentBefore {
				t.Fatalf("content leaked: %d messages sent after the gate failed", got-sentBefore)
			}
		})
	}
}

func TestDeniedRedeemKeepsTokenForRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	token := f.watchToken(t, "4821")

	f.oracle.Set(user, testsupport.ChannelOneID, access.NotMember)
	if err := f.svc.Redeem(ctx, user, "4821", token); !errors.Is(err, services.ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled, got %v", err)
	}
	f.oracle.JoinAll(user)
	if err := f.svc.Redeem(ctx, user, "4821", token); err != nil {
		t.Fatalf("Redeem after joining: %v", err)
	}
}

func TestDeletedCodeRedeemsAsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	token := f.watchToken(t, "4821")
	if _, err := f.store.Delete(ctx, "4821"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := f.store.Get(ctx, "4821"); ok {
		t.Fatal("deleted code still present")
	}
	if err := f.svc.Redeem(ctx, user, "4821", token); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.svc.Lookup(ctx, user, "4821"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected lookup ErrNotFound, got %v", err)
	}
}

func TestTokenDoesNotFollowChangedContent(t *testing.T) {
	cases := []struct {
		name   string
		change func(t *testing.T, ctx context.Context, store *catalog.Store)
		want   string
	}{
		{"code deleted and reused", func(t *testing.T, ctx context.Context, store *catalog.Store) {
			if _, err := store.Delete(ctx, "4821"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := store.Insert(ctx, testsupport.Single("4821", "fp-brand-new")); err != nil {
				t.Fatalf("Insert: %v", err)
			}
		}, "ref-fp-brand-new"},
		{"video replaced", func(t *testing.T, ctx context.Context, store *catalog.Store) {
			_, err := store.Update(ctx, "4821", func(e *catalog.Entry, _ catalog.Index) error {
				e.Video = &catalog.Media{Ref: "ref-fp-recut", Fingerprint: "fp-recut"}
				return nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
		}, "ref-fp-recut"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
				t.Fatalf("Lookup: %v", err)
			}
			token := f.watchToken(t, "4821")
			tc.change(t, ctx, f.store)

			if err := f.svc.Redeem(ctx, user, "4821", token); !errors.Is(err, services.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if videos := f.msgr.Videos(user); len(videos) != 0 {
				t.Fatalf("old control delivered %v", videos)
			}
			if err := f.svc.Redeem(ctx, user, "4821", token); !errors.Is(err, services.ErrStaleControl) {
				t.Fatalf("expected the token to be disarmed, got %v", err)
			}

			if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
				t.Fatalf("fresh Lookup: %v", err)
			}
			if err := f.svc.Redeem(ctx, user, "4821", f.watchToken(t, "4821")); err != nil {
				t.Fatalf("fresh Redeem: %v", err)
			}
			if videos := f.msgr.Videos(user); len(videos) != 1 || videos[0] != tc.want {
				t.Fatalf("expected %s delivered once, got %v", tc.want, videos)
			}
		})
	}
}

func TestFailedDeliveryRestoresToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.Lookup(ctx, user, "4821"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	token := f.watchToken(t, "4821")

	f.msgr.SetSendHook(func(m messenger.Message) error {
		if m.Video != "" {
			return errors.New("wrong file identifier")
		}
		return nil
	})
	if err := f.svc.Redeem(ctx, user, "4821", token); err == nil {
		t.Fatal("expected delivery failure")
	}
	f.msgr.SetSendHook(nil)
	if err := f.svc.Redeem(ctx, user, "4821", token); err != nil {
		t.Fatalf("Redeem after restore: %v", err)
	}
}

func TestEpisodesAreRepeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := f.svc.Episode(ctx, user, "1307", 2); err != nil {
			t.Fatalf("Episode press %d: %v", i, err)
		}
	}
	if videos := f.msgr.Videos(user); len(videos) != 3 || videos[0] != "ref-fp-e2" {
		t.Fatalf("unexpected deliveries %v", videos)
	}
	if err := f.svc.Episode(ctx, user, "1307", 9); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("missing episode: expected ErrNotFound, got %v", err)
	}
	if err := f.svc.Episode(ctx, user, "4821", 1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("single as series: expected ErrNotFound, got %v", err)
	}
}

func TestRedeemSeriesCodeIsNotFound(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Redeem(context.Background(), user, "1307", "token"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJoinPromptRendersLinksAndCheck(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.JoinPrompt(context.Background(), user, "4821"); err != nil {
		t.Fatalf("JoinPrompt: %v", err)
	}
	last, _ := f.msgr.Last(user)
	if len(last.Inline) != 3 {
		t.Fatalf("expected two join rows and a check row, got %+v", last.Inline)
	}
	if last.Inline[0][0].URL != "https://t.me/+one" || last.Inline[2][0].Data != "chk:4821" {
		t.Fatalf("unexpected prompt controls %+v", last.Inline)
	}
}
