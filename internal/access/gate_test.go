package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"kinobot/internal/access"
	"kinobot/internal/services"
	"kinobot/internal/testsupport"
)

func TestIsEntitledRequiresEveryGroup(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*testsupport.FakeOracle)
		want  bool
	}{
		{"member of both", func(o *testsupport.FakeOracle) { o.JoinAll(testsupport.UserID) }, true},
		{"member of one", func(o *testsupport.FakeOracle) {
			o.Set(testsupport.UserID, testsupport.ChannelOneID, access.Member)
		}, false},
		{"unknown folds to denied", func(o *testsupport.FakeOracle) {
			o.Set(testsupport.UserID, testsupport.ChannelOneID, access.Member)
			o.Set(testsupport.UserID, testsupport.ChannelTwoID, access.Unknown)
		}, false},
		{"oracle error", func(o *testsupport.FakeOracle) {
			o.JoinAll(testsupport.UserID)
			o.Err = errors.New("network down")
		}, false},
		{"nobody", func(*testsupport.FakeOracle) {}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			oracle := testsupport.NewFakeOracle()
			tc.setup(oracle)
			gate := access.NewGate(testsupport.NewConfig(t), oracle, nil)
			if got := gate.IsEntitled(context.Background(), testsupport.UserID); got != tc.want {
				t.Fatalf("IsEntitled = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAdminsAreNotExempt(t *testing.T) {
	gate := access.NewGate(testsupport.NewConfig(t), testsupport.NewFakeOracle(), nil)
	if gate.IsEntitled(context.Background(), testsupport.AdminID) {
		t.Fatal("admin without membership must be denied")
	}
}

func TestTimeoutDeniesEvenWhenOracleIgnoresContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Access.TimeoutSeconds = 1
	oracle := testsupport.NewFakeOracle()
	oracle.JoinAll(testsupport.UserID)
	oracle.Delay = 3 * time.Second
	oracle.IgnoreContext = true

	gate := access.NewGate(cfg, oracle, nil)
	start := time.Now()
	if gate.IsEntitled(context.Background(), testsupport.UserID) {
		t.Fatal("expected slow oracle to deny access")
	}
	if elapsed := time.Since(start); elapsed > 2500*time.Millisecond {
		t.Fatalf("gate waited %v, expected the timeout to cut the call short", elapsed)
	}
}

func TestDisabledGateSkipsOracle(t *testing.T) {
	oracle := testsupport.NewFakeOracle()
	gate := access.NewGate(testsupport.NewConfig(t, testsupport.WithAccessDisabled()), oracle, nil)
	if !gate.IsEntitled(context.Background(), testsupport.UserID) {
		t.Fatal("disabled gate must entitle everyone")
	}
	if oracle.Calls() != 0 {
		t.Fatalf("expected no oracle calls, got %d", oracle.Calls())
	}
}

func TestMissingOracleFailsClosed(t *testing.T) {
	gate := access.NewGate(testsupport.NewConfig(t), nil, nil)
	err := gate.Check(context.Background(), testsupport.UserID)
	if !errors.Is(err, services.ErrNotEntitled) {
		t.Fatalf("expected ErrNotEntitled, got %v", err)
	}
}

func TestJoinLinksSkipsGroupsWithoutLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Access.Channels[0].Link = ""
	links := access.NewGate(cfg, nil, nil).JoinLinks()
	if len(links) != 1 || links[0].ID != testsupport.ChannelTwoID {
		t.Fatalf("unexpected links: %+v", links)
	}
}
