package testsupport

import (
	"context"
	"sync"
	"time"

	"kinobot/internal/access"
)

// FakeOracle is a scriptable access.Oracle. Unlisted pairs answer NotMember.
type FakeOracle struct {
	mu      sync.Mutex
	members map[[2]int64]access.Membership
	calls   int

	// Err, when set, is returned by every check.
	Err error
	// Delay blocks each check; a check honours ctx unless IgnoreContext is set.
	Delay         time.Duration
	IgnoreContext bool
}

// NewFakeOracle returns an oracle where nobody is a member.
func NewFakeOracle() *FakeOracle {
	return &FakeOracle{members: make(map[[2]int64]access.Membership)}
}

// Set records the answer for user in group.
func (f *FakeOracle) Set(userID, groupID int64, m access.Membership) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[[2]int64{userID, groupID}] = m
}

// JoinAll makes user a member of both test channels.
func (f *FakeOracle) JoinAll(userID int64) {
	f.Set(userID, ChannelOneID, access.Member)
	f.Set(userID, ChannelTwoID, access.Member)
}

// Calls returns how many checks ran.
func (f *FakeOracle) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeOracle) CheckMembership(ctx context.Context, userID, groupID int64) (access.Membership, error) {
	f.mu.Lock()
	f.calls++
	err := f.Err
	delay := f.Delay
	ignore := f.IgnoreContext
	m, ok := f.members[[2]int64{userID, groupID}]
	f.mu.Unlock()

	if delay > 0 {
		if ignore {
			time.Sleep(delay)
		} else {
			select {
			case <-ctx.Done():
				return access.Unknown, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	if err != nil {
		return access.Unknown, err
	}
	if !ok {
		return access.NotMember, nil
	}
	return m, nil
}
