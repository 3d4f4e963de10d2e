package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kinobot/internal/config"
	"kinobot/internal/logging"
	"kinobot/internal/metrics"
	"kinobot/internal/services"
)

// Membership is an oracle answer for one user in one group.
type Membership int

const (
	Unknown Membership = iota
	Member
	NotMember
)

func (m Membership) String() string {
	switch m {
	case Member:
		return "member"
	case NotMember:
		return "not_member"
	default:
		return "unknown"
	}
}

// Oracle answers membership questions for the gate.
type Oracle interface {
	CheckMembership(ctx context.Context, userID, groupID int64) (Membership, error)
}

// Group is one channel a user must belong to.
type Group struct {
	ID   int64
	Link string
}

// Gate decides whether a user may receive content.
type Gate struct {
	oracle  Oracle
	groups  []Group
	enabled bool
	timeout time.Duration
	logger  *slog.Logger
}

// NewGate builds a gate from the access configuration.
func NewGate(cfg *config.Config, oracle Oracle, logger *slog.Logger) *Gate {
	g := &Gate{
		oracle:  oracle,
		enabled: cfg.Access.Enabled,
		timeout: cfg.AccessTimeout(),
		logger:  logging.NewComponentLogger(logger, "access"),
	}
	for _, ch := range cfg.Access.Channels {
		g.groups = append(g.groups, Group{ID: ch.ID, Link: ch.Link})
	}
	if g.timeout <= 0 {
		g.timeout = 5 * time.Second
	}
	return g
}

// Enabled reports whether membership is checked at all.
func (g *Gate) Enabled() bool { return g.enabled }

// JoinLinks returns the groups that have an invite link, in configured order.
func (g *Gate) JoinLinks() []Group {
	out := make([]Group, 0, len(g.groups))
	for _, group := range g.groups {
		if group.Link != "" {
			out = append(out, group)
		}
	}
	return out
}

// IsEntitled reports whether userID is a member of every configured group.
func (g *Gate) IsEntitled(ctx context.Context, userID int64) bool {
	if !g.enabled {
		metrics.AccessChecks.WithLabelValues("bypassed").Inc()
		return true
	}
	if g.oracle == nil || len(g.groups) == 0 {
		metrics.AccessChecks.WithLabelValues(metrics.ResultError).Inc()
		logging.WarnWithContext(logging.WithContext(ctx, g.logger), "access gate has no oracle or groups; denying", "access_misconfigured",
			logging.String(logging.FieldErrorHint, "configure access.channels or set access.enabled = false"),
			logging.String(logging.FieldImpact, "no user can receive content"),
		)
		return false
	}
	for _, group := range g.groups {
		membership, err := g.check(ctx, userID, group.ID)
		if err != nil {
			metrics.AccessChecks.WithLabelValues(metrics.ResultError).Inc()
			logging.WarnWithContext(logging.WithContext(ctx, g.logger), "membership check failed; denying", "access_check_failed",
				logging.Int64("group_id", group.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify the bot is an administrator of the channel"),
				logging.String(logging.FieldImpact, "user is shown the subscribe prompt"),
			)
			return false
		}
		if membership != Member {
			metrics.AccessChecks.WithLabelValues(metrics.ResultNotEntitled).Inc()
			g.logger.Debug("membership missing",
				logging.Int64(logging.FieldUserID, userID),
				logging.Int64("group_id", group.ID),
				logging.String("membership", membership.String()),
			)
			return false
		}
	}
	metrics.AccessChecks.WithLabelValues(metrics.ResultOK).Inc()
	return true
}

// Check is IsEntitled expressed as an error tagged services.ErrNotEntitled.
func (g *Gate) Check(ctx context.Context, userID int64) error {
	if g.IsEntitled(ctx, userID) {
		return nil
	}
	return services.Wrap(services.ErrNotEntitled, "access", "check", fmt.Sprintf("user %d", userID), nil)
}

// check runs one oracle call under the gate timeout and returns at the
// deadline even when the oracle ignores ctx.
func (g *Gate) check(ctx context.Context, userID, groupID int64) (Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type answer struct {
		membership Membership
		err        error
	}
	done := make(chan answer, 1)
	go func() {
		m, err := g.oracle.CheckMembership(ctx, userID, groupID)
		done <- answer{membership: m, err: err}
	}()

	select {
	case res := <-done:
		return res.membership, res.err
	case <-ctx.Done():
		return Unknown, fmt.Errorf("membership check for group %d: %w", groupID, ctx.Err())
	}
}
