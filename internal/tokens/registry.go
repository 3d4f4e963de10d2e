package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"kinobot/internal/metrics"
	"kinobot/internal/services"
)

// tokenBytes gives 96 bits of entropy, 16 base64url characters.
const tokenBytes = 12

// slot is the per-user state. An empty token means idle; gen identifies the
// lookup that produced the state. media is the fingerprint the token was
// issued for, so a code reused for other content does not honour it.
type slot struct {
	code  string
	media string
	token string
	gen   uint64
}

// Claim proves a successful Consume and allows Restore.
type Claim struct {
	UserID int64
	Code   string
	Media  string
	Token  string
	gen    uint64
}

// Registry is the one-time token state for every user.
type Registry struct {
	mu      sync.Mutex
	users   *lru.Cache[int64, slot]
	gen     uint64
	entropy io.Reader
}

// New returns a registry remembering at most maxUsers users.
func New(maxUsers int) (*Registry, error) {
	cache, err := lru.New[int64, slot](maxUsers)
	if err != nil {
		return nil, fmt.Errorf("token registry: %w", err)
	}
	return &Registry{users: cache, entropy: rand.Reader}, nil
}

// Issue arms userID with a fresh token for the media stored under code,
// replacing any earlier token.
func (r *Registry) Issue(userID int64, code, media string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r.entropy, buf); err != nil {
		return "", fmt.Errorf("token registry: generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.users.Add(userID, slot{code: code, media: media, token: token, gen: r.gen})
	metrics.TokenEvents.WithLabelValues("issued").Inc()
	return token, nil
}

// Supersede disarms userID, as any lookup that does not issue a token must.
func (r *Registry) Supersede(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.users.Add(userID, slot{gen: r.gen})
	metrics.TokenEvents.WithLabelValues("superseded").Inc()
}

// Revoke disarms userID when its armed token is for code.
func (r *Registry) Revoke(userID int64, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users.Peek(userID)
	if ok && current.token != "" && current.code == code {
		r.users.Add(userID, slot{gen: current.gen})
		metrics.TokenEvents.WithLabelValues("revoked").Inc()
	}
}

// Check reports whether (code, token) is the pair userID is armed with and
// returns the media fingerprint the token was issued for.
func (r *Registry) Check(userID int64, code, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.matchLocked(userID, code, token, "check")
	if err != nil {
		return "", err
	}
	return current.media, nil
}

// Consume atomically checks and disarms userID.
func (r *Registry) Consume(userID int64, code, token string) (Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, err := r.matchLocked(userID, code, token, "consume")
	if err != nil {
		return Claim{}, err
	}
	r.users.Add(userID, slot{gen: current.gen})
	metrics.TokenEvents.WithLabelValues("consumed").Inc()
	return Claim{UserID: userID, Code: code, Media: current.media, Token: token, gen: current.gen}, nil
}

// Restore re-arms a consumed token after a failed delivery. It does nothing
// when a newer lookup has happened since the claim was taken. It reports
// whether the token was re-armed.
func (r *Registry) Restore(claim Claim) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users.Peek(claim.UserID)
	if !ok || current.gen != claim.gen || current.token != "" {
		return false
	}
	r.users.Add(claim.UserID, slot{code: claim.Code, media: claim.Media, token: claim.Token, gen: claim.gen})
	metrics.TokenEvents.WithLabelValues("restored").Inc()
	return true
}

// Len returns the number of tracked users.
func (r *Registry) Len() int {
	return r.users.Len()
}

func (r *Registry) matchLocked(userID int64, code, token, op string) (slot, error) {
	current, ok := r.users.Get(userID)
	if !ok || current.token == "" || current.code != code || current.token != token {
		metrics.TokenEvents.WithLabelValues("stale").Inc()
		return slot{}, services.Wrap(services.ErrStaleControl, "tokens", op, fmt.Sprintf("user %d code %s", userID, code), nil)
	}
	return current, nil
}
