package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session holds per-request session data. It is safe for use by the
// goroutines of one request.
type Session struct {
	mu        sync.Mutex
	ID        string
	values    map[string]string
	principal *Principal
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
}

// The token travels inside the principal so both are written and removed by a
// single SET or DEL.
type sessionPayload struct {
	Values    map[string]string `json:"values"`
	Principal *Principal        `json:"principal,omitempty"`
	Flashes   []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load loads or creates a new session for request. Unknown or unreadable
// payloads yield a fresh anonymous session.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		sess := sm.newSession()
		sess.ID = cookie.Value
		return sess, nil
	}

	sess := sm.newSession()
	sess.ID = cookie.Value
	sess.values = stored.Values
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	sess.principal = stored.Principal
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	if sess.dirty || sess.isNew || sess.ID == "" {
		if err := sm.persistLocked(ctx, sess); err != nil {
			sess.mu.Unlock()
			return err
		}
	}
	id := sess.ID
	sess.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Persist writes the session payload to Redis immediately.
func (sm *SessionManager) Persist(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sm.persistLocked(ctx, sess)
}

func (sm *SessionManager) persistLocked(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = sm.generateSessionID()
	}
	data, err := json.Marshal(sessionPayload{Values: sess.values, Principal: sess.principal, Flashes: sess.flashes})
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return err
	}
	sess.dirty = false
	sess.isNew = false
	return nil
}

// SavePrincipal stores the principal and its token in the session and persists
// it. The session id is rotated so a pre-login id never carries credentials.
func (sm *SessionManager) SavePrincipal(ctx context.Context, sess *Session, principal *Principal) error {
	if sess == nil {
		return errors.New("session missing")
	}
	if !principal.Valid() {
		return errors.New("principal requires id and token")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.isNew && sess.ID != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.ID = sm.generateSessionID()
	}
	stored := principal.Clone()
	stored.Roles = NormalizeRoles(stored.Roles)
	sess.principal = stored
	sess.dirty = true
	return sm.persistLocked(ctx, sess)
}

// ClearPrincipal removes the principal and token from the session and persists
// the change before returning.
func (sm *SessionManager) ClearPrincipal(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.principal = nil
	sess.dirty = true
	return sm.persistLocked(ctx, sess)
}

// Token returns the bearer token of the session bound to ctx.
func (sm *SessionManager) Token(ctx context.Context) string {
	if p := SessionFromContext(ctx).Principal(); p != nil {
		return p.Token
	}
	return ""
}

// Revoke clears the credentials of the session bound to ctx.
func (sm *SessionManager) Revoke(ctx context.Context) error {
	return sm.ClearPrincipal(ctx, SessionFromContext(ctx))
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// Principal returns a copy of the stored principal, or nil when the session is
// anonymous or holds an incomplete record.
func (s *Session) Principal() *Principal {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.principal.Valid() {
		return nil
	}
	return s.principal.Clone()
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.RawURLEncoding.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
