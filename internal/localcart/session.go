package localcart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/natededev/de-commerce/internal/domain"
)

// SessionKey is the storage slot holding the signed-in session.
const SessionKey = "de-commerce:session"

// Session is the bearer credential of a signed-in user. Merged records that
// the login-time cart merge has completed for this session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Merged    bool      `json:"merged"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionStore keeps the Session next to the local cart. It doubles as the
// token source for the server cart client.
type SessionStore struct {
	kv  KV
	now func() time.Time
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv, now: time.Now}
}

// Load returns the stored session. ok is false when nobody is signed in or the
// session has expired.
func (s *SessionStore) Load(ctx context.Context) (Session, bool, error) {
	data, err := s.kv.Get(ctx, SessionKey)
	if errors.Is(err, ErrKeyNotFound) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.Token == "" {
		return Session{}, false, nil
	}
	if sess.Expired(s.now()) {
		return sess, false, nil
	}
	return sess, true, nil
}

func (s *SessionStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.Set(ctx, SessionKey, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, SessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the stored bearer token, or "" when there is no live session.
func (s *SessionStore) Token(ctx context.Context) (string, error) {
	sess, ok, err := s.Load(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return sess.Token, nil
}

// NewSession builds a Session for a token that expires expiresIn seconds
// after now.
func NewSession(token string, user domain.User, expiresIn int, now time.Time) Session {
	sess := Session{Token: token, UserID: user.ID, Email: user.Email}
	if expiresIn > 0 {
		sess.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	}
	return sess
}
