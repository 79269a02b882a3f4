package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	tokenKeyPrefix   = "session:token:"
)

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("%s%s:%s", sessionKeyPrefix, userID, sessionID)
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

// NewToken returns an unguessable opaque session token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// SessionStore keeps sessions in Redis. Each session is stored under
// session:<userID>:<sessionID> with a token index at session:token:<token>;
// both expire with the session.
type SessionStore struct {
	rdb *database.RedisClient
}

func NewSessionStore(rdb *database.RedisClient) *SessionStore {
	return &SessionStore{rdb: rdb}
}

var _ models.SessionRepository = (*SessionStore)(nil)

func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	if session.UserID == "" {
		return fmt.Errorf("session without user")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Token == "" {
		session.Token = NewToken()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.LastActivity = now

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKey(session.UserID, session.ID)
	_, err = s.rdb.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, ttl)
		pipe.Set(ctx, tokenKey(session.Token), session.UserID+":"+session.ID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// FindByToken resolves a cookie token. Unknown, expired or dangling tokens
// return ErrNotFound.
func (s *SessionStore) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	ref, err := s.rdb.Get(ctx, tokenKey(token))
	if database.IsNil(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session token: %w", err)
	}

	raw, err := s.rdb.Get(ctx, sessionKeyPrefix+ref)
	if database.IsNil(err) {
		_ = s.rdb.Del(ctx, tokenKey(token))
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if session.IsExpired() {
		return nil, ErrNotFound
	}
	return &session, nil
}

// Delete removes the session and its token index. Deleting a missing session
// is not an error.
func (s *SessionStore) Delete(ctx context.Context, session *models.Session) error {
	if err := s.rdb.Del(ctx, sessionKey(session.UserID, session.ID), tokenKey(session.Token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser signs the user out everywhere.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) error {
	pattern := sessionKey(userID, "*")
	var cursor uint64
	for {
		keys, next, err := s.rdb.Client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan sessions: %w", err)
		}
		for _, key := range keys {
			toDelete := []string{key}
			if raw, err := s.rdb.Get(ctx, key); err == nil {
				var session models.Session
				if json.Unmarshal([]byte(raw), &session) == nil && session.Token != "" {
					toDelete = append(toDelete, tokenKey(session.Token))
				}
			}
			if err := s.rdb.Del(ctx, toDelete...); err != nil {
				return fmt.Errorf("delete session %s: %w", key, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
