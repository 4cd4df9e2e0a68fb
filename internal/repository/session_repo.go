package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// Session is the server-side record behind a token. A token whose sid has
// no record here is dead regardless of its JWT expiry, which is what makes
// logout immediate.
type Session struct {
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionRepository interface {
	Save(ctx context.Context, sessionID string, sess *Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

type sessionRepo struct {
	rdb *redis.Client
}

func NewSessionRepo(rdb *redis.Client) SessionRepository {
	return &sessionRepo{rdb: rdb}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (r *sessionRepo) Save(ctx context.Context, sessionID string, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.rdb.Set(ctx, sessionKey(sessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, sessionID string) (*Session, error) {
	payload, err := r.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, xerrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &sess, nil
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}
