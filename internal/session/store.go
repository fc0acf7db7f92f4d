package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound indicates the session id does not resolve to a live session.
var ErrNotFound = errors.New("session: not found")

// Store keeps sessions in Redis under a TTL. Sessions are transient by
// design: losing the store only forces users to log in again.
type Store struct {
	Client *redis.Client
	Prefix string
	TTL    time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 24 * time.Hour
	}
	return s.TTL
}

func (s *Store) key(id string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "session:"
	}
	return prefix + id
}

// Create persists a new session for the given bearer token and returns it.
// Identity claims are decoded from the token; a token without claims still
// yields a usable customer session.
func (s *Store) Create(ctx context.Context, token string) (Session, error) {
	if s == nil || s.Client == nil {
		return Session{}, errors.New("session: store not configured")
	}
	claims, err := DecodeClaims(token)
	if err != nil {
		return Session{}, fmt.Errorf("decode token claims: %w", err)
	}
	sess := Session{
		ID:     uuid.NewString(),
		Token:  token,
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   claims.Role,
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return Session{}, err
	}
	if err := s.Client.Set(ctx, s.key(sess.ID), data, s.ttl()).Err(); err != nil {
		return Session{}, fmt.Errorf("persist session: %w", err)
	}
	return sess, nil
}

// Get loads a session by id, refreshing its TTL on hit.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if s == nil || s.Client == nil {
		return Session{}, errors.New("session: store not configured")
	}
	if id == "" {
		return Session{}, ErrNotFound
	}
	data, err := s.Client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	_ = s.Client.Expire(ctx, s.key(id), s.ttl()).Err()
	return sess, nil
}

// Delete removes a session, e.g. on logout.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.Client == nil {
		return errors.New("session: store not configured")
	}
	if id == "" {
		return nil
	}
	return s.Client.Del(ctx, s.key(id)).Err()
}
