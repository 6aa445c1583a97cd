package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zPat/easy-edgedb/internal/domain"
)

// SessionStore keeps practice sessions in Redis so a reader can reconnect to
// a walkthrough through any instance. Sessions expire after the TTL; an
// abandoned walkthrough just goes away.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Put(ctx context.Context, session domain.PracticeSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.PracticeSession, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.PracticeSession{}, domain.ErrSessionNotFound
		}
		return domain.PracticeSession{}, err
	}
	var session domain.PracticeSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.PracticeSession{}, err
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *SessionStore) key(id string) string {
	return "practice:session:" + id
}
