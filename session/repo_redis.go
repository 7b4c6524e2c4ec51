package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// storedSession is the Redis persistence shape. Unlike the wire shape it
// carries the tokens; Redis is gateway-internal.
type storedSession struct {
	Session
	RefreshToken string `json:"refreshToken,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
}

// RedisRepo shares sessions across gateway instances. Entries expire with
// the session max age so stale sessions clean themselves up.
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepo(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string { return "session:" + sessionID }

func (r *RedisRepo) Upsert(sessionID string, session Session) error {
	if sessionID == "" {
		return errors.New("[RedisRepo.Upsert] sessionID is required")
	}

	stored := storedSession{
		Session:      session,
		RefreshToken: session.RefreshToken,
		AccessToken:  session.AccessToken,
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "[RedisRepo.Upsert] marshal")
	}

	if err := r.client.Set(context.Background(), sessionKey(sessionID), data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Upsert] Set")
	}
	return nil
}

func (r *RedisRepo) Get(sessionID string) (Session, error) {
	data, err := r.client.Get(context.Background(), sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "[RedisRepo.Get] Get")
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return Session{}, errors.Wrap(err, "[RedisRepo.Get] unmarshal")
	}

	session := stored.Session
	session.RefreshToken = stored.RefreshToken
	session.AccessToken = stored.AccessToken
	return session, nil
}

func (r *RedisRepo) Delete(sessionID string) error {
	if err := r.client.Del(context.Background(), sessionKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Delete] Del")
	}
	return nil
}
