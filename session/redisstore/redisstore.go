// Package redisstore persists the session records as three Redis keys.
package redisstore

import (
	"context"
	"encoding/json"

	autherrors "github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ session.TokenStore = (*Store)(nil)

// New stores the records under "<prefix>:accessToken", "<prefix>:refreshToken" and "<prefix>:user".
func New(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(name string) string {
	return s.prefix + ":" + name
}

func (s *Store) keys() []string {
	return []string{
		s.key(session.KeyAccessToken),
		s.key(session.KeyRefreshToken),
		s.key(session.KeyUser),
	}
}

func (s *Store) Save(ctx context.Context, sess session.Session) error {
	if sess.AccessToken == "" {
		return autherrors.Wrapf(autherrors.ErrPartialSession, "save")
	}

	user, err := json.Marshal(sess.User)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}

	// MULTI/EXEC so a concurrent reader never sees a mix of two sessions
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(session.KeyAccessToken), sess.AccessToken, 0)
		pipe.Set(ctx, s.key(session.KeyRefreshToken), sess.RefreshToken, 0)
		pipe.Set(ctx, s.key(session.KeyUser), user, 0)
		return nil
	})
	return errors.Wrap(err, "save session")
}

func (s *Store) Load(ctx context.Context) (session.Session, error) {
	vals, err := s.rdb.MGet(ctx, s.keys()...).Result()
	if err != nil {
		return session.Session{}, errors.Wrap(err, "load session")
	}

	strs := make([]string, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			return session.Session{}, autherrors.ErrNoSession
		}
		strs[i] = str
	}
	if strs[0] == "" {
		return session.Session{}, autherrors.ErrNoSession
	}

	var user session.User
	if err := json.Unmarshal([]byte(strs[2]), &user); err != nil {
		return session.Session{}, errors.Wrap(err, "decode user")
	}
	return session.Session{AccessToken: strs[0], RefreshToken: strs[1], User: user}, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return errors.Wrap(s.rdb.Del(ctx, s.keys()...).Err(), "clear session")
}
