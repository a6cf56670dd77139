// Package filestore persists the session as a single JSON document on disk,
// optionally sealed with a passphrase.
package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	autherrors "github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/pkg/errors"
)

// document mirrors the three persisted records. A nil field is a missing record.
type document struct {
	AccessToken  *string       `json:"accessToken,omitempty"`
	RefreshToken *string       `json:"refreshToken,omitempty"`
	User         *session.User `json:"user,omitempty"`
}

type Store struct {
	path   string
	sealer *sealer

	mu sync.Mutex
}

var _ session.TokenStore = (*Store)(nil)

type Option func(*Store)

// WithPassphrase seals the document at rest. An empty passphrase leaves it in plain JSON.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.sealer = &sealer{passphrase: passphrase}
		}
	}
}

func New(path string, options ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) Save(_ context.Context, sess session.Session) error {
	if sess.AccessToken == "" {
		return autherrors.Wrapf(autherrors.ErrPartialSession, "save")
	}

	data, err := json.Marshal(document{
		AccessToken:  &sess.AccessToken,
		RefreshToken: &sess.RefreshToken,
		User:         &sess.User,
	})
	if err != nil {
		return errors.Wrap(err, "encode session")
	}

	if s.sealer != nil {
		if data, err = s.sealer.seal(data); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path, data)
}

func (s *Store) Load(_ context.Context) (session.Session, error) {
	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if errors.Is(err, os.ErrNotExist) {
		return session.Session{}, autherrors.ErrNoSession
	}
	if err != nil {
		return session.Session{}, errors.Wrap(err, "read session file")
	}

	if isSealed(data) {
		if s.sealer == nil {
			return session.Session{}, errors.New("session file is sealed but no passphrase is configured")
		}
		if data, err = s.sealer.open(data); err != nil {
			return session.Session{}, err
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return session.Session{}, errors.Wrap(err, "decode session file")
	}

	if doc.AccessToken == nil || *doc.AccessToken == "" || doc.RefreshToken == nil || doc.User == nil {
		return session.Session{}, autherrors.ErrNoSession
	}
	return session.Session{
		AccessToken:  *doc.AccessToken,
		RefreshToken: *doc.RefreshToken,
		User:         *doc.User,
	}, nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove session file")
	}
	return nil
}

// writeAtomic replaces path with data via a temp file in the same directory,
// so readers see either the old document or the new one.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create session directory")
	}

	f, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp := f.Name()

	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := f.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		return errors.Wrap(err, "chmod temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "replace session file")
	}

	committed = true
	return nil
}
