// Package sqlitestore persists the session records in a local SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	autherrors "github.com/Danohx/modasarita-auth/internal/errors"
	"github.com/Danohx/modasarita-auth/session"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS auth_state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

type Store struct {
	db *sql.DB
}

var _ session.TokenStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, sess session.Session) error {
	if sess.AccessToken == "" {
		return autherrors.Wrapf(autherrors.ErrPartialSession, "save")
	}

	user, err := json.Marshal(sess.User)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM auth_state`); err != nil {
			return errors.Wrap(err, "delete previous session")
		}
		rows := [][2]string{
			{session.KeyAccessToken, sess.AccessToken},
			{session.KeyRefreshToken, sess.RefreshToken},
			{session.KeyUser, string(user)},
		}
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx, `INSERT INTO auth_state (key, value) VALUES (?, ?)`, r[0], r[1]); err != nil {
				return errors.Wrapf(err, "insert %s", r[0])
			}
		}
		return nil
	})
}

func (s *Store) Load(ctx context.Context) (session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM auth_state`)
	if err != nil {
		return session.Session{}, errors.Wrap(err, "query session")
	}
	defer rows.Close()

	records := make(map[string]string, 3)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return session.Session{}, errors.Wrap(err, "scan session row")
		}
		records[k] = v
	}
	if err := rows.Err(); err != nil {
		return session.Session{}, errors.Wrap(err, "read session rows")
	}

	access, okAccess := records[session.KeyAccessToken]
	refresh, okRefresh := records[session.KeyRefreshToken]
	rawUser, okUser := records[session.KeyUser]
	if !okAccess || !okRefresh || !okUser || access == "" {
		return session.Session{}, autherrors.ErrNoSession
	}

	var user session.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return session.Session{}, errors.Wrap(err, "decode user")
	}
	return session.Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM auth_state`)
		return errors.Wrap(err, "clear session")
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit transaction")
}
