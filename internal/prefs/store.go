// Package prefs persists small pieces of app state (theme preference,
// auth session) in a local bbolt database under fixed, documented keys.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Fixed storage keys.
const (
	KeyThemePreference = "theme.preference"
	KeyAuthSession     = "auth.session"
)

var bucket = []byte("prefs")

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("prefs: not found")

// Store is a persistent string key-value store. Safe for concurrent use.
type Store struct {
	db *bolt.DB
}

// Open initializes or opens the store at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open prefs db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init prefs bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Set writes value under key, committed before return.
func (s *Store) Set(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), []byte(value))
	})
}

// Get reads the value under key.
func (s *Store) Get(key string) (string, error) {
	var out []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return "", err
	}
	if out == nil {
		return "", ErrNotFound
	}
	return string(out), nil
}

// Delete removes key. Removing an absent key is not an error.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// Session is the persisted auth blob: the signed-in user plus token.
type Session struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry,omitempty"`
}

// SaveSession serializes and persists the session under KeyAuthSession.
func (s *Store) SaveSession(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.Set(KeyAuthSession, string(data))
}

// LoadSession reads the persisted session, if any.
func (s *Store) LoadSession() (Session, error) {
	raw, err := s.Get(KeyAuthSession)
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

// ClearSession removes the persisted session.
func (s *Store) ClearSession() error {
	return s.Delete(KeyAuthSession)
}
