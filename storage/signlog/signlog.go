// Package signlog records which bridge messages a validator key has signed,
// so a validator never signs two different payloads under one message id.
package signlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSigned = []byte("signed")

	// ErrConflict is returned when a message id was already signed with a
	// different signing hash.
	ErrConflict = errors.New("signlog: message already signed with a different payload")
)

// Entry describes one signature.
type Entry struct {
	SigningHash []byte    `json:"signingHash"`
	Validator   string    `json:"validator"`
	SignedAt    time.Time `json:"signedAt"`
}

// Log is a BoltDB-backed signing journal.
type Log struct {
	db *bolt.DB
}

// Open creates or opens the journal at path.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("signlog: open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSigned)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record notes that messageID was signed over signingHash. Recording the same
// pair again is a no-op that reports the original entry; a different hash for
// a known id fails with ErrConflict and leaves the journal untouched.
func (l *Log) Record(messageID, signingHash [32]byte, validator string, now time.Time) (Entry, error) {
	var out Entry
	err := l.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSigned)
		if raw := bucket.Get(messageID[:]); raw != nil {
			if err := json.Unmarshal(raw, &out); err != nil {
				return err
			}
			if !bytes.Equal(out.SigningHash, signingHash[:]) {
				return ErrConflict
			}
			return nil
		}
		out = Entry{SigningHash: append([]byte(nil), signingHash[:]...), Validator: validator, SignedAt: now.UTC()}
		raw, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return bucket.Put(append([]byte(nil), messageID[:]...), raw)
	})
	if err != nil {
		return Entry{}, err
	}
	return out, nil
}

// Lookup returns the entry for messageID, if any.
func (l *Log) Lookup(messageID [32]byte) (Entry, bool, error) {
	var (
		out   Entry
		found bool
	)
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSigned).Get(messageID[:])
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &out)
	})
	return out, found, err
}
