package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"questchain/storage/trie"
)

var (
	ErrEmptyKey        = errors.New("state: empty key")
	ErrBadListTarget   = errors.New("state: list destination must be a non-nil slice pointer")
	ErrUnknownSnapshot = errors.New("state: unknown snapshot")
)

// Manager stores RLP records in the ledger trie. Writes are journaled so an
// invocation can be unwound to any earlier Snapshot.
//
// Manager is not safe for concurrent use; the runtime serializes access.
type Manager struct {
	trie    *trie.Trie
	journal []undo
}

// undo restores key to prev; a nil prev means the key did not exist.
type undo struct {
	key  []byte
	prev []byte
}

// NewManager wraps tr.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

func (m *Manager) load(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	return m.trie.Get(key)
}

func (m *Manager) store(key, value []byte) error {
	prev, err := m.load(key)
	if err != nil {
		return err
	}
	m.journal = append(m.journal, undo{key: common.CopyBytes(key), prev: common.CopyBytes(prev)})
	return m.trie.Put(key, value)
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value any) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.store(key, raw)
}

// KVGet decodes the record under key into out and reports whether it existed.
// A nil out only checks existence.
func (m *Manager) KVGet(key []byte, out any) (bool, error) {
	raw, err := m.load(key)
	if err != nil || len(raw) == 0 {
		return false, err
	}
	if out != nil {
		if err := rlp.DecodeBytes(raw, out); err != nil {
			return false, fmt.Errorf("state: decode %q: %w", key, err)
		}
	}
	return true, nil
}

// KVDelete removes the record under key.
func (m *Manager) KVDelete(key []byte) error {
	return m.store(key, nil)
}

// KVGetList decodes the list under key into the slice pointed to by out. A
// missing key yields an empty, non-nil slice.
func (m *Manager) KVGetList(key []byte, out any) error {
	raw, err := m.load(key)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		return rlp.DecodeBytes(raw, out)
	}
	ptr := reflect.ValueOf(out)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() || ptr.Elem().Kind() != reflect.Slice {
		return ErrBadListTarget
	}
	ptr.Elem().Set(reflect.MakeSlice(ptr.Elem().Type(), 0, 0))
	return nil
}

// KVAppend adds value to the byte-string set under key, keeping insertion
// order. Values already present are left alone.
func (m *Manager) KVAppend(key, value []byte) error {
	var members [][]byte
	if err := m.KVGetList(key, &members); err != nil {
		return err
	}
	if slices.ContainsFunc(members, func(v []byte) bool { return bytes.Equal(v, value) }) {
		return nil
	}
	return m.KVPut(key, append(members, common.CopyBytes(value)))
}

// KVRemove drops value from the byte-string set under key. An emptied set is
// deleted.
func (m *Manager) KVRemove(key, value []byte) error {
	var members [][]byte
	if err := m.KVGetList(key, &members); err != nil {
		return err
	}
	n := len(members)
	members = slices.DeleteFunc(members, func(v []byte) bool { return bytes.Equal(v, value) })
	switch {
	case len(members) == n:
		return nil
	case len(members) == 0:
		return m.KVDelete(key)
	default:
		return m.KVPut(key, members)
	}
}

// Snapshot marks the current journal position.
func (m *Manager) Snapshot() int { return len(m.journal) }

// RevertToSnapshot unwinds every write made since id, newest first.
func (m *Manager) RevertToSnapshot(id int) error {
	if id < 0 || id > len(m.journal) {
		return fmt.Errorf("%w %d (journal has %d entries)", ErrUnknownSnapshot, id, len(m.journal))
	}
	for i := len(m.journal) - 1; i >= id; i-- {
		u := m.journal[i]
		if err := m.trie.Put(u.key, u.prev); err != nil {
			return fmt.Errorf("state: undo %q: %w", u.key, err)
		}
	}
	m.journal = m.journal[:id]
	return nil
}

// DiscardJournal accepts every write so far; earlier snapshots become invalid.
func (m *Manager) DiscardJournal() { m.journal = m.journal[:0] }

// Root is the state root including writes not yet committed.
func (m *Manager) Root() common.Hash { return m.trie.PendingRoot() }

// Commit writes the trie at height and clears the journal.
func (m *Manager) Commit(height uint64) (common.Hash, error) {
	root, err := m.trie.Commit(height)
	if err != nil {
		return common.Hash{}, err
	}
	m.DiscardJournal()
	return root, nil
}
