package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	gethcommon "github.com/ethereum/go-ethereum/common"

	"questchain/core/state"
	"questchain/storage"
	"questchain/storage/trie"
)

var (
	headRootKey   = []byte("questchain/head/root")
	headHeightKey = []byte("questchain/head/height")
)

// Ledger owns the state trie and its persisted head. Each Commit flushes
// the trie and advances the height.
type Ledger struct {
	mu     sync.Mutex
	db     storage.Database
	trie   *trie.Trie
	state  *state.Manager
	height uint64
}

// OpenLedger loads the last committed head from db, or starts an empty
// ledger when none exists.
func OpenLedger(db storage.Database) (*Ledger, error) {
	var root []byte
	stored, err := db.Get(headRootKey)
	switch {
	case err == nil:
		root = stored
	case errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("ledger: read head root: %w", err)
	}
	var height uint64
	rawHeight, err := db.Get(headHeightKey)
	switch {
	case err == nil && len(rawHeight) == 8:
		height = binary.BigEndian.Uint64(rawHeight)
	case err == nil, errors.Is(err, storage.ErrNotFound):
	default:
		return nil, fmt.Errorf("ledger: read head height: %w", err)
	}
	tr, err := trie.Open(db, root)
	if err != nil {
		return nil, fmt.Errorf("ledger: open trie at %x: %w", root, err)
	}
	return &Ledger{db: db, trie: tr, state: state.NewManager(tr), height: height}, nil
}

// State returns the state manager backed by the ledger trie.
func (l *Ledger) State() *state.Manager { return l.state }

// Height returns the number of commits so far.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Root returns the root hash including uncommitted writes.
func (l *Ledger) Root() gethcommon.Hash { return l.state.Root() }

// Commit persists pending writes and records the new head.
func (l *Ledger) Commit() (gethcommon.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.height + 1
	root, err := l.state.Commit(next)
	if err != nil {
		return gethcommon.Hash{}, fmt.Errorf("ledger: commit height %d: %w", next, err)
	}
	if err := l.db.Put(headRootKey, root.Bytes()); err != nil {
		return gethcommon.Hash{}, fmt.Errorf("ledger: write head root: %w", err)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := l.db.Put(headHeightKey, buf[:]); err != nil {
		return gethcommon.Hash{}, fmt.Errorf("ledger: write head height: %w", err)
	}
	l.height = next
	return root, nil
}
