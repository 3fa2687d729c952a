// Package trie is the Merkle Patricia trie holding all contract state.
package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb"

	"questchain/storage"
)

// Trie stores values under the keccak hash of their contract key, so
// callers pass readable keys such as "staking/config". Writes stay in memory
// until Commit.
//
// Trie is not safe for concurrent use.
type Trie struct {
	db        *triedb.Database
	tr        *gethtrie.Trie
	committed common.Hash
}

// Open loads the trie at root. A nil or empty root opens the empty trie.
func Open(store storage.Database, root []byte) (*Trie, error) {
	rootHash := gethtypes.EmptyRootHash
	if len(root) > 0 {
		rootHash = common.BytesToHash(root)
	}
	t := &Trie{db: store.TrieDB()}
	if err := t.load(rootHash); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Trie) load(root common.Hash) error {
	tr, err := gethtrie.New(gethtrie.TrieID(root), t.db)
	if err != nil {
		return fmt.Errorf("trie: open root %s: %w", root.Hex(), err)
	}
	t.tr = tr
	t.committed = root
	return nil
}

func hashKey(key []byte) []byte { return ethcrypto.Keccak256(key) }

// Get returns the value under key, or nil when absent.
func (t *Trie) Get(key []byte) ([]byte, error) {
	return t.tr.Get(hashKey(key))
}

// Put stores value under key. An empty value deletes the key.
func (t *Trie) Put(key, value []byte) error {
	if len(value) == 0 {
		return t.tr.Delete(hashKey(key))
	}
	return t.tr.Update(hashKey(key), value)
}

// Delete removes key; deleting a missing key is a no-op.
func (t *Trie) Delete(key []byte) error {
	return t.tr.Delete(hashKey(key))
}

// PendingRoot is the root including uncommitted writes.
func (t *Trie) PendingRoot() common.Hash {
	return t.tr.Hash()
}

// CommittedRoot is the root persisted by the last Commit or Open.
func (t *Trie) CommittedRoot() common.Hash {
	return t.committed
}

// Commit flushes dirty nodes for height to disk and reopens the trie at the
// new root. Committing without writes returns the current root.
func (t *Trie) Commit(height uint64) (common.Hash, error) {
	parent := t.committed
	root, nodes := t.tr.Commit(false)
	if nodes != nil {
		merged := trienode.NewMergedNodeSet()
		if err := merged.Merge(nodes); err != nil {
			return common.Hash{}, err
		}
		if err := t.db.Update(root, parent, height, merged, nil); err != nil {
			return common.Hash{}, fmt.Errorf("trie: update height %d: %w", height, err)
		}
		if err := t.db.Commit(root, false); err != nil {
			return common.Hash{}, fmt.Errorf("trie: flush height %d: %w", height, err)
		}
	}
	if err := t.load(root); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}
