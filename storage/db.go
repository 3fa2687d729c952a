package storage

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	gethleveldb "github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/triedb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database is a generic interface for a key-value store.
// This allows the ledger to use any database backend (in-memory or persistent).
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// TrieDB returns the trie node database sharing this store. Repeated
	// calls return the same handle so uncommitted trie nodes stay visible.
	TrieDB() *triedb.Database
	Close() // A way to gracefully shut down the database connection.
}

// kvStore adapts any go-ethereum key-value store to Database.
type kvStore struct {
	kv ethdb.KeyValueStore

	once   sync.Once
	trieDB *triedb.Database
}

func (s *kvStore) Put(key []byte, value []byte) error {
	return s.kv.Put(key, value)
}

func (s *kvStore) Get(key []byte) ([]byte, error) {
	ok, err := s.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.kv.Get(key)
}

func (s *kvStore) Delete(key []byte) error {
	return s.kv.Delete(key)
}

func (s *kvStore) TrieDB() *triedb.Database {
	s.once.Do(func() {
		s.trieDB = triedb.NewDatabase(rawdb.NewDatabase(s.kv), triedb.HashDefaults)
	})
	return s.trieDB
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	kvStore
}

func NewMemDB() *MemDB {
	return &MemDB{kvStore: kvStore{kv: memorydb.New()}}
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	kvStore
	db *gethleveldb.Database
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := gethleveldb.NewCustom(path, "questchain", func(o *opt.Options) {
		o.OpenFilesCacheCapacity = 64
		o.BlockCacheCapacity = 16 * opt.MiB
		o.WriteBuffer = 8 * opt.MiB
	})
	if err != nil {
		return nil, err
	}
	return &LevelDB{kvStore: kvStore{kv: db}, db: db}, nil
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	if ldb.trieDB != nil {
		ldb.trieDB.Close()
	}
	ldb.db.Close()
}
