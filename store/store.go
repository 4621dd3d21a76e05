// ABOUTME: Durable key/value store adapter backed by BadgerDB
// ABOUTME: Degrades permanently to an in-process map when the engine cannot open
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v3"
)

// Mode reports which backend the store decided on at Connect time. The
// decision is made exactly once and never revisited for the store's lifetime.
type Mode int

const (
	ModeDurable Mode = iota
	ModeMemoryOnly
)

func (m Mode) String() string {
	if m == ModeDurable {
		return "durable"
	}
	return "memory-only"
}

// record is the persisted envelope: the serialized value plus its write
// timestamp. Values are opaque blobs, so no schema migrations are needed.
type record struct {
	Value     json.RawMessage `json:"v"`
	WrittenAt time.Time       `json:"ts"`
}

// Store is a key/value store that prefers a durable badger backend but
// serves everything from an in-process map when the engine is unavailable.
// After Connect has returned, Get/Set/Clear never surface engine errors:
// losing durability is acceptable, losing the ability to cache is not.
type Store struct {
	path string

	mu        sync.RWMutex
	connected bool
	mode      Mode
	db        *badger.DB
	mem       map[string][]byte
}

// DefaultPath returns the XDG-compliant location for the durable cache.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "sift", "cache")
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		mem:  make(map[string][]byte),
	}
}

// Connect opens the durable engine, or falls back to memory-only mode if the
// open fails for any reason. The returned error is the degradation reason,
// for observability only; the store is usable either way. Calling Connect
// again is a no-op that reports the original decision.
func (s *Store) Connect() (Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return s.mode, nil
	}
	s.connected = true

	if err := os.MkdirAll(s.path, 0700); err != nil {
		s.mode = ModeMemoryOnly
		return s.mode, err
	}

	opts := badger.DefaultOptions(s.path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		s.mode = ModeMemoryOnly
		return s.mode, err
	}

	s.db = db
	s.mode = ModeDurable
	return s.mode, nil
}

// Get returns the stored value for key, or false if absent. Engine read
// failures are treated as absence.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		v, ok := s.mem[key]
		return v, ok
	}

	var rec record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, false
	}
	return rec.Value, true
}

// Set stores value under key, replacing any previous value wholesale.
func (s *Store) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.mem[key] = value
		return
	}

	rec := record{Value: value, WrittenAt: time.Now()}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), encoded)
	})
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.mem = make(map[string][]byte)
		return
	}
	_ = s.db.DropAll()
}

// Mode reports the backend decided at Connect time.
func (s *Store) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
