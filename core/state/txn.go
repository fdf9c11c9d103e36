package state

import (
	"errors"

	"storychain/storage"
)

// Txn is a copy-on-write view over the database. Reads fall through to the
// base store until a key is written; writes stay buffered until Commit. Each
// top-level registry operation runs in its own Txn so a failure discards all
// of the operation's tentative writes.
type Txn struct {
	*Manager
	base   keyValueStore
	writes map[string][]byte
}

// Begin opens a transaction over the manager's backend.
func (m *Manager) Begin() *Txn {
	overlay := &overlayStore{base: m.kv, writes: make(map[string][]byte)}
	return &Txn{
		Manager: &Manager{kv: overlay},
		base:    m.kv,
		writes:  overlay.writes,
	}
}

// Commit flushes every buffered write to the base store.
func (t *Txn) Commit() error {
	for key, value := range t.writes {
		if err := t.base.Put([]byte(key), value); err != nil {
			return err
		}
	}
	t.writes = nil
	return nil
}

// Discard drops all buffered writes, leaving the base store untouched.
func (t *Txn) Discard() {
	for key := range t.writes {
		delete(t.writes, key)
	}
}

type overlayStore struct {
	base   keyValueStore
	writes map[string][]byte
}

func (o *overlayStore) Get(key []byte) ([]byte, error) {
	if value, ok := o.writes[string(key)]; ok {
		buf := make([]byte, len(value))
		copy(buf, value)
		return buf, nil
	}
	value, err := o.base.Get(key)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (o *overlayStore) Put(key []byte, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	o.writes[string(key)] = buf
	return nil
}

func (o *overlayStore) Has(key []byte) (bool, error) {
	if _, ok := o.writes[string(key)]; ok {
		return true, nil
	}
	has, err := o.base.Has(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return has, nil
}
