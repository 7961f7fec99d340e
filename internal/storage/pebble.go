package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps collections in an embedded PebbleDB, one key per collection.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// Snapshots are small and rewritten whole, so a modest memtable is enough.
		MemTableSize: 16 << 20,
	}
	db, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Get(_ context.Context, collection Collection) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(collection))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pebble get %s: %w", collection, err)
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (p *PebbleStore) Put(_ context.Context, collection Collection, data []byte) error {
	if err := p.db.Set([]byte(collection), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set %s: %w", collection, err)
	}
	return nil
}
