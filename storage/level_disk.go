package storage

import (
	"fmt"
	"sync"
)

// LevelDisk keeps objects as values in a shared PersistenceStore under the
// key prefix "disk<id>/".
type LevelDisk struct {
	id    int
	store *PersistenceStore
	mu    sync.Mutex
}

func NewLevelDisk(store *PersistenceStore, id int) *LevelDisk {
	return &LevelDisk{id: id, store: store}
}

func (d *LevelDisk) ID() int { return d.id }

func (d *LevelDisk) key(name string) []byte {
	return []byte(fmt.Sprintf("%s%d/%s", DiskPrefix, d.id, name))
}

func (d *LevelDisk) ReadAt(name string, off int64, n int) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	value, found, err := d.store.Get(d.key(name))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s on disk %d: %w", name, d.id, ErrObjectNotFound)
	}
	if off < 0 || off+int64(n) > int64(len(value)) {
		return nil, fmt.Errorf("%s on disk %d: want %d bytes at %d, have %d: %w", name, d.id, n, off, len(value), ErrShortRead)
	}
	return value[off : off+int64(n)], nil
}

func (d *LevelDisk) WriteAt(name string, off int64, p []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if off < 0 {
		return fmt.Errorf("negative offset %d", off)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := d.key(name)
	value, _, err := d.store.Get(key)
	if err != nil {
		return err
	}
	if end := off + int64(len(p)); end > int64(len(value)) {
		grown := make([]byte, end)
		copy(grown, value)
		value = grown
	}
	copy(value[off:], p)
	return d.store.Put(key, value)
}

func (d *LevelDisk) Put(name string, p []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Put(d.key(name), p)
}

func (d *LevelDisk) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return d.store.Delete(d.key(name))
}

// Close is a no-op; the shared store is closed by its owner.
func (d *LevelDisk) Close() error { return nil }
