package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
)

// Set is the ordered list of disks behind an array. Every failure it
// reports is a *raiderrors.DiskUnavailableError naming the disk.
type Set struct {
	disks []Disk
}

func NewSet(disks ...Disk) (*Set, error) {
	for i, d := range disks {
		if d == nil || d.ID() != i {
			return nil, fmt.Errorf("disk at position %d has wrong id", i)
		}
	}
	return &Set{disks: disks}, nil
}

// OpenDirSet sets up n directory disks under root.
func OpenDirSet(root string, n int) (*Set, error) {
	disks := make([]Disk, n)
	for i := range disks {
		d, err := NewDirDisk(root, i)
		if err != nil {
			return nil, err
		}
		disks[i] = d
	}
	return NewSet(disks...)
}

// OpenLevelSet sets up n disks sharing one LevelDB at path ("" for memory).
// The returned store must be closed after the set.
func OpenLevelSet(path string, n int) (*Set, *PersistenceStore, error) {
	store, err := NewPersistenceStore(path)
	if err != nil {
		return nil, nil, err
	}
	disks := make([]Disk, n)
	for i := range disks {
		disks[i] = NewLevelDisk(store, i)
	}
	set, err := NewSet(disks...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return set, store, nil
}

func (s *Set) Len() int        { return len(s.disks) }
func (s *Set) Disk(i int) Disk { return s.disks[i] }
func (s *Set) Disks() []Disk   { return s.disks }

func (s *Set) unavailable(disk int, err error) error {
	log.Debug(log.DiskMonitoring, "disk unavailable", "disk", disk, "err", err)
	return &raiderrors.DiskUnavailableError{Disk: disk, Err: err}
}

func (s *Set) check(ctx context.Context, disk int) error {
	if disk < 0 || disk >= len(s.disks) {
		return fmt.Errorf("disk %d out of range [0,%d): %w", disk, len(s.disks), raiderrors.ErrShapeMismatch)
	}
	return ctx.Err()
}

// Read returns n bytes of object name at off on disk.
func (s *Set) Read(ctx context.Context, disk int, name string, off int64, n int) ([]byte, error) {
	if err := s.check(ctx, disk); err != nil {
		return nil, err
	}
	b, err := s.disks[disk].ReadAt(name, off, n)
	if err != nil {
		return nil, s.unavailable(disk, err)
	}
	return b, nil
}

// Write stores p in object name at off on disk.
func (s *Set) Write(ctx context.Context, disk int, name string, off int64, p []byte) error {
	if err := s.check(ctx, disk); err != nil {
		return err
	}
	if err := s.disks[disk].WriteAt(name, off, p); err != nil {
		return s.unavailable(disk, err)
	}
	log.Trace(log.DiskMonitoring, "write", "disk", disk, "name", name, "off", off, "len", len(p))
	return nil
}

// Put replaces object name on disk with p.
func (s *Set) Put(ctx context.Context, disk int, name string, p []byte) error {
	if err := s.check(ctx, disk); err != nil {
		return err
	}
	if err := s.disks[disk].Put(name, p); err != nil {
		return s.unavailable(disk, err)
	}
	log.Trace(log.DiskMonitoring, "put", "disk", disk, "name", name, "len", len(p))
	return nil
}

func (s *Set) Remove(ctx context.Context, disk int, name string) error {
	if err := s.check(ctx, disk); err != nil {
		return err
	}
	if err := s.disks[disk].Remove(name); err != nil {
		return s.unavailable(disk, err)
	}
	return nil
}

func (s *Set) Close() error {
	var errs []error
	for _, d := range s.disks {
		errs = append(errs, d.Close())
	}
	return errors.Join(errs...)
}
