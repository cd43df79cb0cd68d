package storage

import (
	"fmt"
	"sync/atomic"
)

// FaultyDisk wraps a Disk and reports it unavailable while failed.
type FaultyDisk struct {
	Disk
	down atomic.Bool
}

func NewFaultyDisk(d Disk) *FaultyDisk {
	return &FaultyDisk{Disk: d}
}

func (d *FaultyDisk) Fail()        { d.down.Store(true) }
func (d *FaultyDisk) Heal()        { d.down.Store(false) }
func (d *FaultyDisk) Failed() bool { return d.down.Load() }

func (d *FaultyDisk) ReadAt(name string, off int64, n int) ([]byte, error) {
	if d.Failed() {
		return nil, fmt.Errorf("disk %d: %w", d.ID(), ErrDiskDown)
	}
	return d.Disk.ReadAt(name, off, n)
}

func (d *FaultyDisk) WriteAt(name string, off int64, p []byte) error {
	if d.Failed() {
		return fmt.Errorf("disk %d: %w", d.ID(), ErrDiskDown)
	}
	return d.Disk.WriteAt(name, off, p)
}

func (d *FaultyDisk) Put(name string, p []byte) error {
	if d.Failed() {
		return fmt.Errorf("disk %d: %w", d.ID(), ErrDiskDown)
	}
	return d.Disk.Put(name, p)
}

func (d *FaultyDisk) Remove(name string) error {
	if d.Failed() {
		return fmt.Errorf("disk %d: %w", d.ID(), ErrDiskDown)
	}
	return d.Disk.Remove(name)
}
