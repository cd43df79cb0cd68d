package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrShortRead      = errors.New("short read")
	ErrInvalidName    = errors.New("invalid object name")
	ErrDiskDown       = errors.New("disk down")
)

// Disk is one logical unit of the array. Objects are addressed by name and
// read or written at byte offsets.
type Disk interface {
	ID() int
	ReadAt(name string, off int64, n int) ([]byte, error)
	WriteAt(name string, off int64, p []byte) error
	// Put replaces the whole object with p.
	Put(name string, p []byte) error
	Remove(name string) error
	Close() error
}

// checkName rejects names that could escape a disk directory or collide
// with key prefixes.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// generationSep separates an object name from its write generation in
// block names. Object names may not contain it.
const generationSep = "@"

// CheckObjectName validates a name for a stored object.
func CheckObjectName(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if strings.Contains(name, generationSep) {
		return fmt.Errorf("%q contains %q: %w", name, generationSep, ErrInvalidName)
	}
	return nil
}

// BlockName is the per-disk object holding generation gen of name.
func BlockName(name string, gen uint64) string {
	return name + generationSep + strconv.FormatUint(gen, 10)
}
