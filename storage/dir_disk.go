package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// DiskPrefix names disk directories under an array root: root/disk0, root/disk1, ...
const DiskPrefix = "disk"

// DirDisk stores each object as a file in its own directory.
type DirDisk struct {
	id   int
	path string
}

// NewDirDisk creates root/disk<id> when needed.
func NewDirDisk(root string, id int) (*DirDisk, error) {
	path := filepath.Join(root, DiskPrefix+strconv.Itoa(id))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("setup disk %d: %w", id, err)
	}
	return &DirDisk{id: id, path: path}, nil
}

func (d *DirDisk) ID() int      { return d.id }
func (d *DirDisk) Path() string { return d.path }

func (d *DirDisk) ReadAt(name string, off int64, n int) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(d.path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s on disk %d: %w", name, d.id, ErrObjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, off)
	if err == io.EOF || (err == nil && read < n) {
		return nil, fmt.Errorf("%s on disk %d: %d of %d bytes at %d: %w", name, d.id, read, n, off, ErrShortRead)
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *DirDisk) WriteAt(name string, off int64, p []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(d.path, name), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(p, off); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Put writes p to a temporary file and renames it over the object, so a
// smaller object never keeps the tail of a larger one.
func (d *DirDisk) Put(name string, p []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	path := filepath.Join(d.path, name)
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(p); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func (d *DirDisk) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.path, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (d *DirDisk) Close() error { return nil }
