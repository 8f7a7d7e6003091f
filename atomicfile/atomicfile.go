// Package atomicfile writes files via a temporary file in the same directory,
// which is renamed into place on Close. Readers never see partial files.
package atomicfile

import (
	"os"
	"path/filepath"
)

// File is a temporary file, that will be renamed to its final name on
// Close.
type File struct {
	*os.File
	name string
	perm os.FileMode
}

// New creates a temporary file next to name.
func New(name string) (*File, error) {
	return NewPerm(name, 0644)
}

// NewPerm is like New, but sets the permissions of the final file.
func NewPerm(name string, perm os.FileMode) (*File, error) {
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &File{File: f, name: name, perm: perm}, nil
}

// Close syncs and closes the temporary file and moves it into place. Any
// error results in the temporary file being removed.
func (f *File) Close() error {
	err := f.File.Sync()
	if closeErr := f.File.Close(); err == nil {
		err = closeErr
	}
	if permErr := os.Chmod(f.File.Name(), f.perm); err == nil {
		err = permErr
	}
	if err == nil {
		err = os.Rename(f.File.Name(), f.name)
	}
	if err != nil {
		os.Remove(f.File.Name())
	}
	return err
}

// Abort discards the temporary file.
func (f *File) Abort() error {
	_ = f.File.Close()
	return os.Remove(f.File.Name())
}

// WriteFile writes the data to a temp file and atomically moves it, if
// everything else succeeds.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	f, err := NewPerm(filename, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Abort()
		return err
	}
	return f.Close()
}
