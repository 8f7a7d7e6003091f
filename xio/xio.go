// Package xio opens and creates files, with compression chosen by file
// extension: ".gz" uses parallel gzip, ".zst" uses zstd.
package xio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/miku/purekit/atomicfile"
)

type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var err error
	for _, f := range rc.closers {
		if cerr := f(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a file for reading and decompresses it, if the name ends with
// ".gz" or ".zst".
func Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	case ".zst":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	default:
		return f, nil
	}
}

// WriteCloser is a file being written. Close finishes compression and moves
// the file into place; Abort discards it.
type WriteCloser struct {
	io.Writer
	file  *atomicfile.File
	close func() error
}

func (w *WriteCloser) Close() error {
	if w.close != nil {
		if err := w.close(); err != nil {
			_ = w.file.Abort()
			return err
		}
	}
	return w.file.Close()
}

func (w *WriteCloser) Abort() error {
	if w.close != nil {
		_ = w.close()
	}
	return w.file.Abort()
}

// Create creates a file atomically and compresses it, if the name ends with
// ".gz" or ".zst".
func Create(name string) (*WriteCloser, error) {
	f, err := atomicfile.New(name)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		zw := gzip.NewWriter(f)
		return &WriteCloser{Writer: zw, file: f, close: zw.Close}, nil
	case ".zst":
		enc, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Abort()
			return nil, err
		}
		return &WriteCloser{Writer: enc, file: f, close: enc.Close}, nil
	default:
		return &WriteCloser{Writer: f, file: f}, nil
	}
}
