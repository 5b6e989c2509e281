// Package logwriter provides the daemon's size-rotated log file.
package logwriter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultMaxSize  = 1 << 20
	DefaultMaxFiles = 3
)

var errClosed = errors.New("log writer is closed")

// RotatingWriter is an io.Writer that moves the file aside once it would
// grow past maxSize, keeping maxFiles old generations (path.1 is newest).
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	maxSize  int64
	maxFiles int
	file     *os.File
	size     int64
}

// New opens path for appending, creating its directory when needed. Zero
// or negative limits take the defaults.
func New(path string, maxSize int64, maxFiles int) (*RotatingWriter, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	w := &RotatingWriter{path: path, maxSize: maxSize, maxFiles: maxFiles}
	if err := w.open(os.O_APPEND); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) open(mode int) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|mode, 0o640)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, errClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		// A failed rotation leaves the current file open; keep logging to it.
		if err := w.rotate(); err != nil && w.file == nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Rotate forces a rotation. When the file cannot be moved aside the writer
// keeps appending to it and the error is returned.
func (w *RotatingWriter) Rotate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return errClosed
	}
	return w.rotate()
}

func (w *RotatingWriter) rotate() error {
	w.file.Close()
	w.file = nil

	os.Remove(w.generation(w.maxFiles))
	for i := w.maxFiles - 1; i >= 1; i-- {
		os.Rename(w.generation(i), w.generation(i+1))
	}
	if err := os.Rename(w.path, w.generation(1)); err != nil && !os.IsNotExist(err) {
		if openErr := w.open(os.O_APPEND); openErr != nil {
			return errors.Join(fmt.Errorf("rotate log: %w", err), openErr)
		}
		return fmt.Errorf("rotate log: %w", err)
	}
	return w.open(os.O_TRUNC)
}

func (w *RotatingWriter) generation(i int) string {
	return fmt.Sprintf("%s.%d", w.path, i)
}

// Truncate empties the current file. Rotated generations are kept.
func (w *RotatingWriter) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return errClosed
	}
	w.file.Close()
	w.file = nil
	return w.open(os.O_TRUNC)
}

// Close closes the file. Further writes fail.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Path returns the file path of this writer.
func (w *RotatingWriter) Path() string { return w.path }
