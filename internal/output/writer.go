package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrUnsafePath is returned for remote names that would resolve outside the
// output directory.
var ErrUnsafePath = errors.New("log file name escapes the output directory")

// Writer appends the portions of one remote log file to a local file.
// The file is opened lazily so the destination directory can be created on
// demand.
type Writer struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	bytes int64
	count int
}

// LocalPath maps a remote log file name to its destination under outputDir.
// Remote names use forward slashes, e.g. "error/postgresql.log.2024-01-01-00".
func LocalPath(outputDir, remoteName string) (string, error) {
	if strings.TrimSpace(remoteName) == "" {
		return "", fmt.Errorf("empty log file name: %w", ErrUnsafePath)
	}

	root := filepath.Clean(outputDir)
	path := filepath.Join(root, filepath.FromSlash(remoteName))

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q: %w", remoteName, ErrUnsafePath)
	}
	return path, nil
}

// NewLogFileWriter prepares the destination for remoteName under outputDir.
// Any file already at that path is removed so a re-run never appends to the
// output of a previous one.
func NewLogFileWriter(outputDir, remoteName string) (*Writer, error) {
	path, err := LocalPath(outputDir, remoteName)
	if err != nil {
		return nil, err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove previous log file: %w", err)
	}

	return &Writer{path: path}, nil
}

// Write appends one accepted portion. The parent directory is ensured on
// every call; an empty portion still creates the file.
func (w *Writer) Write(data string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ensureDir(filepath.Dir(w.path)); err != nil {
		return err
	}

	if w.file == nil {
		file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		w.file = file
	}

	n, err := w.file.WriteString(data)
	w.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write log file: %w", err)
	}

	w.count++
	return nil
}

// Path returns the local destination.
func (w *Writer) Path() string {
	return w.path
}

// Bytes returns the number of bytes written.
func (w *Writer) Bytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bytes
}

// Count returns the number of portions written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying file if one was opened.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
