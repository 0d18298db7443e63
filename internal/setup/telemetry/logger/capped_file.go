// Package logger provides log file writers for the telemetry manager.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CappedFile is an append-only log file that keeps roughly the last maxLines lines.
// Once twice that many lines were written, the file is rewritten with only the most
// recent maxLines lines.
type CappedFile struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	maxLines int
	tail     *lineTail
}

// OpenCappedFile opens or creates the log file at path.
func OpenCappedFile(path string, maxLines int) (*CappedFile, error) {
	if maxLines <= 0 {
		maxLines = 1
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &CappedFile{
		file:     file,
		path:     path,
		maxLines: maxLines,
		tail:     newLineTail(maxLines),
	}, nil
}

// Write appends p to the file and compacts it when it grew too long.
func (c *CappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.file.Write(p)
	if err != nil {
		return n, err
	}

	if c.tail.add(p) {
		if err := c.compact(); err != nil {
			return n, fmt.Errorf("failed to compact log file: %w", err)
		}
	}

	return n, nil
}

// Sync flushes the file to disk.
func (c *CappedFile) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.file.Sync()
}

// Close closes the file.
func (c *CappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.file.Close()
}

// compact replaces the file with its tail.
func (c *CappedFile) compact() error {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), "compact-log-")
	if err != nil {
		return err
	}

	if _, err := tmp.WriteString(c.tail.content()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	c.file.Close()

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return err
	}

	file, err := os.OpenFile(c.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	c.file = file
	c.tail.rewritten()
	return nil
}
