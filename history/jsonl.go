// Package history stores the daily history log outside of memory: in a
// JSON Lines file or in a PostgreSQL table. Both implement
// brokerfeed.HistoryLog.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/etnz/brokerfeed"
)

// FileLog is a HistoryLog stored as a JSONL file, one snapshot row per line.
//
// Updates rewrite the whole file into a temporary file that is renamed over
// the previous one, so readers see either the old or the new log. Writers
// hold an exclusive lock on the "<Path>.lock" file from the read to the
// rename, which serializes them across processes.
type FileLog struct {
	Path string

	mu sync.Mutex
}

// NewFileLog returns the log stored in path. The file is created on the first write.
func NewFileLog(path string) *FileLog { return &FileLog{Path: path} }

func (l *FileLog) Entries(ctx context.Context) ([]brokerfeed.HistorySnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *FileLog) read() ([]brokerfeed.HistorySnapshot, error) {
	f, err := os.Open(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open history file %q: %w", l.Path, err)
	}
	defer f.Close()
	entries, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read history file %q: %w", l.Path, err)
	}
	return entries, nil
}

func (l *FileLog) ReplaceRange(ctx context.Context, start, end int, rows []brokerfeed.HistorySnapshot) error {
	return l.Update(ctx, brokerfeed.Replace(start, end, rows))
}

func (l *FileLog) Update(ctx context.Context, edit brokerfeed.EditFunc) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := filepath.Dir(l.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory for history %q: %w", l.Path, err)
	}
	unlock, err := lockFile(l.Path + ".lock")
	if err != nil {
		return fmt.Errorf("cannot lock history %q: %w", l.Path, err)
	}
	defer unlock()

	entries, err := l.read()
	if err != nil {
		return err
	}
	start, end, rows, err := edit(entries)
	if err != nil {
		return err
	}
	entries, err = brokerfeed.ReplaceRange(entries, start, end, rows)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.write(entries)
}

// write replaces the file content by entries.
func (l *FileLog) write(entries []brokerfeed.HistorySnapshot) error {
	dir := filepath.Dir(l.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.Path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create temporary history file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := Encode(tmp, entries); err != nil {
		tmp.Close()
		return fmt.Errorf("cannot write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write history: %w", err)
	}
	return os.Rename(tmp.Name(), l.Path)
}

// Decode reads JSONL snapshot rows. Empty lines are skipped.
func Decode(r io.Reader) ([]brokerfeed.HistorySnapshot, error) {
	var entries []brokerfeed.HistorySnapshot
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var e brokerfeed.HistorySnapshot
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// Encode writes snapshot rows as JSONL.
func Encode(w io.Writer, entries []brokerfeed.HistorySnapshot) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var _ brokerfeed.HistoryLog = (*FileLog)(nil)
