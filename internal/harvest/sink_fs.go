package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// journal is an append-only newline-delimited JSON log. It never rewrites or
// truncates existing content; one entry is one atomic write.
type journal struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func openJournal(path string) (*journal, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &journal{f: f, path: path}, nil
}

func (j *journal) append(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	payload = append(payload, '\n')
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.f.Write(payload); err != nil {
		return fmt.Errorf("append to %s: %w", j.path, err)
	}
	return nil
}

func (j *journal) close() error {
	return j.f.Close()
}

// ResultJournal is the durable success log; it doubles as resume state.
type ResultJournal struct {
	j *journal
}

// NewResultJournal opens (or creates) the result journal at path.
func NewResultJournal(path string) (*ResultJournal, error) {
	j, err := openJournal(path)
	if err != nil {
		return nil, err
	}
	return &ResultJournal{j: j}, nil
}

// Append writes one record line.
func (s *ResultJournal) Append(rec Record) error {
	return s.j.append(rec)
}

// Path returns the journal location on disk.
func (s *ResultJournal) Path() string {
	return s.j.path
}

// Close releases the underlying file handle.
func (s *ResultJournal) Close() error {
	return s.j.close()
}

// FailureJournal is the durable failure log.
type FailureJournal struct {
	j *journal
}

// NewFailureJournal opens (or creates) the failure journal at path.
func NewFailureJournal(path string) (*FailureJournal, error) {
	j, err := openJournal(path)
	if err != nil {
		return nil, err
	}
	return &FailureJournal{j: j}, nil
}

// Append writes one failure line.
func (s *FailureJournal) Append(f Failure) error {
	return s.j.append(f)
}

// Path returns the journal location on disk.
func (s *FailureJournal) Path() string {
	return s.j.path
}

// Close releases the underlying file handle.
func (s *FailureJournal) Close() error {
	return s.j.close()
}
