package harvest

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// CrawlState is the in-memory seen set plus running total. It is derived
// entirely from the result journal at startup; the journal is the only
// durable truth, so a killed process loses at most the in-flight candidate.
type CrawlState struct {
	seen      map[string]struct{}
	total     int
	malformed int
}

// NewCrawlState returns an empty state for a fresh run.
func NewCrawlState() *CrawlState {
	return &CrawlState{seen: make(map[string]struct{})}
}

// RestoreState rebuilds state by replaying the result journal line by line.
// A missing journal yields an empty state. Lines that fail to parse or carry
// no url are counted and skipped; they never abort startup.
func RestoreState(path string, logger *zap.Logger) (*CrawlState, error) {
	state := NewCrawlState()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return nil, fmt.Errorf("open result journal %s: %w", path, err)
	}
	defer f.Close()

	if err := state.replay(f); err != nil {
		return nil, fmt.Errorf("replay result journal %s: %w", path, err)
	}
	if state.malformed > 0 && logger != nil {
		logger.Warn("skipped malformed journal lines",
			zap.String("path", path),
			zap.Int("lines", state.malformed),
		)
	}
	return state, nil
}

func (s *CrawlState) replay(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(line, &entry); err != nil || entry.URL == "" {
			s.malformed++
			continue
		}
		if _, dup := s.seen[entry.URL]; dup {
			continue
		}
		s.seen[entry.URL] = struct{}{}
		s.total++
	}
	return scanner.Err()
}

// Contains reports whether url has already been persisted.
func (s *CrawlState) Contains(url string) bool {
	_, ok := s.seen[url]
	return ok
}

// Add marks url as persisted and bumps the total. Re-adding a seen URL is a
// no-op so the total can never double-count.
func (s *CrawlState) Add(url string) {
	if url == "" {
		return
	}
	if _, dup := s.seen[url]; dup {
		return
	}
	s.seen[url] = struct{}{}
	s.total++
}

// Total is the count of persisted records.
func (s *CrawlState) Total() int {
	return s.total
}

// MalformedLines is the number of journal lines skipped during restore.
func (s *CrawlState) MalformedLines() int {
	return s.malformed
}
