package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"registryScope/internal/registry"
)

// Cursor is the next block a poll starts from. Callers own it; the registry never
// sees it except as the from argument of a tail fetch.
type Cursor struct {
	NextBlock uint64 `json:"next_block"`
}

// Advance moves the cursor past the highest block in timeline. Blocks are immutable
// once they carry logs, so a later poll cannot find new logs in them. An empty
// timeline leaves the cursor where it is.
func (c Cursor) Advance(timeline []registry.EventLog[registry.MembershipEvent]) Cursor {
	next := c.NextBlock
	for _, entry := range timeline {
		if entry.Log.Removed {
			continue
		}
		if entry.Log.BlockNumber+1 > next {
			next = entry.Log.BlockNumber + 1
		}
	}
	return Cursor{NextBlock: next}
}

// CursorStore persists a cursor between runs.
type CursorStore interface {
	Load(ctx context.Context) (Cursor, bool, error)
	Save(ctx context.Context, cursor Cursor) error
}

type cursorFile struct {
	NextBlock uint64 `json:"next_block"`
	UpdatedAt string `json:"updated_at"`
}

// FileCursorStore keeps the cursor in a JSON file, replaced atomically on save.
type FileCursorStore struct {
	path string
}

func NewFileCursorStore(path string) *FileCursorStore {
	return &FileCursorStore{path: path}
}

func (s *FileCursorStore) Load(_ context.Context) (Cursor, bool, error) {
	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{}, false, nil
		}
		return Cursor{}, false, fmt.Errorf("stat cursor: %w", err)
	}
	if stat.IsDir() {
		return Cursor{}, false, fmt.Errorf("cursor path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return Cursor{}, false, fmt.Errorf("read cursor: %w", err)
	}

	var rec cursorFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return Cursor{}, false, fmt.Errorf("parse cursor: %w", err)
	}

	return Cursor{NextBlock: rec.NextBlock}, true, nil
}

func (s *FileCursorStore) Save(_ context.Context, cursor Cursor) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}

	data, err := json.Marshal(cursorFile{
		NextBlock: cursor.NextBlock,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write cursor tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}

	return nil
}

// MemoryCursorStore keeps the cursor in memory only.
type MemoryCursorStore struct {
	cursor Cursor
	set    bool
}

func (s *MemoryCursorStore) Load(_ context.Context) (Cursor, bool, error) {
	return s.cursor, s.set, nil
}

func (s *MemoryCursorStore) Save(_ context.Context, cursor Cursor) error {
	s.cursor = cursor
	s.set = true
	return nil
}
