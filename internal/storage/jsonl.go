package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"registryScope/internal/model"
)

// JsonlWriter writes records to w as JSON lines. Safe for concurrent use.
type JsonlWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func NewJsonlWriter(w io.Writer) *JsonlWriter {
	return &JsonlWriter{w: w}
}

// PutEventBatch writes a batch of event records, one per line, in order.
func (s *JsonlWriter) PutEventBatch(events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	items := make([]interface{}, len(events))
	for i := range events {
		items[i] = events[i]
	}
	return s.write(items)
}

// Put writes a single value as one JSON line.
func (s *JsonlWriter) Put(v interface{}) error {
	return s.write([]interface{}{v})
}

func (s *JsonlWriter) write(items []interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writer := bufio.NewWriter(s.w)
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
