package watcher

import (
	"context"

	"registryScope/internal/storage/postgres"
)

// DBCursorStore stores the cursor in the registry_cursor table under Name.
type DBCursorStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBCursorStore) Load(ctx context.Context) (Cursor, bool, error) {
	if s == nil || s.Store == nil {
		return Cursor{}, false, nil
	}
	next, ok, err := s.Store.LoadCursor(ctx, s.Name)
	if err != nil {
		return Cursor{}, false, err
	}
	return Cursor{NextBlock: next}, ok, nil
}

func (s *DBCursorStore) Save(ctx context.Context, cursor Cursor) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveCursor(ctx, s.Name, cursor.NextBlock)
}
