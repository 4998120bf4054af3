package watcher

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"registryScope/internal/registry"
)

type timeline = []registry.EventLog[registry.MembershipEvent]

// scriptedSource replays one response per call and records the from blocks it saw.
type scriptedSource struct {
	mu        sync.Mutex
	responses []sourceResponse
	froms     []uint64
}

type sourceResponse struct {
	events timeline
	err    error
}

func (s *scriptedSource) GetRegisteredAndUnregisteredFrom(_ context.Context, from uint64) (timeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.froms = append(s.froms, from)
	if len(s.responses) == 0 {
		return nil, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp.events, resp.err
}

func entry(block uint64, event registry.MembershipEvent) registry.EventLog[registry.MembershipEvent] {
	return registry.EventLog[registry.MembershipEvent]{Event: event, Log: registry.LogMeta{BlockNumber: block}}
}

func registered(block uint64) registry.EventLog[registry.MembershipEvent] {
	return entry(block, registry.RegisteredEvent{ID: big.NewInt(int64(block)), Time: big.NewInt(0)})
}

func unregistered(block uint64) registry.EventLog[registry.MembershipEvent] {
	return entry(block, registry.UnregisteredEvent{ID: big.NewInt(int64(block))})
}

func collect(out *[]timeline) Handler {
	return func(_ context.Context, events timeline) error {
		*out = append(*out, events)
		return nil
	}
}

func TestCursorAdvance(t *testing.T) {
	c := Cursor{NextBlock: 10}

	assert.Equal(t, c, c.Advance(nil))
	assert.Equal(t, Cursor{NextBlock: 16}, c.Advance(timeline{registered(12), unregistered(15)}))
	// Never moves backwards.
	assert.Equal(t, Cursor{NextBlock: 10}, c.Advance(timeline{registered(3)}))

	removed := unregistered(40)
	removed.Log.Removed = true
	assert.Equal(t, Cursor{NextBlock: 13}, c.Advance(timeline{registered(12), removed}))
}

func TestPollAdvancesCursor(t *testing.T) {
	source := &scriptedSource{responses: []sourceResponse{
		{events: timeline{registered(5), unregistered(7)}},
	}}
	var got []timeline
	w := New(Config{Once: true}, source, nil, collect(&got), zap.NewNop())

	next, count, err := w.Poll(context.Background(), Cursor{NextBlock: 3})
	require.NoError(t, err)
	assert.Equal(t, Cursor{NextBlock: 8}, next)
	assert.Equal(t, 2, count)
	require.Len(t, got, 1)
	assert.Equal(t, []uint64{3}, source.froms)
}

func TestPollEmptyKeepsCursor(t *testing.T) {
	source := &scriptedSource{}
	calls := 0
	w := New(Config{Once: true}, source, nil, func(context.Context, timeline) error {
		calls++
		return nil
	}, nil)

	next, count, err := w.Poll(context.Background(), Cursor{NextBlock: 3})
	require.NoError(t, err)
	assert.Equal(t, Cursor{NextBlock: 3}, next)
	assert.Zero(t, count)
	assert.Zero(t, calls)
}

func TestRunResumesFromStoredCursor(t *testing.T) {
	store := &MemoryCursorStore{}
	require.NoError(t, store.Save(context.Background(), Cursor{NextBlock: 50}))

	source := &scriptedSource{responses: []sourceResponse{{events: timeline{registered(51)}}}}
	var got []timeline
	w := New(Config{StartBlock: 10, Once: true}, source, store, collect(&got), nil)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []uint64{50}, source.froms)

	saved, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(52), saved.NextBlock)
}

func TestRunStartBlockWinsOverOlderCursor(t *testing.T) {
	store := &MemoryCursorStore{}
	require.NoError(t, store.Save(context.Background(), Cursor{NextBlock: 5}))

	source := &scriptedSource{}
	w := New(Config{StartBlock: 20, Once: true}, source, store, collect(new([]timeline)), nil)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []uint64{20}, source.froms)
}

func TestRunRetriesLedgerUnavailable(t *testing.T) {
	unavailable := errors.Join(registry.ErrLedgerUnavailable, errors.New("timeout"))
	source := &scriptedSource{responses: []sourceResponse{
		{err: unavailable},
		{err: unavailable},
		{events: timeline{registered(4)}},
	}}
	var got []timeline
	w := New(Config{Once: true, MaxRetries: 3, RetryBackoff: time.Millisecond}, source, nil, collect(&got), nil)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []uint64{0, 0, 0}, source.froms)
	require.Len(t, got, 1)
}

func TestRunGivesUpAfterMaxRetries(t *testing.T) {
	unavailable := errors.Join(registry.ErrLedgerUnavailable, errors.New("timeout"))
	source := &scriptedSource{responses: []sourceResponse{{err: unavailable}, {err: unavailable}}}
	w := New(Config{Once: true, MaxRetries: 1, RetryBackoff: time.Millisecond}, source, nil, collect(new([]timeline)), nil)

	err := w.Run(context.Background())
	require.ErrorIs(t, err, registry.ErrLedgerUnavailable)
	assert.Len(t, source.froms, 2)
}

func TestRunDoesNotRetryDecodeErrors(t *testing.T) {
	source := &scriptedSource{responses: []sourceResponse{{err: registry.ErrDecode}}}
	w := New(Config{Once: true, MaxRetries: 5, RetryBackoff: time.Millisecond}, source, nil, collect(new([]timeline)), nil)

	err := w.Run(context.Background())
	require.ErrorIs(t, err, registry.ErrDecode)
	assert.Len(t, source.froms, 1)
}

func TestRunHandlerFailureKeepsCursor(t *testing.T) {
	store := &MemoryCursorStore{}
	source := &scriptedSource{responses: []sourceResponse{{events: timeline{registered(9)}}}}
	handlerErr := errors.New("stdout closed")
	w := New(Config{Once: true, MaxRetries: 3}, source, store, func(context.Context, timeline) error {
		return handlerErr
	}, nil)

	err := w.Run(context.Background())
	require.ErrorIs(t, err, handlerErr)
	_, ok, _ := store.Load(context.Background())
	assert.False(t, ok)
}

func TestRunPollsUntilCancelled(t *testing.T) {
	source := &scriptedSource{responses: []sourceResponse{
		{events: timeline{registered(1)}},
		{events: timeline{unregistered(2)}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []timeline
	handler := func(ctx context.Context, events timeline) error {
		got = append(got, events)
		if len(got) == 2 {
			cancel()
		}
		return nil
	}
	w := New(Config{PollInterval: time.Millisecond}, source, nil, handler, nil)

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, got, 2)
	assert.Equal(t, []uint64{0, 2}, source.froms)
}

func TestRunValidatesConfig(t *testing.T) {
	w := New(Config{}, &scriptedSource{}, nil, collect(new([]timeline)), nil)
	require.Error(t, w.Run(context.Background()))

	w = New(Config{Once: true}, nil, nil, collect(new([]timeline)), nil)
	require.Error(t, w.Run(context.Background()))
}

func TestFileCursorStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cursor.json")
	store := NewFileCursorStore(path)
	ctx := context.Background()

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, Cursor{NextBlock: 1234}))
	cursor, ok, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1234), cursor.NextBlock)

	dirStore := NewFileCursorStore(t.TempDir())
	_, _, err = dirStore.Load(ctx)
	require.Error(t, err)
}

type fixedHead struct {
	head  uint64
	err   error
	calls int
}

func (h *fixedHead) LatestBlockNumber(context.Context) (uint64, error) {
	h.calls++
	return h.head, h.err
}

func TestRunReportsChainHead(t *testing.T) {
	source := &scriptedSource{responses: []sourceResponse{{events: timeline{registered(51)}}}}
	head := &fixedHead{head: 100}
	w := New(Config{StartBlock: 50, Once: true}, source, nil, collect(new([]timeline)), nil).WithHead(head)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, 1, head.calls)
}

func TestRunIgnoresHeadFailure(t *testing.T) {
	store := &MemoryCursorStore{}
	source := &scriptedSource{responses: []sourceResponse{{events: timeline{registered(7)}}}}
	head := &fixedHead{err: errors.Join(registry.ErrLedgerUnavailable, errors.New("timeout"))}
	w := New(Config{Once: true}, source, store, collect(new([]timeline)), nil).WithHead(head)

	require.NoError(t, w.Run(context.Background()))
	saved, ok, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(8), saved.NextBlock)
}

func TestLag(t *testing.T) {
	assert.Equal(t, uint64(49), Lag(100, Cursor{NextBlock: 52}))
	assert.Equal(t, uint64(1), Lag(100, Cursor{NextBlock: 100}))
	assert.Zero(t, Lag(100, Cursor{NextBlock: 101}))
	assert.Zero(t, Lag(0, Cursor{NextBlock: 5}))
}
