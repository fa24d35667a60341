package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/randommarket/pkg/metrics"
)

const defaultHistorySize = 100

var _ Store = (*MemoryStore)(nil)

// board is an immutable, ranked view of the tallies. A fresh one is
// published after every write so reads never take the lock.
type board struct {
	entries []WinnerEntry
	rankOf  map[string]int // event id -> position in entries
}

type tally struct {
	title   string
	wins    int
	lastWon time.Time
}

// MemoryStore is an in-memory Store. Recent spins live in a fixed ring.
type MemoryStore struct {
	mu       sync.RWMutex
	ring     []SpinRecord
	next     int
	filled   int
	capacity int
	total    int
	tallies  map[string]*tally

	board atomic.Pointer[board]
}

// NewMemoryStore builds an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		capacity: defaultHistorySize,
		tallies:  make(map[string]*tally),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ring = make([]SpinRecord, s.capacity)
	s.board.Store(&board{rankOf: map[string]int{}})
	return s
}

// Record implements Store.Record.
func (s *MemoryStore) Record(_ context.Context, rec SpinRecord) error {
	if rec.SpinID == "" || rec.EventID == "" {
		metrics.RecordErrorByComponent("repository", "invalid_record")
		return fmt.Errorf("%w: spin=%q event=%q", ErrInvalidRecord, rec.SpinID, rec.EventID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = rec
	s.next = (s.next + 1) % s.capacity
	if s.filled < s.capacity {
		s.filled++
	}
	s.total++

	t, ok := s.tallies[rec.EventID]
	if !ok {
		t = &tally{}
		s.tallies[rec.EventID] = t
	}
	t.title = rec.Title
	t.wins++
	if rec.CompletedAt.After(t.lastWon) {
		t.lastWon = rec.CompletedAt
	}

	s.publishLocked()
	metrics.UpdateHistory(s.filled, len(s.tallies))
	return nil
}

// publishLocked rebuilds the ranked board. Caller holds s.mu.
func (s *MemoryStore) publishLocked() {
	entries := make([]WinnerEntry, 0, len(s.tallies))
	for id, t := range s.tallies {
		entries = append(entries, WinnerEntry{EventID: id, Title: t.title, Wins: t.wins, LastWon: t.lastWon})
	}
	sortEntries(entries)
	assignRanksWithTies(entries)

	rankOf := make(map[string]int, len(entries))
	for i := range entries {
		rankOf[entries[i].EventID] = i
	}
	s.board.Store(&board{entries: entries, rankOf: rankOf})
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]SpinRecord, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n = min(n, s.filled)
	out := make([]SpinRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + s.capacity) % s.capacity
		out = append(out, s.ring[idx])
	}
	return out, nil
}

// TopWinners implements Store.TopWinners.
func (s *MemoryStore) TopWinners(_ context.Context, n int) ([]WinnerEntry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	b := s.board.Load()
	n = min(n, len(b.entries))
	out := make([]WinnerEntry, n)
	copy(out, b.entries[:n])
	return out, nil
}

// Rank implements Store.Rank.
func (s *MemoryStore) Rank(_ context.Context, eventID string) (WinnerEntry, error) {
	b := s.board.Load()
	i, ok := b.rankOf[eventID]
	if !ok {
		return WinnerEntry{}, ErrNotFound
	}
	return b.entries[i], nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// DistinctWinners is the number of events that won at least once.
func (s *MemoryStore) DistinctWinners() int {
	return len(s.board.Load().entries)
}

// sortEntries orders by wins desc, then event id asc.
func sortEntries(entries []WinnerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Wins != entries[j].Wins {
			return entries[i].Wins > entries[j].Wins
		}
		return entries[i].EventID < entries[j].EventID
	})
}

// assignRanksWithTies gives equal wins the same rank; ranks stay consecutive.
func assignRanksWithTies(entries []WinnerEntry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Wins != entries[i-1].Wins {
			rank++
		}
		entries[i].Rank = rank
	}
}
