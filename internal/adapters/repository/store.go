// Package repository keeps the history of finished spins and the win tally
// per event.
package repository

import (
	"context"
	"time"

	"github.com/okian/randommarket/internal/domain/model"
)

// SpinRecord is one finished spin.
type SpinRecord struct {
	SpinID      string        `json:"spin_id"`
	EventID     string        `json:"event_id"`
	Title       string        `json:"title"`
	WinnerIndex int           `json:"winner_index"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration_ns"`
	CompletedAt time.Time     `json:"completed_at"`
}

// RecordFromResult flattens a spin result.
func RecordFromResult(r model.SpinResult) SpinRecord {
	return SpinRecord{
		SpinID:      r.SpinID,
		EventID:     r.Winner.ID,
		Title:       r.Winner.Title,
		WinnerIndex: r.WinnerIndex,
		Steps:       r.Steps,
		Duration:    r.Duration(),
		CompletedAt: r.CompletedAt,
	}
}

// WinnerEntry is a row of the winners board.
type WinnerEntry struct {
	Rank    int       `json:"rank"`
	EventID string    `json:"event_id"`
	Title   string    `json:"title"`
	Wins    int       `json:"wins"`
	LastWon time.Time `json:"last_won"`
}

// Store provides read/write access to the spin history.
type Store interface {
	// Record adds a finished spin.
	Record(ctx context.Context, rec SpinRecord) error

	// Recent returns up to n spins, newest first.
	Recent(ctx context.Context, n int) ([]SpinRecord, error)

	// TopWinners returns up to n events ordered by wins desc, then event id asc.
	TopWinners(ctx context.Context, n int) ([]WinnerEntry, error)

	// Rank returns the board row of one event. ErrNotFound if it never won.
	Rank(ctx context.Context, eventID string) (WinnerEntry, error)

	// Count returns the number of spins ever recorded.
	Count(ctx context.Context) int
}
