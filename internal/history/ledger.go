// Package history keeps a bounded, deduplicated in-memory record of executed
// query texts and their outcomes.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/querydeck/querydeck/internal/models"
)

// DefaultCapacity is the number of entries the ledger retains.
const DefaultCapacity = 15

// Ledger holds the most recent query executions, newest first, with at most
// one entry per distinct query text. Safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	capacity int
	items    []models.QueryHistoryItem
}

func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ledger{capacity: capacity}
}

// Record inserts a fresh entry at the front. If an entry with identical query
// text exists it is removed first, so re-running a query moves it to index 0
// with a new id, timestamp and error instead of duplicating it.
func (l *Ledger) Record(query string, errMsg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, item := range l.items {
		if item.Query == query {
			l.items = append(l.items[:i], l.items[i+1:]...)
			break
		}
	}

	entry := models.QueryHistoryItem{
		ID:        uuid.NewString(),
		Query:     query,
		Timestamp: time.Now(),
		Error:     errMsg,
	}
	l.items = append([]models.QueryHistoryItem{entry}, l.items...)
	if len(l.items) > l.capacity {
		l.items = l.items[:l.capacity]
	}
}

// Items returns a copy of the ledger, most recent first.
func (l *Ledger) Items() []models.QueryHistoryItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.QueryHistoryItem, len(l.items))
	copy(out, l.items)
	return out
}

// Clear empties the ledger unconditionally.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}
