// Package history provides durable storage for solved problems and the
// grouped views the history screen renders.
package history

import (
	"errors"
	"time"
)

// Store errors.
var (
	// ErrNotFound indicates the requested item doesn't exist.
	ErrNotFound = errors.New("history item not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("history store is closed")
)

// Item is one solved problem.
type Item struct {
	ID        string    `json:"id"`
	InputType string    `json:"input_type"` // e.g. "text", "image", "voice"
	Tool      string    `json:"tool_used"`  // e.g. "solver", "graphing"
	Query     string    `json:"query"`
	Solution  string    `json:"solution"`
	Topic     string    `json:"topic,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	InputType string
	Tool      string
}

// Matches reports whether an item passes the filter.
func (f Filter) Matches(item Item) bool {
	if f.InputType != "" && item.InputType != f.InputType {
		return false
	}
	if f.Tool != "" && item.Tool != f.Tool {
		return false
	}
	return true
}

// Store persists history items.
// Implementations must be safe for concurrent use.
type Store interface {
	// Add stores an item. Overwrites if the ID already exists.
	Add(item Item) error

	// Get retrieves an item by ID.
	// Returns ErrNotFound if it doesn't exist.
	Get(id string) (Item, error)

	// List returns matching items, newest first.
	// Returns an empty slice (not an error) when nothing matches.
	List(filter Filter) ([]Item, error)

	// Delete removes an item. Returns nil if it doesn't exist.
	Delete(id string) error

	// Clear removes all items.
	Clear() error

	// Close releases store resources.
	Close() error
}

// Grouped partitions history items by age for display.
type Grouped struct {
	Today     []Item `json:"today"`
	Yesterday []Item `json:"yesterday"`
	LastWeek  []Item `json:"lastWeek"`
	Older     []Item `json:"older"`
}

// Group partitions items relative to now. Today and Yesterday are
// calendar days in now's location; LastWeek covers the preceding seven
// days; everything earlier is Older. Input order is preserved within
// each group.
func Group(items []Item, now time.Time) Grouped {
	grouped := Grouped{
		Today:     []Item{},
		Yesterday: []Item{},
		LastWeek:  []Item{},
		Older:     []Item{},
	}

	loc := now.Location()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startOfYesterday := startOfToday.AddDate(0, 0, -1)
	startOfLastWeek := startOfToday.AddDate(0, 0, -7)

	for _, item := range items {
		created := item.CreatedAt.In(loc)
		switch {
		case !created.Before(startOfToday):
			grouped.Today = append(grouped.Today, item)
		case !created.Before(startOfYesterday):
			grouped.Yesterday = append(grouped.Yesterday, item)
		case !created.Before(startOfLastWeek):
			grouped.LastWeek = append(grouped.LastWeek, item)
		default:
			grouped.Older = append(grouped.Older, item)
		}
	}

	return grouped
}
