package tasks

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/subsync/internal/library"
	"github.com/desertthunder/subsync/internal/shared"
)

// HistoryEvent is one recorded play of an item.
type HistoryEvent struct {
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album,omitempty"`
	PlayedAt time.Time `json:"played_at"`
}

// LoadHistory reads play events from a JSON file: an array of objects
// with title, artist, optional album, and an RFC3339 played_at.
func LoadHistory(path string) ([]HistoryEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var events []HistoryEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}

	for i, event := range events {
		if event.Title == "" {
			return nil, fmt.Errorf("%w: event %d has no title", shared.ErrInvalidFlag, i)
		}
		if event.PlayedAt.IsZero() {
			return nil, fmt.Errorf("%w: event %d has no played_at", shared.ErrInvalidFlag, i)
		}
	}

	return events, nil
}

// groupEvents buckets events per item and sorts each bucket by play
// time ascending, so listening order is preserved on the server side.
// Events are tied back to library items where possible so resolved ids
// get cached; unknown items are replayed with transient items.
func groupEvents(events []HistoryEvent, finder ItemFinder) []batchJob {
	type bucket struct {
		item   *library.Item
		events []HistoryEvent
	}

	var order []string
	buckets := map[string]*bucket{}

	for _, event := range events {
		key := strings.ToLower(event.Artist) + "\x00" + strings.ToLower(event.Title) + "\x00" + strings.ToLower(event.Album)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{item: findOrTransient(finder, event)}
			buckets[key] = b
			order = append(order, key)
		}
		b.events = append(b.events, event)
	}

	jobs := make([]batchJob, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		sort.SliceStable(b.events, func(i, j int) bool {
			return b.events[i].PlayedAt.Before(b.events[j].PlayedAt)
		})
		jobs = append(jobs, batchJob{item: b.item, events: b.events})
	}
	return jobs
}

// findOrTransient looks the event up in the library, falling back to a
// transient item (ID 0, never cached) when the library does not know it.
func findOrTransient(finder ItemFinder, event HistoryEvent) *library.Item {
	if finder != nil {
		if item, err := finder.Find(event.Title, event.Artist, event.Album); err == nil {
			return item
		}
	}
	return &library.Item{Title: event.Title, Artist: event.Artist, Album: event.Album}
}
