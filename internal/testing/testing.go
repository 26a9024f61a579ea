// package testing contains shared testing utilities
package testing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/subsync/internal/subsonic"
)

// ScrobbleCall records one Scrobble invocation on the mock catalog.
type ScrobbleCall struct {
	ID       string
	PlayedAt time.Time
}

// MockCatalog is a configurable test double for [subsonic.Catalog].
// It records rating and scrobble calls and is safe for concurrent use.
type MockCatalog struct {
	mu sync.Mutex

	SearchResults map[string]*subsonic.SearchResult // keyed by query
	AlbumsByID    map[string]*subsonic.Album
	ScanCount     int

	SearchErr   error
	AlbumErr    error
	RatingErr   error
	ScrobbleErr error
	ScanErr     error

	SearchCalls []string
	Ratings     map[string]int
	Scrobbles   []ScrobbleCall
}

func (m *MockCatalog) Search(ctx context.Context, query string, songCount, albumCount int) (*subsonic.SearchResult, error) {
	m.mu.Lock()
	m.SearchCalls = append(m.SearchCalls, query)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	if result, ok := m.SearchResults[query]; ok {
		return result, nil
	}
	return &subsonic.SearchResult{}, nil
}

func (m *MockCatalog) GetAlbum(ctx context.Context, id string) (*subsonic.Album, error) {
	if m.AlbumErr != nil {
		return nil, m.AlbumErr
	}
	if album, ok := m.AlbumsByID[id]; ok {
		return album, nil
	}
	return &subsonic.Album{ID: id}, nil
}

func (m *MockCatalog) SetRating(ctx context.Context, id string, rating int) error {
	if m.RatingErr != nil {
		return m.RatingErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Ratings == nil {
		m.Ratings = map[string]int{}
	}
	m.Ratings[id] = rating
	return nil
}

func (m *MockCatalog) Scrobble(ctx context.Context, id string, playedAt time.Time) error {
	if m.ScrobbleErr != nil {
		return m.ScrobbleErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scrobbles = append(m.Scrobbles, ScrobbleCall{ID: id, PlayedAt: playedAt})
	return nil
}

func (m *MockCatalog) StartScan(ctx context.Context) (int, error) {
	if m.ScanErr != nil {
		return 0, m.ScanErr
	}
	return m.ScanCount, nil
}

// ScrobblesFor returns the recorded scrobbles for one song id, in call order.
func (m *MockCatalog) ScrobblesFor(id string) []ScrobbleCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []ScrobbleCall
	for _, call := range m.Scrobbles {
		if call.ID == id {
			calls = append(calls, call)
		}
	}
	return calls
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
