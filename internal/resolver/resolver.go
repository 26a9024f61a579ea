// Package resolver matches local library items to songs in the remote
// catalog.
//
// The remote API only offers text search, so resolution runs an ordered
// chain of search strategies and accepts the first one that yields a
// usable candidate. Remote relevance ordering breaks ties between
// equally-scored candidates; a strategy producing several distinct exact
// matches is reported as ambiguous rather than guessed at.
package resolver

import (
	"context"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subsync/internal/library"
	"github.com/desertthunder/subsync/internal/subsonic"
)

// Match scores how well a candidate field matched the local field.
type Match int

const (
	MatchNone      Match = iota
	MatchSubstring       // case-insensitive containment either direction
	MatchExact           // case-insensitive equality
)

// Candidate is a remote song under consideration for a local item.
type Candidate struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	Track    int
	Score    Match
	Strategy string // name of the strategy that produced it
}

// State describes the outcome of a resolution attempt.
type State int

const (
	NotFound State = iota
	Matched
	Ambiguous
)

// Result is the outcome of resolving one item.
type Result struct {
	State      State
	Candidate  *Candidate  // set when State == Matched
	Candidates []Candidate // the tied set when State == Ambiguous
}

// Searcher is the read-only slice of the catalog the strategies need.
type Searcher interface {
	Search(ctx context.Context, query string, songCount, albumCount int) (*subsonic.SearchResult, error)
	GetAlbum(ctx context.Context, id string) (*subsonic.Album, error)
}

// Strategy is one search approach in the resolution chain.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string

	// Search queries the catalog and returns accepted candidates, in
	// remote relevance order. An empty slice means the strategy found
	// nothing acceptable and the chain moves on.
	Search(ctx context.Context, catalog Searcher, item *library.Item) ([]Candidate, error)
}

// Resolver runs the strategy chain for an item.
type Resolver struct {
	catalog    Searcher
	strategies []Strategy
	logger     *log.Logger
}

// New creates a Resolver with the default strategy chain.
func New(catalog Searcher, logger *log.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		logger:  logger,
		strategies: []Strategy{
			titleSearch{},
			exactTitle{},
			titleAlbumSearch{},
			artistTitleSearch{},
			albumFallback{},
		},
	}
}

// NewWithStrategies creates a Resolver with an explicit chain. Used by tests
// and callers that need a reduced chain.
func NewWithStrategies(catalog Searcher, logger *log.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{catalog: catalog, strategies: strategies, logger: logger}
}

// Resolve runs the chain in order and stops at the first strategy that
// yields at least one accepted candidate. Search errors abort resolution
// and are returned to the caller; the resolver itself never mutates
// remote or cache state.
func (r *Resolver) Resolve(ctx context.Context, item *library.Item) (Result, error) {
	for _, strategy := range r.strategies {
		candidates, err := strategy.Search(ctx, r.catalog, item)
		if err != nil {
			return Result{}, err
		}
		if len(candidates) == 0 {
			continue
		}

		result := selectCandidate(candidates)
		switch result.State {
		case Matched:
			r.logger.Debug("resolved item",
				"item", item.Name(),
				"id", result.Candidate.ID,
				"strategy", strategy.Name(),
				"score", result.Candidate.Score,
			)
		case Ambiguous:
			r.logger.Warn("ambiguous match, skipping",
				"item", item.Name(),
				"strategy", strategy.Name(),
				"candidates", len(result.Candidates),
			)
		}
		return result, nil
	}

	r.logger.Debug("no match found", "item", item.Name())
	return Result{State: NotFound}, nil
}

// selectCandidate picks the winner from a strategy's accepted set.
//
// Candidates are ordered by score, stably, so remote relevance order is
// the tie-break within a score band. Multiple distinct exact matches
// carry no usable signal and become Ambiguous.
func selectCandidate(candidates []Candidate) Result {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	best := sorted[0]
	if best.Score == MatchExact {
		distinct := 0
		seen := map[string]bool{}
		for _, c := range sorted {
			if c.Score == MatchExact && !seen[c.ID] {
				seen[c.ID] = true
				distinct++
			}
		}
		if distinct > 1 {
			ties := make([]Candidate, 0, distinct)
			for _, c := range sorted {
				if c.Score == MatchExact && !containsID(ties, c.ID) {
					ties = append(ties, c)
				}
			}
			return Result{State: Ambiguous, Candidates: ties}
		}
	}

	return Result{State: Matched, Candidate: &best}
}

func containsID(candidates []Candidate, id string) bool {
	for _, c := range candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}
