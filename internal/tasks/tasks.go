// Package tasks implements the sync operations between the local
// library and the Subsonic server.
//
// The core abstraction is SyncEngine, which runs per-item operations
// across a bounded worker pool, isolating per-item failures and
// aggregating outcomes. Progress is emitted via channels for
// non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subsync/internal/library"
	"github.com/desertthunder/subsync/internal/rating"
	"github.com/desertthunder/subsync/internal/resolver"
	"github.com/desertthunder/subsync/internal/shared"
	"github.com/desertthunder/subsync/internal/subsonic"
)

// Status classifies the outcome of processing one item.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return ""
	}
}

// MarshalJSON renders the status as its string form in reports.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// Outcome records what happened to a single item in a batch.
type Outcome struct {
	ItemID     int64  `json:"item_id,omitempty"`
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`
	SubsonicID string `json:"subsonic_id,omitempty"`
	Strategy   string `json:"strategy,omitempty"`
	Events     int    `json:"events,omitempty"` // scrobbles submitted
	Err        error  `json:"-"`
}

// BatchResult aggregates the outcomes of one batch invocation.
type BatchResult struct {
	RunID     string    `json:"run_id"`
	Operation string    `json:"operation"`
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"outcomes"`
}

// IDCache is the cache-first resolution boundary.
type IDCache interface {
	GetOrResolve(ctx context.Context, item *library.Item, force bool) (resolver.Result, error)
}

// AttributeReader reads named rating-source fields from the library.
type AttributeReader interface {
	Attribute(itemID int64, key string) (string, bool, error)
}

// ItemFinder ties history events back to library items.
type ItemFinder interface {
	Find(title, artist, album string) (*library.Item, error)
}

// Options configures batch execution.
type Options struct {
	Workers   int     // concurrent in-flight items (default 3, cap 10)
	RateLimit float64 // requests per second admitted to the pool (default 5)
}

// SyncEngine drives batch operations against the catalog.
type SyncEngine struct {
	catalog subsonic.Catalog
	cache   IDCache
	attrs   AttributeReader
	logger  *log.Logger
	opts    Options
}

// NewSyncEngine creates a SyncEngine.
func NewSyncEngine(catalog subsonic.Catalog, cache IDCache, attrs AttributeReader, logger *log.Logger, opts Options) *SyncEngine {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.Workers > 10 {
		opts.Workers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	return &SyncEngine{
		catalog: catalog,
		cache:   cache,
		attrs:   attrs,
		logger:  logger,
		opts:    opts,
	}
}

// ResolveIDs resolves every item to a server id, caching successful
// matches back into the library. With force set, cached ids are
// ignored and re-resolved.
func (e *SyncEngine) ResolveIDs(ctx context.Context, prog chan<- ProgressUpdate, items []*library.Item, force bool) (*BatchResult, error) {
	jobs := make([]batchJob, len(items))
	for i, item := range items {
		jobs[i] = batchJob{item: item}
	}

	return e.runBatch(ctx, prog, "resolve-ids", PhaseResolve, jobs, func(ctx context.Context, job batchJob) Outcome {
		result, err := e.cache.GetOrResolve(ctx, job.item, force)
		if err != nil {
			return failedOutcome(job.item, err)
		}
		return resolutionOutcome(job.item, result)
	})
}

// SyncRatings reads the named rating-source attribute from each item,
// transforms it with the given kind, and pushes it to the server.
// Items without the attribute are skipped.
func (e *SyncEngine) SyncRatings(ctx context.Context, prog chan<- ProgressUpdate, items []*library.Item, sourceField string, kind rating.Kind) (*BatchResult, error) {
	jobs := make([]batchJob, len(items))
	for i, item := range items {
		jobs[i] = batchJob{item: item}
	}

	return e.runBatch(ctx, prog, "sync-ratings", PhaseRatings, jobs, func(ctx context.Context, job batchJob) Outcome {
		item := job.item

		raw, ok, err := e.attrs.Attribute(item.ID, sourceField)
		if err != nil {
			return failedOutcome(item, err)
		}
		if !ok {
			return skippedOutcome(item, fmt.Sprintf("no %s attribute", sourceField))
		}

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return skippedOutcome(item, fmt.Sprintf("unparseable %s value %q", sourceField, raw))
		}

		result, err := e.cache.GetOrResolve(ctx, item, false)
		if err != nil {
			return failedOutcome(item, err)
		}
		if result.State != resolver.Matched {
			return resolutionOutcome(item, result)
		}

		remote := rating.Transform(kind, value)
		if err := e.catalog.SetRating(ctx, result.Candidate.ID, remote); err != nil {
			if errors.Is(err, shared.ErrSongNotFound) {
				return skippedOutcome(item, "server no longer has this song")
			}
			return failedOutcome(item, err)
		}

		out := successOutcome(item, result)
		out.Reason = fmt.Sprintf("rated %d (%s=%s)", remote, sourceField, raw)
		return out
	})
}

// ReplayHistory resolves each played item and submits its play events
// as scrobbles, oldest first per item. An item that cannot be resolved
// has all of its events skipped. Previously submitted scrobbles are not
// tracked; replaying the same history resubmits the same events.
func (e *SyncEngine) ReplayHistory(ctx context.Context, prog chan<- ProgressUpdate, events []HistoryEvent, finder ItemFinder) (*BatchResult, error) {
	jobs := groupEvents(events, finder)

	return e.runBatch(ctx, prog, "replay-history", PhaseScrobbles, jobs, func(ctx context.Context, job batchJob) Outcome {
		item := job.item

		result, err := e.cache.GetOrResolve(ctx, item, false)
		if err != nil {
			return failedOutcome(item, err)
		}
		if result.State != resolver.Matched {
			out := resolutionOutcome(item, result)
			out.Reason = fmt.Sprintf("%s; %d events dropped", out.Reason, len(job.events))
			return out
		}

		submitted := 0
		for _, event := range job.events {
			if err := e.catalog.Scrobble(ctx, result.Candidate.ID, event.PlayedAt); err != nil {
				out := failedOutcome(item, fmt.Errorf("scrobble %d of %d: %w", submitted+1, len(job.events), err))
				out.Events = submitted
				return out
			}
			submitted++
		}

		out := successOutcome(item, result)
		out.Events = submitted
		out.Reason = fmt.Sprintf("%d scrobbles submitted", submitted)
		return out
	})
}

// Scan asks the server to rescan its media folders.
func (e *SyncEngine) Scan(ctx context.Context) (int, error) {
	count, err := e.catalog.StartScan(ctx)
	if err != nil {
		return 0, err
	}
	e.logger.Info("scan started", "queued", count)
	return count, nil
}

func successOutcome(item *library.Item, result resolver.Result) Outcome {
	return Outcome{
		ItemID:     item.ID,
		Name:       item.Name(),
		Status:     StatusSuccess,
		SubsonicID: result.Candidate.ID,
		Strategy:   result.Candidate.Strategy,
	}
}

func skippedOutcome(item *library.Item, reason string) Outcome {
	return Outcome{
		ItemID: item.ID,
		Name:   item.Name(),
		Status: StatusSkipped,
		Reason: reason,
	}
}

func failedOutcome(item *library.Item, err error) Outcome {
	return Outcome{
		ItemID: item.ID,
		Name:   item.Name(),
		Status: StatusFailed,
		Reason: err.Error(),
		Err:    err,
	}
}

// resolutionOutcome maps a resolver result onto an outcome: matches
// succeed, everything else is a skip rather than a failure.
func resolutionOutcome(item *library.Item, result resolver.Result) Outcome {
	switch result.State {
	case resolver.Matched:
		return successOutcome(item, result)
	case resolver.Ambiguous:
		out := skippedOutcome(item, fmt.Sprintf("ambiguous: %d exact candidates", len(result.Candidates)))
		out.Err = shared.ErrAmbiguousMatch
		return out
	default:
		return skippedOutcome(item, "no match on server")
	}
}
