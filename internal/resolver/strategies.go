package resolver

import (
	"context"
	"strings"

	"github.com/desertthunder/subsync/internal/library"
	"github.com/desertthunder/subsync/internal/subsonic"
)

const (
	songSearchLimit  = 10
	albumSearchLimit = 5
)

// fieldMatch scores a candidate field against a local field.
// Containment counts either direction because catalogs disagree about
// which side carries extra annotations.
func fieldMatch(local, remote string) Match {
	local = strings.TrimSpace(strings.ToLower(local))
	remote = strings.TrimSpace(strings.ToLower(remote))
	if local == "" || remote == "" {
		return MatchNone
	}
	if local == remote {
		return MatchExact
	}
	if strings.Contains(remote, local) || strings.Contains(local, remote) {
		return MatchSubstring
	}
	return MatchNone
}

// normalizeArtist strips trailing "feat."-style annotations, which are
// asymmetric between catalogs and cause spurious mismatches.
func normalizeArtist(artist string) string {
	lower := strings.ToLower(artist)
	for _, marker := range []string{" feat. ", " feat ", " featuring ", " ft. ", " ft ", "(feat", "[feat"} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			artist = artist[:idx]
			lower = lower[:idx]
		}
	}
	return strings.TrimSpace(artist)
}

func candidateFrom(song subsonic.Song, score Match, strategy string) Candidate {
	return Candidate{
		ID:       song.ID,
		Title:    song.Title,
		Artist:   song.Artist,
		Album:    song.Album,
		Track:    song.Track,
		Score:    score,
		Strategy: strategy,
	}
}

// titleSearch queries by title alone. Title is the most reliable
// discriminant between the two catalogs, so this is tried first.
type titleSearch struct{}

func (titleSearch) Name() string { return "title" }

func (s titleSearch) Search(ctx context.Context, catalog Searcher, item *library.Item) ([]Candidate, error) {
	if item.Title == "" {
		return nil, nil
	}

	result, err := catalog.Search(ctx, item.Title, songSearchLimit, 0)
	if err != nil {
		return nil, err
	}

	var accepted []Candidate
	for _, song := range result.Songs {
		if score := fieldMatch(item.Title, song.Title); score != MatchNone {
			accepted = append(accepted, candidateFrom(song, score, s.Name()))
		}
	}
	return accepted, nil
}

// exactTitle tightens titleSearch to case-insensitive equality only.
type exactTitle struct{}

func (exactTitle) Name() string { return "exact_title" }

func (s exactTitle) Search(ctx context.Context, catalog Searcher, item *library.Item) ([]Candidate, error) {
	if item.Title == "" {
		return nil, nil
	}

	result, err := catalog.Search(ctx, item.Title, songSearchLimit, 0)
	if err != nil {
		return nil, err
	}

	var accepted []Candidate
	for _, song := range result.Songs {
		if strings.EqualFold(strings.TrimSpace(item.Title), strings.TrimSpace(song.Title)) {
			accepted = append(accepted, candidateFrom(song, MatchExact, s.Name()))
		}
	}
	return accepted, nil
}

// titleAlbumSearch widens the query with the album name to disambiguate
// common titles.
type titleAlbumSearch struct{}

func (titleAlbumSearch) Name() string { return "title_album" }

func (s titleAlbumSearch) Search(ctx context.Context, catalog Searcher, item *library.Item) ([]Candidate, error) {
	if item.Title == "" || item.Album == "" {
		return nil, nil
	}

	result, err := catalog.Search(ctx, item.Album+" "+item.Title, songSearchLimit, 0)
	if err != nil {
		return nil, err
	}

	var accepted []Candidate
	for _, song := range result.Songs {
		titleScore := fieldMatch(item.Title, song.Title)
		if titleScore == MatchNone {
			continue
		}
		if fieldMatch(item.Album, song.Album) == MatchNone {
			continue
		}
		accepted = append(accepted, candidateFrom(song, titleScore, s.Name()))
	}
	return accepted, nil
}

// artistTitleSearch is the alternate disambiguation path for items with
// absent or unreliable album metadata.
type artistTitleSearch struct{}

func (artistTitleSearch) Name() string { return "artist_title" }

func (s artistTitleSearch) Search(ctx context.Context, catalog Searcher, item *library.Item) ([]Candidate, error) {
	artist := normalizeArtist(item.Artist)
	if item.Title == "" || artist == "" {
		return nil, nil
	}

	result, err := catalog.Search(ctx, artist+" "+item.Title, songSearchLimit, 0)
	if err != nil {
		return nil, err
	}

	var accepted []Candidate
	for _, song := range result.Songs {
		titleScore := fieldMatch(item.Title, song.Title)
		if titleScore == MatchNone {
			continue
		}
		if fieldMatch(artist, normalizeArtist(song.Artist)) == MatchNone {
			continue
		}
		accepted = append(accepted, candidateFrom(song, titleScore, s.Name()))
	}
	return accepted, nil
}

// albumFallback is the last resort: search for the album, pull its track
// listing, and pick the song by position or title. Catches items whose
// titles diverge between catalogs while album metadata still agrees.
type albumFallback struct{}

func (albumFallback) Name() string { return "album" }

func (s albumFallback) Search(ctx context.Context, catalog Searcher, item *library.Item) ([]Candidate, error) {
	if item.Album == "" {
		return nil, nil
	}

	result, err := catalog.Search(ctx, item.Album, 0, albumSearchLimit)
	if err != nil {
		return nil, err
	}

	for _, album := range result.Albums {
		if fieldMatch(item.Album, album.Name) == MatchNone {
			continue
		}

		full, err := catalog.GetAlbum(ctx, album.ID)
		if err != nil {
			return nil, err
		}

		if song, score := pickFromAlbum(full, item); song != nil {
			return []Candidate{candidateFrom(*song, score, s.Name())}, nil
		}
	}
	return nil, nil
}

// pickFromAlbum selects a song from an album's track listing: a title
// match wins outright, otherwise the song at the item's track position
// is taken on the album's say-so.
func pickFromAlbum(album *subsonic.Album, item *library.Item) (*subsonic.Song, Match) {
	var positional *subsonic.Song
	for i := range album.Songs {
		song := &album.Songs[i]
		if score := fieldMatch(item.Title, song.Title); score != MatchNone {
			return song, score
		}
		if item.Track > 0 && song.Track == item.Track {
			positional = song
		}
	}
	if positional != nil {
		return positional, MatchSubstring
	}
	return nil, MatchNone
}
