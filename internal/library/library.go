// Package library reads and annotates a beets library database.
//
// The database is owned by beets; subsync only reads item metadata and
// stores resolved server ids as flexible attributes. No schema is ever
// created or migrated here.
package library

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/subsync/internal/shared"
)

// AttrSubsonicID is the flexible attribute key holding a resolved server id.
const AttrSubsonicID = "subsonic_id"

// Item is a single track in the local library.
type Item struct {
	ID          int64
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Track       int    // position within the album
	SubsonicID  string // cached remote id, empty if unresolved
}

// Name returns a human-readable "artist - title" label for logs and reports.
func (i *Item) Name() string {
	if i.Artist == "" {
		return i.Title
	}
	return i.Artist + " - " + i.Title
}

// Library wraps the beets sqlite database.
type Library struct {
	db *sql.DB
}

// Open opens the beets database at path.
func Open(path string, maxOpen, maxIdle int) (*Library, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrLibraryNotFound, path)
		}
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	if maxOpen > 0 {
		shared.ConfigureDatabase(db, maxOpen, maxIdle)
	}

	return &Library{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *Library {
	return &Library{db: db}
}

// Close releases the database connection.
func (l *Library) Close() error {
	return l.db.Close()
}

// queryFields are the item columns a filter term may target.
var queryFields = map[string]string{
	"title":       "title",
	"artist":      "artist",
	"album":       "album",
	"albumartist": "albumartist",
}

// Items enumerates library items matching a beets-style filter query.
//
// The query is a whitespace-separated list of terms. A "field:value"
// term restricts value to that field; a bare term matches title, artist,
// or album. All matching is case-insensitive substring containment, and
// terms are combined with AND. The empty query returns every item.
func (l *Library) Items(query string) ([]*Item, error) {
	sqlQuery := `
		SELECT i.id, i.title, i.artist, i.album, i.albumartist, i.track, COALESCE(a.value, '')
		FROM items i
		LEFT JOIN item_attributes a ON a.entity_id = i.id AND a.key = ?
	`
	args := []any{AttrSubsonicID}

	var clauses []string
	for _, term := range strings.Fields(query) {
		field, value, ok := strings.Cut(term, ":")
		if ok {
			column, known := queryFields[strings.ToLower(field)]
			if !known {
				return nil, fmt.Errorf("%w: unknown query field %q", shared.ErrInvalidFlag, field)
			}
			clauses = append(clauses, fmt.Sprintf(`LOWER(i.%s) LIKE '%%' || LOWER(?) || '%%' ESCAPE '\'`, column))
			args = append(args, escapeLike(value))
			continue
		}

		clauses = append(clauses, `(
			LOWER(i.title) LIKE '%' || LOWER(?) || '%' ESCAPE '\'
			OR LOWER(i.artist) LIKE '%' || LOWER(?) || '%' ESCAPE '\'
			OR LOWER(i.album) LIKE '%' || LOWER(?) || '%' ESCAPE '\'
		)`)
		escaped := escapeLike(term)
		args = append(args, escaped, escaped, escaped)
	}

	if len(clauses) > 0 {
		sqlQuery += " WHERE " + strings.Join(clauses, " AND ")
	}
	sqlQuery += " ORDER BY i.id ASC"

	rows, err := l.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// Find returns the first item exactly matching title, artist, and (when
// non-empty) album, case-insensitively. Used to tie history events back
// to library items.
func (l *Library) Find(title, artist, album string) (*Item, error) {
	sqlQuery := `
		SELECT i.id, i.title, i.artist, i.album, i.albumartist, i.track, COALESCE(a.value, '')
		FROM items i
		LEFT JOIN item_attributes a ON a.entity_id = i.id AND a.key = ?
		WHERE LOWER(i.title) = LOWER(?) AND LOWER(i.artist) = LOWER(?)
	`
	args := []any{AttrSubsonicID, title, artist}
	if album != "" {
		sqlQuery += " AND LOWER(i.album) = LOWER(?)"
		args = append(args, album)
	}
	sqlQuery += " ORDER BY i.id ASC LIMIT 1"

	rows, err := l.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("row iteration error: %w", err)
		}
		return nil, shared.ErrItemNotFound
	}

	return scanItem(rows)
}

// SetSubsonicID stores a resolved server id for an item.
func (l *Library) SetSubsonicID(itemID int64, subsonicID string) error {
	result, err := l.db.Exec(
		`UPDATE item_attributes SET value = ? WHERE entity_id = ? AND key = ?`,
		subsonicID, itemID, AttrSubsonicID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attribute: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	_, err = l.db.Exec(
		`INSERT INTO item_attributes (entity_id, key, value) VALUES (?, ?, ?)`,
		itemID, AttrSubsonicID, subsonicID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert attribute: %w", err)
	}
	return nil
}

// Attribute reads a named flexible attribute for an item.
// The second return reports whether the attribute exists.
func (l *Library) Attribute(itemID int64, key string) (string, bool, error) {
	var value string
	err := l.db.QueryRow(
		`SELECT value FROM item_attributes WHERE entity_id = ? AND key = ?`,
		itemID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read attribute: %w", err)
	}
	return value, true, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards in a user-supplied term so "%"
// and "_" match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func scanItem(rows *sql.Rows) (*Item, error) {
	var (
		item  Item
		track sql.NullInt64
	)
	if err := rows.Scan(&item.ID, &item.Title, &item.Artist, &item.Album, &item.AlbumArtist, &track, &item.SubsonicID); err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	if track.Valid {
		item.Track = int(track.Int64)
	}
	return &item, nil
}
