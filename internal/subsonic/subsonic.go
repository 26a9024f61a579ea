// Package subsonic implements a client for the Subsonic REST API.
//
// Covers the subset of the API the sync engine needs: song/album search,
// rating updates, scrobble submission, and library scan triggers. The
// client is safe for concurrent use; authentication parameters are
// regenerated per request as the protocol requires.
package subsonic

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/subsync/internal/shared"
)

const apiVersion = "1.16.1"

// Catalog defines the remote catalog operations used by the sync engine.
type Catalog interface {
	// Search performs a search3 query, returning up to songCount songs and albumCount albums.
	Search(ctx context.Context, query string, songCount, albumCount int) (*SearchResult, error)

	// GetAlbum retrieves an album with its full track listing.
	GetAlbum(ctx context.Context, id string) (*Album, error)

	// SetRating assigns a 0-5 rating to a song. A rating of 0 removes it.
	SetRating(ctx context.Context, id string, rating int) error

	// Scrobble submits a play event for a song at the given time.
	Scrobble(ctx context.Context, id string, playedAt time.Time) error

	// StartScan asks the server to rescan its media folders.
	// Returns the number of entries queued for scanning.
	StartScan(ctx context.Context) (int, error)
}

// Song is a single catalog entry returned by search or album listings.
type Song struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album"`
	Track  int    `json:"track"`
}

// Album is a catalog album, with Songs populated only by GetAlbum.
type Album struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Songs  []Song `json:"song"`
}

// SearchResult holds the song and album portions of a search3 response.
type SearchResult struct {
	Songs  []Song
	Albums []Album
}

// Client talks to a Subsonic-compatible server.
type Client struct {
	baseURL    string
	user       string
	password   string
	authMode   string
	clientName string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a Subsonic client from connection settings.
// A nil http.Client falls back to [http.DefaultClient].
func NewClient(cfg shared.SubsonicConfig, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := cfg.URL
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	name := cfg.Client
	if name == "" {
		name = "subsync"
	}

	return &Client{
		baseURL:    base,
		user:       cfg.User,
		password:   cfg.Password,
		authMode:   cfg.Auth,
		clientName: name,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type scanStatus struct {
	Scanning bool `json:"scanning"`
	Count    int  `json:"count"`
}

type searchResult3 struct {
	Songs  []Song  `json:"song"`
	Albums []Album `json:"album"`
}

type envelope struct {
	Response struct {
		Status        string         `json:"status"`
		Error         *apiError      `json:"error"`
		SearchResult3 *searchResult3 `json:"searchResult3"`
		Album         *Album         `json:"album"`
		ScanStatus    *scanStatus    `json:"scanStatus"`
	} `json:"subsonic-response"`
}

// authParams builds the per-request authentication query parameters.
//
// In token mode a fresh salt is generated for every request and the
// password never leaves the process; in password mode the password is
// hex-encoded as the legacy API expects.
func (c *Client) authParams() url.Values {
	params := url.Values{}
	params.Set("u", c.user)
	params.Set("v", apiVersion)
	params.Set("c", c.clientName)
	params.Set("f", "json")

	if c.authMode == "password" {
		params.Set("p", "enc:"+hex.EncodeToString([]byte(c.password)))
		return params
	}

	salt := newSalt()
	sum := md5.Sum([]byte(c.password + salt))
	params.Set("t", hex.EncodeToString(sum[:]))
	params.Set("s", salt)
	return params
}

func newSalt() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; a
		// time-derived salt still satisfies the protocol.
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf)
}

// do performs a GET against a REST endpoint and decodes the response envelope.
func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (*envelope, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	query := c.authParams()
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	apiURL := fmt.Sprintf("%s/rest/%s?%s", c.baseURL, endpoint, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}

	if env.Response.Status != "ok" {
		return nil, wrapAPIError(env.Response.Error)
	}

	return &env, nil
}

// wrapAPIError maps Subsonic error codes onto the shared sentinels.
//
// Codes 40-44 are the authentication family and 50 is an authorization
// failure; all are fatal to a batch. Code 70 means the requested entity
// does not exist and is a soft miss.
func wrapAPIError(e *apiError) error {
	if e == nil {
		return fmt.Errorf("%w: server reported failure without details", shared.ErrAPIRequest)
	}
	switch {
	case (e.Code >= 40 && e.Code <= 44) || e.Code == 50:
		return fmt.Errorf("%w: code %d: %s", shared.ErrAuthFailed, e.Code, e.Message)
	case e.Code == 70:
		return fmt.Errorf("%w: code %d: %s", shared.ErrSongNotFound, e.Code, e.Message)
	default:
		return fmt.Errorf("%w: code %d: %s", shared.ErrAPIRequest, e.Code, e.Message)
	}
}

// Search performs a search3 query against the server.
func (c *Client) Search(ctx context.Context, query string, songCount, albumCount int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("songCount", strconv.Itoa(songCount))
	params.Set("albumCount", strconv.Itoa(albumCount))
	params.Set("artistCount", "0")

	env, err := c.do(ctx, "search3", params)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{}
	if sr := env.Response.SearchResult3; sr != nil {
		result.Songs = sr.Songs
		result.Albums = sr.Albums
	}
	return result, nil
}

// GetAlbum retrieves an album and its track listing.
func (c *Client) GetAlbum(ctx context.Context, id string) (*Album, error) {
	params := url.Values{}
	params.Set("id", id)

	env, err := c.do(ctx, "getAlbum", params)
	if err != nil {
		return nil, err
	}
	if env.Response.Album == nil {
		return nil, fmt.Errorf("%w: album %s missing from response", shared.ErrAPIRequest, id)
	}
	return env.Response.Album, nil
}

// SetRating assigns a rating to a song.
func (c *Client) SetRating(ctx context.Context, id string, rating int) error {
	if rating < 0 || rating > 5 {
		return fmt.Errorf("%w: rating %d out of range", shared.ErrInvalidFlag, rating)
	}

	params := url.Values{}
	params.Set("id", id)
	params.Set("rating", strconv.Itoa(rating))

	_, err := c.do(ctx, "setRating", params)
	return err
}

// Scrobble submits a play event for a song.
func (c *Client) Scrobble(ctx context.Context, id string, playedAt time.Time) error {
	params := url.Values{}
	params.Set("id", id)
	params.Set("time", strconv.FormatInt(playedAt.UnixMilli(), 10))
	params.Set("submission", "true")

	_, err := c.do(ctx, "scrobble", params)
	return err
}

// StartScan asks the server to rescan its media folders.
func (c *Client) StartScan(ctx context.Context) (int, error) {
	env, err := c.do(ctx, "startScan", url.Values{})
	if err != nil {
		return 0, err
	}
	if env.Response.ScanStatus == nil {
		return 0, nil
	}
	return env.Response.ScanStatus.Count, nil
}
