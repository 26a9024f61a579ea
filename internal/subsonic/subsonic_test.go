package subsonic

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/desertthunder/subsync/internal/shared"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(shared.SubsonicConfig{
		URL:      server.URL,
		User:     "admin",
		Password: "hunter2",
		Auth:     "token",
	}, 5*time.Second, server.Client())
	return client, server
}

func okEnvelope(payload string) string {
	return fmt.Sprintf(`{"subsonic-response": {"status": "ok"%s}}`, payload)
}

func failEnvelope(code int, message string) string {
	return fmt.Sprintf(
		`{"subsonic-response": {"status": "failed", "error": {"code": %d, "message": %q}}}`,
		code, message,
	)
}

func TestClient_Search(t *testing.T) {
	var gotQuery url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, okEnvelope(`, "searchResult3": {
			"song": [
				{"id": "s1", "title": "Karma Police", "artist": "Radiohead", "album": "OK Computer", "track": 6},
				{"id": "s2", "title": "Karma Police (Live)", "artist": "Radiohead", "album": "Live EP", "track": 1}
			],
			"album": [{"id": "a1", "name": "OK Computer", "artist": "Radiohead"}]
		}`))
	})

	result, err := client.Search(context.Background(), "Karma Police", 10, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Songs) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(result.Songs))
	}
	if result.Songs[0].ID != "s1" || result.Songs[0].Track != 6 {
		t.Errorf("unexpected first song: %+v", result.Songs[0])
	}
	if len(result.Albums) != 1 || result.Albums[0].Name != "OK Computer" {
		t.Errorf("unexpected albums: %+v", result.Albums)
	}

	if gotQuery.Get("query") != "Karma Police" {
		t.Errorf("unexpected query param: %s", gotQuery.Get("query"))
	}
	if gotQuery.Get("songCount") != "10" || gotQuery.Get("albumCount") != "5" {
		t.Errorf("unexpected counts: songCount=%s albumCount=%s", gotQuery.Get("songCount"), gotQuery.Get("albumCount"))
	}
	if gotQuery.Get("f") != "json" {
		t.Errorf("expected json format param, got %s", gotQuery.Get("f"))
	}
}

func TestClient_TokenAuth(t *testing.T) {
	var gotQuery url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, okEnvelope(""))
	})

	if _, err := client.Search(context.Background(), "x", 1, 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	token, salt := gotQuery.Get("t"), gotQuery.Get("s")
	if token == "" || salt == "" {
		t.Fatal("expected token and salt params")
	}
	if len(token) != 32 {
		t.Errorf("token is not an md5 hex digest: %s", token)
	}
	if gotQuery.Get("p") != "" {
		t.Error("token auth must not send the password")
	}
	if gotQuery.Get("u") != "admin" {
		t.Errorf("unexpected user: %s", gotQuery.Get("u"))
	}
}

func TestClient_TokenAuthSaltRotates(t *testing.T) {
	salts := map[string]bool{}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		salts[r.URL.Query().Get("s")] = true
		fmt.Fprint(w, okEnvelope(""))
	})

	for i := 0; i < 3; i++ {
		if _, err := client.Search(context.Background(), "x", 1, 0); err != nil {
			t.Fatalf("Search failed: %v", err)
		}
	}
	if len(salts) != 3 {
		t.Errorf("expected a fresh salt per request, got %d distinct salts", len(salts))
	}
}

func TestClient_PasswordAuth(t *testing.T) {
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, okEnvelope(""))
	}))
	defer server.Close()

	client := NewClient(shared.SubsonicConfig{
		URL:      server.URL,
		User:     "admin",
		Password: "hunter2",
		Auth:     "password",
	}, 0, server.Client())

	if _, err := client.Search(context.Background(), "x", 1, 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	want := "enc:" + hex.EncodeToString([]byte("hunter2"))
	if gotQuery.Get("p") != want {
		t.Errorf("unexpected password param: %s, want %s", gotQuery.Get("p"), want)
	}
	if gotQuery.Get("t") != "" {
		t.Error("password auth must not send a token")
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"wrong credentials is fatal", 40, shared.ErrAuthFailed},
		{"token not supported is fatal", 41, shared.ErrAuthFailed},
		{"not authorized is fatal", 50, shared.ErrAuthFailed},
		{"data not found is a soft miss", 70, shared.ErrSongNotFound},
		{"generic error is transient", 0, shared.ErrAPIRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, failEnvelope(tt.code, "nope"))
			})

			_, err := client.Search(context.Background(), "x", 1, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("code %d mapped to %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestClient_SetRating(t *testing.T) {
	t.Run("sends id and rating", func(t *testing.T) {
		var gotQuery url.Values
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query()
			fmt.Fprint(w, okEnvelope(""))
		})

		if err := client.SetRating(context.Background(), "s1", 4); err != nil {
			t.Fatalf("SetRating failed: %v", err)
		}
		if gotQuery.Get("id") != "s1" || gotQuery.Get("rating") != "4" {
			t.Errorf("unexpected params: id=%s rating=%s", gotQuery.Get("id"), gotQuery.Get("rating"))
		}
	})

	t.Run("rejects out-of-range rating locally", func(t *testing.T) {
		called := false
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
			fmt.Fprint(w, okEnvelope(""))
		})

		if err := client.SetRating(context.Background(), "s1", 6); err == nil {
			t.Error("expected error for rating 6")
		}
		if called {
			t.Error("out-of-range rating must not reach the server")
		}
	})
}

func TestClient_Scrobble(t *testing.T) {
	var gotQuery url.Values
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, okEnvelope(""))
	})

	playedAt := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	if err := client.Scrobble(context.Background(), "s1", playedAt); err != nil {
		t.Fatalf("Scrobble failed: %v", err)
	}

	if gotQuery.Get("id") != "s1" {
		t.Errorf("unexpected id: %s", gotQuery.Get("id"))
	}
	if gotQuery.Get("time") != "1717245000000" {
		t.Errorf("unexpected time param: %s", gotQuery.Get("time"))
	}
	if gotQuery.Get("submission") != "true" {
		t.Errorf("unexpected submission param: %s", gotQuery.Get("submission"))
	}
}

func TestClient_StartScan(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`, "scanStatus": {"scanning": true, "count": 1234}`))
	})

	count, err := client.StartScan(context.Background())
	if err != nil {
		t.Fatalf("StartScan failed: %v", err)
	}
	if count != 1234 {
		t.Errorf("expected 1234 queued, got %d", count)
	}
}

func TestClient_GetAlbum(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, okEnvelope(`, "album": {
			"id": "a1", "name": "OK Computer", "artist": "Radiohead",
			"song": [
				{"id": "s1", "title": "Airbag", "track": 1},
				{"id": "s2", "title": "Paranoid Android", "track": 2}
			]
		}`))
	})

	album, err := client.GetAlbum(context.Background(), "a1")
	if err != nil {
		t.Fatalf("GetAlbum failed: %v", err)
	}
	if album.Name != "OK Computer" || len(album.Songs) != 2 {
		t.Errorf("unexpected album: %+v", album)
	}
	if album.Songs[1].Track != 2 {
		t.Errorf("unexpected track listing: %+v", album.Songs)
	}
}

func TestClient_HTTPFailures(t *testing.T) {
	t.Run("unauthorized status is fatal", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := client.Search(context.Background(), "x", 1, 0)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("server error is transient", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.Search(context.Background(), "x", 1, 0)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}
