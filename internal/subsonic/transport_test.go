package subsonic_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/desertthunder/subsync/internal/shared"
	"github.com/desertthunder/subsync/internal/subsonic"
	mocks "github.com/desertthunder/subsync/internal/testing"
)

func TestClient_TransportError(t *testing.T) {
	transport := mocks.NewMockRoundTripper(nil, errors.New("connection refused"))
	client := subsonic.NewClient(shared.SubsonicConfig{
		URL:      "http://music.local:4040",
		User:     "admin",
		Password: "hunter2",
		Auth:     "token",
	}, 0, &http.Client{Transport: transport})

	_, err := client.Search(context.Background(), "x", 1, 0)
	if !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("expected ErrAPIRequest for a transport failure, got %v", err)
	}
}
