package oracle

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op     string
	result string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []call
}

func (that *fakeRecorder) ObserveOracle(op, result string, _ time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.calls = append(that.calls, call{op: op, result: result})
}

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, *fakeRecorder) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	rec := &fakeRecorder{}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	return New(logger, rec, server.URL+"/", "test-key", timeout), rec
}

func TestClient_ValidateName(t *testing.T) {
	t.Run("Returns the canonical name of the first result", func(t *testing.T) {
		// Given: an oracle that knows the game
		client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/games", r.URL.Path)
			assert.Equal(t, "test-key", r.URL.Query().Get("key"))
			assert.Equal(t, "quake", r.URL.Query().Get("search"))

			_, _ = w.Write([]byte(`{"count":2,"results":[{"name":"Quake","background_image":"https://img/quake.jpg"},{"name":"Quake II"}]}`))
		}, time.Second)

		// When: validating a lowercase name
		name, ok := client.ValidateName(context.Background(), "quake")

		// Then: the canonical title is returned
		require.True(t, ok)
		assert.Equal(t, "Quake", name)
		assert.Equal(t, []call{{op: opValidateName, result: resultHit}}, rec.calls)
	})

	t.Run("Zero results means not found", func(t *testing.T) {
		client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count":0,"results":[]}`))
		}, time.Second)

		name, ok := client.ValidateName(context.Background(), "asdfgh")

		assert.False(t, ok)
		assert.Empty(t, name)
		assert.Equal(t, []call{{op: opValidateName, result: resultMiss}}, rec.calls)
	})

	t.Run("Empty input never reaches the oracle", func(t *testing.T) {
		client, rec := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
			t.Error("unexpected request")
		}, time.Second)

		_, ok := client.ValidateName(context.Background(), "   ")

		assert.False(t, ok)
		assert.Empty(t, rec.calls)
	})
}

func TestClient_LookupImage(t *testing.T) {
	t.Run("Returns the background image", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count":1,"results":[{"name":"Doom","background_image":"https://img/doom.jpg"}]}`))
		}, time.Second)

		assert.Equal(t, "https://img/doom.jpg", client.LookupImage(context.Background(), "Doom"))
	})

	t.Run("Degrades to no image on a malformed response", func(t *testing.T) {
		client, rec := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"count":`))
		}, time.Second)

		assert.Empty(t, client.LookupImage(context.Background(), "Doom"))
		assert.Equal(t, []call{{op: opLookupImage, result: resultFailure}}, rec.calls)
	})

	t.Run("Degrades to no image on a server error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, time.Second)

		assert.Empty(t, client.LookupImage(context.Background(), "Doom"))
	})

	t.Run("Degrades to no image when the oracle is too slow", func(t *testing.T) {
		release := make(chan struct{})
		client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, 50*time.Millisecond)
		t.Cleanup(func() { close(release) })

		started := time.Now()
		image := client.LookupImage(context.Background(), "Doom")

		assert.Empty(t, image)
		assert.Less(t, time.Since(started), 2*time.Second)
		assert.Equal(t, []call{{op: opLookupImage, result: resultFailure}}, rec.calls)
	})
}
