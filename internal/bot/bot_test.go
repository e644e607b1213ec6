package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obsidion/internal/botlist"
	"obsidion/internal/config"
	"obsidion/internal/fetch"
)

func newTestBot(t *testing.T, extra map[string]interface{}) *Bot {
	t.Helper()
	kv := map[string]interface{}{
		"bot_token":     "test-token",
		"client_id":     "123",
		"database.path": filepath.Join(t.TempDir(), "bot.db"),
	}
	for k, v := range extra {
		kv[k] = v
	}
	b, err := New(config.NewMockConfig(kv))
	require.NoError(t, err)
	t.Cleanup(b.shutdown)
	return b
}

// waitProvisioned blocks until the current cycle's cache and storage are up
func waitProvisioned(t *testing.T, b *Bot) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, b.session.WaitCache(ctx))
	require.NoError(t, b.session.WaitStorage(ctx))
}

func TestOnConnectRecreatesOnlyOnReconnect(t *testing.T) {
	b := newTestBot(t, nil)
	restClient := b.discord.Client
	require.NotNil(t, restClient)

	b.onConnect(nil, &discordgo.Connect{})
	assert.Nil(t, b.session.HTTPClient(), "the first connect is covered by Start")

	b.onConnect(nil, &discordgo.Connect{})
	first := b.session.HTTPClient()
	require.NotNil(t, first)
	waitProvisioned(t, b)

	b.onConnect(nil, &discordgo.Connect{})
	second := b.session.HTTPClient()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	waitProvisioned(t, b)

	assert.Same(t, restClient, b.discord.Client, "the REST client is never swapped")
}

func TestRESTClientFollowsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	b := newTestBot(t, nil)

	_, err := b.discord.Client.Get(srv.URL)
	require.Error(t, err, "no transport before the first Recreate")

	b.recreateSession()
	waitProvisioned(t, b)
	resp, err := b.discord.Client.Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPostGuildCountWaitsForReady(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	b := newTestBot(t, map[string]interface{}{"botlist.test_token": "t-token"})
	b.poster = botlist.NewPoster(b.config, fetch.New(nil, fetch.Options{}), nil, botlist.Target{
		Site:       "test",
		URL:        srv.URL + "/bots/{id}",
		AuthHeader: "Authorization",
		CountField: "server_count",
	})
	b.guilds.OnReady(nil, &discordgo.Ready{Guilds: []*discordgo.Guild{{ID: "1"}, {ID: "2"}}})

	ctx := context.Background()
	require.NoError(t, b.postGuildCount(ctx))
	mu.Lock()
	assert.Empty(t, bodies, "nothing is posted before startup completes")
	mu.Unlock()

	b.ready.Store(true)
	require.NoError(t, b.postGuildCount(ctx))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1)
	assert.Equal(t, map[string]int{"server_count": 2}, bodies[0])
}
