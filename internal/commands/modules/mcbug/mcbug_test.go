package mcbug

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"obsidion/internal/fetch"
	"obsidion/internal/minecraft"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModule(t *testing.T) (*McbugModule, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/latest/issue/", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/rest/api/latest/issue/MC-4" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"key":"MC-4","fields":{
			"summary":"Item drops sometimes appear at the wrong location",
			"description":"Dropped items jump.",
			"project":{"name":"Minecraft: Java Edition"},
			"creator":{"displayName":"Kumasasa"},
			"created":"2012-07-25T22:12:24.000+0200",
			"updated":"2024-01-01T00:00:00.000+0100",
			"votes":{"votes":120},
			"watches":{"watchCount":40},
			"issuetype":{"name":"Bug"},
			"status":{"name":"Resolved"},
			"resolution":{"name":"Fixed"},
			"versions":[{"name":"1.2.1"},{"name":"1.3"}],
			"fixVersions":[{"name":"1.19"},{"name":"1.19.1"}]
		}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	endpoints := minecraft.DefaultEndpoints(srv.URL)
	endpoints.Bugs = srv.URL
	return &McbugModule{api: minecraft.New(fetch.New(nil, fetch.Options{Timeout: 2 * time.Second}), nil, endpoints)}, &calls
}

func TestBugLookup(t *testing.T) {
	m, _ := newTestModule(t)

	reply, err := m.lookup(context.Background(), &discordgo.User{ID: "9"}, "mc-4")
	require.NoError(t, err)
	embed := reply.Embeds[0]

	assert.Equal(t, "Minecraft: Java Edition - Item drops sometimes appear at the wrong location", embed.Author.Name)
	assert.Contains(t, embed.Author.URL, "/browse/MC-4")
	assert.Equal(t, "Dropped items jump.", embed.Description)
	assert.Contains(t, embed.Fields[0].Value, "Reporter: Kumasasa")
	assert.Contains(t, embed.Fields[0].Value, "Watchers: 40")
	assert.Equal(t, "Type: Bug\nStatus: Resolved\nResolution: Fixed\nAffected: 1.2.1, 1.3\nFixed Version: 1.19 + 2\n", embed.Fields[1].Value)
}

func TestBugNotFound(t *testing.T) {
	m, _ := newTestModule(t)

	reply, err := m.lookup(context.Background(), &discordgo.User{ID: "9"}, "MC-999999")
	require.NoError(t, err)
	assert.Equal(t, "<@9>, ❌ The bug MC-999999 was not found.", reply.Content)
}

func TestBugInputValidation(t *testing.T) {
	m, calls := newTestModule(t)

	reply, err := m.lookup(context.Background(), &discordgo.User{ID: "9"}, " ")
	require.NoError(t, err)
	assert.Equal(t, "<@9>, ❌ Please provide a bug.", reply.Content)

	reply, err = m.lookup(context.Background(), &discordgo.User{ID: "9"}, "../../admin")
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "is not a bug id")
	assert.Zero(t, calls.Load())
}
