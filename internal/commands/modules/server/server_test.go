package server

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"obsidion/internal/cache"
	"obsidion/internal/database"
	"obsidion/internal/fetch"
	"obsidion/internal/minecraft"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheSource struct{ c *cache.Cache }

func (s cacheSource) Cache(context.Context) (*cache.Cache, error) { return s.c, nil }

type guildStore struct {
	database.Store
	servers map[string]string
}

func (g *guildStore) GuildServer(_ context.Context, guildID string) (string, error) {
	return g.servers[guildID], nil
}

type storeSource struct{ s database.Store }

func (s storeSource) Store(context.Context) (database.Store, error) { return s.s, nil }

type fixture struct {
	module *ServerModule
	redis  *miniredis.Miniredis
	calls  atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func (f *fixture) respond(status int, body string) {
	f.status.Store(int32(status))
	f.body.Store(body)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.respond(http.StatusOK, "")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		w.WriteHeader(int(f.status.Load()))
		_, _ = io.WriteString(w, f.body.Load().(string))
	}))
	t.Cleanup(srv.Close)

	f.redis = miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	api := minecraft.New(
		fetch.New(nil, fetch.Options{Timeout: 2 * time.Second}),
		cacheSource{cache.New(client, nil, nil)},
		minecraft.DefaultEndpoints(srv.URL),
	)
	f.module = &ServerModule{
		api:    api,
		stores: storeSource{&guildStore{servers: map[string]string{"guild-1": "linked.example.com:25570"}}},
	}
	return f
}

func fieldValue(t *testing.T, embed *discordgo.MessageEmbed, name string) string {
	t.Helper()
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	t.Fatalf("embed has no field %q", name)
	return ""
}

const javaBody = `{
	"description": "A Minecraft Server",
	"players": {"online": 1234, "max": 20000, "sample": [{"name": "Notch"}, {"name": "jeb_"}]},
	"version": {"name": "1.20.4", "protocol": 765}
}`

func TestJavaLookupCachesAndReplies(t *testing.T) {
	f := newFixture(t)
	f.respond(http.StatusOK, javaBody)
	ctx := context.Background()
	req := request{user: &discordgo.User{ID: "1"}, address: "play.example.com"}

	reply, err := f.module.java(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.True(t, f.redis.Exists("server_play.example.com"))

	require.Len(t, reply.Embeds, 1)
	embed := reply.Embeds[0]
	assert.Equal(t, "Java Server: play.example.com", embed.Title)
	assert.Equal(t, "A Minecraft Server", fieldValue(t, embed, "Description"))
	assert.Equal(t, "Online: `1,234` \n Maximum: `20,000`", fieldValue(t, embed, "Players"))
	assert.Equal(t, "Notch\njeb_\n", fieldValue(t, embed, "Information"))
	assert.Contains(t, fieldValue(t, embed, "Version"), "Protocol: `765`")
	assert.Equal(t, defaultThumbnail, embed.Thumbnail.URL)
	assert.Empty(t, reply.Files)

	// Within the TTL the cached payload is used
	f.redis.FastForward(299 * time.Second)
	reply, err = f.module.java(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, "A Minecraft Server", fieldValue(t, reply.Embeds[0], "Description"))
}

func TestJavaLookupOffline(t *testing.T) {
	f := newFixture(t)
	f.respond(http.StatusNotFound, "")

	reply, err := f.module.java(context.Background(), request{user: &discordgo.User{ID: "1"}, address: "offline.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "<@1>, ❌ The Java edition Minecraft server `offline.example.com` is currently not online or cannot be requested", reply.Content)
	assert.Empty(t, reply.Embeds)
	assert.False(t, f.redis.Exists("server_offline.example.com"))
}

func TestJavaLookupUnparsableBody(t *testing.T) {
	f := newFixture(t)
	f.respond(http.StatusOK, "<html>bad gateway</html>")

	reply, err := f.module.java(context.Background(), request{address: "play.example.com"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "is currently not online or cannot be requested")
	assert.False(t, f.redis.Exists("server_play.example.com"))
}

func TestJavaLookupFavicon(t *testing.T) {
	f := newFixture(t)
	png := []byte("\x89PNG\r\n\x1a\nfake")
	body := `{"description":"x","players":{"online":0,"max":1},"version":{"name":"1.8","protocol":47},"favicon":"data:image/png;base64,` +
		base64.StdEncoding.EncodeToString(png) + `"}`
	f.respond(http.StatusOK, body)

	reply, err := f.module.java(context.Background(), request{address: "icon.example.com"})
	require.NoError(t, err)
	require.Len(t, reply.Files, 1)
	assert.Equal(t, "favicon.png", reply.Files[0].Name)
	got, err := io.ReadAll(reply.Files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, png, got)
	assert.Equal(t, "attachment://favicon.png", reply.Embeds[0].Thumbnail.URL)
}

func TestLookupFallsBackToLinkedServer(t *testing.T) {
	f := newFixture(t)
	f.respond(http.StatusOK, javaBody)

	_, err := f.module.java(context.Background(), request{guildID: "guild-1"})
	require.NoError(t, err)
	assert.True(t, f.redis.Exists("server_linked.example.com:25570"))

	reply, err := f.module.java(context.Background(), request{guildID: "guild-2"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "/serverlink")
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestLookupRejectsBadAddress(t *testing.T) {
	f := newFixture(t)
	reply, err := f.module.java(context.Background(), request{address: "play.example.com:notaport"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "not a valid server address")
	assert.Zero(t, f.calls.Load())
}

func TestBedrockLookup(t *testing.T) {
	f := newFixture(t)
	f.respond(http.StatusOK, `{"motd":"Bedrock Realm","players":{"online":12,"max":30,"names":["a","b","c","d","e","f","g","h","i","j","k","l"]},"software":{"version":"1.20.50"},"map":"Survival"}`)

	reply, err := f.module.bedrock(context.Background(), request{address: "PE.Example.com", port: 19132})
	require.NoError(t, err)
	assert.True(t, f.redis.Exists("bserver_pe.example.com:19132"))

	embed := reply.Embeds[0]
	assert.Equal(t, "Bedrock Server: pe.example.com", embed.Title)
	assert.Equal(t, "Bedrock Realm", fieldValue(t, embed, "Description"))
	assert.Equal(t, "Bedrock Edition \n Running: `1.20.50` \n Map: `Survival`", fieldValue(t, embed, "Version"))
	assert.Equal(t, "a\nb\nc\nd\ne\nf\ng\nh\ni\nj", fieldValue(t, embed, "Players Online"))

	f.respond(http.StatusServiceUnavailable, "")
	reply, err = f.module.bedrock(context.Background(), request{address: "down.example.com"})
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "The Bedrock edition Minecraft server `down.example.com`")
}
