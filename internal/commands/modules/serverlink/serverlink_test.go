package serverlink

import (
	"context"
	"path/filepath"
	"testing"

	"obsidion/internal/database"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeSource struct{ s database.Store }

func (s storeSource) Store(context.Context) (database.Store, error) { return s.s, nil }

func newTestModule(t *testing.T) (*ServerlinkModule, database.Store) {
	t.Helper()
	ctx := context.Background()
	store, err := database.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "serverlink.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.EnsureSchema(ctx)
	require.NoError(t, err)
	return &ServerlinkModule{stores: storeSource{store}}, store
}

func TestServerlinkStoresNormalizedAddress(t *testing.T) {
	ctx := context.Background()
	m, store := newTestModule(t)

	reply, err := m.link(ctx, "g1", " Play.Example.com:25566 ")
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "`play.example.com:25566`")

	got, err := store.GuildServer(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "play.example.com:25566", got)

	reply, err = m.link(ctx, "g1", "")
	require.NoError(t, err)
	assert.Equal(t, "✅ Unlinked this guild's server.", reply.Content)

	got, err = store.GuildServer(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServerlinkRejectsInvalidAddress(t *testing.T) {
	ctx := context.Background()
	m, store := newTestModule(t)

	reply, err := m.link(ctx, "g1", "host:notaport")
	require.NoError(t, err)
	assert.Equal(t, "❌ `host:notaport` is not a valid server address.", reply.Content)

	got, err := store.GuildServer(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServerlinkRequiresManageGuild(t *testing.T) {
	m, store := newTestModule(t)
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "1"}, Permissions: discordgo.PermissionSendMessages},
	}}

	reply, err := m.handleServerlink(context.Background(), i)
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "Manage Server")

	got, err := store.GuildServer(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServerlinkOutsideGuild(t *testing.T) {
	m, _ := newTestModule(t)
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "1"}}}

	reply, err := m.handleServerlink(context.Background(), i)
	require.NoError(t, err)
	assert.Equal(t, "❌ This command can only be used in a server.", reply.Content)
}
