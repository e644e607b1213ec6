package serverlink

import (
	"context"
	"errors"
	"fmt"

	"obsidion/internal/commands/types"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// ServerlinkModule provides /serverlink
type ServerlinkModule struct {
	stores types.StoreSource
}

// New creates a new serverlink module
func New(deps *types.Dependencies) *ServerlinkModule {
	m := &ServerlinkModule{}
	if deps.Session != nil {
		m.stores = deps.Session
	}
	return m
}

// Register adds /serverlink to the command map
func (m *ServerlinkModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["serverlink"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:                     "serverlink",
			Description:              "Set this guild's default Minecraft server, or clear it",
			DefaultMemberPermissions: utils.Int64Ptr(discordgo.PermissionManageGuild),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "address",
					Description: "Server address, leave empty to unlink",
					Required:    false,
				},
			},
		},
		HandlerFunc: deps.Deferred("serverlink", m.handleServerlink),
	}
}

func (m *ServerlinkModule) handleServerlink(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	if i.GuildID == "" {
		return types.TextReply("❌ This command can only be used in a server."), nil
	}
	if !utils.HasManageGuildPermissions(i) {
		return types.TextReply("❌ You need the Manage Server permission to use this command."), nil
	}
	return m.link(ctx, i.GuildID, utils.StringOption(i, "address"))
}

func (m *ServerlinkModule) link(ctx context.Context, guildID, address string) (*types.Reply, error) {
	if m.stores == nil {
		return nil, errors.New("storage is not configured")
	}

	normalized := ""
	if address != "" {
		addr, err := minecraft.ParseServerAddress(address, 0)
		if err != nil && !errors.Is(err, minecraft.ErrEmptyAddress) {
			return types.TextReply("❌ `%s` is not a valid server address.", address), nil
		}
		if err == nil {
			normalized = addr.String()
		}
	}

	store, err := m.stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.SetGuildServer(ctx, guildID, normalized); err != nil {
		return nil, fmt.Errorf("link server: %w", err)
	}

	if normalized == "" {
		return types.TextReply("✅ Unlinked this guild's server."), nil
	}
	return types.TextReply("✅ Linked `%s` as this guild's server. `/server` now uses it when no address is given.", normalized), nil
}
