package link

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"obsidion/internal/commands/types"
	"obsidion/internal/database"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// LinkModule provides /link and /unlink
type LinkModule struct {
	api    *minecraft.API
	stores types.StoreSource
}

// New creates a new link module
func New(deps *types.Dependencies) *LinkModule {
	m := &LinkModule{api: deps.API}
	if deps.Session != nil {
		m.stores = deps.Session
	}
	return m
}

// Register adds /link and /unlink to the command map
func (m *LinkModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["link"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "link",
			Description: "Link your Minecraft account to your Discord account",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "Your Minecraft username",
					Required:    true,
				},
			},
		},
		HandlerFunc: deps.Deferred("link", m.handleLink),
	}

	cmds["unlink"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "unlink",
			Description: "Remove the Minecraft account linked to your Discord account",
		},
		HandlerFunc: deps.Deferred("unlink", m.handleUnlink),
	}
}

func (m *LinkModule) handleLink(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.link(ctx, utils.InteractionUser(i), utils.StringOption(i, "username"))
}

func (m *LinkModule) handleUnlink(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.unlink(ctx, utils.InteractionUser(i))
}

func (m *LinkModule) link(ctx context.Context, user *discordgo.User, username string) (*types.Reply, error) {
	if user == nil {
		return types.TextReply("❌ Could not determine who ran this command."), nil
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return types.TextReply("%s, ❌ Please provide a username.", user.Mention()), nil
	}

	profile, err := m.api.UsernameToUUID(ctx, username)
	if errors.Is(err, minecraft.ErrNotFound) {
		return types.TextReply("%s, ❌ The username `%s` is not currently in use.", user.Mention(), username), nil
	}
	if err != nil {
		return nil, err
	}

	store, err := m.store(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.LinkAccount(ctx, user.ID, profile.Name, profile.ID); err != nil {
		return nil, fmt.Errorf("link account: %w", err)
	}
	return types.TextReply("%s, ✅ Your account is now linked to `%s`.", user.Mention(), profile.Name), nil
}

func (m *LinkModule) unlink(ctx context.Context, user *discordgo.User) (*types.Reply, error) {
	if user == nil {
		return types.TextReply("❌ Could not determine who ran this command."), nil
	}
	store, err := m.store(ctx)
	if err != nil {
		return nil, err
	}

	acc, err := store.LinkedAccount(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load linked account: %w", err)
	}
	if acc == nil {
		return types.TextReply("%s, you don't have a linked account.", user.Mention()), nil
	}
	if err := store.UnlinkAccount(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("unlink account: %w", err)
	}
	return types.TextReply("%s, ✅ Unlinked `%s` from your account.", user.Mention(), acc.Username), nil
}

func (m *LinkModule) store(ctx context.Context) (database.Store, error) {
	if m.stores == nil {
		return nil, errors.New("storage is not configured")
	}
	return m.stores.Store(ctx)
}
