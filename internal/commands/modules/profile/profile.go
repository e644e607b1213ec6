package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"obsidion/internal/commands/types"
	"obsidion/internal/config"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const skinURL = "https://visage.surgeplay.com/bust/"

// ProfileModule provides /profile
type ProfileModule struct {
	config *config.Config
	api    *minecraft.API
	stores types.StoreSource
}

// New creates a new profile module
func New(deps *types.Dependencies) *ProfileModule {
	m := &ProfileModule{config: deps.Config, api: deps.API}
	if deps.Session != nil {
		m.stores = deps.Session
	}
	return m
}

// Register adds /profile to the command map
func (m *ProfileModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["profile"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "profile",
			Description: "View a player's Minecraft UUID, username history and skin",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "Minecraft username (defaults to your linked account)",
					Required:    false,
				},
			},
		},
		HandlerFunc: deps.Deferred("profile", m.handleProfile),
	}
}

func (m *ProfileModule) handleProfile(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	userID := ""
	if u := utils.InteractionUser(i); u != nil {
		userID = u.ID
	}
	return m.lookup(ctx, userID, utils.StringOption(i, "username"))
}

func (m *ProfileModule) lookup(ctx context.Context, userID, username string) (*types.Reply, error) {
	username = strings.TrimSpace(username)
	if username == "" && m.stores != nil && userID != "" {
		store, err := m.stores.Store(ctx)
		if err != nil {
			return nil, fmt.Errorf("load linked account: %w", err)
		}
		acc, err := store.LinkedAccount(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load linked account: %w", err)
		}
		if acc != nil {
			username = acc.Username
		}
	}
	if username == "" {
		return types.TextReply("Please provide a username or link one using `/link`."), nil
	}

	profile, err := m.api.UsernameToUUID(ctx, username)
	if errors.Is(err, minecraft.ErrNotFound) {
		return types.TextReply("The username `%s` is not currently in use.", username), nil
	}
	if err != nil {
		return nil, err
	}

	names, err := m.api.NameHistory(ctx, profile.ID)
	if err != nil {
		// Mojang has retired name history for many accounts; show the current name only
		if m.config != nil {
			m.config.Logger.Warnf("Name history unavailable for %s: %v", profile.ID, err)
		}
		names = []minecraft.NameChange{{Name: profile.Name}}
	}

	embed, err := profileEmbed(username, profile, names)
	if err != nil {
		return nil, err
	}
	return types.EmbedReply(embed), nil
}

func profileEmbed(username string, profile *minecraft.Profile, names []minecraft.NameChange) (*discordgo.MessageEmbed, error) {
	long, err := minecraft.LongUUID(profile.ID)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = []minecraft.NameChange{{Name: profile.Name}}
	}

	embed := utils.NewEmbed("Minecraft profile for " + username)
	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name:  "UUID's",
			Value: fmt.Sprintf("Short UUID: `%s`\nLong UUID: `%s`", profile.ID, long),
		},
		{
			Name:   "Textures",
			Value:  fmt.Sprintf("Skin: [Open Skin](%s%s)", skinURL, profile.ID),
			Inline: true,
		},
		{
			Name:   "Information",
			Value:  fmt.Sprintf("Username Changes: `%d`", len(names)-1),
			Inline: true,
		},
		{
			Name:  "Name History",
			Value: nameHistory(names),
		},
	}
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: skinURL + profile.ID}
	return embed, nil
}

// nameHistory lists names newest first, numbered by their position in the history
func nameHistory(names []minecraft.NameChange) string {
	var b strings.Builder
	for n := len(names) - 1; n >= 1; n-- {
		if names[n].ChangedToAt == 0 {
			fmt.Fprintf(&b, "**%d.** `%s`\n", n+1, names[n].Name)
			continue
		}
		changed := time.UnixMilli(names[n].ChangedToAt).UTC().Format("Jan 02, 2006")
		fmt.Fprintf(&b, "**%d.** `%s` - %s\n", n+1, names[n].Name, changed)
	}
	fmt.Fprintf(&b, "**1.** `%s` - First Username", names[0].Name)
	return b.String()
}
