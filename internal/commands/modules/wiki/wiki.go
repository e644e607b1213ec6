package wiki

import (
	"context"
	"errors"
	"strings"

	"obsidion/internal/commands/types"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	summaryLimit = 1500
	footerIcon   = "https://upload.wikimedia.org/wikipedia/commons/thumb/5/53/Wikimedia-logo.png/600px-Wikimedia-logo.png"
	// invisible separator padding the description
	spacer = "⁣"
)

// WikiModule provides /wiki
type WikiModule struct {
	api *minecraft.API
}

// New creates a new wiki module
func New(deps *types.Dependencies) *WikiModule {
	return &WikiModule{api: deps.API}
}

// Register adds /wiki to the command map
func (m *WikiModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["wiki"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "wiki",
			Description: "Get an article from the Minecraft wiki",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Article to look up",
					Required:    true,
				},
			},
		},
		HandlerFunc: deps.Deferred("wiki", m.handleWiki),
	}
}

func (m *WikiModule) handleWiki(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.lookup(ctx, utils.StringOption(i, "query"))
}

func (m *WikiModule) lookup(ctx context.Context, query string) (*types.Reply, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.TextReply("Please tell me what to look up."), nil
	}

	page, err := m.api.WikiExtract(ctx, query)
	if errors.Is(err, minecraft.ErrNotFound) {
		return types.TextReply("I'm sorry, I couldn't find \"%s\" on Gamepedia", query), nil
	}
	if err != nil {
		return nil, err
	}

	embed := utils.NewEmbed("Minecraft Gamepedia: " + page.Title)
	embed.URL = page.URL
	embed.Description = spacer + "\n" + page.Summary(summaryLimit) + "\n" + spacer
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text:    "Information provided by Wikimedia",
		IconURL: footerIcon,
	}
	return types.EmbedReply(embed), nil
}
