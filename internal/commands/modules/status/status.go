package status

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"obsidion/internal/commands/types"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// StatusModule provides /status: Mojang service health and game sales
type StatusModule struct {
	api *minecraft.API
}

// New creates a new status module
func New(deps *types.Dependencies) *StatusModule { return &StatusModule{api: deps.API} }

// Register registers /status.
func (m *StatusModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["status"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "status",
			Description: "Check the status of all the Mojang services",
		},
		HandlerFunc: deps.Deferred("status", m.handleStatus),
	}
}

func (m *StatusModule) handleStatus(ctx context.Context, _ *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.report(ctx)
}

func (m *StatusModule) report(ctx context.Context) (*types.Reply, error) {
	services, err := m.api.ServiceStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("service status: %w", err)
	}
	sales, err := m.api.SalesStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("sales statistics: %w", err)
	}

	embed := utils.NewEmbed("Minecraft Service Status")
	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name:  "Minecraft Game Sales",
			Value: fmt.Sprintf("Total Sales: **%s** Last 24 Hours: **%s**", utils.FormatCount(sales.Total), utils.FormatCount(sales.Last24h)),
		},
		{
			Name:  "Minecraft Services:",
			Value: serviceLines(services),
		},
	}
	return types.EmbedReply(embed), nil
}

// serviceLines renders one line per service in name order
func serviceLines(services map[string]string) string {
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if services[name] == "green" {
			fmt.Fprintf(&b, ":green_heart: - %s: **This service is healthy.**\n", name)
		} else {
			fmt.Fprintf(&b, ":heart: - %s: **This service is offline.**\n", name)
		}
	}
	if b.Len() == 0 {
		return "No services reported."
	}
	return b.String()
}
