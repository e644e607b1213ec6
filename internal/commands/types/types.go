package types

import (
	"context"

	"obsidion/internal/config"
	"obsidion/internal/database"
	"obsidion/internal/metrics"
	"obsidion/internal/minecraft"
	"obsidion/internal/session"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// Command represents a Discord application command with its handler
type Command struct {
	ApplicationCommand *discordgo.ApplicationCommand
	HandlerFunc        func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// CommandModule represents a module that can register commands.
// Each module owns its command definition(s) and handler function(s).
type CommandModule interface {
	// Register adds the module's commands to the provided map
	Register(commands map[string]*Command, deps *Dependencies)
}

// Handler produces the reply for one invocation. Expected failures (unknown
// player, offline server) are returned as a Reply; a non-nil error is
// reported to the user as a generic failure and logged.
type Handler func(ctx context.Context, i *discordgo.InteractionCreate) (*Reply, error)

// Dependencies contains shared dependencies that command modules may need
type Dependencies struct {
	Config    *config.Config
	Session   *session.Session
	API       *minecraft.API
	Metrics   *metrics.Metrics
	Cooldowns *utils.Cooldowns

	// Overridable Discord calls, nil means the real session methods
	Respond      func(s *discordgo.Session, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	EditResponse func(s *discordgo.Session, i *discordgo.Interaction, edit *discordgo.WebhookEdit) error
}

// StoreSource hands out the storage pool once it is ready. *session.Session implements it.
type StoreSource interface {
	Store(ctx context.Context) (database.Store, error)
}
