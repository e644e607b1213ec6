package commands

import (
	"time"

	"obsidion/internal/commands/modules/help"
	"obsidion/internal/commands/modules/link"
	"obsidion/internal/commands/modules/mcbug"
	"obsidion/internal/commands/modules/ping"
	"obsidion/internal/commands/modules/profile"
	"obsidion/internal/commands/modules/server"
	"obsidion/internal/commands/modules/serverlink"
	"obsidion/internal/commands/modules/status"
	"obsidion/internal/commands/modules/wiki"
	"obsidion/internal/commands/types"
	"obsidion/internal/config"
	"obsidion/internal/metrics"
	"obsidion/internal/minecraft"
	"obsidion/internal/session"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// lookupCooldown applies to commands that hit slow third party sites
const lookupCooldown = time.Second

// ModuleHandler manages command modules and routes interactions.
type ModuleHandler struct {
	commands map[string]*types.Command
	config   *config.Config
	deps     *types.Dependencies
}

// NewModuleHandler creates a new module-based command handler. sess may be
// nil in tests; commands that need storage then report it as unavailable.
func NewModuleHandler(cfg *config.Config, sess *session.Session, m *metrics.Metrics) *ModuleHandler {
	cooldowns := utils.NewCooldowns(cfg.GetCommandCooldown())
	cooldowns.Override("mcbug", lookupCooldown)
	cooldowns.Override("wiki", lookupCooldown)

	deps := &types.Dependencies{
		Config:    cfg,
		Session:   sess,
		Metrics:   m,
		Cooldowns: cooldowns,
	}
	if sess != nil {
		deps.API = minecraft.New(sess, sess, minecraft.DefaultEndpoints(cfg.GetAPIURL()))
	}

	h := &ModuleHandler{
		commands: make(map[string]*types.Command),
		config:   cfg,
		deps:     deps,
	}

	h.registerModules()

	return h
}

// registerModules registers all command modules
func (h *ModuleHandler) registerModules() {
	modules := []types.CommandModule{
		ping.New(h.deps),
		help.New(h.deps),
		profile.New(h.deps),
		server.New(h.deps),
		status.New(h.deps),
		mcbug.New(h.deps),
		wiki.New(h.deps),
		link.New(h.deps),
		serverlink.New(h.deps),
	}

	for _, m := range modules {
		m.Register(h.commands, h.deps)
	}
}

// Cooldowns exposes the shared limiter so the scheduler can prune it
func (h *ModuleHandler) Cooldowns() *utils.Cooldowns {
	return h.deps.Cooldowns
}

// CommandNames lists the registered slash commands
func (h *ModuleHandler) CommandNames() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	return names
}

// RegisterCommands registers all slash commands with Discord
func (h *ModuleHandler) RegisterCommands(s *discordgo.Session) error {
	existingCommands, err := s.ApplicationCommands(s.State.User.ID, "")
	if err != nil {
		h.config.Logger.Warnf("Error fetching existing commands: %v", err)
		return err
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, ec := range existingCommands {
		existingByName[ec.Name] = ec
	}

	for _, c := range h.commands {
		if existing := existingByName[c.ApplicationCommand.Name]; existing != nil {
			cmd, err := s.ApplicationCommandEdit(s.State.User.ID, "", existing.ID, c.ApplicationCommand)
			if err != nil {
				return err
			}
			c.ApplicationCommand.ID = cmd.ID
			h.config.Logger.Infof("Updated command: %s", cmd.Name)
		} else {
			cmd, err := s.ApplicationCommandCreate(s.State.User.ID, "", c.ApplicationCommand)
			if err != nil {
				return err
			}
			c.ApplicationCommand.ID = cmd.ID
			h.config.Logger.Infof("Registered command: %s", cmd.Name)
		}
	}

	return nil
}

// HandleInteraction routes slash command interactions to appropriate handlers
func (h *ModuleHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name
	if cmd, exists := h.commands[commandName]; exists {
		cmd.HandlerFunc(s, i)
	}
}

// UnregisterCommands removes all registered commands
func (h *ModuleHandler) UnregisterCommands(s *discordgo.Session) {
	existingCommands, err := s.ApplicationCommands(s.State.User.ID, "")
	if err != nil {
		h.config.Logger.Warnf("Error fetching existing commands: %v", err)
		return
	}

	for _, existingCmd := range existingCommands {
		if _, exists := h.commands[existingCmd.Name]; exists {
			if err := s.ApplicationCommandDelete(s.State.User.ID, "", existingCmd.ID); err != nil {
				h.config.Logger.Warnf("Error deleting command %s: %v", existingCmd.Name, err)
			} else {
				h.config.Logger.Infof("Unregistered command: %s", existingCmd.Name)
			}
		}
	}
}
