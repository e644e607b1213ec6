package commands

import (
	"testing"

	"obsidion/internal/config"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleHandlerRegistersCommands(t *testing.T) {
	h := NewModuleHandler(config.NewMockConfig(nil), nil, nil)

	assert.ElementsMatch(t, []string{
		"ping", "help", "profile", "server", "serverpe", "status",
		"mcbug", "wiki", "link", "unlink", "serverlink",
	}, h.CommandNames())

	for name, cmd := range h.commands {
		require.NotNil(t, cmd.ApplicationCommand, name)
		assert.Equal(t, name, cmd.ApplicationCommand.Name)
		assert.NotEmpty(t, cmd.ApplicationCommand.Description, name)
		assert.NotNil(t, cmd.HandlerFunc, name)
	}
}

func TestModuleHandlerCooldownOverrides(t *testing.T) {
	h := NewModuleHandler(config.NewMockConfig(nil), nil, nil)
	cd := h.Cooldowns()

	_, ok := cd.Allow("wiki", "1")
	require.True(t, ok)
	wait, ok := cd.Allow("wiki", "1")
	assert.False(t, ok)
	assert.LessOrEqual(t, wait, lookupCooldown)

	_, ok = cd.Allow("server", "1")
	require.True(t, ok)
	wait, ok = cd.Allow("server", "1")
	assert.False(t, ok)
	assert.Greater(t, wait, lookupCooldown)
}

func TestHandleInteractionRoutesByName(t *testing.T) {
	h := NewModuleHandler(config.NewMockConfig(nil), nil, nil)

	var called []string
	for name, cmd := range h.commands {
		cmd.HandlerFunc = func(*discordgo.Session, *discordgo.InteractionCreate) {
			called = append(called, name)
		}
	}

	interaction := func(typ discordgo.InteractionType, name string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: typ,
			Data: discordgo.ApplicationCommandInteractionData{Name: name},
		}}
	}

	for _, name := range h.CommandNames() {
		h.HandleInteraction(nil, interaction(discordgo.InteractionApplicationCommand, name))
	}
	h.HandleInteraction(nil, interaction(discordgo.InteractionApplicationCommand, "unknown"))
	h.HandleInteraction(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: "ping"},
	}})

	assert.ElementsMatch(t, h.CommandNames(), called)
}
