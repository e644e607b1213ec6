package utils

import (
	"github.com/bwmarrin/discordgo"
)

var standardEmbedFooter = &discordgo.MessageEmbedFooter{
	Text: "Run /help for more options",
}

// NewEmbed creates a new embed with the standard footer and success color
func NewEmbed(title string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  Colors.Ok(),
		Footer: standardEmbedFooter,
	}
}

// NewErrorEmbed creates a new error embed with the given title and description
func NewErrorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ " + title,
		Description: description,
		Color:       Colors.Error(),
		Footer:      standardEmbedFooter,
	}
}

// InteractionUser returns the invoking user in guilds and DMs alike
func InteractionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// CommandOptions indexes the top-level options of a slash command by name
func CommandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	if i.Type != discordgo.InteractionApplicationCommand {
		return opts
	}
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}

// StringOption returns the named string option or ""
func StringOption(i *discordgo.InteractionCreate, name string) string {
	if opt, ok := CommandOptions(i)[name]; ok {
		return opt.StringValue()
	}
	return ""
}

// IntOption returns the named integer option or 0
func IntOption(i *discordgo.InteractionCreate, name string) int {
	if opt, ok := CommandOptions(i)[name]; ok {
		return int(opt.IntValue())
	}
	return 0
}

// HasManageGuildPermissions checks the resolved permissions Discord sends with the interaction
func HasManageGuildPermissions(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	p := i.Member.Permissions
	return p&discordgo.PermissionAdministrator != 0 || p&discordgo.PermissionManageGuild != 0
}
