package help

import (
	"obsidion/internal/utils"

	"github.com/MakeNowJust/heredoc"
	"github.com/bwmarrin/discordgo"
)

// helpCommandsEmbed creates the main help embed showing all available commands
func helpCommandsEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "⛏️ Obsidion - Help",
		Description: heredoc.Doc(`
			A Minecraft companion bot: player profiles, server status, the wiki and more.
			Optional arguments are shown in [brackets].
		`),
		Color: utils.Colors.Info(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "🧱 Minecraft:",
				Value:  "\u200b",
				Inline: false,
			},
			{
				Name: "/profile [username]",
				Value: heredoc.Doc(`
					View a player's UUID, skin and name history
					• Uses your linked account when no username is given
				`),
			},
			{
				Name: "/server [address] [port]",
				Value: heredoc.Doc(`
					Status of a Java edition server
					• Uses this server's linked address when none is given
				`),
			},
			{
				Name:  "/serverpe [address] [port]",
				Value: "Status of a Bedrock edition server",
			},
			{
				Name:  "/status",
				Value: "Health of the Mojang services and Minecraft sales",
			},
			{
				Name:  "/mcbug <id>",
				Value: "Look up an issue on bugs.mojang.com, e.g. `MC-4`",
			},
			{
				Name:  "/wiki <query>",
				Value: "Summary of a Minecraft wiki article",
			},
			{
				Name:   "🔗 Accounts:",
				Value:  "\u200b",
				Inline: false,
			},
			{
				Name:  "/link <username>",
				Value: "Link your Discord account to a Minecraft username",
			},
			{
				Name:  "/unlink",
				Value: "Remove your linked Minecraft username",
			},
			{
				Name:  "/serverlink [address]",
				Value: "Set this Discord server's default Minecraft server (Manage Server only)",
			},
			{
				Name:   "🤖 Bot:",
				Value:  "\u200b",
				Inline: false,
			},
			{
				Name:  "/ping",
				Value: "Check if the bot is responsive",
			},
			{
				Name:  "/help",
				Value: "Show this help message",
			},
		},
	}
}
