package mcbug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"obsidion/internal/commands/types"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// maxDescription keeps the embed under Discord's description limit
const maxDescription = 4000

var bugKey = regexp.MustCompile(`^[A-Za-z]+-\d+$`)

// McbugModule provides /mcbug
type McbugModule struct {
	api *minecraft.API
}

// New creates a new mcbug module
func New(deps *types.Dependencies) *McbugModule {
	return &McbugModule{api: deps.API}
}

// Register adds /mcbug to the command map
func (m *McbugModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["mcbug"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "mcbug",
			Description: "Get info on a bug from bugs.mojang.com",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "bug",
					Description: "Issue key, e.g. MC-4",
					Required:    true,
				},
			},
		},
		HandlerFunc: deps.Deferred("mcbug", m.handleBug),
	}
}

func (m *McbugModule) handleBug(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.lookup(ctx, utils.InteractionUser(i), utils.StringOption(i, "bug"))
}

func (m *McbugModule) lookup(ctx context.Context, user *discordgo.User, id string) (*types.Reply, error) {
	mention := "Hey"
	if user != nil {
		mention = user.Mention()
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return types.TextReply("%s, ❌ Please provide a bug.", mention), nil
	}
	if !bugKey.MatchString(id) {
		return types.TextReply("%s, ❌ `%s` is not a bug id, try something like `MC-4`.", mention, id), nil
	}

	bug, err := m.api.Bug(ctx, id)
	if errors.Is(err, minecraft.ErrNotFound) {
		return types.TextReply("%s, ❌ The bug %s was not found.", mention, strings.ToUpper(id)), nil
	}
	if err != nil {
		return nil, err
	}
	return types.EmbedReply(bugEmbed(bug, m.api.BugURL(id))), nil
}

func bugEmbed(bug *minecraft.Bug, link string) *discordgo.MessageEmbed {
	f := bug.Fields

	description := f.Description
	if r := []rune(description); len(r) > maxDescription {
		description = string(r[:maxDescription]) + "..."
	}

	embed := utils.NewEmbed("")
	embed.Description = description
	embed.Author = &discordgo.MessageEmbedAuthor{
		Name: fmt.Sprintf("%s - %s", f.Project.Name, f.Summary),
		URL:  link,
	}

	info := fmt.Sprintf("Version: %s\nReporter: %s\nCreated: %s\nVotes: %d\nUpdates: %s\nWatchers: %d",
		f.Project.Name, f.Creator.DisplayName, f.Created, f.Votes.Votes, f.Updated, f.Watches.WatchCount)

	details := fmt.Sprintf("Type: %s\nStatus: %s\n", f.IssueType.Name, f.Status.Name)
	if f.Resolution != nil && f.Resolution.Name != "" {
		details += fmt.Sprintf("Resolution: %s\n", f.Resolution.Name)
	}
	if affected := bug.AffectedVersions(); affected != "" {
		details += fmt.Sprintf("Affected: %s\n", affected)
	}
	if n := len(f.FixVersions); n > 0 {
		details += fmt.Sprintf("Fixed Version: %s + %d\n", f.FixVersions[0].Name, n)
	}

	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Information", Value: info, Inline: true},
		{Name: "Details", Value: details, Inline: true},
	}
	return embed
}
