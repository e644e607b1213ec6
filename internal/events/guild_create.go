package events

import (
	"fmt"
	"sync"
	"time"

	"obsidion/internal/config"
	"obsidion/internal/metrics"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const defaultGuildIcon = "https://i.imgur.com/AFABgjD.png"

// GuildTracker keeps the set of guilds the bot is in and announces new ones
// in the configured channel.
type GuildTracker struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	mu     sync.Mutex
	guilds map[string]struct{}

	// SendEmbed is overridable in tests, nil means the real session call
	SendEmbed func(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error
}

func NewGuildTracker(cfg *config.Config, m *metrics.Metrics) *GuildTracker {
	return &GuildTracker{cfg: cfg, metrics: m, guilds: make(map[string]struct{})}
}

// Count returns the number of guilds the bot is in
func (g *GuildTracker) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.guilds)
}

// OnReady records the guilds of a (re)connect. They are never announced.
func (g *GuildTracker) OnReady(s *discordgo.Session, r *discordgo.Ready) {
	g.mu.Lock()
	for _, guild := range r.Guilds {
		g.guilds[guild.ID] = struct{}{}
	}
	n := len(g.guilds)
	g.mu.Unlock()
	g.metrics.SetGuilds(n)
}

// OnGuildCreate announces guilds that were not known yet. Discord also sends
// GuildCreate for every existing guild after Ready; those are already known.
func (g *GuildTracker) OnGuildCreate(s *discordgo.Session, e *discordgo.GuildCreate) {
	if e.Guild == nil || e.Unavailable {
		return
	}

	g.mu.Lock()
	_, known := g.guilds[e.ID]
	g.guilds[e.ID] = struct{}{}
	n := len(g.guilds)
	g.mu.Unlock()
	g.metrics.SetGuilds(n)

	if known {
		return
	}
	g.cfg.Logger.Infof("Joined guild %s (%s)", e.Name, e.ID)

	channelID := g.cfg.GetNewGuildChannelID()
	if channelID == "" {
		return
	}
	if err := g.send(s, channelID, joinEmbed(s, e.Guild, n)); err != nil {
		g.cfg.Logger.Warnf("Failed to announce new guild %s: %v", e.ID, err)
	}
}

// OnGuildDelete forgets guilds the bot was removed from
func (g *GuildTracker) OnGuildDelete(s *discordgo.Session, e *discordgo.GuildDelete) {
	if e.Guild == nil || e.Unavailable {
		return
	}
	g.mu.Lock()
	delete(g.guilds, e.ID)
	n := len(g.guilds)
	g.mu.Unlock()
	g.metrics.SetGuilds(n)
}

func (g *GuildTracker) send(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error {
	if g.SendEmbed != nil {
		return g.SendEmbed(s, channelID, embed)
	}
	_, err := s.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func joinEmbed(s *discordgo.Session, guild *discordgo.Guild, count int) *discordgo.MessageEmbed {
	title := "Joined a guild"
	shard, shards := 0, 1
	if s != nil {
		if s.State != nil && s.State.User != nil {
			title = s.State.User.Username + " has joined a guild"
		}
		shard, shards = s.ShardID, s.ShardCount
		if shards < 1 {
			shards = 1
		}
	}

	thumbnail := guild.IconURL("256")
	if guild.Icon == "" {
		thumbnail = defaultGuildIcon
	}

	embed := utils.NewEmbed(title)
	embed.Color = utils.Colors.Info()
	embed.Timestamp = time.Now().Format(time.RFC3339)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnail}
	embed.Fields = []*discordgo.MessageEmbedField{
		{
			Name:  "Guild",
			Value: fmt.Sprintf("Name: `%s`\nID: `%s`\nOwner ID: `%s`\n", guild.Name, guild.ID, guild.OwnerID),
		},
	}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Guild: %s | Shard: %d/%d", utils.FormatCount(count), shard, shards-1),
	}
	return embed
}
