// Package botlist reports the guild count to bot listing sites.
package botlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"obsidion/internal/config"
	"obsidion/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// Target is one listing site. URL contains a {id} placeholder for the client id.
type Target struct {
	Site       string
	URL        string
	AuthHeader string
	CountField string
}

// DefaultTargets are the sites the bot is listed on
var DefaultTargets = []Target{
	{Site: "dbl", URL: "https://top.gg/api/bots/{id}/stats", AuthHeader: "Authorization", CountField: "server_count"},
	{Site: "bots4discord", URL: "https://botsfordiscord.com/api/bot/{id}", AuthHeader: "Authorization", CountField: "server_count"},
	{Site: "discordboats", URL: "https://discord.boats/api/bot/{id}", AuthHeader: "Authorization", CountField: "server_count"},
	{Site: "discordbotlist", URL: "https://discordbotlist.com/api/v1/bots/{id}/stats", AuthHeader: "Authorization", CountField: "guilds"},
	{Site: "discordlabs", URL: "https://bots.discordlabs.org/v2/bot/{id}/stats", AuthHeader: "token", CountField: "server_count"},
}

// Sender is the part of the HTTP client the poster needs
type Sender interface {
	PostJSON(ctx context.Context, rawURL string, headers map[string]string, body, out any) error
}

// Poster posts the guild count to every configured target
type Poster struct {
	cfg     *config.Config
	sender  Sender
	metrics *metrics.Metrics
	targets []Target

	warnOnce sync.Once
}

// NewPoster creates a poster for targets, DefaultTargets when none are given
func NewPoster(cfg *config.Config, sender Sender, m *metrics.Metrics, targets ...Target) *Poster {
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	return &Poster{cfg: cfg, sender: sender, metrics: m, targets: targets}
}

// PostAll sends guildCount to every target that has a token. Failures of
// individual sites don't stop the others; they are returned joined.
func (p *Poster) PostAll(ctx context.Context, guildCount int) error {
	clientID := p.cfg.GetClientID()

	var (
		mu   sync.Mutex
		errs []error
		skip []string
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range p.targets {
		token := p.cfg.GetBotListToken(t.Site)
		if token == "" {
			skip = append(skip, t.Site)
			continue
		}

		g.Go(func() error {
			url := strings.ReplaceAll(t.URL, "{id}", clientID)
			body := map[string]int{t.CountField: guildCount}
			err := p.sender.PostJSON(ctx, url, map[string]string{t.AuthHeader: token}, body, nil)
			p.metrics.BotListPosted(t.Site, err)
			if err != nil {
				p.cfg.Logger.Warnf("Failed to post guild count to %s: %v", t.Site, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.Site, err))
				mu.Unlock()
			}
			// a failing site must not cancel the others
			return nil
		})
	}

	if len(skip) > 0 {
		p.warnOnce.Do(func() {
			p.cfg.Logger.Warnf("No bot list token configured for: %s", strings.Join(skip, ", "))
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}
