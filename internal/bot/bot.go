package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"obsidion/internal/botlist"
	"obsidion/internal/commands"
	"obsidion/internal/config"
	"obsidion/internal/events"
	"obsidion/internal/metrics"
	"obsidion/internal/scheduler"
	"obsidion/internal/session"
	"obsidion/internal/telemetry"
)

// shutdownTimeout bounds the teardown of all network resources
const shutdownTimeout = 15 * time.Second

// restTimeout matches the discordgo default for REST calls
const restTimeout = 20 * time.Second

// Bot represents the Discord bot
type Bot struct {
	discord              *discordgo.Session
	config               *config.Config
	session              *session.Session
	metrics              *metrics.Metrics
	telemetry            *telemetry.Provider
	commandModuleHandler *commands.ModuleHandler
	guilds               *events.GuildTracker
	poster               *botlist.Poster
	scheduler            *scheduler.Scheduler
	metricsServer        *metrics.Server

	ctx       context.Context
	cancel    context.CancelFunc
	ready     atomic.Bool // guards interaction handling until startup completes
	connected atomic.Bool // set after the first gateway connect
}

// New creates a new Bot instance
func New(cfg *config.Config) (*Bot, error) {
	ctx, cancel := context.WithCancel(context.Background())

	provider, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:    cfg.GetTelemetryEnabled(),
		Endpoint:   cfg.GetTelemetryEndpoint(),
		SampleRate: cfg.GetTelemetrySampleRate(),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error initializing telemetry: %w", err)
	}

	dg, err := discordgo.New("Bot " + cfg.GetBotToken())
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	m := metrics.New()
	sess := session.New(cfg, session.WithMetrics(m), session.WithTelemetry(provider))
	// The REST client is set once; its transport follows every Recreate
	dg.Client = &http.Client{Transport: sess.Transport(), Timeout: restTimeout}

	bot := &Bot{
		discord:              dg,
		config:               cfg,
		session:              sess,
		metrics:              m,
		telemetry:            provider,
		commandModuleHandler: commands.NewModuleHandler(cfg, sess, m),
		guilds:               events.NewGuildTracker(cfg, m),
		poster:               botlist.NewPoster(cfg, sess, m),
		scheduler:            scheduler.NewScheduler(cfg),
		ctx:                  ctx,
		cancel:               cancel,
	}

	// Guild create/delete are needed for the join notification and bot list counts
	dg.Identify.Intents = discordgo.IntentsGuilds

	dg.AddHandler(bot.onReady)
	dg.AddHandler(bot.onConnect)
	dg.AddHandler(bot.onDisconnect)
	dg.AddHandler(bot.onInteractionCreate)
	dg.AddHandler(bot.guilds.OnGuildCreate)
	dg.AddHandler(bot.guilds.OnGuildDelete)

	return bot, nil
}

// Start starts the bot and blocks until SIGINT/SIGTERM
func (b *Bot) Start() error {
	defer b.cancel()

	// Resources are provisioned before the gateway opens so the first
	// commands only wait for readiness, not for a connect
	b.recreateSession()
	b.session.AttachPlatform(b.discord)

	if err := b.discord.Open(); err != nil {
		b.shutdown()
		return fmt.Errorf("error opening Discord connection: %w", err)
	}
	defer b.shutdown()

	if err := b.discord.UpdateGameStatus(0, "Mining some blocks..."); err != nil {
		b.config.Logger.Warnf("error updating bot status: %v", err)
	}

	if err := b.commandModuleHandler.RegisterCommands(b.discord); err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}

	if addr := b.config.GetMetricsAddr(); addr != "" {
		b.metricsServer = metrics.NewServer(addr, b.metrics, b.session)
		b.metricsServer.Start(func(err error) {
			b.config.Logger.Errorf("Metrics server failed: %v", err)
		})
		b.config.Logger.Infof("Serving metrics on %s", addr)
	}

	if err := b.registerJobs(); err != nil {
		return err
	}
	b.scheduler.Start()
	defer b.scheduler.Stop()

	b.ready.Store(true)
	b.config.Logger.Info("Initialization complete; interactions enabled")
	b.config.Logger.Info("Obsidion is now running. Press CTRL+C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	b.ready.Store(false)

	if os.Getenv("UNREGISTER_COMMANDS") == "true" {
		b.commandModuleHandler.UnregisterCommands(b.discord)
	}

	return nil
}

func (b *Bot) registerJobs() error {
	jobs := []struct {
		spec string
		name string
		fn   scheduler.Job
	}{
		{fmt.Sprintf("@every %s", b.config.GetBotListInterval()), "botlist", b.postGuildCount},
		{"@hourly", "log-pruning", func(context.Context) error { return b.config.PruneOldLogFiles() }},
		{"@every 10m", "cooldown-pruning", func(context.Context) error {
			if n := b.commandModuleHandler.Cooldowns().Prune(); n > 0 {
				b.config.Logger.Debugf("Pruned %d idle cooldowns", n)
			}
			return nil
		}},
		{"@hourly", "status-rotation", func(context.Context) error {
			return b.discord.UpdateGameStatus(0, randomStatus())
		}},
	}

	for _, j := range jobs {
		if err := b.scheduler.RegisterFunc(j.spec, j.name, j.fn); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) postGuildCount(ctx context.Context) error {
	if !b.ready.Load() {
		b.config.Logger.Debug("Skipping bot list update until startup completes")
		return nil
	}
	return b.poster.PostAll(ctx, b.guilds.Count())
}

// recreateSession rebuilds the network resources. The gateway's REST client
// picks up the new IPv4 bound transport through the session.
func (b *Bot) recreateSession() {
	b.session.Recreate(b.ctx)
}

func (b *Bot) shutdown() {
	if b.metricsServer != nil {
		if err := b.metricsServer.Close(); err != nil {
			b.config.Logger.Warnf("error closing metrics server: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	b.session.Shutdown(ctx)
}

// onReady handles the ready event
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.config.Logger.Infof("Bot received ready signal! Logged in as: %s (%d guilds)", r.User.Username, len(r.Guilds))
	b.guilds.OnReady(s, r)
}

// onConnect fires for the initial connect and every reconnect. The first one
// is already covered by the Recreate in Start.
func (b *Bot) onConnect(s *discordgo.Session, _ *discordgo.Connect) {
	if !b.connected.CompareAndSwap(false, true) {
		b.config.Logger.Info("Gateway reconnected, recreating session resources")
		b.recreateSession()
	}
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.config.Logger.Warn("Gateway connection lost")
}

func randomStatus() string {
	statuses := []string{
		"Use /help for commands",
		"Pinging servers...",
		"Punching trees...",
		"Avoiding creepers...",
		"Reading the wiki...",
		"Filing bug reports...",
		"Looking for diamonds...",
	}

	return statuses[rand.IntN(len(statuses))]
}

// onInteractionCreate handles slash command interactions
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.ready.Load() {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "⏳ Bot is starting up, try again in a few seconds.",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
		case discordgo.InteractionPing:
			_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{Type: discordgo.InteractionResponsePong})
		}
		return
	}

	if i.Type == discordgo.InteractionApplicationCommand {
		b.commandModuleHandler.HandleInteraction(s, i)
	}
}
