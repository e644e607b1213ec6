package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"obsidion/internal/commands/types"
	"obsidion/internal/fetch"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// ServerModule provides /server (Java edition) and /serverpe (Bedrock edition)
type ServerModule struct {
	api    *minecraft.API
	stores types.StoreSource
}

// New creates a new server module
func New(deps *types.Dependencies) *ServerModule {
	m := &ServerModule{api: deps.API}
	if deps.Session != nil {
		m.stores = deps.Session
	}
	return m
}

func addressOptions(edition string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "address",
			Description: fmt.Sprintf("%s server address, optionally with :port", edition),
			Required:    false,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "port",
			Description: "Server port",
			Required:    false,
			MinValue:    utils.Float64Ptr(1),
			MaxValue:    65535,
		},
	}
}

// Register adds /server and /serverpe to the command map
func (m *ServerModule) Register(cmds map[string]*types.Command, deps *types.Dependencies) {
	cmds["server"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "server",
			Description: "Get info on a Java edition Minecraft server",
			Options:     addressOptions("Java"),
		},
		HandlerFunc: deps.Deferred("server", m.handleJava),
	}
	cmds["serverpe"] = &types.Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        "serverpe",
			Description: "Get info on a Bedrock edition Minecraft server",
			Options:     addressOptions("Bedrock"),
		},
		HandlerFunc: deps.Deferred("serverpe", m.handleBedrock),
	}
}

// request is the parsed input of either command
type request struct {
	guildID string
	user    *discordgo.User
	address string
	port    int
}

func newRequest(i *discordgo.InteractionCreate) request {
	return request{
		guildID: i.GuildID,
		user:    utils.InteractionUser(i),
		address: utils.StringOption(i, "address"),
		port:    utils.IntOption(i, "port"),
	}
}

func (m *ServerModule) handleJava(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.java(ctx, newRequest(i))
}

func (m *ServerModule) handleBedrock(ctx context.Context, i *discordgo.InteractionCreate) (*types.Reply, error) {
	return m.bedrock(ctx, newRequest(i))
}

func (m *ServerModule) java(ctx context.Context, req request) (*types.Reply, error) {
	addr, reply, err := m.resolve(ctx, req)
	if reply != nil || err != nil {
		return reply, err
	}

	data, err := m.api.JavaServer(ctx, addr)
	if isUpstreamFailure(err) {
		return unreachable(req.user, "Java", addr), nil
	}
	if err != nil {
		return nil, err
	}
	return javaReply(addr, data), nil
}

func (m *ServerModule) bedrock(ctx context.Context, req request) (*types.Reply, error) {
	addr, reply, err := m.resolve(ctx, req)
	if reply != nil || err != nil {
		return reply, err
	}

	data, err := m.api.BedrockServer(ctx, addr)
	if isUpstreamFailure(err) {
		return unreachable(req.user, "Bedrock", addr), nil
	}
	if err != nil {
		return nil, err
	}
	return bedrockReply(addr, data), nil
}

// resolve picks the requested address, falling back to the guild's linked server
func (m *ServerModule) resolve(ctx context.Context, req request) (minecraft.Address, *types.Reply, error) {
	address := strings.TrimSpace(req.address)
	if address == "" && req.guildID != "" && m.stores != nil {
		store, err := m.stores.Store(ctx)
		if err != nil {
			return minecraft.Address{}, nil, fmt.Errorf("load linked server: %w", err)
		}
		if address, err = store.GuildServer(ctx, req.guildID); err != nil {
			return minecraft.Address{}, nil, fmt.Errorf("load linked server: %w", err)
		}
	}
	if address == "" {
		return minecraft.Address{}, types.TextReply("Please provide a server or link one using `/serverlink`."), nil
	}

	addr, err := minecraft.ParseServerAddress(address, req.port)
	if err != nil {
		return minecraft.Address{}, types.TextReply("❌ `%s` is not a valid server address.", address), nil
	}
	return addr, nil, nil
}

// isUpstreamFailure is true for errors the status API produced (offline, unknown, unreachable)
func isUpstreamFailure(err error) bool {
	var apiErr *fetch.APIError
	return errors.As(err, &apiErr)
}

func unreachable(user *discordgo.User, edition string, addr minecraft.Address) *types.Reply {
	who := "Hey"
	if user != nil {
		who = user.Mention()
	}
	return types.TextReply("%s, ❌ The %s edition Minecraft server `%s` is currently not online or cannot be requested", who, edition, addr.Host)
}
