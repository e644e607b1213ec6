package server

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"obsidion/internal/commands/types"
	"obsidion/internal/minecraft"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	defaultThumbnail = "https://media.discordapp.net/attachments/493764139290984459/602058959284863051/unknown.png"
	faviconName      = "favicon.png"
	maxBedrockNames  = 10
)

func playersField(online, maxPlayers int) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name:   "Players",
		Value:  fmt.Sprintf("Online: `%s` \n Maximum: `%s`", utils.FormatCount(online), utils.FormatCount(maxPlayers)),
		Inline: true,
	}
}

func orBlank(s string) string {
	if strings.TrimSpace(s) == "" {
		return "\u200b"
	}
	return s
}

func javaReply(addr minecraft.Address, data *minecraft.JavaServer) *types.Reply {
	embed := utils.NewEmbed("Java Server: " + addr.Host)
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Description", Value: orBlank(data.Description), Inline: true},
		playersField(data.Players.Online, data.Players.Max),
	)

	if len(data.Players.Sample) > 0 {
		var names strings.Builder
		for _, p := range data.Players.Sample {
			names.WriteString(p.Name + "\n")
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Information", Value: names.String()})
	}

	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Version",
		Value: fmt.Sprintf("Java Edition \n Running: `%s` \n Protocol: `%d`", data.Version.Name, data.Version.Protocol),
	})

	if icon, ok := decodeFavicon(data.Favicon); ok {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: "attachment://" + faviconName}
		return types.EmbedReply(embed, &discordgo.File{
			Name:        faviconName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(icon),
		})
	}
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: defaultThumbnail}
	return types.EmbedReply(embed)
}

func bedrockReply(addr minecraft.Address, data *minecraft.BedrockServer) *types.Reply {
	embed := utils.NewEmbed("Bedrock Server: " + addr.Host)
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Description", Value: orBlank(data.Motd), Inline: true},
		playersField(data.Players.Online, data.Players.Max),
		&discordgo.MessageEmbedField{
			Name:   "Version",
			Value:  fmt.Sprintf("Bedrock Edition \n Running: `%s` \n Map: `%s`", data.Software.Version, data.Map),
			Inline: true,
		},
	)

	if names := data.Players.Names; len(names) > 0 {
		if len(names) > maxBedrockNames {
			names = names[:maxBedrockNames]
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Players Online",
			Value: strings.Join(names, "\n"),
		})
	}
	return types.EmbedReply(embed)
}

// decodeFavicon extracts the PNG from a data:image/png;base64 URI
func decodeFavicon(uri string) ([]byte, bool) {
	_, encoded, found := strings.Cut(uri, ",")
	if !found || encoded == "" {
		return nil, false
	}
	icon, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(icon) == 0 {
		return nil, false
	}
	return icon, true
}
