package types

import (
	"context"
	"errors"
	"testing"
	"time"

	"obsidion/internal/config"
	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
}

func newDeps(rec *recorder, cooldown time.Duration) *Dependencies {
	return &Dependencies{
		Config:    config.NewMockConfig(nil),
		Cooldowns: utils.NewCooldowns(cooldown),
		Respond: func(_ *discordgo.Session, _ *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
			rec.responses = append(rec.responses, resp)
			return nil
		},
		EditResponse: func(_ *discordgo.Session, _ *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
			rec.edits = append(rec.edits, edit)
			return nil
		},
	}
}

func interaction(userID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{User: &discordgo.User{ID: userID}},
		Data:   discordgo.ApplicationCommandInteractionData{Name: "test"},
	}}
}

func TestDeferredEditsInReply(t *testing.T) {
	rec := &recorder{}
	d := newDeps(rec, 0)

	handler := d.Deferred("test", func(ctx context.Context, i *discordgo.InteractionCreate) (*Reply, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return TextReply("hello %s", "there"), nil
	})
	handler(nil, interaction("1"))

	require.Len(t, rec.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, rec.responses[0].Type)
	require.Len(t, rec.edits, 1)
	assert.Equal(t, "hello there", *rec.edits[0].Content)
	assert.Empty(t, *rec.edits[0].Embeds)
}

func TestDeferredTurnsErrorsAndPanicsIntoFailureEmbed(t *testing.T) {
	rec := &recorder{}
	d := newDeps(rec, 0)

	d.Deferred("test", func(context.Context, *discordgo.InteractionCreate) (*Reply, error) {
		return nil, errors.New("boom")
	})(nil, interaction("1"))
	d.Deferred("test", func(context.Context, *discordgo.InteractionCreate) (*Reply, error) {
		panic("kaboom")
	})(nil, interaction("1"))

	require.Len(t, rec.edits, 2)
	for _, edit := range rec.edits {
		embeds := *edit.Embeds
		require.Len(t, embeds, 1)
		assert.Equal(t, "❌ Something went wrong", embeds[0].Title)
	}
}

func TestDeferredAppliesCooldown(t *testing.T) {
	rec := &recorder{}
	d := newDeps(rec, time.Minute)

	calls := 0
	handler := d.Deferred("test", func(context.Context, *discordgo.InteractionCreate) (*Reply, error) {
		calls++
		return TextReply("ok"), nil
	})
	handler(nil, interaction("1"))
	handler(nil, interaction("1"))
	handler(nil, interaction("2"))

	assert.Equal(t, 2, calls)
	require.Len(t, rec.responses, 3)
	limited := rec.responses[1]
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, limited.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, limited.Data.Flags)
	assert.Contains(t, limited.Data.Content, "Slow down! You can use `/test` again in")
}
