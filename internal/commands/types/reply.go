package types

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"obsidion/internal/utils"

	"github.com/bwmarrin/discordgo"
)

// handlerTimeout bounds one command invocation including upstream retries
const handlerTimeout = 30 * time.Second

// Reply is the content a command sends back
type Reply struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
	Files   []*discordgo.File
}

// TextReply is a plain message reply
func TextReply(format string, args ...interface{}) *Reply {
	return &Reply{Content: fmt.Sprintf(format, args...)}
}

// EmbedReply wraps a single embed
func EmbedReply(embed *discordgo.MessageEmbed, files ...*discordgo.File) *Reply {
	return &Reply{Embeds: []*discordgo.MessageEmbed{embed}, Files: files}
}

// WebhookEdit converts the reply into an edit of the deferred response
func (r *Reply) WebhookEdit() *discordgo.WebhookEdit {
	content := r.Content
	embeds := r.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	return &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
		Files:   r.Files,
	}
}

func (d *Dependencies) respond(s *discordgo.Session, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	if d.Respond != nil {
		return d.Respond(s, i, resp)
	}
	return s.InteractionRespond(i, resp)
}

func (d *Dependencies) editResponse(s *discordgo.Session, i *discordgo.Interaction, edit *discordgo.WebhookEdit) error {
	if d.EditResponse != nil {
		return d.EditResponse(s, i, edit)
	}
	_, err := s.InteractionResponseEdit(i, edit)
	return err
}

// Deferred adapts fn into a slash command handler. It applies the per-user
// cooldown, acknowledges the interaction, runs fn and edits in its reply.
// Errors and panics become a generic failure message.
func (d *Dependencies) Deferred(name string, fn Handler) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		user := utils.InteractionUser(i)
		userID := ""
		if user != nil {
			userID = user.ID
		}

		if wait, ok := d.Cooldowns.Allow(name, userID); !ok {
			d.Metrics.CommandInvoked(name, "cooldown")
			_ = d.respond(s, i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: fmt.Sprintf("⏳ Slow down! You can use `/%s` again in %.1fs.", name, wait.Seconds()),
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
			return
		}

		if err := d.respond(s, i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		}); err != nil {
			d.Config.Logger.Errorf("Failed to defer /%s: %v", name, err)
			d.Metrics.CommandInvoked(name, "error")
			return
		}

		outcome := "ok"
		reply := d.run(name, fn, i, &outcome)
		if err := d.editResponse(s, i.Interaction, reply.WebhookEdit()); err != nil {
			d.Config.Logger.Errorf("Failed to send reply for /%s: %v", name, err)
			outcome = "error"
		}
		d.Metrics.CommandInvoked(name, outcome)
	}
}

func (d *Dependencies) run(name string, fn Handler, i *discordgo.InteractionCreate, outcome *string) (reply *Reply) {
	defer func() {
		if r := recover(); r != nil {
			d.Config.Logger.Errorf("Panic in /%s: %v\n%s", name, r, debug.Stack())
			*outcome = "error"
			reply = failureReply()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	reply, err := fn(ctx, i)
	if err != nil {
		d.Config.Logger.Errorf("Command /%s failed: %v", name, err)
		*outcome = "error"
		return failureReply()
	}
	if reply == nil {
		return TextReply("Done.")
	}
	return reply
}

func failureReply() *Reply {
	return EmbedReply(utils.NewErrorEmbed("Something went wrong", "The request could not be completed right now. Please try again later."))
}
