package sys

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Messenger is the message-sending capability handed to components that
// deliver text. Implementations report failures instead of swallowing them.
type Messenger interface {
	SendChannelMessage(ctx context.Context, channelID snowflake.ID, content string) error
	SendDirectMessage(ctx context.Context, userID snowflake.ID, content string) error
}

// DiscordMessenger sends through the disgo REST client and reads the gateway caches.
type DiscordMessenger struct {
	client *bot.Client
}

func NewDiscordMessenger(client *bot.Client) *DiscordMessenger {
	return &DiscordMessenger{client: client}
}

func userMentionsOnly() *discord.AllowedMentions {
	return &discord.AllowedMentions{
		Parse: []discord.AllowedMentionType{discord.AllowedMentionTypeUsers},
	}
}

func (m *DiscordMessenger) SendChannelMessage(ctx context.Context, channelID snowflake.ID, content string) error {
	if _, ok := m.client.Caches.Channel(channelID); !ok {
		if _, err := m.client.Rest.GetChannel(channelID, rest.WithCtx(ctx)); err != nil {
			return fmt.Errorf("fetch channel %s: %w", channelID, err)
		}
	}

	msg := discord.NewMessageCreate().
		WithContent(content).
		WithAllowedMentions(userMentionsOnly())

	if _, err := m.client.Rest.CreateMessage(channelID, msg, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	return nil
}

func (m *DiscordMessenger) SendDirectMessage(ctx context.Context, userID snowflake.ID, content string) error {
	dmChannel, err := m.client.Rest.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("open DM with %s: %w", userID, err)
	}

	msg := discord.NewMessageCreate().
		WithContent(content).
		WithAllowedMentions(&discord.AllowedMentions{})

	if _, err := m.client.Rest.CreateMessage(dmChannel.ID(), msg, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("send DM to %s: %w", userID, err)
	}
	return nil
}

// Reply answers a message in place without pinging anyone.
func (m *DiscordMessenger) Reply(ctx context.Context, channelID, messageID snowflake.ID, content string) error {
	msg := discord.NewMessageCreate().
		WithContent(content).
		WithMessageReference(&discord.MessageReference{MessageID: &messageID}).
		WithAllowedMentions(&discord.AllowedMentions{RepliedUser: false})

	_, err := m.client.Rest.CreateMessage(channelID, msg, rest.WithCtx(ctx))
	return err
}

func (m *DiscordMessenger) AddMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error {
	if _, ok := m.client.Caches.Role(guildID, roleID); !ok {
		LogDebug("Role %s not cached for guild %s, attempting assignment anyway", roleID, guildID)
	}
	return m.client.Rest.AddMemberRole(guildID, userID, roleID, rest.WithCtx(ctx))
}

// ChannelName resolves a channel's display name, preferring the cache.
func (m *DiscordMessenger) ChannelName(ctx context.Context, channelID snowflake.ID) string {
	if ch, ok := m.client.Caches.Channel(channelID); ok {
		return ch.Name()
	}
	ch, err := m.client.Rest.GetChannel(channelID, rest.WithCtx(ctx))
	if err != nil {
		return ""
	}
	if gc, ok := ch.(discord.GuildChannel); ok {
		return gc.Name()
	}
	return ""
}
