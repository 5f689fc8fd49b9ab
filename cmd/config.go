package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/herald/sys"
)

var actionChoices = []discord.ApplicationCommandOptionChoiceString{
	{Name: "Set", Value: "set"},
	{Name: "Clear", Value: "clear"},
}

func registerConfig(r *sys.Router, d Deps) {
	adminPerm := discord.PermissionAdministrator

	registerCommand(r, discord.SlashCommandCreate{
		Name:                     "config",
		Description:              "Server configuration (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "autorole",
				Description: "Role given to every member who joins",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "action",
						Description: "Set or clear the auto-role",
						Required:    true,
						Choices:     actionChoices,
					},
					discord.ApplicationCommandOptionRole{
						Name:        "role",
						Description: "Role to assign (required for set)",
						Required:    false,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "modlog",
				Description: "Channel that receives deleted-message logs",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "action",
						Description: "Set or clear the mod-log channel",
						Required:    true,
						Choices:     actionChoices,
					},
					discord.ApplicationCommandOptionChannel{
						Name:         "channel",
						Description:  "Mod-log channel (required for set)",
						Required:     false,
						ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildText},
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "show",
				Description: "Show the current server configuration",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		handleConfig(r.Context(), event, d)
	})
}

func handleConfig(ctx context.Context, event *events.ApplicationCommandInteractionCreate, d Deps) {
	if !guardAdmin(event) {
		return
	}
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	guildID := *event.GuildID()

	switch *data.SubCommandName {
	case "autorole":
		handleConfigAutoRole(ctx, event, d, guildID, data)
	case "modlog":
		handleConfigModLog(ctx, event, d, guildID, data)
	case "show":
		cfg, err := d.Guilds.Get(ctx, guildID)
		if err != nil {
			sys.LogError(sys.MsgGenericError, err)
			respondEphemeral(event, sys.MsgConfigErrLoadFail)
			return
		}
		respondEphemeral(event, formatGuildConfig(cfg))
	}
}

func handleConfigAutoRole(ctx context.Context, event *events.ApplicationCommandInteractionCreate, d Deps, guildID snowflake.ID, data discord.SlashCommandInteractionData) {
	switch data.String("action") {
	case "set":
		role, ok := data.OptRole("role")
		if !ok {
			respondEphemeral(event, sys.MsgConfigErrRoleRequired)
			return
		}
		if err := d.Guilds.SetAutoRole(ctx, guildID, role.ID); err != nil {
			sys.LogError(sys.MsgConfigFailedToSave, guildID, err)
			respondEphemeral(event, sys.MsgConfigErrSaveFail)
			return
		}
		respondEphemeral(event, fmt.Sprintf(sys.MsgConfigAutoRoleSet, role.Name))
	case "clear":
		if err := d.Guilds.SetAutoRole(ctx, guildID, 0); err != nil {
			sys.LogError(sys.MsgConfigFailedToSave, guildID, err)
			respondEphemeral(event, sys.MsgConfigErrSaveFail)
			return
		}
		respondEphemeral(event, sys.MsgConfigAutoRoleCleared)
	}
}

func handleConfigModLog(ctx context.Context, event *events.ApplicationCommandInteractionCreate, d Deps, guildID snowflake.ID, data discord.SlashCommandInteractionData) {
	switch data.String("action") {
	case "set":
		channel, ok := data.OptChannel("channel")
		if !ok {
			respondEphemeral(event, sys.MsgConfigErrChannelRequired)
			return
		}
		if err := d.Guilds.SetModLog(ctx, guildID, channel.ID); err != nil {
			sys.LogError(sys.MsgConfigFailedToSave, guildID, err)
			respondEphemeral(event, sys.MsgConfigErrSaveFail)
			return
		}
		respondEphemeral(event, fmt.Sprintf(sys.MsgConfigModLogSet, channel.Name))
	case "clear":
		if err := d.Guilds.SetModLog(ctx, guildID, 0); err != nil {
			sys.LogError(sys.MsgConfigFailedToSave, guildID, err)
			respondEphemeral(event, sys.MsgConfigErrSaveFail)
			return
		}
		respondEphemeral(event, sys.MsgConfigModLogCleared)
	}
}

func formatGuildConfig(cfg sys.GuildConfig) string {
	autoRole := sys.MsgConfigShowNotSet
	if cfg.AutoRole != 0 {
		autoRole = fmt.Sprintf("<@&%s>", cfg.AutoRole)
	}
	modLog := sys.MsgConfigShowNotSet
	if cfg.ModLog != 0 {
		modLog = fmt.Sprintf("<#%s>", cfg.ModLog)
	}

	var sb strings.Builder
	sb.WriteString(sys.MsgConfigShowHeader)
	sb.WriteString(fmt.Sprintf(sys.MsgConfigShowAutoRole, autoRole))
	sb.WriteString(fmt.Sprintf(sys.MsgConfigShowModLog, modLog))
	sb.WriteString(fmt.Sprintf(sys.MsgConfigShowAutoResponses, len(cfg.AutoResponses)))
	return sb.String()
}
