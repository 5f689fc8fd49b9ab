package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/omit"
	"github.com/leeineian/herald/sys"
)

func registerAutoResponse(r *sys.Router, d Deps) {
	adminPerm := discord.PermissionAdministrator

	registerCommand(r, discord.SlashCommandCreate{
		Name:                     "autoresponse",
		Description:              "Keyword auto-replies (Admin Only)",
		DefaultMemberPermissions: omit.New(&adminPerm),
		Contexts: []discord.InteractionContextType{
			discord.InteractionContextTypeGuild,
		},
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionSubCommand{
				Name:        "add",
				Description: "Reply to messages containing a keyword",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "keyword",
						Description: "Case-insensitive text to look for",
						Required:    true,
					},
					discord.ApplicationCommandOptionString{
						Name:        "response",
						Description: "Reply to send",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "remove",
				Description: "Remove every autoresponse for a keyword",
				Options: []discord.ApplicationCommandOption{
					discord.ApplicationCommandOptionString{
						Name:        "keyword",
						Description: "Keyword to remove",
						Required:    true,
					},
				},
			},
			discord.ApplicationCommandOptionSubCommand{
				Name:        "list",
				Description: "List configured autoresponses",
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		handleAutoResponse(r.Context(), event, d)
	})
}

func handleAutoResponse(ctx context.Context, event *events.ApplicationCommandInteractionCreate, d Deps) {
	if !guardAdmin(event) {
		return
	}
	data := event.SlashCommandInteractionData()
	if data.SubCommandName == nil {
		return
	}
	guildID := *event.GuildID()

	switch *data.SubCommandName {
	case "add":
		keyword := strings.TrimSpace(data.String("keyword"))
		response := strings.TrimSpace(data.String("response"))
		if keyword == "" || response == "" {
			respondEphemeral(event, sys.MsgAutoResponseErrEmpty)
			return
		}
		if err := d.Guilds.AddAutoResponse(ctx, guildID, keyword, response); err != nil {
			sys.LogError(sys.MsgConfigFailedToSave, guildID, err)
			respondEphemeral(event, sys.MsgConfigErrSaveFail)
			return
		}
		respondEphemeral(event, fmt.Sprintf(sys.MsgAutoResponseAdded, keyword))

	case "remove":
		keyword := strings.TrimSpace(data.String("keyword"))
		removed, err := d.Guilds.RemoveAutoResponse(ctx, guildID, keyword)
		if err != nil {
			sys.LogError(sys.MsgConfigFailedToSave, guildID, err)
			respondEphemeral(event, sys.MsgConfigErrSaveFail)
			return
		}
		if removed == 0 {
			respondEphemeral(event, fmt.Sprintf(sys.MsgAutoResponseNotFound, keyword))
			return
		}
		respondEphemeral(event, fmt.Sprintf(sys.MsgAutoResponseRemoved, keyword))

	case "list":
		cfg, err := d.Guilds.Get(ctx, guildID)
		if err != nil {
			sys.LogError(sys.MsgGenericError, err)
			respondEphemeral(event, sys.MsgConfigErrLoadFail)
			return
		}
		respondEphemeral(event, formatAutoResponses(cfg.AutoResponses))
	}
}

func formatAutoResponses(list []sys.AutoResponse) string {
	var sb strings.Builder
	sb.WriteString(sys.MsgAutoResponseListHeader)
	if len(list) == 0 {
		sb.WriteString(sys.MsgAutoResponseListEmpty)
		return sb.String()
	}
	for i, ar := range list {
		sb.WriteString(fmt.Sprintf(sys.MsgAutoResponseListItem, i+1, ar.Keyword, Truncate(ar.Response, 100)))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
