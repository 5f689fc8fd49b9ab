package cmd

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/herald/proc"
	"github.com/leeineian/herald/sys"
)

// Deps are the services the slash commands act on.
type Deps struct {
	Reminders *proc.ReminderService
	Guilds    *sys.GuildStore
	Location  *time.Location
}

// Install registers every slash command on the router.
func Install(r *sys.Router, d Deps) {
	if d.Location == nil {
		d.Location = time.Local
	}
	registerRemind(r, d)
	registerConfig(r, d)
	registerAutoResponse(r, d)
}

type commandHandler = func(event *events.ApplicationCommandInteractionCreate)

// registerCommand adds c to the router with panic recovery around h.
func registerCommand(r *sys.Router, c discord.SlashCommandCreate, h commandHandler) {
	r.RegisterCommand(c, recoverCommand(c.Name, h, respondEphemeral))
}

// recoverCommand logs a panic in h and answers the interaction with a
// generic failure notice.
func recoverCommand(name string, h commandHandler, reply func(event *events.ApplicationCommandInteractionCreate, content string)) commandHandler {
	return func(event *events.ApplicationCommandInteractionCreate) {
		defer func() {
			if rec := recover(); rec != nil {
				sys.LogError(sys.MsgCommandPanicRecovered, name, rec)
				reply(event, sys.MsgErrInternal)
			}
		}()
		h(event)
	}
}

// respondEphemeral sends a components-v2 ephemeral reply.
func respondEphemeral(event *events.ApplicationCommandInteractionCreate, content string) {
	container := discord.NewContainer(discord.NewTextDisplay(content))
	err := event.CreateMessage(discord.NewMessageCreate().
		WithIsComponentsV2(true).
		WithEphemeral(true).
		WithComponents(container))
	if err != nil {
		sys.LogError(sys.MsgReminderRespondError, err)
	}
}

// isAdmin reports whether the invoking member holds Administrator.
func isAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	member := event.Member()
	if member == nil {
		return false
	}
	return member.Permissions.Has(discord.PermissionAdministrator)
}

// guardAdmin answers the interaction and returns false unless it was sent by
// an administrator inside a guild.
func guardAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	if event.GuildID() == nil {
		respondEphemeral(event, sys.MsgConfigErrGuildOnly)
		return false
	}
	if !isAdmin(event) {
		respondEphemeral(event, sys.MsgConfigErrAdminOnly)
		return false
	}
	return true
}

// Truncate shortens s to at most maxLen runes, ending in an ellipsis.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
