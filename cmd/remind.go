package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/leeineian/herald/proc"
	"github.com/leeineian/herald/sys"
)

const (
	reminderListLimit = 10
	reminderTextLimit = 50
	deadlineLayout    = "Jan 02, 2006 15:04 MST"
)

// ===========================
// Command Registration
// ===========================

func registerRemind(r *sys.Router, d Deps) {
	registerCommand(r, discord.SlashCommandCreate{
		Name:        "remind",
		Description: "Set a one-time reminder",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "when",
				Description: "When to remind (e.g. 10m, 2h, 1d, 30, 2026-01-02 15:04)",
				Required:    true,
			},
			discord.ApplicationCommandOptionString{
				Name:        "text",
				Description: "What to remind you about",
				Required:    true,
			},
		},
	}, func(event *events.ApplicationCommandInteractionCreate) {
		handleRemind(r.Context(), event, d)
	})

	registerCommand(r, discord.SlashCommandCreate{
		Name:        "reminders",
		Description: "List your pending reminders",
	}, func(event *events.ApplicationCommandInteractionCreate) {
		handleReminders(r.Context(), event, d)
	})
}

// ===========================
// Handlers
// ===========================

func handleRemind(ctx context.Context, event *events.ApplicationCommandInteractionCreate, d Deps) {
	data := event.SlashCommandInteractionData()

	req := proc.RemindRequest{
		When:      data.String("when"),
		Text:      data.String("text"),
		UserID:    event.User().ID,
		ChannelID: event.Channel().ID(),
	}
	if gid := event.GuildID(); gid != nil {
		req.GuildID = *gid
	}

	reminder, err := d.Reminders.Create(ctx, req)
	if err != nil {
		respondEphemeral(event, remindErrorMessage(err))
		return
	}

	respondEphemeral(event, formatReminderSet(reminder.DueAt(), d.Reminders.Now(), d.Location))
}

func handleReminders(ctx context.Context, event *events.ApplicationCommandInteractionCreate, d Deps) {
	reminders, err := d.Reminders.ListForUser(ctx, event.User().ID)
	if err != nil {
		sys.LogReminder(sys.MsgReminderFailedToLoad, err)
		respondEphemeral(event, sys.MsgReminderErrFailedToList)
		return
	}
	respondEphemeral(event, formatReminderList(reminders, d.Reminders.Now(), d.Location))
}

// ===========================
// Formatting
// ===========================

// remindErrorMessage maps a Create failure to the text shown to the user.
func remindErrorMessage(err error) string {
	switch {
	case errors.Is(err, proc.ErrInvalidTime):
		return sys.MsgReminderErrInvalidTime
	case errors.Is(err, proc.ErrTooFar):
		return sys.MsgReminderErrTooFar
	case errors.Is(err, proc.ErrEmptyText):
		return sys.MsgReminderErrEmptyText
	case errors.Is(err, proc.ErrPersistFailed):
		return sys.MsgReminderErrFailedToSet
	default:
		sys.LogError(sys.MsgGenericError, err)
		return sys.MsgErrInternal
	}
}

func formatReminderSet(due, now time.Time, loc *time.Location) string {
	return fmt.Sprintf(sys.MsgReminderSetSuccess, due.In(loc).Format(deadlineLayout), formatRelativeTime(now, due))
}

func formatReminderList(reminders []sys.Reminder, now time.Time, loc *time.Location) string {
	if len(reminders) == 0 {
		return sys.MsgReminderNoActive
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(sys.MsgReminderListHeader, len(reminders)))
	for i, r := range reminders {
		if i >= reminderListLimit {
			sb.WriteString(fmt.Sprintf(sys.MsgReminderListMore, len(reminders)-reminderListLimit))
			break
		}
		due := r.DueAt()
		sb.WriteString(fmt.Sprintf(sys.MsgReminderListItem, i+1, Truncate(r.Text, reminderTextLimit),
			formatRelativeTime(now, due), due.In(loc).Format(deadlineLayout)))
	}
	return sb.String()
}

// formatRelativeTime renders the distance from now to a future instant.
func formatRelativeTime(from, to time.Time) string {
	duration := to.Sub(from)

	if duration < time.Minute {
		return sys.MsgReminderRelLessMinute
	}

	if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return sys.MsgReminderRelMinute
		}
		return fmt.Sprintf(sys.MsgReminderRelMinutes, minutes)
	}

	if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return sys.MsgReminderRelHour
		}
		return fmt.Sprintf(sys.MsgReminderRelHours, hours)
	}

	days := int(duration.Hours() / 24)
	if days == 1 {
		return sys.MsgReminderRelDay
	}
	if days < 7 {
		return fmt.Sprintf(sys.MsgReminderRelDays, days)
	}

	weeks := days / 7
	if weeks == 1 {
		return sys.MsgReminderRelWeek
	}
	if weeks < 4 {
		return fmt.Sprintf(sys.MsgReminderRelWeeks, weeks)
	}

	months := days / 30
	if months <= 1 {
		return sys.MsgReminderRelMonth
	}
	return fmt.Sprintf(sys.MsgReminderRelMonths, months)
}
