package proc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/herald/sys"
	"golang.org/x/time/rate"
)

// GuildConfigSource reads per-guild settings.
type GuildConfigSource interface {
	Get(ctx context.Context, guildID snowflake.ID) (sys.GuildConfig, error)
}

// RoleAssigner grants a role to a guild member.
type RoleAssigner interface {
	AddMemberRole(ctx context.Context, guildID, userID, roleID snowflake.ID) error
}

// Replier answers a message in its channel.
type Replier interface {
	Reply(ctx context.Context, channelID, messageID snowflake.ID, content string) error
}

// ModLogSender posts to the mod-log channel and resolves channel names.
type ModLogSender interface {
	SendChannelMessage(ctx context.Context, channelID snowflake.ID, content string) error
	ChannelName(ctx context.Context, channelID snowflake.ID) string
}

// ===========================
// Auto Role
// ===========================

type AutoRole struct {
	ctx    context.Context
	guilds GuildConfigSource
	roles  RoleAssigner
}

func NewAutoRole(ctx context.Context, guilds GuildConfigSource, roles RoleAssigner) *AutoRole {
	return &AutoRole{ctx: ctx, guilds: guilds, roles: roles}
}

// Assign gives userID the guild's auto-role, if one is configured. It reports
// whether a role was assigned.
func (a *AutoRole) Assign(ctx context.Context, guildID, userID snowflake.ID) (bool, error) {
	cfg, err := a.guilds.Get(ctx, guildID)
	if err != nil {
		return false, err
	}
	if cfg.AutoRole == 0 {
		return false, nil
	}
	if err := a.roles.AddMemberRole(ctx, guildID, userID, cfg.AutoRole); err != nil {
		return false, fmt.Errorf("add role %s to %s: %w", cfg.AutoRole, userID, err)
	}
	return true, nil
}

func (a *AutoRole) OnMemberJoin(event *events.GuildMemberJoin) {
	if event.Member.User.Bot {
		return
	}
	userID := event.Member.User.ID
	assigned, err := a.Assign(a.ctx, event.GuildID, userID)
	if err != nil {
		sys.LogAutoRole(sys.MsgAutoRoleFailed, event.GuildID, err)
		return
	}
	if assigned {
		sys.LogAutoRole(sys.MsgAutoRoleAssigned, userID, event.GuildID)
	}
}

// ===========================
// Auto Response
// ===========================

const autoResponseBurst = 3

type AutoResponder struct {
	ctx      context.Context
	guilds   GuildConfigSource
	replier  Replier
	cooldown time.Duration

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

func NewAutoResponder(ctx context.Context, guilds GuildConfigSource, replier Replier, cooldown time.Duration) *AutoResponder {
	return &AutoResponder{
		ctx:      ctx,
		guilds:   guilds,
		replier:  replier,
		cooldown: cooldown,
		limiters: make(map[snowflake.ID]*rate.Limiter),
	}
}

func (a *AutoResponder) limiter(channelID snowflake.ID) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[channelID]
	if !ok {
		l = rate.NewLimiter(rate.Every(a.cooldown), autoResponseBurst)
		a.limiters[channelID] = l
	}
	return l
}

// Respond replies to the message with the first matching auto-response. It
// reports whether a reply was sent.
func (a *AutoResponder) Respond(ctx context.Context, guildID, channelID, messageID snowflake.ID, content string) (bool, error) {
	cfg, err := a.guilds.Get(ctx, guildID)
	if err != nil {
		return false, err
	}
	ar, ok := cfg.Match(content)
	if !ok {
		return false, nil
	}
	if !a.limiter(channelID).Allow() {
		sys.LogDebug(sys.MsgAutoResponseThrottled, channelID)
		return false, nil
	}
	if err := a.replier.Reply(ctx, channelID, messageID, ar.Response); err != nil {
		return false, fmt.Errorf("reply to %q: %w", ar.Keyword, err)
	}
	return true, nil
}

func (a *AutoResponder) OnMessageCreate(event *events.MessageCreate) {
	if event.Message.Author.Bot || event.GuildID == nil {
		return
	}
	if _, err := a.Respond(a.ctx, *event.GuildID, event.ChannelID, event.MessageID, event.Message.Content); err != nil {
		sys.LogAutoResponse(sys.MsgAutoResponseFailed, *event.GuildID, err)
	}
}

// ===========================
// Mod Log
// ===========================

// DeletedMessage is what is known about a deleted message. Fields are empty
// when the message was not cached.
type DeletedMessage struct {
	ChannelID  snowflake.ID
	AuthorID   snowflake.ID
	AuthorName string
	Content    string
}

type ModLog struct {
	ctx    context.Context
	guilds GuildConfigSource
	sender ModLogSender
}

func NewModLog(ctx context.Context, guilds GuildConfigSource, sender ModLogSender) *ModLog {
	return &ModLog{ctx: ctx, guilds: guilds, sender: sender}
}

// FormatDeletedMessage renders the mod-log entry for a deleted message.
func FormatDeletedMessage(m DeletedMessage, channelName string) string {
	author := sys.MsgModLogUnknown
	if m.AuthorID != 0 {
		author = fmt.Sprintf("%s (%s)", m.AuthorName, m.AuthorID)
	}
	if channelName == "" {
		channelName = sys.MsgModLogUnknown
	}
	content := m.Content
	if content == "" {
		content = sys.MsgModLogNoContent
	}
	return fmt.Sprintf(sys.MsgModLogEntry, author, channelName, content)
}

// Record posts m to the guild's mod-log channel if one is configured. It
// reports whether an entry was posted.
func (l *ModLog) Record(ctx context.Context, guildID snowflake.ID, m DeletedMessage) (bool, error) {
	cfg, err := l.guilds.Get(ctx, guildID)
	if err != nil {
		return false, err
	}
	if cfg.ModLog == 0 {
		return false, nil
	}
	entry := FormatDeletedMessage(m, l.sender.ChannelName(ctx, m.ChannelID))
	if err := l.sender.SendChannelMessage(ctx, cfg.ModLog, entry); err != nil {
		return false, fmt.Errorf("post to mod-log %s: %w", cfg.ModLog, err)
	}
	return true, nil
}

func (l *ModLog) OnMessageDelete(event *events.MessageDelete) {
	if event.GuildID == nil {
		return
	}
	m := DeletedMessage{
		ChannelID:  event.ChannelID,
		AuthorID:   event.Message.Author.ID,
		AuthorName: event.Message.Author.Username,
		Content:    event.Message.Content,
	}
	if _, err := l.Record(l.ctx, *event.GuildID, m); err != nil {
		sys.LogModLog(sys.MsgModLogFailed, *event.GuildID, err)
	}
}

// ===========================
// Registration
// ===========================

// Processors are the gateway event handlers for guild automation.
type Processors struct {
	AutoRole      *AutoRole
	AutoResponder *AutoResponder
	ModLog        *ModLog
}

// Install subscribes the non-nil processors to their gateway events.
func Install(r *sys.Router, p Processors) {
	if p.AutoRole != nil {
		r.OnMemberJoin(p.AutoRole.OnMemberJoin)
	}
	if p.AutoResponder != nil {
		r.OnMessageCreate(p.AutoResponder.OnMessageCreate)
	}
	if p.ModLog != nil {
		r.OnMessageDelete(p.ModLog.OnMessageDelete)
	}
}
