package sys

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// SafeGo runs f in a new goroutine with panic recovery.
func SafeGo(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				LogError(MsgLoaderPanicRecovered, r)
				LogDebug("%s", debug.Stack())
			}
		}()
		f()
	}()
}

// Router holds everything the gateway dispatches to: slash commands, the
// guild event processors and the daemons started once the client is ready.
type Router struct {
	ctx     context.Context
	started time.Time

	commands        []discord.ApplicationCommandCreate
	commandHandlers map[string]func(event *events.ApplicationCommandInteractionCreate)
	memberJoin      []func(event *events.GuildMemberJoin)
	messageCreate   []func(event *events.MessageCreate)
	messageDelete   []func(event *events.MessageDelete)
	clientReady     []func(ctx context.Context, client *bot.Client)

	daemons       []daemonEntry
	daemonsOnce   sync.Once
	shutdownHooks []func()
	shutdownMu    sync.Mutex
}

func NewRouter(ctx context.Context) *Router {
	return &Router{
		ctx:             ctx,
		started:         time.Now(),
		commandHandlers: make(map[string]func(event *events.ApplicationCommandInteractionCreate)),
	}
}

// Context is the application context handlers should derive from.
func (r *Router) Context() context.Context {
	return r.ctx
}

// --- Command & Handler Registration ---

func (r *Router) RegisterCommand(cmd discord.ApplicationCommandCreate, handler func(event *events.ApplicationCommandInteractionCreate)) {
	r.commands = append(r.commands, cmd)
	switch c := cmd.(type) {
	case discord.SlashCommandCreate:
		r.commandHandlers[c.CommandName()] = handler
	case discord.UserCommandCreate:
		r.commandHandlers[c.CommandName()] = handler
	case discord.MessageCommandCreate:
		r.commandHandlers[c.CommandName()] = handler
	}
}

func (r *Router) OnMemberJoin(handler func(event *events.GuildMemberJoin)) {
	r.memberJoin = append(r.memberJoin, handler)
}

func (r *Router) OnMessageCreate(handler func(event *events.MessageCreate)) {
	r.messageCreate = append(r.messageCreate, handler)
}

func (r *Router) OnMessageDelete(handler func(event *events.MessageDelete)) {
	r.messageDelete = append(r.messageDelete, handler)
}

func (r *Router) OnClientReady(cb func(ctx context.Context, client *bot.Client)) {
	r.clientReady = append(r.clientReady, cb)
}

// Commands returns the registered command definitions.
func (r *Router) Commands() []discord.ApplicationCommandCreate {
	return r.commands
}

// --- Bot Initialization ---

// CreateClient creates a disgo client wired to the router's handlers.
func CreateClient(cfg *Config, r *Router) (*bot.Client, error) {
	return disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagGuilds, cache.FlagChannels, cache.FlagRoles, cache.FlagMessages),
		),
		bot.WithEventListenerFunc(r.onApplicationCommandInteraction),
		bot.WithEventListenerFunc(r.onGuildMemberJoin),
		bot.WithEventListenerFunc(r.onMessageCreate),
		bot.WithEventListenerFunc(r.onMessageDelete),
		bot.WithEventListenerFunc(r.onReady),
		bot.WithLogger(slog.Default()),
		bot.WithRestClientConfigOpts(
			rest.WithHTTPClient(&http.Client{
				Timeout: 60 * time.Second,
			}),
		),
	)
}

// --- Command Syncing Logic ---

// calculateCommandHash generates a SHA256 hash of the commands slice
func calculateCommandHash(cmds []discord.ApplicationCommandCreate) string {
	data, err := json.Marshal(cmds)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// RegisterCommands pushes the command set to Discord, globally or to the dev
// guild, skipping the call when nothing changed since the last sync.
func (r *Router) RegisterCommands(client *bot.Client, db *Database, guildIDStr string) error {
	ctx := r.ctx

	currentMode := "global"
	if guildIDStr != "" {
		currentMode = "guild"
	}
	LogLoader(MsgLoaderSyncCommands, strings.ToUpper(currentMode))

	currentHash := calculateCommandHash(r.commands)
	lastHash, _ := db.GetBotConfig(ctx, "last_cmd_hash")
	lastMode, _ := db.GetBotConfig(ctx, "last_reg_mode")
	lastGuildID, _ := db.GetBotConfig(ctx, "last_guild_id")

	if currentHash != "" && currentHash == lastHash && currentMode == lastMode && lastGuildID == guildIDStr {
		LogLoader(MsgLoaderUpToDate, currentHash[:8])
		return nil
	}

	if guildIDStr == "" {
		LogLoader(MsgLoaderProdStarting)
		created, err := client.Rest.SetGlobalCommands(client.ApplicationID, r.commands, rest.WithCtx(ctx))
		if err != nil {
			return fmt.Errorf(MsgLoaderProdFail, err)
		}
		for _, cmd := range created {
			LogLoader(MsgLoaderProdRegistered, cmd.Name())
		}
	} else {
		guildID, err := snowflake.Parse(guildIDStr)
		if err != nil {
			return fmt.Errorf("invalid GUILD_ID: %w", err)
		}
		LogLoader(MsgLoaderDevStarting, guildIDStr)
		created, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, r.commands, rest.WithCtx(ctx))
		if err != nil {
			return fmt.Errorf(MsgLoaderDevFail, err)
		}
		for _, cmd := range created {
			LogLoader(MsgLoaderDevRegistered, cmd.Name())
		}
	}

	// Commands left behind in a previous dev guild would show up twice.
	if lastGuildID != "" && lastGuildID != guildIDStr {
		if oldID, err := snowflake.Parse(lastGuildID); err == nil {
			LogLoader(MsgLoaderCleanup, lastGuildID)
			_, _ = client.Rest.SetGuildCommands(client.ApplicationID, oldID, []discord.ApplicationCommandCreate{}, rest.WithCtx(ctx))
		}
	}

	_ = db.SetBotConfig(ctx, "last_reg_mode", currentMode)
	_ = db.SetBotConfig(ctx, "last_guild_id", guildIDStr)
	if currentHash != "" {
		_ = db.SetBotConfig(ctx, "last_cmd_hash", currentHash)
	}
	return nil
}

// --- Event Handlers ---

func (r *Router) onReady(event *events.Ready) {
	client := event.Client()
	botUser := event.User

	LogInfo(MsgBotReady, botUser.Username, botUser.ID.String(), os.Getpid(), time.Since(r.started).Milliseconds())

	for _, cb := range r.clientReady {
		cb(r.ctx, client)
	}
	r.StartDaemons()
}

func (r *Router) onApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	if h, ok := r.commandHandlers[event.Data.CommandName()]; ok {
		SafeGo(func() { h(event) })
	}
}

func (r *Router) onGuildMemberJoin(event *events.GuildMemberJoin) {
	for _, h := range r.memberJoin {
		SafeGo(func() { h(event) })
	}
}

func (r *Router) onMessageCreate(event *events.MessageCreate) {
	for _, h := range r.messageCreate {
		SafeGo(func() { h(event) })
	}
}

func (r *Router) onMessageDelete(event *events.MessageDelete) {
	for _, h := range r.messageDelete {
		SafeGo(func() { h(event) })
	}
}

// --- Daemon System ---

// DaemonStarter decides whether a daemon runs. It returns the run function
// and an optional shutdown hook.
type DaemonStarter func(ctx context.Context) (bool, func(), func())

type daemonEntry struct {
	starter DaemonStarter
	logger  func(format string, v ...any)
}

// RegisterDaemon registers a background daemon with a logger and start function
func (r *Router) RegisterDaemon(logger func(format string, v ...any), starter DaemonStarter) {
	r.daemons = append(r.daemons, daemonEntry{starter: starter, logger: logger})
}

// StartDaemons starts all registered daemons once; later Ready events are ignored.
func (r *Router) StartDaemons() {
	r.daemonsOnce.Do(func() {
		type activeDaemon struct {
			entry daemonEntry
			run   func()
		}
		var active []activeDaemon

		for _, daemon := range r.daemons {
			if ok, run, shutdown := daemon.starter(r.ctx); ok && run != nil {
				if shutdown != nil {
					r.shutdownMu.Lock()
					r.shutdownHooks = append(r.shutdownHooks, shutdown)
					r.shutdownMu.Unlock()
				}
				active = append(active, activeDaemon{daemon, run})
			}
		}

		for _, ad := range active {
			ad.entry.logger(MsgDaemonStarting)
		}

		for _, ad := range active {
			SafeGo(ad.run)
		}
	})
}

// ShutdownDaemons runs every shutdown hook and waits for them to return.
func (r *Router) ShutdownDaemons() {
	r.shutdownMu.Lock()
	defer r.shutdownMu.Unlock()

	var wg sync.WaitGroup
	for _, shutdown := range r.shutdownHooks {
		wg.Add(1)
		go func(s func()) {
			defer wg.Done()
			s()
		}(shutdown)
	}
	wg.Wait()
	r.shutdownHooks = nil
}
