package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"

	"github.com/leeineian/herald/cmd"
	"github.com/leeineian/herald/proc"
	"github.com/leeineian/herald/sys"
)

const pidFile = ".bot.pid"

func main() {
	// LogFatal panics with a string so deferred cleanup still runs.
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	if err := newApp().Run(os.Args); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  sys.ProjectName,
		Usage: "Discord automation bot: auto-role, autoresponses, mod-log and reminders",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "silent", Usage: "Disable all log output", EnvVars: []string{"SILENT"}},
			&cli.BoolFlag{Name: "skip-reg", Usage: "Skip command registration"},
			&cli.StringFlag{Name: "log-file", Usage: "Also write logs (without colors) to this file"},
			&cli.StringSliceFlag{Name: "env-file", Usage: "Env files to load before reading the environment"},
		},
		Action: func(c *cli.Context) error {
			sys.InitLogger(c.Bool("silent"), c.String("log-file"))
			defer sys.CloseLogger()

			cfg, err := sys.LoadConfig(c.StringSlice("env-file")...)
			if err != nil {
				return fmt.Errorf(sys.MsgConfigFailedToLoad, err)
			}
			if cfg.Silent && !c.Bool("silent") {
				sys.InitLogger(true, c.String("log-file"))
			}

			lock, err := sys.AcquireInstanceLock(pidFile)
			if err != nil {
				return fmt.Errorf(sys.MsgBotLockFail, err)
			}
			defer lock.Release()

			return run(cfg, c.Bool("skip-reg"))
		},
	}
}

func run(cfg *sys.Config, skipReg bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.LogInfo(sys.MsgBotStarting, sys.ProjectName)

	db, err := sys.OpenDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf(sys.MsgDatabaseOpenFail, err)
	}
	defer db.Close()

	reminderStore := sys.NewReminderStore(db)
	guildStore := sys.NewGuildStore(db)

	if n, err := reminderStore.Count(ctx); err != nil {
		sys.LogReminder(sys.MsgReminderFailedToLoad, err)
	} else {
		sys.LogReminder(sys.MsgReminderPersisted, n)
	}

	router := sys.NewRouter(ctx)
	// Runs before db.Close so in-flight reminder deliveries can still retire.
	defer router.ShutdownDaemons()
	client, err := sys.CreateClient(cfg, router)
	if err != nil {
		return fmt.Errorf(sys.MsgBotClientFail, err)
	}
	defer client.Close(context.Background())

	messenger := sys.NewDiscordMessenger(client)

	parser, err := proc.NewTimeParser(cfg.Location, cfg.NaturalTime)
	if err != nil {
		return err
	}
	clock := clockwork.NewRealClock()
	dispatcher := proc.NewDispatcher(messenger, cfg.DeliveryTimeout)
	scheduler := proc.NewScheduler(ctx, reminderStore, dispatcher, clock)
	reminders := proc.NewReminderService(parser, reminderStore, scheduler, clock)

	router.RegisterDaemon(sys.LogReminder, reminders.Daemon())
	proc.Install(router, proc.Processors{
		AutoRole:      proc.NewAutoRole(ctx, guildStore, messenger),
		AutoResponder: proc.NewAutoResponder(ctx, guildStore, messenger, cfg.AutoResponseCooldown),
		ModLog:        proc.NewModLog(ctx, guildStore, messenger),
	})
	cmd.Install(router, cmd.Deps{
		Reminders: reminders,
		Guilds:    guildStore,
		Location:  cfg.Location,
	})

	if !skipReg {
		if err := router.RegisterCommands(client, db, cfg.GuildID); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo(sys.MsgBotRegisterSkipped)
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf(sys.MsgBotGatewayFail, err)
	}

	<-ctx.Done()

	router.ShutdownDaemons()
	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.ProjectName)
	}
	return nil
}
