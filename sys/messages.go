package sys

// --- Message Constants ---

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad  = "Failed to load config: %w"
	MsgConfigMissingToken  = "DISCORD_TOKEN is not set in .env file"
	MsgConfigBadGuildID    = "GUILD_ID %q is not a valid snowflake: %w"
	MsgConfigBadTimezone   = "TIMEZONE %q is not a valid location: %w"
	MsgConfigBadDuration   = "%s %q is not a valid duration: %w"
	MsgDatabaseInitSuccess = "Database initialized successfully"
	MsgDatabaseTableError  = "Failed to create table: %w"
	MsgDatabasePragmaError = "Failed to set pragma %s: %w"
	MsgDatabaseOpenFail    = "Failed to open database: %w"
	MsgDaemonStarting      = "Starting..."
	MsgBotStarting         = "Starting %s..."
	MsgBotReady            = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown         = "Shutting down %s..."
	MsgBotKillingOld       = "Killing running instance... (PID: %d)"
	MsgBotStubbornProcess  = "Process %d did not exit in time, sending SIGKILL"
	MsgBotOldTerminated    = "Old instance terminated."
	MsgBotLockFail         = "Failed to acquire instance lock: %w"
	MsgBotClientFail       = "Failed to create client: %w"
	MsgBotGatewayFail      = "Failed to open gateway: %w"
	MsgBotRegisterFail     = "Command registration failed: %v"
	MsgBotRegisterSkipped  = "Skipping command registration"
	MsgGenericError        = "%v"

	// --- Loader ---
	MsgLoaderSyncCommands   = "Syncing %s commands..."
	MsgLoaderUpToDate       = "Commands are up to date (hash %s)"
	MsgLoaderCleanup        = "[CLEANUP] Removing commands from previous dev guild: %s"
	MsgLoaderDevStarting    = "[DEV] Registering commands to guild: %s"
	MsgLoaderDevRegistered  = "[DEV] Registered: %s"
	MsgLoaderDevFail        = "[DEV] Registration failed: %w"
	MsgLoaderProdStarting   = "[PROD] Registering commands globally..."
	MsgLoaderProdRegistered = "[PROD] Registered: %s"
	MsgLoaderProdFail       = "[PROD] Global registration failed: %w"
	MsgLoaderPanicRecovered = "Panic recovered in handler: %v"

	MsgCommandPanicRecovered = "Panic recovered in /%s: %v"

	// --- Reminder System ---
	MsgReminderChannelText    = "<@%s> Reminder: %s"
	MsgReminderDirectText     = "Reminder: %s"
	MsgReminderFiring         = "Firing reminder %s for user %s"
	MsgReminderDelivered      = "Delivered reminder %s to user %s"
	MsgReminderChannelFailed  = "Reminder %s: channel %s delivery failed: %v"
	MsgReminderDirectFailed   = "Reminder %s: DM to %s failed: %v"
	MsgReminderDeliverPanic   = "Reminder %s: panic during delivery: %v"
	MsgReminderFailedToDelete = "Failed to delete sent reminder %s: %v"
	MsgReminderFailedToSave   = "Failed to save reminder: %v"
	MsgReminderFailedToLoad   = "Failed to load reminders: %v"
	MsgReminderNotArmed       = "Reminder %s was saved but not armed"
	MsgReminderCreated        = "Created reminder %s for user %s due %s"
	MsgReminderScheduled      = "Scheduled %d reminder(s)"
	MsgReminderShuttingDown   = "Stopping reminder timers"
	MsgReminderDraining       = "Waiting for %d reminder delivery(ies) to finish"
	MsgReminderDrainTimeout   = "Gave up waiting for reminder deliveries after %s"
	MsgReminderPersisted      = "%d reminder(s) persisted"
	MsgReminderRespondError   = "Failed to respond to interaction: %v"

	MsgReminderSetSuccess      = "Reminder set for %s (%s)"
	MsgReminderErrInvalidTime  = "Invalid time. Use 5s, 10m, 2h, 1d or an ISO datetime."
	MsgReminderErrTooFar       = "Max 365 days allowed."
	MsgReminderErrEmptyText    = "Reminder text cannot be empty."
	MsgReminderErrFailedToSet  = "Failed to set reminder."
	MsgReminderErrFailedToList = "Failed to load your reminders."
	MsgReminderNoActive        = "You have no active reminders. Set one with `/remind`!"
	MsgReminderListHeader      = "**Your Reminders** (%d active)\n\n"
	MsgReminderListItem        = "%d. **%s** - %s (%s)\n"
	MsgReminderListMore        = "> ...and %d more."
	MsgReminderRelLessMinute   = "in less than a minute"
	MsgReminderRelMinute       = "in 1 minute"
	MsgReminderRelMinutes      = "in %d minutes"
	MsgReminderRelHour         = "in 1 hour"
	MsgReminderRelHours        = "in %d hours"
	MsgReminderRelDay          = "in 1 day"
	MsgReminderRelDays         = "in %d days"
	MsgReminderRelWeek         = "in 1 week"
	MsgReminderRelWeeks        = "in %d weeks"
	MsgReminderRelMonth        = "in 1 month"
	MsgReminderRelMonths       = "in %d months"

	// --- Guild Config ---
	MsgConfigErrAdminOnly       = "Admin only."
	MsgConfigErrGuildOnly       = "This command can only be used in a server."
	MsgConfigErrRoleRequired    = "Role required for set."
	MsgConfigErrChannelRequired = "Channel required for set."
	MsgConfigErrSaveFail        = "Failed to save configuration."
	MsgConfigErrLoadFail        = "Failed to load configuration."
	MsgConfigFailedToSave       = "Failed to save config for guild %s: %v"
	MsgConfigAutoRoleSet        = "Auto-role set to %s"
	MsgConfigAutoRoleCleared    = "Auto-role cleared"
	MsgConfigModLogSet          = "ModLog set to %s"
	MsgConfigModLogCleared      = "ModLog cleared"
	MsgConfigShowHeader         = "**Server Configuration**\n\n"
	MsgConfigShowAutoRole       = "> Auto-role: %s\n"
	MsgConfigShowModLog         = "> ModLog: %s\n"
	MsgConfigShowAutoResponses  = "> Autoresponses: %d\n"
	MsgConfigShowNotSet         = "`Not set`"

	// --- Auto Role ---
	MsgAutoRoleAssigned = "Assigned auto-role to %s in guild %s"
	MsgAutoRoleFailed   = "Auto-role failed in guild %s: %v"

	// --- Auto Response ---
	MsgAutoResponseFailed     = "Autoresponse failed in guild %s: %v"
	MsgAutoResponseThrottled  = "Autoresponse throttled in channel %s"
	MsgAutoResponseAdded      = "Added autoresponse for \"%s\""
	MsgAutoResponseRemoved    = "Removed autoresponse for \"%s\""
	MsgAutoResponseNotFound   = "No autoresponse found for \"%s\""
	MsgAutoResponseListHeader = "Autoresponses:\n"
	MsgAutoResponseListItem   = "%d. \"%s\" -> %s\n"
	MsgAutoResponseListEmpty  = "No autoresponses"
	MsgAutoResponseErrEmpty   = "Keyword and response cannot be empty."

	// --- Mod Log ---
	MsgModLogEntry     = "**Message deleted**\nAuthor: %s\nChannel: #%s\nContent: %s"
	MsgModLogUnknown   = "Unknown"
	MsgModLogNoContent = "[embed/attachment or empty]"
	MsgModLogFailed    = "Mod-log failed in guild %s: %v"

	// --- Generic ---
	MsgErrInternal = "Internal error"
)
