package sys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
)

const ProjectName = "herald"

var errNotPositive = errors.New("must be positive")

type Config struct {
	Token                string
	GuildID              string
	DatabasePath         string
	Silent               bool
	Location             *time.Location
	NaturalTime          bool
	AutoResponseCooldown time.Duration
	DeliveryTimeout      time.Duration
}

// LoadConfig reads the optional env files and builds the configuration
// from the environment. Missing files are not an error.
func LoadConfig(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		token = os.Getenv("BOT_TOKEN")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		folder := "."
		if info, err := os.Stat("data"); err == nil && info.IsDir() {
			folder = "./data"
		}
		dbPath = filepath.Join(folder, ProjectName+".db")
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))
	naturalTime, _ := strconv.ParseBool(os.Getenv("NATURAL_TIME"))

	loc := time.Local
	if tz := strings.TrimSpace(os.Getenv("TIMEZONE")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf(MsgConfigBadTimezone, tz, err)
		}
		loc = l
	}

	cooldown, err := envDuration("AUTORESPONSE_COOLDOWN", 2*time.Second)
	if err != nil {
		return nil, err
	}
	deliveryTimeout, err := envDuration("DELIVERY_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Token:                token,
		GuildID:              strings.TrimSpace(os.Getenv("GUILD_ID")),
		DatabasePath:         dbPath,
		Silent:               silent,
		Location:             loc,
		NaturalTime:          naturalTime,
		AutoResponseCooldown: cooldown,
		DeliveryTimeout:      deliveryTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New(MsgConfigMissingToken)
	}
	if c.GuildID != "" {
		if len(c.GuildID) < 17 || len(c.GuildID) > 20 {
			return fmt.Errorf(MsgConfigBadGuildID, c.GuildID, errors.New("length must be 17-20 digits"))
		}
		if _, err := snowflake.Parse(c.GuildID); err != nil {
			return fmt.Errorf(MsgConfigBadGuildID, c.GuildID, err)
		}
	}
	if c.AutoResponseCooldown <= 0 {
		return fmt.Errorf(MsgConfigBadDuration, "AUTORESPONSE_COOLDOWN", c.AutoResponseCooldown.String(), errNotPositive)
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf(MsgConfigBadDuration, "DELIVERY_TIMEOUT", c.DeliveryTimeout.String(), errNotPositive)
	}
	return nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf(MsgConfigBadDuration, key, raw, err)
	}
	return d, nil
}
