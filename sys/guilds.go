package sys

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

const guildsCollection = "guilds"

// AutoResponse is a keyword trigger and the reply it produces.
type AutoResponse struct {
	Keyword  string `json:"keyword"`
	Response string `json:"response"`
}

type GuildConfig struct {
	AutoRole      snowflake.ID   `json:"autoRole,omitempty"`
	ModLog        snowflake.ID   `json:"modLog,omitempty"`
	AutoResponses []AutoResponse `json:"autoresponses"`
}

// Match returns the first auto-response whose keyword occurs in content,
// ignoring case. Entries are tried in insertion order.
func (c GuildConfig) Match(content string) (AutoResponse, bool) {
	lower := strings.ToLower(content)
	for _, ar := range c.AutoResponses {
		if ar.Keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(ar.Keyword)) {
			return ar, true
		}
	}
	return AutoResponse{}, false
}

// GuildStore keeps per-guild settings in a single collection keyed by guild id.
type GuildStore struct {
	db *Database
	mu sync.Mutex
}

func NewGuildStore(db *Database) *GuildStore {
	return &GuildStore{db: db}
}

// Get returns the guild's settings, or empty settings for an unknown guild.
func (s *GuildStore) Get(ctx context.Context, guildID snowflake.ID) (GuildConfig, error) {
	var all map[string]GuildConfig
	if err := s.db.LoadCollection(ctx, guildsCollection, &all); err != nil {
		return GuildConfig{}, err
	}
	return all[guildID.String()], nil
}

// Update applies fn to the guild's settings and persists the result.
func (s *GuildStore) Update(ctx context.Context, guildID snowflake.ID, fn func(*GuildConfig)) (GuildConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated GuildConfig
	err := UpdateCollection(ctx, s.db, guildsCollection, func(all *map[string]GuildConfig) error {
		if *all == nil {
			*all = make(map[string]GuildConfig)
		}
		cfg := (*all)[guildID.String()]
		fn(&cfg)
		(*all)[guildID.String()] = cfg
		updated = cfg
		return nil
	})
	return updated, err
}

// SetAutoRole sets the role given to new members; 0 clears it.
func (s *GuildStore) SetAutoRole(ctx context.Context, guildID, roleID snowflake.ID) error {
	_, err := s.Update(ctx, guildID, func(c *GuildConfig) { c.AutoRole = roleID })
	return err
}

// SetModLog sets the deleted-message log channel; 0 clears it.
func (s *GuildStore) SetModLog(ctx context.Context, guildID, channelID snowflake.ID) error {
	_, err := s.Update(ctx, guildID, func(c *GuildConfig) { c.ModLog = channelID })
	return err
}

func (s *GuildStore) AddAutoResponse(ctx context.Context, guildID snowflake.ID, keyword, response string) error {
	_, err := s.Update(ctx, guildID, func(c *GuildConfig) {
		c.AutoResponses = append(c.AutoResponses, AutoResponse{Keyword: keyword, Response: response})
	})
	return err
}

// RemoveAutoResponse drops every entry whose keyword equals keyword ignoring
// case and reports how many were removed.
func (s *GuildStore) RemoveAutoResponse(ctx context.Context, guildID snowflake.ID, keyword string) (int, error) {
	removed := 0
	_, err := s.Update(ctx, guildID, func(c *GuildConfig) {
		before := len(c.AutoResponses)
		c.AutoResponses = slices.DeleteFunc(c.AutoResponses, func(ar AutoResponse) bool {
			return strings.EqualFold(ar.Keyword, keyword)
		})
		removed = before - len(c.AutoResponses)
	})
	return removed, err
}
