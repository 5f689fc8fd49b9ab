package sys

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const remindersCollection = "reminders"

// ErrWriteFailure marks a reminder mutation that could not be persisted.
var ErrWriteFailure = errors.New("reminder store write failed")

// Reminder is a one-shot reminder. Records are never modified after creation.
type Reminder struct {
	ID        string       `json:"id"`
	GuildID   snowflake.ID `json:"guildId,omitempty"`
	ChannelID snowflake.ID `json:"channelId,omitempty"`
	UserID    snowflake.ID `json:"userId"`
	Text      string       `json:"text"`
	Deadline  int64        `json:"deadline"`
	CreatedAt int64        `json:"createdAt,omitempty"`
}

// DueAt returns the deadline as a time.
func (r Reminder) DueAt() time.Time {
	return time.UnixMilli(r.Deadline)
}

// ReminderStore persists the full reminder list as one collection. Each Add
// and Remove rewrites the whole list, so mutations are serialized.
type ReminderStore struct {
	db *Database
	mu sync.Mutex
}

func NewReminderStore(db *Database) *ReminderStore {
	return &ReminderStore{db: db}
}

// ReadAll returns every persisted reminder in stored order.
func (s *ReminderStore) ReadAll(ctx context.Context) ([]Reminder, error) {
	var all []Reminder
	if err := s.db.LoadCollection(ctx, remindersCollection, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// Add appends r. The reminder must not be considered scheduled if Add fails.
func (s *ReminderStore) Add(ctx context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := UpdateCollection(ctx, s.db, remindersCollection, func(all *[]Reminder) error {
		*all = append(*all, r)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: add %s: %v", ErrWriteFailure, r.ID, err)
	}
	return nil
}

// Remove deletes the reminder with the given id. Removing an id that is not
// present is a no-op.
func (s *ReminderStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := UpdateCollection(ctx, s.db, remindersCollection, func(all *[]Reminder) error {
		*all = slices.DeleteFunc(*all, func(r Reminder) bool { return r.ID == id })
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: remove %s: %v", ErrWriteFailure, id, err)
	}
	return nil
}

// Count returns the number of persisted reminders.
func (s *ReminderStore) Count(ctx context.Context) (int, error) {
	all, err := s.ReadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
