package proc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jonboulle/clockwork"
	"github.com/leeineian/herald/sys"
	"github.com/oklog/ulid/v2"
)

// MaxReminderAhead is how far in the future a reminder may be set.
const MaxReminderAhead = 365 * 24 * time.Hour

var (
	ErrTooFar        = errors.New("too-far")
	ErrEmptyText     = errors.New("empty-text")
	ErrPersistFailed = errors.New("persist-failed")
)

// RemindRequest is a validated-later "remind me" request from a user.
type RemindRequest struct {
	When      string
	Text      string
	UserID    snowflake.ID
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// ReminderService creates reminders and owns the scheduler lifecycle.
type ReminderService struct {
	parser    *TimeParser
	store     ReminderStore
	scheduler *Scheduler
	clock     clockwork.Clock
}

func NewReminderService(parser *TimeParser, store ReminderStore, scheduler *Scheduler, clock clockwork.Clock) *ReminderService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ReminderService{
		parser:    parser,
		store:     store,
		scheduler: scheduler,
		clock:     clock,
	}
}

// Create validates req, persists the reminder and only then arms it.
func (s *ReminderService) Create(ctx context.Context, req RemindRequest) (sys.Reminder, error) {
	now := s.clock.Now()

	deadline, err := s.parser.Parse(req.When, now)
	if err != nil {
		return sys.Reminder{}, err
	}
	if !deadline.After(now) {
		return sys.Reminder{}, fmt.Errorf("%w: %s is in the past", ErrInvalidTime, req.When)
	}
	if deadline.Sub(now) > MaxReminderAhead {
		return sys.Reminder{}, ErrTooFar
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return sys.Reminder{}, ErrEmptyText
	}

	id, err := ulid.New(ulid.Timestamp(now), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return sys.Reminder{}, fmt.Errorf("generate reminder id: %w", err)
	}

	r := sys.Reminder{
		ID:        id.String(),
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		UserID:    req.UserID,
		Text:      text,
		Deadline:  deadline.UnixMilli(),
		CreatedAt: now.UnixMilli(),
	}

	if err := s.store.Add(ctx, r); err != nil {
		sys.LogReminder(sys.MsgReminderFailedToSave, err)
		return sys.Reminder{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	// A deadline that passes before arming is delivered in the background.
	if !s.scheduler.ArmAsync(r) {
		sys.LogReminder(sys.MsgReminderNotArmed, r.ID)
	}
	sys.LogReminder(sys.MsgReminderCreated, r.ID, r.UserID, r.DueAt().Format(time.RFC3339))
	return r, nil
}

// ListForUser returns the user's pending reminders, soonest first.
func (s *ReminderService) ListForUser(ctx context.Context, userID snowflake.ID) ([]sys.Reminder, error) {
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	mine := slices.DeleteFunc(all, func(r sys.Reminder) bool { return r.UserID != userID })
	slices.SortStableFunc(mine, func(a, b sys.Reminder) int {
		switch {
		case a.Deadline < b.Deadline:
			return -1
		case a.Deadline > b.Deadline:
			return 1
		}
		return 0
	})
	return mine, nil
}

// Initialize arms every persisted reminder and returns how many were armed.
func (s *ReminderService) Initialize(ctx context.Context) (int, error) {
	count, err := s.scheduler.Reconcile(ctx)
	if err != nil {
		sys.LogReminder(sys.MsgReminderFailedToLoad, err)
		return 0, err
	}
	sys.LogReminder(sys.MsgReminderScheduled, count)
	return count, nil
}

// Daemon reconciles the scheduler once the gateway is ready and stops its
// timers on shutdown.
func (s *ReminderService) Daemon() sys.DaemonStarter {
	return func(ctx context.Context) (bool, func(), func()) {
		return true, func() {
				_, _ = s.Initialize(ctx)
			}, func() {
				sys.LogReminder(sys.MsgReminderShuttingDown)
				s.scheduler.Shutdown()
			}
	}
}

// Now is the service's current time, used when rendering relative deadlines.
func (s *ReminderService) Now() time.Time {
	return s.clock.Now()
}
