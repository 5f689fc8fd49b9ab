package proc

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jonboulle/clockwork"
	"github.com/leeineian/herald/sys"
	"github.com/stretchr/testify/require"
)

var errSendRejected = errors.New("send rejected")

// testEpoch is a fixed starting instant for fake clocks.
var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	Target  snowflake.ID
	Content string
}

// fakeMessenger records every delivery attempt.
type fakeMessenger struct {
	mu             sync.Mutex
	channel        []sentMessage
	direct         []sentMessage
	channelErr     error
	directErr      error
	panicOnChannel bool
}

func (m *fakeMessenger) SendChannelMessage(ctx context.Context, channelID snowflake.ID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOnChannel {
		panic("channel exploded")
	}
	m.channel = append(m.channel, sentMessage{Target: channelID, Content: content})
	return m.channelErr
}

func (m *fakeMessenger) SendDirectMessage(ctx context.Context, userID snowflake.ID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct = append(m.direct, sentMessage{Target: userID, Content: content})
	return m.directErr
}

func (m *fakeMessenger) channelSent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.channel)
}

func (m *fakeMessenger) directSent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.direct)
}

// blockingMessenger holds channel sends until release is closed. With
// ignoreCtx set it keeps holding after the send's deadline.
type blockingMessenger struct {
	fakeMessenger
	entered   chan struct{}
	release   chan struct{}
	ignoreCtx bool
	once      sync.Once
}

func newBlockingMessenger() *blockingMessenger {
	return &blockingMessenger{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (m *blockingMessenger) SendChannelMessage(ctx context.Context, channelID snowflake.ID, content string) error {
	m.once.Do(func() { close(m.entered) })
	if m.ignoreCtx {
		<-m.release
	} else {
		select {
		case <-m.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.fakeMessenger.SendChannelMessage(ctx, channelID, content)
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

// memStore is an in-memory ReminderStore with injectable failures.
type memStore struct {
	mu        sync.Mutex
	items     []sys.Reminder
	addErr    error
	removeErr error
	removes   int
}

func (s *memStore) ReadAll(ctx context.Context) ([]sys.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items), nil
}

func (s *memStore) Add(ctx context.Context, r sys.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.items = append(s.items, r)
	return nil
}

func (s *memStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes++
	if s.removeErr != nil {
		return s.removeErr
	}
	s.items = slices.DeleteFunc(s.items, func(r sys.Reminder) bool { return r.ID == id })
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// newSQLiteReminderStore opens a reminder store backed by a temporary database.
func newSQLiteReminderStore(t *testing.T) (*sys.ReminderStore, *sys.Database) {
	t.Helper()
	db, err := sys.OpenDatabase(context.Background(), filepath.Join(t.TempDir(), "herald.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sys.NewReminderStore(db), db
}

func reminderAt(id string, deadline time.Time) sys.Reminder {
	return sys.Reminder{
		ID:        id,
		GuildID:   10,
		ChannelID: 20,
		UserID:    30,
		Text:      "stand up",
		Deadline:  deadline.UnixMilli(),
		CreatedAt: testEpoch.UnixMilli(),
	}
}

type schedulerHarness struct {
	clock     *clockwork.FakeClock
	messenger *fakeMessenger
	scheduler *Scheduler
}

func newSchedulerHarness(t *testing.T, store ReminderStore) *schedulerHarness {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testEpoch)
	messenger := &fakeMessenger{}
	scheduler := NewScheduler(context.Background(), store, NewDispatcher(messenger, time.Second), clock)
	t.Cleanup(scheduler.Shutdown)
	return &schedulerHarness{clock: clock, messenger: messenger, scheduler: scheduler}
}

// fakeGuilds serves fixed guild settings.
type fakeGuilds struct {
	configs map[snowflake.ID]sys.GuildConfig
	err     error
}

func (g *fakeGuilds) Get(ctx context.Context, guildID snowflake.ID) (sys.GuildConfig, error) {
	if g.err != nil {
		return sys.GuildConfig{}, g.err
	}
	return g.configs[guildID], nil
}
