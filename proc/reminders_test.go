package proc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leeineian/herald/sys"
	"github.com/stretchr/testify/require"
)

type serviceHarness struct {
	clock     *clockwork.FakeClock
	messenger *fakeMessenger
	store     ReminderStore
	scheduler *Scheduler
	service   *ReminderService
}

func newServiceHarness(t *testing.T, store ReminderStore, clock *clockwork.FakeClock) *serviceHarness {
	t.Helper()
	if clock == nil {
		clock = clockwork.NewFakeClockAt(testEpoch)
	}
	messenger := &fakeMessenger{}
	scheduler := NewScheduler(context.Background(), store, NewDispatcher(messenger, time.Second), clock)
	t.Cleanup(scheduler.Shutdown)
	return &serviceHarness{
		clock:     clock,
		messenger: messenger,
		store:     store,
		scheduler: scheduler,
		service:   NewReminderService(newTestParser(t), store, scheduler, clock),
	}
}

func storedReminders(t *testing.T, store ReminderStore) []sys.Reminder {
	t.Helper()
	all, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	return all
}

func TestRemindEndToEnd(t *testing.T) {
	store, _ := newSQLiteReminderStore(t)
	h := newServiceHarness(t, store, nil)
	ctx := context.Background()

	r, err := h.service.Create(ctx, RemindRequest{When: "10m", Text: "stand up", UserID: 30, GuildID: 10, ChannelID: 20})
	require.NoError(t, err)
	require.NotEmpty(t, r.ID)

	all := storedReminders(t, store)
	require.Len(t, all, 1)
	require.Equal(t, r, all[0])
	require.Equal(t, testEpoch.UnixMilli()+600_000, all[0].Deadline)
	require.EqualValues(t, 30, all[0].UserID)
	require.EqualValues(t, 20, all[0].ChannelID)
	require.Equal(t, StateArmed, h.scheduler.State(r.ID))

	h.clock.Advance(600_000 * time.Millisecond)
	require.Eventually(t, func() bool {
		all, err := store.ReadAll(context.Background())
		return err == nil && len(all) == 0
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, []sentMessage{{Target: 20, Content: "<@30> Reminder: stand up"}}, h.messenger.channelSent())
	require.Equal(t, []sentMessage{{Target: 30, Content: "Reminder: stand up"}}, h.messenger.directSent())
	require.Equal(t, StateUnscheduled, h.scheduler.State(r.ID))
}

func TestRemindValidation(t *testing.T) {
	tests := []struct {
		name string
		when string
		text string
		err  error
	}{
		{name: "unparseable", when: "tomorrow-ish", text: "x", err: ErrInvalidTime},
		{name: "past date", when: "2020-01-01T00:00:00Z", text: "x", err: ErrInvalidTime},
		{name: "right now", when: "0s", text: "x", err: ErrInvalidTime},
		{name: "beyond a year", when: "366d", text: "x", err: ErrTooFar},
		{name: "blank text", when: "5m", text: "   ", err: ErrEmptyText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			h := newServiceHarness(t, store, nil)

			_, err := h.service.Create(context.Background(), RemindRequest{When: tt.when, Text: tt.text, UserID: 30})
			require.ErrorIs(t, err, tt.err)
			require.Zero(t, store.len())
			require.Zero(t, h.scheduler.Pending())
		})
	}
}

func TestRemindExactlyOneYearIsAllowed(t *testing.T) {
	store := &memStore{}
	h := newServiceHarness(t, store, nil)

	r, err := h.service.Create(context.Background(), RemindRequest{When: "365d", Text: "anniversary", UserID: 30})
	require.NoError(t, err)
	require.Equal(t, testEpoch.Add(MaxReminderAhead).UnixMilli(), r.Deadline)
	require.Equal(t, 1, store.len())
}

func TestRemindPersistFailureIsNeverArmed(t *testing.T) {
	store, db := newSQLiteReminderStore(t)
	h := newServiceHarness(t, store, nil)
	require.NoError(t, db.Close())

	_, err := h.service.Create(context.Background(), RemindRequest{When: "10m", Text: "stand up", UserID: 30, ChannelID: 20})
	require.ErrorIs(t, err, ErrPersistFailed)
	require.Zero(t, h.scheduler.Pending())

	h.clock.Advance(time.Hour)
	require.Never(t, func() bool { return len(h.messenger.directSent()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRemindConcurrentCreatesAreAllStored(t *testing.T) {
	store, _ := newSQLiteReminderStore(t)
	h := newServiceHarness(t, store, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, text := range []string{"first", "second"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.service.Create(context.Background(), RemindRequest{When: "1h", Text: text, UserID: 30})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all := storedReminders(t, store)
	require.Len(t, all, 2)
	require.NotEqual(t, all[0].ID, all[1].ID)
	require.Equal(t, 2, h.scheduler.Pending())
}

func TestRemindersForDifferentUsersFireIndependently(t *testing.T) {
	store, _ := newSQLiteReminderStore(t)
	h := newServiceHarness(t, store, nil)
	ctx := context.Background()

	_, err := h.service.Create(ctx, RemindRequest{When: "5m", Text: "first", UserID: 31, ChannelID: 20})
	require.NoError(t, err)
	_, err = h.service.Create(ctx, RemindRequest{When: "10m", Text: "second", UserID: 32})
	require.NoError(t, err)
	require.Len(t, storedReminders(t, store), 2)

	h.clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return len(h.messenger.directSent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, sentMessage{Target: 31, Content: "Reminder: first"}, h.messenger.directSent()[0])
	require.Eventually(t, func() bool {
		all, err := store.ReadAll(context.Background())
		return err == nil && len(all) == 1
	}, 2*time.Second, 5*time.Millisecond)

	h.clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return len(h.messenger.directSent()) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, sentMessage{Target: 32, Content: "Reminder: second"}, h.messenger.directSent()[1])
	require.Eventually(t, func() bool {
		all, err := store.ReadAll(context.Background())
		return err == nil && len(all) == 0
	}, 2*time.Second, 5*time.Millisecond)
	require.Len(t, h.messenger.channelSent(), 1)
}

func TestRestartDeliversOverdueReminderOnce(t *testing.T) {
	store, _ := newSQLiteReminderStore(t)
	require.NoError(t, store.Add(context.Background(), reminderAt("missed", testEpoch.Add(-5*time.Minute))))
	require.NoError(t, store.Add(context.Background(), reminderAt("later", testEpoch.Add(time.Hour))))

	h := newServiceHarness(t, store, nil)

	n, err := h.service.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, h.messenger.directSent(), 1)

	all := storedReminders(t, store)
	require.Len(t, all, 1)
	require.Equal(t, "later", all[0].ID)

	n, err = h.service.Initialize(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, h.messenger.directSent(), 1)
}

func TestRestartAfterShutdownFiresOnce(t *testing.T) {
	store, _ := newSQLiteReminderStore(t)
	clock := clockwork.NewFakeClockAt(testEpoch)

	first := newServiceHarness(t, store, clock)
	_, err := first.service.Create(context.Background(), RemindRequest{When: "10m", Text: "stand up", UserID: 30, ChannelID: 20})
	require.NoError(t, err)
	first.scheduler.Shutdown()

	clock.Advance(30 * time.Minute)
	require.Empty(t, first.messenger.directSent())

	second := newServiceHarness(t, store, clock)
	n, err := second.service.Initialize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.Len(t, second.messenger.channelSent(), 1)
	require.Len(t, second.messenger.directSent(), 1)
	require.Empty(t, storedReminders(t, store))
}

func TestListForUser(t *testing.T) {
	store := &memStore{}
	h := newServiceHarness(t, store, nil)
	ctx := context.Background()

	for _, req := range []RemindRequest{
		{When: "2h", Text: "later", UserID: 30},
		{When: "5m", Text: "soon", UserID: 30},
		{When: "1m", Text: "not mine", UserID: 99},
	} {
		_, err := h.service.Create(ctx, req)
		require.NoError(t, err)
	}

	mine, err := h.service.ListForUser(ctx, 30)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "soon", mine[0].Text)
	require.Equal(t, "later", mine[1].Text)
	require.Equal(t, 3, store.len())
}

func TestDaemonInitializesAndShutsDown(t *testing.T) {
	store := &memStore{items: []sys.Reminder{reminderAt("a", testEpoch.Add(time.Minute))}}
	h := newServiceHarness(t, store, nil)

	ok, run, shutdown := h.service.Daemon()(context.Background())
	require.True(t, ok)
	require.NotNil(t, run)
	require.NotNil(t, shutdown)

	run()
	require.Equal(t, StateArmed, h.scheduler.State("a"))

	shutdown()
	require.Zero(t, h.scheduler.Pending())
	require.Equal(t, 1, store.len())
}
