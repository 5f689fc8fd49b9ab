package proc

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/leeineian/herald/sys"
)

// ReminderStore is the durable side of the scheduler.
type ReminderStore interface {
	ReadAll(ctx context.Context) ([]sys.Reminder, error)
	Add(ctx context.Context, r sys.Reminder) error
	Remove(ctx context.Context, id string) error
}

// ReminderState is the lifecycle position of a reminder id in this process.
type ReminderState int

const (
	StateUnscheduled ReminderState = iota
	StateArmed
	StateFired
	StateRetired
)

func (s ReminderState) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateFired:
		return "fired"
	case StateRetired:
		return "retired"
	default:
		return "unscheduled"
	}
}

type scheduled struct {
	state ReminderState
	timer clockwork.Timer
}

// Scheduler keeps exactly one pending timer per live reminder. Its index is
// derived from the store: rebuilt by Reconcile, extended by Arm, trimmed by
// Retire. An id stays in the index from arming until retirement finishes, so
// it can never be armed twice.
type Scheduler struct {
	store      ReminderStore
	dispatcher *Dispatcher
	clock      clockwork.Clock
	ctx        context.Context

	// drainTimeout bounds how long Shutdown waits for running deliveries.
	drainTimeout time.Duration
	inflight     sync.WaitGroup
	running      int

	mu     sync.Mutex
	index  map[string]*scheduled
	closed bool
}

func NewScheduler(ctx context.Context, store ReminderStore, dispatcher *Dispatcher, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		store:        store,
		dispatcher:   dispatcher,
		clock:        clock,
		ctx:          ctx,
		drainTimeout: 2 * dispatcher.timeout,
		index:        make(map[string]*scheduled),
	}
}

// Arm schedules r unless its id is already known. Overdue reminders are
// delivered before Arm returns. It reports whether r was newly taken over.
func (s *Scheduler) Arm(r sys.Reminder) bool {
	s.mu.Lock()
	due, ok := s.armLocked(r)
	s.mu.Unlock()

	if due {
		s.fire(r)
	}
	return ok
}

// ArmAsync is Arm for callers that must not wait on delivery, such as an
// interaction handler. An overdue reminder is delivered on its own goroutine.
func (s *Scheduler) ArmAsync(r sys.Reminder) bool {
	s.mu.Lock()
	due, ok := s.armLocked(r)
	s.mu.Unlock()

	if due {
		sys.SafeGo(func() { s.fire(r) })
	}
	return ok
}

// armLocked registers r in the index. due is true when the caller must
// deliver r after releasing the lock; the delivery is already counted as
// in flight.
func (s *Scheduler) armLocked(r sys.Reminder) (due bool, ok bool) {
	if s.closed {
		return false, false
	}
	if _, exists := s.index[r.ID]; exists {
		return false, false
	}

	delay := r.DueAt().Sub(s.clock.Now())
	if delay <= 0 {
		s.index[r.ID] = &scheduled{state: StateFired}
		s.beginFireLocked()
		return true, true
	}

	entry := &scheduled{state: StateArmed}
	entry.timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closed || entry.state != StateArmed {
			s.mu.Unlock()
			return
		}
		entry.state = StateFired
		s.beginFireLocked()
		s.mu.Unlock()
		s.fire(r)
	})
	s.index[r.ID] = entry
	return false, true
}

// Reconcile arms every persisted reminder that is not yet in the index and
// returns how many it took over. Overdue ones are delivered before it returns.
func (s *Scheduler) Reconcile(ctx context.Context) (int, error) {
	s.mu.Lock()
	all, err := s.store.ReadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}

	var due []sys.Reminder
	count := 0
	for _, r := range all {
		isDue, ok := s.armLocked(r)
		if !ok {
			continue
		}
		count++
		if isDue {
			due = append(due, r)
		}
	}
	s.mu.Unlock()

	for _, r := range due {
		s.fire(r)
	}
	return count, nil
}

func (s *Scheduler) beginFireLocked() {
	s.inflight.Add(1)
	s.running++
}

// fire delivers r. Every call must be preceded by beginFireLocked.
func (s *Scheduler) fire(r sys.Reminder) {
	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
		s.inflight.Done()
	}()
	sys.LogReminder(sys.MsgReminderFiring, r.ID, r.UserID)
	s.dispatcher.Deliver(s.ctx, r, s.Retire)
}

// Retire removes id from the store and drops its timer. Calling it again for
// the same id is harmless.
func (s *Scheduler) Retire(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.index[id]
	if ok && entry.timer != nil {
		entry.timer.Stop()
	}

	if err := s.store.Remove(ctx, id); err != nil {
		sys.LogReminder(sys.MsgReminderFailedToDelete, id, err)
		// Keep a tombstone so a later Reconcile in this process skips the
		// record that is still persisted.
		if ok {
			entry.state = StateRetired
		}
		return
	}
	delete(s.index, id)
}

// State returns where id currently is in its lifecycle as seen by this process.
func (s *Scheduler) State(id string) ReminderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.index[id]; ok {
		return entry.state
	}
	return StateUnscheduled
}

// Pending returns the number of ids in the index, including retirement
// tombstones.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Shutdown stops every pending timer without retiring anything; the store
// still holds those reminders for the next start. Deliveries already running
// are given up to drainTimeout to finish and retire.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for id, entry := range s.index {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.index, id)
	}
	running := s.running
	s.mu.Unlock()

	if running == 0 {
		return
	}
	sys.LogReminder(sys.MsgReminderDraining, running)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.drainTimeout):
		sys.LogReminder(sys.MsgReminderDrainTimeout, s.drainTimeout)
	}
}
