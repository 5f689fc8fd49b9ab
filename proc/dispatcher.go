package proc

import (
	"context"
	"fmt"
	"time"

	"github.com/leeineian/herald/sys"
)

// RetireFunc removes a fired reminder from the store and the scheduler index.
// It must tolerate being called more than once for the same id.
type RetireFunc func(ctx context.Context, id string)

// DeliveryReport records the outcome of each delivery path. A nil error means
// the path succeeded or was not attempted.
type DeliveryReport struct {
	ChannelAttempted bool
	ChannelErr       error
	DirectErr        error
}

// Delivered reports whether at least one path reached the user.
func (r DeliveryReport) Delivered() bool {
	return (r.ChannelAttempted && r.ChannelErr == nil) || r.DirectErr == nil
}

// Dispatcher delivers due reminders. Delivery is best-effort on each path;
// retirement always follows.
type Dispatcher struct {
	messenger sys.Messenger
	timeout   time.Duration
}

func NewDispatcher(messenger sys.Messenger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{messenger: messenger, timeout: timeout}
}

// Deliver posts r in its origin channel and by DM, independently, then calls
// retire regardless of the outcome, including after a panic in either path.
func (d *Dispatcher) Deliver(ctx context.Context, r sys.Reminder, retire RetireFunc) (report DeliveryReport) {
	defer func() {
		if rec := recover(); rec != nil {
			sys.LogError(sys.MsgReminderDeliverPanic, r.ID, rec)
		}
		retire(context.WithoutCancel(ctx), r.ID)
	}()

	if r.ChannelID != 0 {
		report.ChannelAttempted = true
		report.ChannelErr = d.send(ctx, func(ctx context.Context) error {
			return d.messenger.SendChannelMessage(ctx, r.ChannelID, fmt.Sprintf(sys.MsgReminderChannelText, r.UserID, r.Text))
		})
		if report.ChannelErr != nil {
			sys.LogReminder(sys.MsgReminderChannelFailed, r.ID, r.ChannelID, report.ChannelErr)
		}
	}

	report.DirectErr = d.send(ctx, func(ctx context.Context) error {
		return d.messenger.SendDirectMessage(ctx, r.UserID, fmt.Sprintf(sys.MsgReminderDirectText, r.Text))
	})
	if report.DirectErr != nil {
		sys.LogReminder(sys.MsgReminderDirectFailed, r.ID, r.UserID, report.DirectErr)
	}

	if report.Delivered() {
		sys.LogReminder(sys.MsgReminderDelivered, r.ID, r.UserID)
	}
	return report
}

// send runs one delivery path. A panic inside fn becomes that path's error so
// the sibling path still runs.
func (d *Dispatcher) send(parent context.Context, fn func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx)
}
