package proc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// retireRecorder counts retire calls and remembers whether their context was live.
type retireRecorder struct {
	mu      sync.Mutex
	ids     []string
	ctxErrs []error
}

func (r *retireRecorder) retire(ctx context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
}

func TestDeliverBothPaths(t *testing.T) {
	m := &fakeMessenger{}
	rec := &retireRecorder{}

	report := NewDispatcher(m, time.Second).Deliver(context.Background(), reminderAt("r", testEpoch), rec.retire)

	require.True(t, report.ChannelAttempted)
	require.NoError(t, report.ChannelErr)
	require.NoError(t, report.DirectErr)
	require.True(t, report.Delivered())
	require.Equal(t, []sentMessage{{Target: 20, Content: "<@30> Reminder: stand up"}}, m.channelSent())
	require.Equal(t, []sentMessage{{Target: 30, Content: "Reminder: stand up"}}, m.directSent())
	require.Equal(t, []string{"r"}, rec.ids)
}

func TestDeliverChannelFailureStillSendsDM(t *testing.T) {
	m := &fakeMessenger{channelErr: errSendRejected}
	rec := &retireRecorder{}

	report := NewDispatcher(m, time.Second).Deliver(context.Background(), reminderAt("r", testEpoch), rec.retire)

	require.ErrorIs(t, report.ChannelErr, errSendRejected)
	require.NoError(t, report.DirectErr)
	require.True(t, report.Delivered())
	require.Len(t, m.directSent(), 1)
	require.Equal(t, []string{"r"}, rec.ids)
}

func TestDeliverBothFailStillRetires(t *testing.T) {
	m := &fakeMessenger{channelErr: errSendRejected, directErr: errors.New("dms closed")}
	rec := &retireRecorder{}

	report := NewDispatcher(m, time.Second).Deliver(context.Background(), reminderAt("r", testEpoch), rec.retire)

	require.Error(t, report.ChannelErr)
	require.Error(t, report.DirectErr)
	require.False(t, report.Delivered())
	require.Equal(t, []string{"r"}, rec.ids)
}

func TestDeliverChannelPanicStillSendsDM(t *testing.T) {
	m := &fakeMessenger{panicOnChannel: true}
	rec := &retireRecorder{}

	report := NewDispatcher(m, time.Second).Deliver(context.Background(), reminderAt("r", testEpoch), rec.retire)

	require.ErrorContains(t, report.ChannelErr, "panic")
	require.NoError(t, report.DirectErr)
	require.Len(t, m.directSent(), 1)
	require.Equal(t, []string{"r"}, rec.ids)
}

func TestDeliverWithoutChannelIsDMOnly(t *testing.T) {
	m := &fakeMessenger{}
	rec := &retireRecorder{}
	r := reminderAt("dm", testEpoch)
	r.ChannelID = 0

	report := NewDispatcher(m, time.Second).Deliver(context.Background(), r, rec.retire)

	require.False(t, report.ChannelAttempted)
	require.True(t, report.Delivered())
	require.Empty(t, m.channelSent())
	require.Len(t, m.directSent(), 1)
}

func TestDeliverIgnoresParentCancellation(t *testing.T) {
	m := &fakeMessenger{}
	rec := &retireRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewDispatcher(m, time.Second).Deliver(ctx, reminderAt("r", testEpoch), rec.retire)

	require.True(t, report.Delivered())
	require.Len(t, m.channelSent(), 1)
	require.Len(t, m.directSent(), 1)
	require.Equal(t, []error{nil}, rec.ctxErrs)
}

func TestDispatcherDefaultTimeout(t *testing.T) {
	require.Equal(t, 15*time.Second, NewDispatcher(&fakeMessenger{}, 0).timeout)

	m := &fakeMessenger{}
	calls := 0
	require.NotPanics(t, func() {
		NewDispatcher(m, 0).Deliver(context.Background(), reminderAt("r", testEpoch), func(ctx context.Context, id string) {
			calls++
		})
	})
	require.Equal(t, 1, calls)
}
