package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryBroker_DeliversOnlyToAudience(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	alice, bob := uuid.New(), uuid.New()

	aliceCh, cancelA, err := b.Subscribe(context.Background(), alice)
	require.NoError(t, err)
	defer cancelA()
	bobCh, cancelB, err := b.Subscribe(context.Background(), bob)
	require.NoError(t, err)
	defer cancelB()

	rowID := uuid.New()
	ev, err := NewEvent(TableNotifications, ActionInsert, alice, rowID, map[string]string{"id": rowID.String()})
	require.NoError(t, err)
	require.NoError(t, b.Publish(context.Background(), ev))

	select {
	case got := <-aliceCh:
		assert.Equal(t, rowID, got.RowID)
		assert.JSONEq(t, `{"id":"`+rowID.String()+`"}`, string(got.Row))
	case <-time.After(time.Second):
		t.Fatal("alice did not receive the event")
	}

	select {
	case <-bobCh:
		t.Fatal("bob must not receive alice's event")
	default:
	}
}

func TestMemoryBroker_CancelClosesChannel(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	ctx, stop := context.WithCancel(context.Background())
	ch, cancel, err := b.Subscribe(ctx, uuid.New())
	require.NoError(t, err)

	stop()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	cancel() // second cancel is harmless
}

func TestMemoryBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	user := uuid.New()
	_, cancel, err := b.Subscribe(context.Background(), user)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer*2; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{UserID: user, Table: TableProposals}))
	}
}

func TestMemoryBroker_OverflowQueuesSingleResync(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	user := uuid.New()
	ch, cancel, err := b.Subscribe(context.Background(), user)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer*3; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{UserID: user, Table: TableNotifications, Action: ActionInsert}))
	}

	require.Len(t, ch, subscriberBuffer+1)
	for i := 0; i < subscriberBuffer; i++ {
		assert.Equal(t, ActionInsert, (<-ch).Action)
	}
	marker := <-ch
	assert.Equal(t, ActionResync, marker.Action)
	assert.Equal(t, user, marker.UserID)

	// Once drained, delivery resumes and a later overflow is signalled again.
	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, b.Publish(context.Background(), Event{UserID: user, Table: TableNotifications, Action: ActionInsert}))
	}
	require.Len(t, ch, subscriberBuffer+1)
}
