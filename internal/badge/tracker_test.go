package badge

import (
	"testing"
	"time"

	"bontroc_backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(t *testing.T, table string, action realtime.Action, userID, rowID uuid.UUID, row interface{}) realtime.Event {
	t.Helper()
	ev, err := realtime.NewEvent(table, action, userID, rowID, row)
	require.NoError(t, err)
	return ev
}

func TestTracker_Proposals(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	existing := uuid.New()
	tr := NewTracker(me, Snapshot{PendingProposals: []uuid.UUID{existing}})
	assert.EqualValues(t, 1, tr.Counts().PendingProposals)

	incoming := proposalRow{ID: uuid.New(), ToUserID: me, Status: "pending"}
	assert.True(t, tr.Apply(event(t, realtime.TableProposals, realtime.ActionInsert, me, incoming.ID, incoming)))
	assert.False(t, tr.Apply(event(t, realtime.TableProposals, realtime.ActionInsert, me, incoming.ID, incoming)), "replayed event")
	assert.EqualValues(t, 2, tr.Counts().PendingProposals)

	outgoing := proposalRow{ID: uuid.New(), ToUserID: other, Status: "pending"}
	assert.False(t, tr.Apply(event(t, realtime.TableProposals, realtime.ActionInsert, me, outgoing.ID, outgoing)))

	incoming.Status = "accepted"
	assert.True(t, tr.Apply(event(t, realtime.TableProposals, realtime.ActionUpdate, me, incoming.ID, incoming)))
	assert.True(t, tr.Apply(event(t, realtime.TableProposals, realtime.ActionDelete, me, existing, nil)))
	assert.Zero(t, tr.Counts().PendingProposals)

	foreign := proposalRow{ID: uuid.New(), ToUserID: other, Status: "pending"}
	assert.False(t, tr.Apply(event(t, realtime.TableProposals, realtime.ActionInsert, other, foreign.ID, foreign)), "events of other users are ignored")
}

func TestTracker_Notifications(t *testing.T) {
	me := uuid.New()
	tr := NewTracker(me, Snapshot{})

	plain := notificationRow{ID: uuid.New(), Type: "proposal_received"}
	update := notificationRow{ID: uuid.New(), Type: "exchange_update"}
	tr.Apply(event(t, realtime.TableNotifications, realtime.ActionInsert, me, plain.ID, plain))
	tr.Apply(event(t, realtime.TableNotifications, realtime.ActionInsert, me, update.ID, update))
	assert.Equal(t, Counts{UnreadNotifications: 2, UnreadExchanges: 1}, tr.Counts())

	at := time.Now()
	update.ReadAt = &at
	assert.True(t, tr.Apply(event(t, realtime.TableNotifications, realtime.ActionUpdate, me, update.ID, update)))
	assert.Equal(t, Counts{UnreadNotifications: 1}, tr.Counts())

	assert.True(t, tr.Apply(realtime.Event{Table: realtime.TableNotifications, Action: realtime.ActionBulkRead, UserID: me}))
	assert.Equal(t, Counts{}, tr.Counts())
	assert.False(t, tr.Apply(realtime.Event{Table: realtime.TableNotifications, Action: realtime.ActionBulkRead, UserID: me}))

	assert.False(t, tr.Apply(realtime.Event{Table: realtime.TableNotifications, Action: realtime.ActionInsert, UserID: me, Row: []byte("{broken")}))
	assert.False(t, tr.Apply(realtime.Event{Table: realtime.TableChatMessages, Action: realtime.ActionInsert, UserID: me}))
}
