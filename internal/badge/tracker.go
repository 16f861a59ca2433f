package badge

import (
	"encoding/json"
	"sync"
	"time"

	"bontroc_backend/internal/realtime"

	"github.com/google/uuid"
)

const (
	proposalStatusPending = "pending"
	typeExchangeUpdate    = "exchange_update"
)

// Counts is what the client shows on its tab badges.
type Counts struct {
	PendingProposals    int64 `json:"pending_proposals"`
	UnreadNotifications int64 `json:"unread_notifications"`
	UnreadExchanges     int64 `json:"unread_exchanges"`
}

// Snapshot is the id-level state a Tracker starts from.
type Snapshot struct {
	PendingProposals    []uuid.UUID
	UnreadNotifications []uuid.UUID
	UnreadExchanges     []uuid.UUID
}

type proposalRow struct {
	ID       uuid.UUID `json:"id"`
	ToUserID uuid.UUID `json:"to_user_id"`
	Status   string    `json:"status"`
}

type notificationRow struct {
	ID     uuid.UUID  `json:"id"`
	Type   string     `json:"type"`
	ReadAt *time.Time `json:"read_at"`
}

type idSet map[uuid.UUID]struct{}

func newIDSet(ids []uuid.UUID) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) put(id uuid.UUID, in bool) bool {
	_, had := s[id]
	if in {
		s[id] = struct{}{}
	} else {
		delete(s, id)
	}
	return had != in
}

// Tracker keeps the badge counts of one user current by merging change
// events into id-sets. An event that repeats state already seen is a no-op,
// so duplicated or replayed events never skew the counts.
type Tracker struct {
	userID uuid.UUID

	mu        sync.Mutex
	pending   idSet
	unread    idSet
	exchanges idSet
}

func NewTracker(userID uuid.UUID, snap Snapshot) *Tracker {
	return &Tracker{
		userID:    userID,
		pending:   newIDSet(snap.PendingProposals),
		unread:    newIDSet(snap.UnreadNotifications),
		exchanges: newIDSet(snap.UnreadExchanges),
	}
}

// Apply merges ev and reports whether any count changed. Events for other
// users or tables, and rows that fail to decode, are ignored.
func (t *Tracker) Apply(ev realtime.Event) bool {
	if ev.UserID != t.userID {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Table {
	case realtime.TableProposals:
		return t.applyProposal(ev)
	case realtime.TableNotifications:
		return t.applyNotification(ev)
	}
	return false
}

func (t *Tracker) applyProposal(ev realtime.Event) bool {
	if ev.Action == realtime.ActionDelete {
		return t.pending.put(ev.RowID, false)
	}
	var row proposalRow
	if err := json.Unmarshal(ev.Row, &row); err != nil || row.ID == uuid.Nil {
		return false
	}
	return t.pending.put(row.ID, row.ToUserID == t.userID && row.Status == proposalStatusPending)
}

func (t *Tracker) applyNotification(ev realtime.Event) bool {
	switch ev.Action {
	case realtime.ActionBulkRead:
		changed := len(t.unread) > 0 || len(t.exchanges) > 0
		t.unread = idSet{}
		t.exchanges = idSet{}
		return changed
	case realtime.ActionDelete:
		a := t.unread.put(ev.RowID, false)
		b := t.exchanges.put(ev.RowID, false)
		return a || b
	}
	var row notificationRow
	if err := json.Unmarshal(ev.Row, &row); err != nil || row.ID == uuid.Nil {
		return false
	}
	unread := row.ReadAt == nil
	a := t.unread.put(row.ID, unread)
	b := t.exchanges.put(row.ID, unread && row.Type == typeExchangeUpdate)
	return a || b
}

func (t *Tracker) Counts() Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Counts{
		PendingProposals:    int64(len(t.pending)),
		UnreadNotifications: int64(len(t.unread)),
		UnreadExchanges:     int64(len(t.exchanges)),
	}
}
