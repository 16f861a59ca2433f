package exchange

import (
	"testing"
	"time"

	"bontroc_backend/internal/common"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allStatuses = []Status{StatusNotStarted, StatusInProgress, StatusDelivered, StatusConfirmed, StatusCancelled}
	allActions  = []Action{ActionStart, ActionDeliver, ActionConfirm, ActionCancel}
)

func TestNext(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		to     Status
		ok     bool
	}{
		{StatusNotStarted, ActionStart, StatusInProgress, true},
		{StatusInProgress, ActionDeliver, StatusDelivered, true},
		{StatusDelivered, ActionConfirm, StatusConfirmed, true},
		{StatusDelivered, ActionCancel, StatusCancelled, true},
		{StatusNotStarted, ActionDeliver, "", false},
		{StatusInProgress, ActionConfirm, "", false},
		{StatusConfirmed, ActionCancel, "", false},
		{StatusCancelled, ActionStart, "", false},
	}
	for _, tc := range cases {
		to, ok := Next(tc.from, tc.action)
		assert.Equal(t, tc.ok, ok, "%s -> %s", tc.from, tc.action)
		assert.Equal(t, tc.to, to, "%s -> %s", tc.from, tc.action)
	}
}

func TestPlan_Guards(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	e := &Exchange{FromUserID: a, ToUserID: b, Status: StatusNotStarted}

	_, _, err := Plan(e, ActionStart, Guard{Actor: a}, now)
	assert.ErrorIs(t, err, common.ErrContractNotActive)

	_, _, err = Plan(e, ActionStart, Guard{Actor: uuid.New(), ContractActive: true}, now)
	assert.ErrorIs(t, err, common.ErrNotAParty)

	next, fields, err := Plan(e, ActionStart, Guard{Actor: a, ContractActive: true}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, next)
	assert.Equal(t, now, fields["started_at"])

	e.Status = StatusInProgress
	_, fields, err = Plan(e, ActionDeliver, Guard{Actor: a}, now)
	require.NoError(t, err)
	assert.Equal(t, a, fields["delivered_by"])

	e.Status = StatusDelivered
	e.DeliveredBy = &a
	_, _, err = Plan(e, ActionConfirm, Guard{Actor: a}, now)
	assert.ErrorIs(t, err, common.ErrSelfConfirmation)
	next, _, err = Plan(e, ActionConfirm, Guard{Actor: b}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, next)
}

func TestMessages(t *testing.T) {
	for _, action := range allActions {
		assert.NotEmpty(t, Message(action), action)
	}
}

func TestPlanProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	a, b := uuid.New(), uuid.New()

	genStatus := gen.IntRange(0, len(allStatuses)-1).Map(func(i int) Status { return allStatuses[i] })
	genAction := gen.IntRange(0, len(allActions)-1).Map(func(i int) Action { return allActions[i] })

	properties.Property("start needs an active contract", prop.ForAll(
		func(active bool) bool {
			e := &Exchange{FromUserID: a, ToUserID: b, Status: StatusNotStarted}
			_, _, err := Plan(e, ActionStart, Guard{Actor: a, ContractActive: active}, time.Now())
			return (err == nil) == active
		},
		gen.Bool(),
	))

	properties.Property("the deliverer never confirms", prop.ForAll(
		func(delivererIsA bool, confirmerIsA bool) bool {
			deliverer, confirmer := b, b
			if delivererIsA {
				deliverer = a
			}
			if confirmerIsA {
				confirmer = a
			}
			e := &Exchange{FromUserID: a, ToUserID: b, Status: StatusDelivered, DeliveredBy: &deliverer}
			_, _, err := Plan(e, ActionConfirm, Guard{Actor: confirmer}, time.Now())
			if deliverer == confirmer {
				return err == common.ErrSelfConfirmation
			}
			return err == nil
		},
		gen.Bool(), gen.Bool(),
	))

	properties.Property("terminal states accept no action", prop.ForAll(
		func(status Status, action Action) bool {
			e := &Exchange{FromUserID: a, ToUserID: b, Status: status}
			_, _, err := Plan(e, action, Guard{Actor: a, ContractActive: true}, time.Now())
			if status.IsTerminal() {
				return err != nil
			}
			return true
		},
		genStatus, genAction,
	))

	properties.Property("a successful plan always moves to Next", prop.ForAll(
		func(status Status, action Action) bool {
			e := &Exchange{FromUserID: a, ToUserID: b, Status: status}
			next, fields, err := Plan(e, action, Guard{Actor: b, ContractActive: true}, time.Now())
			if err != nil {
				return true
			}
			want, ok := Next(status, action)
			return ok && next == want && fields["status"] == want
		},
		genStatus, genAction,
	))

	properties.TestingRun(t)
}
