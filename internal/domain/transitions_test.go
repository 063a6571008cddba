package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionsCoverEveryOperation(t *testing.T) {
	rows := Transitions()
	require.Len(t, rows, len(Operations))
	for i, op := range Operations {
		assert.Equal(t, op, rows[i].Op)
	}

	rows[0].To = StatusWithdrawn
	again, ok := TransitionFor(OpReceiveCase)
	require.True(t, ok)
	assert.Equal(t, StatusReceived, again.To, "callers get a copy of the table")
}

func TestEligibilitySets(t *testing.T) {
	cancel, _ := TransitionFor(OpCancelCase)
	withdraw, _ := TransitionFor(OpWithdrawCase)
	for _, st := range []Status{StatusReceived, StatusValidated, StatusInSession, StatusDecided, StatusCancelled, StatusWithdrawn} {
		assert.True(t, st.Valid())
		assert.Equal(t, st == StatusReceived || st == StatusValidated, cancel.Allows(st), "cancel from %s", st)
		assert.Equal(t, st == StatusInSession, withdraw.Allows(st), "withdraw from %s", st)
	}
	assert.False(t, Status("archived").Valid())
}
