package domain

// Operation names the mutating lifecycle operations. The values are the
// operation names used on the ledger.
type Operation string

const (
	OpReceiveCase            Operation = "menerimaSengketa"
	OpValidateCase           Operation = "validasiSengketa"
	OpScheduleInitialHearing Operation = "pembuatanSidangPemeriksaanAwal"
	OpUpdateHearing          Operation = "updateSidang"
	OpAddDecision            Operation = "tambahPutusan"
	OpFinalizeDecision       Operation = "putusanSelesai"
	OpCancelCase             Operation = "batalSengketa"
	OpWithdrawCase           Operation = "cabutSengketa"
)

// Operations lists every mutating operation in lifecycle order.
var Operations = []Operation{
	OpReceiveCase,
	OpValidateCase,
	OpScheduleInitialHearing,
	OpUpdateHearing,
	OpAddDecision,
	OpFinalizeDecision,
	OpCancelCase,
	OpWithdrawCase,
}

// Transition describes one operation: who may call it, which states it may
// start from, and where it leaves the case. An empty From means the case must
// not exist yet.
type Transition struct {
	Op   Operation
	Role Role
	From []Status
	To   Status
}

var transitionsTable = []Transition{
	{Op: OpReceiveCase, Role: RoleNone, From: nil, To: StatusReceived},
	{Op: OpValidateCase, Role: RoleAdmin, From: []Status{StatusReceived}, To: StatusValidated},
	{Op: OpScheduleInitialHearing, Role: RoleConvener, From: []Status{StatusValidated}, To: StatusInSession},
	{Op: OpUpdateHearing, Role: RoleConvener, From: []Status{StatusInSession}, To: StatusInSession},
	// decisions keep the case where it is; only finalization moves it
	{Op: OpAddDecision, Role: RoleAdjudicator, From: []Status{StatusInSession, StatusDecided}, To: ""},
	{Op: OpFinalizeDecision, Role: RoleAdjudicator, From: []Status{StatusInSession, StatusDecided}, To: StatusDecided},
	{Op: OpCancelCase, Role: RoleAdmin, From: []Status{StatusReceived, StatusValidated}, To: StatusCancelled},
	{Op: OpWithdrawCase, Role: RoleAdmin, From: []Status{StatusInSession}, To: StatusWithdrawn},
}

var transitionsByOp = func() map[Operation]Transition {
	m := make(map[Operation]Transition, len(transitionsTable))
	for _, t := range transitionsTable {
		m[t.Op] = t
	}
	return m
}()

// TransitionFor returns the table row for op.
func TransitionFor(op Operation) (Transition, bool) {
	t, ok := transitionsByOp[op]
	return t, ok
}

// Allows reports whether the transition may start from s.
func (t Transition) Allows(s Status) bool {
	for _, from := range t.From {
		if from == s {
			return true
		}
	}
	return false
}

// Next returns the status the case holds after t is applied to current.
func (t Transition) Next(current Status) Status {
	if t.To == "" {
		return current
	}
	return t.To
}

// Transitions returns a copy of the lifecycle table.
func Transitions() []Transition {
	out := make([]Transition, len(transitionsTable))
	copy(out, transitionsTable)
	return out
}
