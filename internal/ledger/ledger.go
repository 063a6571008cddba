// Package ledger exposes the lifecycle engine behind the positional,
// string-argument interface of the dispute contract. Local dispatches
// in-process; the Go SDK implements the same Transport over HTTP.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sengketa/internal/domain"
	"sengketa/internal/engine"
)

// Transport submits lifecycle operations and evaluates queries by name.
type Transport interface {
	Submit(ctx context.Context, caller string, op string, args []string) (domain.Receipt, error)
	Query(ctx context.Context, op string, args []string) (any, error)
}

// Queries lists the query names Query accepts.
var Queries = []string{
	engine.QueryParties,
	engine.QueryHearing,
	engine.QueryPublication,
	engine.QueryAgencies,
	engine.QueryDispositionDocument,
	engine.QueryDecisionDocument,
}

// Usage documents the positional arguments of every operation and query.
var Usage = map[string]string{
	string(domain.OpReceiveCase):            "<case_id> <petitioner> <respondent>",
	string(domain.OpValidateCase):           "<case_id> <agency_count> <agency>...",
	string(domain.OpScheduleInitialHearing): "<case_id> <schedule_id> <agenda> <time> <venue>",
	string(domain.OpUpdateHearing):          "<case_id> <schedule_id> <kind> <agenda> <time> <venue>",
	string(domain.OpAddDecision):            "<case_id> <schedule_id> <status> [document_ref] [publication_ref]",
	string(domain.OpFinalizeDecision):       "<case_id> <schedule_id> <status> <document_ref> <publication_ref>",
	string(domain.OpCancelCase):             "<case_id> [document_ref]",
	string(domain.OpWithdrawCase):           "<case_id> [document_ref]",
	engine.QueryParties:                     "<case_id>",
	engine.QueryHearing:                     "<case_id> <schedule_id>",
	engine.QueryPublication:                 "<case_id> <schedule_id>",
	engine.QueryAgencies:                    "<case_id>",
	engine.QueryDispositionDocument:         "<case_id>",
	engine.QueryDecisionDocument:            "<case_id> <schedule_id>",
}

// Local runs operations against an in-process engine.
type Local struct {
	Engine engine.Engine
}

var _ Transport = Local{}

func (l Local) Submit(ctx context.Context, caller string, op string, args []string) (domain.Receipt, error) {
	a := argReader{op: op, args: args}
	switch domain.Operation(op) {
	case domain.OpReceiveCase:
		a.want(3, 3)
		id, pet, res := a.id(0, "case_id"), a.str(1), a.str(2)
		if a.err != nil {
			return domain.Receipt{}, a.err
		}
		return l.Engine.ReceiveCase(ctx, caller, id, pet, res)
	case domain.OpValidateCase:
		a.want(2, -1)
		id, count := a.id(0, "case_id"), a.num(1, "agency_count")
		if a.err != nil {
			return domain.Receipt{}, a.err
		}
		return l.Engine.ValidateCase(ctx, caller, id, count, splitAgencies(args[2:]))
	case domain.OpScheduleInitialHearing:
		a.want(5, 5)
		in := engine.HearingInput{
			CaseID:     a.id(0, "case_id"),
			ScheduleID: a.id(1, "schedule_id"),
			Agenda:     a.str(2),
			At:         a.at(3, "time"),
			Venue:      a.str(4),
		}
		if a.err != nil {
			return domain.Receipt{}, a.err
		}
		return l.Engine.ScheduleInitialHearing(ctx, caller, in)
	case domain.OpUpdateHearing:
		a.want(6, 6)
		in := engine.HearingInput{
			CaseID:     a.id(0, "case_id"),
			ScheduleID: a.id(1, "schedule_id"),
			Kind:       domain.HearingKind(a.num(2, "kind")),
			Agenda:     a.str(3),
			At:         a.at(4, "time"),
			Venue:      a.str(5),
		}
		if a.err != nil {
			return domain.Receipt{}, a.err
		}
		return l.Engine.UpdateHearing(ctx, caller, in)
	case domain.OpAddDecision, domain.OpFinalizeDecision:
		a.want(3, 5)
		in := engine.DecisionInput{
			CaseID:         a.id(0, "case_id"),
			ScheduleID:     a.id(1, "schedule_id"),
			Status:         domain.DecisionStatus(a.num(2, "status")),
			DocumentRef:    a.optional(3),
			PublicationRef: a.optional(4),
		}
		if a.err != nil {
			return domain.Receipt{}, a.err
		}
		if domain.Operation(op) == domain.OpFinalizeDecision {
			return l.Engine.FinalizeDecision(ctx, caller, in)
		}
		return l.Engine.AddDecision(ctx, caller, in)
	case domain.OpCancelCase, domain.OpWithdrawCase:
		a.want(1, 2)
		id, ref := a.id(0, "case_id"), a.optional(1)
		if a.err != nil {
			return domain.Receipt{}, a.err
		}
		if domain.Operation(op) == domain.OpCancelCase {
			return l.Engine.CancelCase(ctx, caller, id, ref)
		}
		return l.Engine.WithdrawCase(ctx, caller, id, ref)
	}
	return domain.Receipt{}, engine.ArgumentError(engine.CodeUnknownOperation, op, "unknown operation "+strconv.Quote(op))
}

func (l Local) Query(ctx context.Context, op string, args []string) (any, error) {
	a := argReader{op: op, args: args}
	switch op {
	case engine.QueryParties, engine.QueryAgencies, engine.QueryDispositionDocument:
		a.want(1, 1)
		id := a.id(0, "case_id")
		if a.err != nil {
			return nil, a.err
		}
		switch op {
		case engine.QueryParties:
			return l.Engine.Parties(ctx, id)
		case engine.QueryAgencies:
			return l.Engine.Agencies(ctx, id)
		}
		return l.Engine.DispositionDocument(ctx, id)
	case engine.QueryHearing, engine.QueryPublication, engine.QueryDecisionDocument:
		a.want(2, 2)
		id, sid := a.id(0, "case_id"), a.id(1, "schedule_id")
		if a.err != nil {
			return nil, a.err
		}
		switch op {
		case engine.QueryHearing:
			return l.Engine.Hearing(ctx, id, sid)
		case engine.QueryPublication:
			return l.Engine.Publication(ctx, id, sid)
		}
		return l.Engine.DecisionDocument(ctx, id, sid)
	}
	return nil, engine.ArgumentError(engine.CodeUnknownOperation, op, "unknown query "+strconv.Quote(op))
}

// argReader collects the first parse failure so call sites stay linear.
type argReader struct {
	op   string
	args []string
	err  error
}

func (a *argReader) fail(format string, v ...any) {
	if a.err == nil {
		detail := fmt.Sprintf(format, v...)
		if u, ok := Usage[a.op]; ok {
			detail += " (usage: " + a.op + " " + u + ")"
		}
		a.err = engine.ArgumentError(engine.CodeInvalidArgument, a.op, detail)
	}
}

// want checks the argument count; max < 0 means unbounded.
func (a *argReader) want(min, max int) {
	n := len(a.args)
	if n < min || (max >= 0 && n > max) {
		a.fail("got %d arguments", n)
	}
}

func (a *argReader) str(i int) string {
	if i >= len(a.args) {
		return ""
	}
	return a.args[i]
}

func (a *argReader) optional(i int) string {
	return strings.TrimSpace(a.str(i))
}

func (a *argReader) id(i int, name string) int64 {
	if a.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(a.str(i)), 10, 64)
	if err != nil {
		a.fail("%s must be an integer: %q", name, a.str(i))
	}
	return v
}

func (a *argReader) num(i int, name string) int {
	if a.err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(a.str(i)))
	if err != nil {
		a.fail("%s must be an integer: %q", name, a.str(i))
	}
	return v
}

func (a *argReader) at(i int, name string) time.Time {
	if a.err != nil {
		return time.Time{}
	}
	t, err := ParseTime(a.str(i))
	if err != nil {
		a.fail("%s: %v", name, err)
	}
	return t
}

// ParseTime accepts unix seconds or RFC3339.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want unix seconds or RFC3339, got %q", s)
	}
	return t.UTC(), nil
}

// splitAgencies accepts agencies as separate arguments or one comma-separated list.
func splitAgencies(args []string) []string {
	if len(args) == 1 && strings.Contains(args[0], ",") {
		args = strings.Split(args[0], ",")
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, strings.TrimSpace(a))
	}
	return out
}
