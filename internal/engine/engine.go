package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sengketa/internal/domain"
	"sengketa/internal/engine/auth"
	"sengketa/internal/events"
	"sengketa/internal/metrics"
	"sengketa/internal/repo"
)

// Engine applies lifecycle transitions. Every mutating call runs as one SQL
// transaction under the case's lock: authorize, load, guard, write, append
// the event, commit.
type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Roles   auth.Registry
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time

	locks *caseLocks
}

func New(db *sql.DB) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		DB:     db,
		Repo:   r,
		Events: events.Writer{DB: db},
		Roles:  auth.Registry{Repo: r},
		Logger: slog.Default(),
		Now:    time.Now,
		locks:  newCaseLocks(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// HearingInput carries the hearing fields shared by initial scheduling and updates.
// Kind is ignored for initial scheduling, which is always preliminary.
type HearingInput struct {
	CaseID     int64
	ScheduleID int64
	Kind       domain.HearingKind
	Agenda     string
	At         time.Time
	Venue      string
}

// DecisionInput addresses a decision by (case, schedule).
type DecisionInput struct {
	CaseID         int64
	ScheduleID     int64
	Status         domain.DecisionStatus
	DocumentRef    string
	PublicationRef string
}

// transition is the shared skeleton of every mutating operation.
func (e Engine) transition(ctx context.Context, op domain.Operation, caseID int64, caller string, fn func(tx *sql.Tx) (domain.Receipt, error)) (domain.Receipt, error) {
	start := time.Now()
	rec, err := e.runLocked(ctx, caseID, fn)
	if err != nil {
		outcome := "error"
		if te, ok := AsTransitionError(err); ok {
			if te.Operation == "" {
				te.Operation = string(op)
			}
			outcome = string(te.Kind)
			e.log().DebugContext(ctx, "transition rejected",
				slog.String("operation", string(op)), slog.Int64("case_id", caseID),
				slog.String("caller", caller), slog.String("code", string(te.Code)))
		} else {
			e.log().ErrorContext(ctx, "transition failed",
				slog.String("operation", string(op)), slog.Int64("case_id", caseID), slog.Any("error", err))
		}
		e.Metrics.ObserveTransition(string(op), outcome, start)
		return domain.Receipt{}, err
	}
	e.Metrics.ObserveTransition(string(op), "accepted", start)
	attrs := []any{
		slog.String("operation", string(op)), slog.Int64("case_id", caseID),
		slog.String("caller", caller), slog.String("status", string(rec.Status)),
		slog.String("receipt_id", rec.ID),
	}
	if rec.ScheduleID != nil {
		attrs = append(attrs, slog.Int64("schedule_id", *rec.ScheduleID))
	}
	e.log().InfoContext(ctx, "transition accepted", attrs...)
	return rec, nil
}

func (e Engine) runLocked(ctx context.Context, caseID int64, fn func(tx *sql.Tx) (domain.Receipt, error)) (domain.Receipt, error) {
	unlock := e.locks.lock(caseID)
	defer unlock()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Receipt{}, err
	}
	defer tx.Rollback()
	rec, err := fn(tx)
	if err != nil {
		return domain.Receipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Receipt{}, err
	}
	return rec, nil
}

func (e Engine) requireRole(ctx context.Context, tx *sql.Tx, caller string, op domain.Operation, caseID int64) error {
	t, ok := domain.TransitionFor(op)
	if !ok {
		return fmt.Errorf("unknown operation %s", op)
	}
	if t.Role == domain.RoleNone {
		return nil
	}
	err := e.Roles.Require(ctx, tx, caller, t.Role)
	var mismatch auth.RoleMismatchError
	if errors.As(err, &mismatch) {
		return &TransitionError{
			Kind:     KindUnauthorized,
			Code:     CodeUnauthorized,
			CaseID:   &caseID,
			Identity: mismatch.Identity,
			Expected: mismatch.Expected.String(),
			Actual:   mismatch.Actual.String(),
		}
	}
	return err
}

func checkIDs(caseID int64, scheduleIDs ...int64) error {
	if caseID < 0 {
		return NewError(CodeInvalidIdentifier, caseID, "case id must not be negative")
	}
	for _, id := range scheduleIDs {
		if id < 0 {
			return NewError(CodeInvalidIdentifier, caseID, "schedule id must not be negative").withSchedule(id)
		}
	}
	return nil
}

// loadCase returns the case and whether it exists.
func (e Engine) loadCase(ctx context.Context, tx *sql.Tx, caseID int64) (domain.Case, bool, error) {
	c, err := e.Repo.GetCaseTx(ctx, tx, caseID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Case{}, false, nil
	}
	if err != nil {
		return domain.Case{}, false, err
	}
	return c, true, nil
}

// guardStatus fails with code unless the case exists in one of op's source states.
func guardStatus(op domain.Operation, c domain.Case, exists bool, code Code) error {
	t, _ := domain.TransitionFor(op)
	var actual domain.Status
	if exists {
		actual = c.Status
		if t.Allows(c.Status) {
			return nil
		}
	}
	return NewError(code, c.ID, "").withStatus(t.From, actual)
}

func (e Engine) receipt(ctx context.Context, tx *sql.Tx, op domain.Operation, caseID int64, scheduleID *int64, caller string, status domain.Status, payload events.EventPayload) (domain.Receipt, error) {
	if payload == nil {
		payload = events.EventPayload{}
	}
	payload["operation"] = string(op)
	payload["status"] = string(status)
	evt, err := e.Events.Append(ctx, tx, events.Entry{
		Type:       eventType(op),
		CaseID:     caseID,
		ScheduleID: scheduleID,
		Caller:     caller,
		Payload:    payload,
	})
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("append event: %w", err)
	}
	return domain.Receipt{
		ID:         evt.ReceiptID,
		EventID:    evt.ID,
		Operation:  string(op),
		CaseID:     caseID,
		ScheduleID: scheduleID,
		Caller:     caller,
		Status:     status,
		TS:         evt.TS,
	}, nil
}

var eventTypes = map[domain.Operation]string{
	domain.OpReceiveCase:            "case.received",
	domain.OpValidateCase:           "case.validated",
	domain.OpScheduleInitialHearing: "hearing.scheduled",
	domain.OpUpdateHearing:          "hearing.updated",
	domain.OpAddDecision:            "decision.recorded",
	domain.OpFinalizeDecision:       "decision.finalized",
	domain.OpCancelCase:             "case.cancelled",
	domain.OpWithdrawCase:           "case.withdrawn",
}

func eventType(op domain.Operation) string {
	if t, ok := eventTypes[op]; ok {
		return t
	}
	return string(op)
}

// EventTypes lists the event types appended by the engine.
func EventTypes() []string {
	out := make([]string, 0, len(domain.Operations))
	for _, op := range domain.Operations {
		out = append(out, eventType(op))
	}
	return out
}

// ReceiveCase opens a case in status received. Any caller may file.
func (e Engine) ReceiveCase(ctx context.Context, caller string, caseID int64, petitioner, respondent string) (domain.Receipt, error) {
	op := domain.OpReceiveCase
	return e.transition(ctx, op, caseID, caller, func(tx *sql.Tx) (domain.Receipt, error) {
		if err := checkIDs(caseID); err != nil {
			return domain.Receipt{}, err
		}
		if strings.TrimSpace(petitioner) == "" {
			return domain.Receipt{}, NewError(CodePetitionerRequired, caseID, "")
		}
		if strings.TrimSpace(respondent) == "" {
			return domain.Receipt{}, NewError(CodeRespondentRequired, caseID, "")
		}
		existing, exists, err := e.loadCase(ctx, tx, caseID)
		if err != nil {
			return domain.Receipt{}, err
		}
		if exists {
			te := NewError(CodeCaseAlreadyExists, caseID, "")
			te.Actual = string(existing.Status)
			return domain.Receipt{}, te
		}
		now := domain.FormatTime(e.now())
		c := domain.Case{
			ID:         caseID,
			Petitioner: petitioner,
			Respondent: respondent,
			Status:     domain.StatusReceived,
			ReceivedBy: caller,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := e.Repo.InsertCase(ctx, tx, c); err != nil {
			return domain.Receipt{}, fmt.Errorf("insert case: %w", err)
		}
		return e.receipt(ctx, tx, op, caseID, nil, caller, c.Status, events.EventPayload{
			"petitioner": petitioner,
			"respondent": respondent,
		})
	})
}

// ValidateCase moves a received case to validated and fixes its agency list.
func (e Engine) ValidateCase(ctx context.Context, caller string, caseID int64, agencyCount int, agencies []string) (domain.Receipt, error) {
	op := domain.OpValidateCase
	return e.transition(ctx, op, caseID, caller, func(tx *sql.Tx) (domain.Receipt, error) {
		if err := e.requireRole(ctx, tx, caller, op, caseID); err != nil {
			return domain.Receipt{}, err
		}
		if err := checkIDs(caseID); err != nil {
			return domain.Receipt{}, err
		}
		c, exists, err := e.loadCase(ctx, tx, caseID)
		if err != nil {
			return domain.Receipt{}, err
		}
		c.ID = caseID
		if err := guardStatus(op, c, exists, CodeInvalidCaseStatus); err != nil {
			return domain.Receipt{}, err
		}
		if agencyCount != len(agencies) {
			te := NewError(CodeAgencyListInvalid, caseID, "declared count does not match list length")
			te.Expected = fmt.Sprint(agencyCount)
			te.Actual = fmt.Sprint(len(agencies))
			return domain.Receipt{}, te
		}
		for i, code := range agencies {
			if strings.TrimSpace(code) == "" {
				return domain.Receipt{}, NewError(CodeAgencyListInvalid, caseID, fmt.Sprintf("agency %d is empty", i))
			}
		}
		now := domain.FormatTime(e.now())
		if err := e.Repo.SetAgencies(ctx, tx, caseID, agencies, now); err != nil {
			return domain.Receipt{}, fmt.Errorf("store agencies: %w", err)
		}
		if err := e.Repo.UpdateCaseStatus(ctx, tx, caseID, domain.StatusValidated, now); err != nil {
			return domain.Receipt{}, err
		}
		return e.receipt(ctx, tx, op, caseID, nil, caller, domain.StatusValidated, events.EventPayload{
			"agency_count": agencyCount,
			"agencies":     agencies,
		})
	})
}

// ScheduleInitialHearing creates the preliminary hearing of a validated case
// and puts the case in session.
func (e Engine) ScheduleInitialHearing(ctx context.Context, caller string, in HearingInput) (domain.Receipt, error) {
	op := domain.OpScheduleInitialHearing
	return e.transition(ctx, op, in.CaseID, caller, func(tx *sql.Tx) (domain.Receipt, error) {
		if err := e.requireRole(ctx, tx, caller, op, in.CaseID); err != nil {
			return domain.Receipt{}, err
		}
		if err := checkIDs(in.CaseID, in.ScheduleID); err != nil {
			return domain.Receipt{}, err
		}
		c, exists, err := e.loadCase(ctx, tx, in.CaseID)
		if err != nil {
			return domain.Receipt{}, err
		}
		c.ID = in.CaseID
		if err := guardStatus(op, c, exists, CodeNotYetValidated); err != nil {
			return domain.Receipt{}, err
		}
		now := e.now()
		if err := e.guardFuture(in, now); err != nil {
			return domain.Receipt{}, err
		}
		if _, err := e.Repo.GetHearingTx(ctx, tx, in.CaseID, in.ScheduleID); err == nil {
			return domain.Receipt{}, NewError(CodeScheduleAlreadyFilled, in.CaseID, "").withSchedule(in.ScheduleID)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return domain.Receipt{}, err
		}
		h, err := e.writeHearing(ctx, tx, caller, in, domain.HearingPreliminary, now)
		if err != nil {
			return domain.Receipt{}, err
		}
		if err := e.Repo.UpdateCaseStatus(ctx, tx, in.CaseID, domain.StatusInSession, domain.FormatTime(now)); err != nil {
			return domain.Receipt{}, err
		}
		return e.receipt(ctx, tx, op, in.CaseID, &in.ScheduleID, caller, domain.StatusInSession, hearingPayload(h))
	})
}

// UpdateHearing replaces the active hearing of an in-session case with a
// hearing under a new schedule id.
func (e Engine) UpdateHearing(ctx context.Context, caller string, in HearingInput) (domain.Receipt, error) {
	op := domain.OpUpdateHearing
	return e.transition(ctx, op, in.CaseID, caller, func(tx *sql.Tx) (domain.Receipt, error) {
		if err := e.requireRole(ctx, tx, caller, op, in.CaseID); err != nil {
			return domain.Receipt{}, err
		}
		if err := checkIDs(in.CaseID, in.ScheduleID); err != nil {
			return domain.Receipt{}, err
		}
		c, exists, err := e.loadCase(ctx, tx, in.CaseID)
		if err != nil {
			return domain.Receipt{}, err
		}
		c.ID = in.CaseID
		if err := guardStatus(op, c, exists, CodeMustBeInSession); err != nil {
			return domain.Receipt{}, err
		}
		if c.CurrentScheduleID != nil && *c.CurrentScheduleID == in.ScheduleID {
			return domain.Receipt{}, NewError(CodeScheduleAlreadyFilled, in.CaseID, "schedule id is the active hearing").withSchedule(in.ScheduleID)
		}
		now := e.now()
		if err := e.guardFuture(in, now); err != nil {
			return domain.Receipt{}, err
		}
		if !in.Kind.Valid() {
			te := NewError(CodeInvalidHearingKind, in.CaseID, "").withSchedule(in.ScheduleID)
			te.Actual = fmt.Sprint(int(in.Kind))
			return domain.Receipt{}, te
		}
		// A reused schedule id gets fresh hearing content, so a provisional
		// decision recorded against the old content is dropped with it.
		cleared, err := e.Repo.DeleteOpenDecision(ctx, tx, in.CaseID, in.ScheduleID)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("clear stale decision: %w", err)
		}
		h, err := e.writeHearing(ctx, tx, caller, in, in.Kind, now)
		if err != nil {
			return domain.Receipt{}, err
		}
		payload := hearingPayload(h)
		if c.CurrentScheduleID != nil {
			payload["previous_schedule_id"] = *c.CurrentScheduleID
		}
		if cleared {
			payload["cleared_decision"] = true
		}
		return e.receipt(ctx, tx, op, in.CaseID, &in.ScheduleID, caller, domain.StatusInSession, payload)
	})
}

func (e Engine) guardFuture(in HearingInput, now time.Time) error {
	if !in.At.After(now) {
		te := NewError(CodeInvalidDate, in.CaseID, "hearing must be scheduled in the future").withSchedule(in.ScheduleID)
		te.Expected = "after " + domain.FormatTime(now)
		te.Actual = domain.FormatTime(in.At)
		return te
	}
	return nil
}

func (e Engine) writeHearing(ctx context.Context, tx *sql.Tx, caller string, in HearingInput, kind domain.HearingKind, now time.Time) (domain.Hearing, error) {
	ts := domain.FormatTime(now)
	h, err := e.Repo.UpsertHearing(ctx, tx, domain.Hearing{
		CaseID:      in.CaseID,
		ScheduleID:  in.ScheduleID,
		Kind:        kind,
		Agenda:      in.Agenda,
		ScheduledAt: domain.FormatTime(in.At),
		Venue:       in.Venue,
		CreatedBy:   caller,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if err != nil {
		return h, fmt.Errorf("store hearing: %w", err)
	}
	if err := e.Repo.SetCurrentSchedule(ctx, tx, in.CaseID, in.ScheduleID, ts); err != nil {
		return h, err
	}
	return h, nil
}

func hearingPayload(h domain.Hearing) events.EventPayload {
	return events.EventPayload{
		"kind":         int(h.Kind),
		"agenda":       h.Agenda,
		"scheduled_at": h.ScheduledAt,
		"venue":        h.Venue,
	}
}

// AddDecision records or replaces a non-final decision for a hearing.
func (e Engine) AddDecision(ctx context.Context, caller string, in DecisionInput) (domain.Receipt, error) {
	return e.decide(ctx, domain.OpAddDecision, caller, in)
}

// FinalizeDecision marks the hearing's decision final and the case decided.
func (e Engine) FinalizeDecision(ctx context.Context, caller string, in DecisionInput) (domain.Receipt, error) {
	return e.decide(ctx, domain.OpFinalizeDecision, caller, in)
}

func (e Engine) decide(ctx context.Context, op domain.Operation, caller string, in DecisionInput) (domain.Receipt, error) {
	final := op == domain.OpFinalizeDecision
	return e.transition(ctx, op, in.CaseID, caller, func(tx *sql.Tx) (domain.Receipt, error) {
		if err := e.requireRole(ctx, tx, caller, op, in.CaseID); err != nil {
			return domain.Receipt{}, err
		}
		if err := checkIDs(in.CaseID, in.ScheduleID); err != nil {
			return domain.Receipt{}, err
		}
		if final && strings.TrimSpace(in.PublicationRef) == "" {
			return domain.Receipt{}, NewError(CodePublicationRequired, in.CaseID, "").withSchedule(in.ScheduleID)
		}
		if !in.Status.Valid() {
			te := NewError(CodeInvalidDecisionStatus, in.CaseID, "").withSchedule(in.ScheduleID)
			te.Expected = fmt.Sprintf("%d..%d", domain.MinDecisionStatus, domain.MaxDecisionStatus)
			te.Actual = fmt.Sprint(int(in.Status))
			return domain.Receipt{}, te
		}
		if _, err := e.Repo.GetHearingTx(ctx, tx, in.CaseID, in.ScheduleID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.Receipt{}, NewError(CodeHearingNotFound, in.CaseID, "").withSchedule(in.ScheduleID)
			}
			return domain.Receipt{}, err
		}
		c, exists, err := e.loadCase(ctx, tx, in.CaseID)
		if err != nil {
			return domain.Receipt{}, err
		}
		c.ID = in.CaseID
		if err := guardStatus(op, c, exists, CodeCaseClosed); err != nil {
			return domain.Receipt{}, err
		}
		nowT := e.now()
		now := domain.FormatTime(nowT)
		d := domain.Decision{
			CaseID:         in.CaseID,
			ScheduleID:     in.ScheduleID,
			Status:         in.Status,
			DocumentRef:    in.DocumentRef,
			PublicationRef: in.PublicationRef,
			Final:          final,
			DecidedBy:      caller,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		prev, err := e.Repo.GetDecisionTx(ctx, tx, in.CaseID, in.ScheduleID)
		switch {
		case err == nil:
			if prev.Final {
				return domain.Receipt{}, NewError(CodeDecisionAlreadyFinal, in.CaseID, "").withSchedule(in.ScheduleID)
			}
			d.CreatedAt = prev.CreatedAt
		case !errors.Is(err, repo.ErrNotFound):
			return domain.Receipt{}, err
		}
		if final {
			d.FinalizedAt = &now
		}
		if err := e.Repo.UpsertDecision(ctx, tx, d); err != nil {
			return domain.Receipt{}, fmt.Errorf("store decision: %w", err)
		}
		t, _ := domain.TransitionFor(op)
		status := t.Next(c.Status)
		if status != c.Status {
			if err := e.Repo.UpdateCaseStatus(ctx, tx, in.CaseID, status, now); err != nil {
				return domain.Receipt{}, err
			}
		}
		return e.receipt(ctx, tx, op, in.CaseID, &in.ScheduleID, caller, status, events.EventPayload{
			"decision_status": int(in.Status),
			"document_ref":    in.DocumentRef,
			"publication_ref": in.PublicationRef,
			"final":           final,
		})
	})
}

// CancelCase closes a case that has not reached a hearing.
func (e Engine) CancelCase(ctx context.Context, caller string, caseID int64, documentRef string) (domain.Receipt, error) {
	return e.dispose(ctx, domain.OpCancelCase, domain.DispositionCancelled, CodeCancelNotEligible, caller, caseID, documentRef)
}

// WithdrawCase closes an in-session case at the petitioner's request.
func (e Engine) WithdrawCase(ctx context.Context, caller string, caseID int64, documentRef string) (domain.Receipt, error) {
	return e.dispose(ctx, domain.OpWithdrawCase, domain.DispositionWithdrawn, CodeWithdrawNotEligible, caller, caseID, documentRef)
}

func (e Engine) dispose(ctx context.Context, op domain.Operation, kind domain.DispositionKind, code Code, caller string, caseID int64, documentRef string) (domain.Receipt, error) {
	return e.transition(ctx, op, caseID, caller, func(tx *sql.Tx) (domain.Receipt, error) {
		if err := e.requireRole(ctx, tx, caller, op, caseID); err != nil {
			return domain.Receipt{}, err
		}
		if err := checkIDs(caseID); err != nil {
			return domain.Receipt{}, err
		}
		c, exists, err := e.loadCase(ctx, tx, caseID)
		if err != nil {
			return domain.Receipt{}, err
		}
		c.ID = caseID
		if err := guardStatus(op, c, exists, code); err != nil {
			return domain.Receipt{}, err
		}
		t, _ := domain.TransitionFor(op)
		now := domain.FormatTime(e.now())
		if err := e.Repo.InsertDisposition(ctx, tx, domain.Disposition{
			CaseID:      caseID,
			Kind:        kind,
			DocumentRef: documentRef,
			PriorStatus: c.Status,
			RecordedBy:  caller,
			RecordedAt:  now,
		}); err != nil {
			return domain.Receipt{}, fmt.Errorf("store disposition: %w", err)
		}
		if err := e.Repo.UpdateCaseStatus(ctx, tx, caseID, t.To, now); err != nil {
			return domain.Receipt{}, err
		}
		return e.receipt(ctx, tx, op, caseID, nil, caller, t.To, events.EventPayload{
			"document_ref": documentRef,
			"prior_status": string(c.Status),
		})
	})
}
