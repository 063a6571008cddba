package engine

import (
	"context"
	"database/sql"
	"errors"

	"sengketa/internal/domain"
	"sengketa/internal/repo"
)

// Query names, as exposed on the ledger.
const (
	QueryParties             = "getPemohonTermohon"
	QueryHearing             = "getSidang"
	QueryPublication         = "getJDIH"
	QueryAgencies            = "getSKPD"
	QueryDispositionDocument = "getDokumenBatalCabut"
	QueryDecisionDocument    = "getDokumen"
)

// read runs fn in a read-only transaction so every query sees one snapshot.
func (e Engine) read(ctx context.Context, name string, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer tx.Rollback()
	err = fn(tx)
	switch {
	case err == nil:
		e.Metrics.ObserveQuery(name, "ok")
	case errors.Is(err, ErrNotFound):
		e.Metrics.ObserveQuery(name, "not_found")
	default:
		e.Metrics.ObserveQuery(name, "error")
	}
	return err
}

func notFound(err error, caseID int64, scheduleID *int64, what string) error {
	if errors.Is(err, repo.ErrNotFound) {
		te := NewError(CodeNotFound, caseID, what+" not found")
		te.ScheduleID = scheduleID
		return te
	}
	return err
}

// Parties returns the petitioner and respondent of a case.
func (e Engine) Parties(ctx context.Context, caseID int64) (domain.Parties, error) {
	var out domain.Parties
	err := e.read(ctx, QueryParties, func(tx *sql.Tx) error {
		c, err := e.Repo.GetCaseTx(ctx, tx, caseID)
		if err != nil {
			return notFound(err, caseID, nil, "case")
		}
		out = domain.Parties{CaseID: c.ID, Petitioner: c.Petitioner, Respondent: c.Respondent}
		return nil
	})
	return out, err
}

// Hearing returns the hearing stored under (case, schedule).
func (e Engine) Hearing(ctx context.Context, caseID, scheduleID int64) (domain.Hearing, error) {
	var out domain.Hearing
	err := e.read(ctx, QueryHearing, func(tx *sql.Tx) error {
		h, err := e.Repo.GetHearingTx(ctx, tx, caseID, scheduleID)
		if err != nil {
			return notFound(err, caseID, &scheduleID, "hearing")
		}
		out = h
		return nil
	})
	return out, err
}

// Publication returns the JDIH reference of the hearing's decision.
func (e Engine) Publication(ctx context.Context, caseID, scheduleID int64) (string, error) {
	d, err := e.decisionQuery(ctx, QueryPublication, caseID, scheduleID)
	return d.PublicationRef, err
}

// DecisionDocument returns the document reference of the hearing's decision.
func (e Engine) DecisionDocument(ctx context.Context, caseID, scheduleID int64) (string, error) {
	d, err := e.decisionQuery(ctx, QueryDecisionDocument, caseID, scheduleID)
	return d.DocumentRef, err
}

// Decision returns the full decision record for (case, schedule).
func (e Engine) Decision(ctx context.Context, caseID, scheduleID int64) (domain.Decision, error) {
	return e.decisionQuery(ctx, "decision", caseID, scheduleID)
}

func (e Engine) decisionQuery(ctx context.Context, name string, caseID, scheduleID int64) (domain.Decision, error) {
	var out domain.Decision
	err := e.read(ctx, name, func(tx *sql.Tx) error {
		d, err := e.Repo.GetDecisionTx(ctx, tx, caseID, scheduleID)
		if err != nil {
			return notFound(err, caseID, &scheduleID, "decision")
		}
		out = d
		return nil
	})
	return out, err
}

// Agencies returns the validation record of a case.
func (e Engine) Agencies(ctx context.Context, caseID int64) (domain.Agencies, error) {
	var out domain.Agencies
	err := e.read(ctx, QueryAgencies, func(tx *sql.Tx) error {
		a, err := e.Repo.GetAgenciesTx(ctx, tx, caseID)
		if err != nil {
			return notFound(err, caseID, nil, "agency validation")
		}
		out = a
		return nil
	})
	return out, err
}

// DispositionDocument returns the supporting document of a cancellation or withdrawal.
func (e Engine) DispositionDocument(ctx context.Context, caseID int64) (string, error) {
	d, err := e.dispositionQuery(ctx, QueryDispositionDocument, caseID)
	return d.DocumentRef, err
}

// Disposition returns the cancellation or withdrawal record of a case.
func (e Engine) Disposition(ctx context.Context, caseID int64) (domain.Disposition, error) {
	return e.dispositionQuery(ctx, "disposition", caseID)
}

func (e Engine) dispositionQuery(ctx context.Context, name string, caseID int64) (domain.Disposition, error) {
	var out domain.Disposition
	err := e.read(ctx, name, func(tx *sql.Tx) error {
		d, err := e.Repo.GetDispositionTx(ctx, tx, caseID)
		if err != nil {
			return notFound(err, caseID, nil, "disposition")
		}
		out = d
		return nil
	})
	return out, err
}

// Case returns the full case record.
func (e Engine) Case(ctx context.Context, caseID int64) (domain.Case, error) {
	var out domain.Case
	err := e.read(ctx, "case", func(tx *sql.Tx) error {
		c, err := e.Repo.GetCaseTx(ctx, tx, caseID)
		if err != nil {
			return notFound(err, caseID, nil, "case")
		}
		out = c
		return nil
	})
	return out, err
}

// ListCases pages cases by id.
func (e Engine) ListCases(ctx context.Context, f repo.CaseFilters) ([]domain.Case, error) {
	var out []domain.Case
	err := e.read(ctx, "cases", func(tx *sql.Tx) error {
		cs, err := e.Repo.ListCases(ctx, tx, f)
		out = cs
		return err
	})
	return out, err
}

// ListHearings returns the case's hearings in schedule order; NotFound for an unknown case.
func (e Engine) ListHearings(ctx context.Context, caseID int64) ([]domain.Hearing, error) {
	var out []domain.Hearing
	err := e.read(ctx, "hearings", func(tx *sql.Tx) error {
		if _, err := e.Repo.GetCaseTx(ctx, tx, caseID); err != nil {
			return notFound(err, caseID, nil, "case")
		}
		hs, err := e.Repo.ListHearings(ctx, tx, caseID)
		out = hs
		return err
	})
	return out, err
}

// Decisions returns every decision recorded on a case, by schedule id.
func (e Engine) Decisions(ctx context.Context, caseID int64) ([]domain.Decision, error) {
	var out []domain.Decision
	err := e.read(ctx, "decisions", func(tx *sql.Tx) error {
		if _, err := e.Repo.GetCaseTx(ctx, tx, caseID); err != nil {
			return notFound(err, caseID, nil, "case")
		}
		ds, err := e.Repo.ListDecisions(ctx, tx, caseID)
		out = ds
		return err
	})
	return out, err
}

// CaseCounts returns the number of cases in each status.
func (e Engine) CaseCounts(ctx context.Context) (map[domain.Status]int, error) {
	return e.Repo.CountCasesByStatus(ctx)
}

// EventForReceipt resolves a receipt id to the event it acknowledged.
func (e Engine) EventForReceipt(ctx context.Context, receiptID string) (domain.Event, error) {
	evt, err := e.Repo.GetEventByReceipt(ctx, receiptID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Event{}, &TransitionError{Kind: KindNotFound, Code: CodeNotFound, Detail: "receipt " + receiptID + " not found"}
	}
	return evt, err
}

// EventLog returns the newest events matching f.
func (e Engine) EventLog(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}
