package repo

import (
	"context"
	"database/sql"

	"sengketa/internal/domain"
)

const hearingColumns = `case_id,schedule_id,seq,kind,agenda,scheduled_at,venue,created_by,created_at,updated_at`

func scanHearing(row rowScanner) (domain.Hearing, error) {
	var h domain.Hearing
	var kind int
	err := row.Scan(&h.CaseID, &h.ScheduleID, &h.Seq, &kind, &h.Agenda, &h.ScheduledAt, &h.Venue, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return h, ErrNotFound
	}
	h.Kind = domain.HearingKind(kind)
	return h, err
}

// UpsertHearing writes the hearing under (case, schedule). A new schedule id
// is appended after the case's existing hearings; reusing a superseded one
// replaces that entry and moves it to the end of the order.
func (r Repo) UpsertHearing(ctx context.Context, tx *sql.Tx, h domain.Hearing) (domain.Hearing, error) {
	q := r.q(tx)
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq),0)+1 FROM hearings WHERE case_id=?`, h.CaseID).Scan(&h.Seq); err != nil {
		return h, err
	}
	_, err := q.ExecContext(ctx, `
INSERT INTO hearings(case_id,schedule_id,seq,kind,agenda,scheduled_at,venue,created_by,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(case_id,schedule_id) DO UPDATE SET
  seq=excluded.seq, kind=excluded.kind, agenda=excluded.agenda, scheduled_at=excluded.scheduled_at,
  venue=excluded.venue, updated_at=excluded.updated_at`,
		h.CaseID, h.ScheduleID, h.Seq, int(h.Kind), h.Agenda, h.ScheduledAt, h.Venue, h.CreatedBy, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return h, err
	}
	return r.GetHearingTx(ctx, tx, h.CaseID, h.ScheduleID)
}

func (r Repo) GetHearingTx(ctx context.Context, tx *sql.Tx, caseID, scheduleID int64) (domain.Hearing, error) {
	return scanHearing(r.q(tx).QueryRowContext(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE case_id=? AND schedule_id=?`, caseID, scheduleID))
}

// ListHearings returns the case's hearings in schedule order.
func (r Repo) ListHearings(ctx context.Context, tx *sql.Tx, caseID int64) ([]domain.Hearing, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+hearingColumns+` FROM hearings WHERE case_id=? ORDER BY seq ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Hearing
	for rows.Next() {
		h, err := scanHearing(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, rows.Err()
}
