package repo

import (
	"context"
	"database/sql"

	"sengketa/internal/domain"
)

const decisionColumns = `case_id,schedule_id,status,document_ref,publication_ref,final,decided_by,created_at,updated_at,finalized_at`

func scanDecision(row rowScanner) (domain.Decision, error) {
	var d domain.Decision
	var status int
	var doc, pub, finalizedAt sql.NullString
	var final int
	err := row.Scan(&d.CaseID, &d.ScheduleID, &status, &doc, &pub, &final, &d.DecidedBy, &d.CreatedAt, &d.UpdatedAt, &finalizedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Status = domain.DecisionStatus(status)
	d.DocumentRef = stringOrEmpty(doc)
	d.PublicationRef = stringOrEmpty(pub)
	d.Final = final == 1
	if finalizedAt.Valid {
		ts := finalizedAt.String
		d.FinalizedAt = &ts
	}
	return d, nil
}

// UpsertDecision writes the decision for (case, schedule). The write is
// refused at the SQL level once the stored row is final.
func (r Repo) UpsertDecision(ctx context.Context, tx *sql.Tx, d domain.Decision) error {
	final := 0
	if d.Final {
		final = 1
	}
	var finalizedAt any
	if d.FinalizedAt != nil {
		finalizedAt = *d.FinalizedAt
	}
	_, err := r.q(tx).ExecContext(ctx, `
INSERT INTO decisions(case_id,schedule_id,status,document_ref,publication_ref,final,decided_by,created_at,updated_at,finalized_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(case_id,schedule_id) DO UPDATE SET
  status=excluded.status, document_ref=excluded.document_ref, publication_ref=excluded.publication_ref,
  final=excluded.final, decided_by=excluded.decided_by, updated_at=excluded.updated_at, finalized_at=excluded.finalized_at
WHERE decisions.final=0`,
		d.CaseID, d.ScheduleID, int(d.Status), nullable(d.DocumentRef), nullable(d.PublicationRef), final, d.DecidedBy, d.CreatedAt, d.UpdatedAt, finalizedAt)
	return err
}

// DeleteOpenDecision removes a non-final decision stored under (case, schedule)
// and reports whether one was removed. Final decisions are never touched.
func (r Repo) DeleteOpenDecision(ctx context.Context, tx *sql.Tx, caseID, scheduleID int64) (bool, error) {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM decisions WHERE case_id=? AND schedule_id=? AND final=0`, caseID, scheduleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r Repo) GetDecisionTx(ctx context.Context, tx *sql.Tx, caseID, scheduleID int64) (domain.Decision, error) {
	return scanDecision(r.q(tx).QueryRowContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE case_id=? AND schedule_id=?`, caseID, scheduleID))
}

func (r Repo) ListDecisions(ctx context.Context, tx *sql.Tx, caseID int64) ([]domain.Decision, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE case_id=? ORDER BY schedule_id ASC`, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}
