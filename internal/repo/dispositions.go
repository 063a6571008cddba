package repo

import (
	"context"
	"database/sql"

	"sengketa/internal/domain"
)

// InsertDisposition records the terminal cancel/withdraw outcome. The
// primary key keeps it to one per case.
func (r Repo) InsertDisposition(ctx context.Context, tx *sql.Tx, d domain.Disposition) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO dispositions(case_id,kind,document_ref,prior_status,recorded_by,recorded_at) VALUES (?,?,?,?,?,?)`,
		d.CaseID, string(d.Kind), nullable(d.DocumentRef), string(d.PriorStatus), d.RecordedBy, d.RecordedAt)
	return err
}

func (r Repo) GetDispositionTx(ctx context.Context, tx *sql.Tx, caseID int64) (domain.Disposition, error) {
	var d domain.Disposition
	var kind, prior string
	var doc sql.NullString
	err := r.q(tx).QueryRowContext(ctx, `SELECT case_id,kind,document_ref,prior_status,recorded_by,recorded_at FROM dispositions WHERE case_id=?`, caseID).
		Scan(&d.CaseID, &kind, &doc, &prior, &d.RecordedBy, &d.RecordedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Kind = domain.DispositionKind(kind)
	d.PriorStatus = domain.Status(prior)
	d.DocumentRef = stringOrEmpty(doc)
	return d, nil
}
