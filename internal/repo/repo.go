package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sengketa/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns tx when set so reads inside a transition see its own writes.
func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

const caseColumns = `id,petitioner,respondent,status,agency_count,current_schedule_id,received_by,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (domain.Case, error) {
	var c domain.Case
	var status string
	var count sql.NullInt64
	var schedule sql.NullInt64
	err := row.Scan(&c.ID, &c.Petitioner, &c.Respondent, &status, &count, &schedule, &c.ReceivedBy, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Status = domain.Status(status)
	if count.Valid {
		n := int(count.Int64)
		c.AgencyCount = &n
	}
	if schedule.Valid {
		id := schedule.Int64
		c.CurrentScheduleID = &id
	}
	return c, nil
}

func (r Repo) InsertCase(ctx context.Context, tx *sql.Tx, c domain.Case) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO cases(id,petitioner,respondent,status,received_by,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		c.ID, c.Petitioner, c.Respondent, string(c.Status), c.ReceivedBy, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetCaseTx loads a case with its agency list.
func (r Repo) GetCaseTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Case, error) {
	c, err := scanCase(r.q(tx).QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id=?`, id))
	if err != nil {
		return c, err
	}
	if c.AgencyCount != nil {
		codes, err := r.agencyCodes(ctx, tx, id)
		if err != nil {
			return c, err
		}
		c.Agencies = codes
	}
	return c, nil
}

func (r Repo) UpdateCaseStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.Status, now string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE cases SET status=?, updated_at=? WHERE id=?`, string(status), now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCurrentSchedule records the schedule id the case's active hearing lives under.
func (r Repo) SetCurrentSchedule(ctx context.Context, tx *sql.Tx, id, scheduleID int64, now string) error {
	_, err := r.q(tx).ExecContext(ctx, `UPDATE cases SET current_schedule_id=?, updated_at=? WHERE id=?`, scheduleID, now, id)
	return err
}

// SetAgencies stores the validated agency list. The list is written once;
// a second call for the same case fails on the primary key.
func (r Repo) SetAgencies(ctx context.Context, tx *sql.Tx, id int64, codes []string, now string) error {
	q := r.q(tx)
	if _, err := q.ExecContext(ctx, `UPDATE cases SET agency_count=?, updated_at=? WHERE id=? AND agency_count IS NULL`, len(codes), now, id); err != nil {
		return err
	}
	for i, code := range codes {
		if _, err := q.ExecContext(ctx, `INSERT INTO case_agencies(case_id,position,code) VALUES (?,?,?)`, id, i, code); err != nil {
			return fmt.Errorf("insert agency %d: %w", i, err)
		}
	}
	return nil
}

func (r Repo) agencyCodes(ctx context.Context, tx *sql.Tx, id int64) ([]string, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT code FROM case_agencies WHERE case_id=? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GetAgenciesTx returns the validation record, ErrNotFound until the case is validated.
func (r Repo) GetAgenciesTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Agencies, error) {
	var count sql.NullInt64
	err := r.q(tx).QueryRowContext(ctx, `SELECT agency_count FROM cases WHERE id=?`, id).Scan(&count)
	if err == sql.ErrNoRows || (err == nil && !count.Valid) {
		return domain.Agencies{}, ErrNotFound
	}
	if err != nil {
		return domain.Agencies{}, err
	}
	codes, err := r.agencyCodes(ctx, tx, id)
	if err != nil {
		return domain.Agencies{}, err
	}
	return domain.Agencies{CaseID: id, Count: int(count.Int64), Codes: codes}, nil
}

type CaseFilters struct {
	Status  string
	AfterID int64
	Limit   int
}

// ListCases pages through cases ordered by id.
func (r Repo) ListCases(ctx context.Context, tx *sql.Tx, f CaseFilters) ([]domain.Case, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.AfterID > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, f.AfterID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE %s ORDER BY id ASC LIMIT ?`, caseColumns, strings.Join(clauses, " AND "))
	rows, err := r.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CountCasesByStatus returns the number of cases per lifecycle status.
func (r Repo) CountCasesByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM cases GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[domain.Status]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		res[domain.Status(s)] = n
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func stringOrEmpty(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}
