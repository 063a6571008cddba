package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sengketa/internal/domain"
)

const eventColumns = `id,ts,type,case_id,schedule_id,caller,receipt_id,payload_json`

type EventFilters struct {
	Type   string
	CaseID *int64
	// Before pages backwards from an event id (exclusive).
	Before int64
	Limit  int
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var caseID, scheduleID sql.NullInt64
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &caseID, &scheduleID, &e.Caller, &e.ReceiptID, &payload); err != nil {
			return nil, err
		}
		if caseID.Valid {
			v := caseID.Int64
			e.CaseID = &v
		}
		if scheduleID.Valid {
			v := scheduleID.Int64
			e.ScheduleID = &v
		}
		e.Payload = stringOrEmpty(payload)
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEvents returns the newest events first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.CaseID != nil {
		clauses = append(clauses, "case_id=?")
		args = append(args, *f.CaseID)
	}
	if f.Before > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Before)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY id DESC LIMIT ?`, eventColumns, strings.Join(clauses, " AND "))
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetEventByReceipt looks up the event a receipt was issued for.
func (r Repo) GetEventByReceipt(ctx context.Context, receiptID string) (domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE receipt_id=?`, receiptID)
	if err != nil {
		return domain.Event{}, err
	}
	res, err := scanEvents(rows)
	if err != nil {
		return domain.Event{}, err
	}
	if len(res) == 0 {
		return domain.Event{}, ErrNotFound
	}
	return res[0], nil
}
