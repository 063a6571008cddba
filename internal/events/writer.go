package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sengketa/internal/domain"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Entry is one event to append. ScheduleID is nil for case-level events.
type Entry struct {
	Type       string
	CaseID     int64
	ScheduleID *int64
	Caller     string
	Payload    EventPayload
}

// Append writes the event inside tx and returns the stored row, including
// the receipt id minted for it.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, e Entry) (domain.Event, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := domain.FormatTime(w.Now())
	if e.Payload == nil {
		e.Payload = EventPayload{}
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("marshal event payload: %w", err)
	}
	receiptID := uuid.NewString()
	res, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,case_id,schedule_id,caller,receipt_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, e.Type, e.CaseID, nullableID(e.ScheduleID), e.Caller, receiptID, string(data))
	if err != nil {
		return domain.Event{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Event{}, err
	}
	caseID := e.CaseID
	return domain.Event{
		ID:         id,
		TS:         ts,
		Type:       e.Type,
		CaseID:     &caseID,
		ScheduleID: e.ScheduleID,
		Caller:     e.Caller,
		ReceiptID:  receiptID,
		Payload:    string(data),
	}, nil
}

func nullableID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
