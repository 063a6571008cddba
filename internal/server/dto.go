package server

import (
	"encoding/json"

	"sengketa/internal/app"
	"sengketa/internal/domain"
)

// Request payloads

type ReceiveCaseRequest struct {
	ID         int64  `json:"id"`
	Petitioner string `json:"petitioner"`
	Respondent string `json:"respondent"`
}

type ValidateCaseRequest struct {
	AgencyCount int      `json:"agency_count"`
	Agencies    []string `json:"agencies"`
}

type ScheduleHearingRequest struct {
	ScheduleID int64  `json:"schedule_id"`
	Agenda     string `json:"agenda"`
	At         string `json:"at" doc:"RFC3339 timestamp or unix seconds"`
	Venue      string `json:"venue"`
}

type UpdateHearingRequest struct {
	ScheduleID int64  `json:"schedule_id"`
	Kind       int    `json:"kind" doc:"0 preliminary, 1 follow-up, 2 decision reading"`
	Agenda     string `json:"agenda"`
	At         string `json:"at" doc:"RFC3339 timestamp or unix seconds"`
	Venue      string `json:"venue"`
}

// DocumentUpload carries file content inline, base64 encoded in JSON.
type DocumentUpload struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

type DecisionRequest struct {
	Status         int             `json:"status"`
	DocumentRef    string          `json:"document_ref,omitempty"`
	PublicationRef string          `json:"publication_ref,omitempty"`
	Document       *DocumentUpload `json:"document,omitempty"`
}

type DispositionRequest struct {
	DocumentRef string          `json:"document_ref,omitempty"`
	Document    *DocumentUpload `json:"document,omitempty"`
}

type LedgerRequest struct {
	Operation string   `json:"operation"`
	Args      []string `json:"args"`
}

// Response payloads

type ReceiptResponse struct {
	ID         string `json:"id"`
	EventID    int64  `json:"event_id"`
	Operation  string `json:"operation"`
	CaseID     int64  `json:"case_id"`
	ScheduleID *int64 `json:"schedule_id,omitempty"`
	Caller     string `json:"caller"`
	Status     string `json:"status"`
	TS         string `json:"ts"`
}

type DocumentRefResponse struct {
	Ref string `json:"ref"`
}

type DocumentMetadataResponse struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	MimeType  string `json:"mimetype"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	FileHash  string `json:"file_hash"`
}

type LedgerQueryResponse struct {
	Operation string `json:"operation"`
	Result    any    `json:"result"`
}

type PublicationResponse struct {
	CaseID         int64  `json:"case_id"`
	ScheduleID     int64  `json:"schedule_id"`
	PublicationRef string `json:"publication_ref"`
}

type DocumentLinkResponse struct {
	CaseID      int64  `json:"case_id"`
	ScheduleID  *int64 `json:"schedule_id,omitempty"`
	DocumentRef string `json:"document_ref"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	CaseID     *int64         `json:"case_id,omitempty"`
	ScheduleID *int64         `json:"schedule_id,omitempty"`
	Caller     string         `json:"caller"`
	ReceiptID  string         `json:"receipt_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type paginatedCases struct {
	Items      []domain.Case `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type IntakeRequest struct {
	Text string `json:"text" minLength:"1" doc:"Plain text of the filing"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	SchemaVersion int    `json:"schema_version,omitempty"`
}

type WhoAmIResponse struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	Source   string `json:"source"`
}

func receiptResponse(r domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		ID:         r.ID,
		EventID:    r.EventID,
		Operation:  r.Operation,
		CaseID:     r.CaseID,
		ScheduleID: r.ScheduleID,
		Caller:     r.Caller,
		Status:     string(r.Status),
		TS:         r.TS,
	}
}

func eventResponse(evt domain.Event) EventResponse {
	var payload map[string]any
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	return EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		CaseID:     evt.CaseID,
		ScheduleID: evt.ScheduleID,
		Caller:     evt.Caller,
		ReceiptID:  evt.ReceiptID,
		Payload:    payload,
	}
}

func (d *DocumentUpload) upload() *app.Upload {
	if d == nil {
		return nil
	}
	return &app.Upload{Name: d.Name, Data: d.Content}
}

func nonNilSlice[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
