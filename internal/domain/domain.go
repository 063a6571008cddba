package domain

import "time"

// Status is the lifecycle state of a case.
type Status string

const (
	StatusReceived  Status = "received"
	StatusValidated Status = "validated"
	StatusInSession Status = "in_session"
	StatusDecided   Status = "decided"
	StatusCancelled Status = "cancelled"
	StatusWithdrawn Status = "withdrawn"
)

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusDecided || s == StatusCancelled || s == StatusWithdrawn
}

func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusValidated, StatusInSession, StatusDecided, StatusCancelled, StatusWithdrawn:
		return true
	}
	return false
}

// Role is the single role an identity holds in the registry.
type Role string

const (
	RoleNone        Role = ""
	RoleAdmin       Role = "admin"
	RoleConvener    Role = "convener"
	RoleAdjudicator Role = "adjudicator"
)

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleConvener, RoleAdjudicator:
		return Role(s), true
	}
	return RoleNone, false
}

// HearingKind numbers the kinds of hearing. The first hearing of a case is
// always HearingPreliminary.
type HearingKind int

const (
	HearingPreliminary HearingKind = iota
	HearingFollowUp
	HearingDecisionReading
)

const maxHearingKind = HearingDecisionReading

func (k HearingKind) Valid() bool { return k >= HearingPreliminary && k <= maxHearingKind }

// DecisionStatus is the bounded decision code recorded by the adjudicator.
type DecisionStatus int

const (
	MinDecisionStatus DecisionStatus = 0
	MaxDecisionStatus DecisionStatus = 5
)

func (s DecisionStatus) Valid() bool { return s >= MinDecisionStatus && s <= MaxDecisionStatus }

// DispositionKind is the terminal outcome recorded for a case closed without a decision.
type DispositionKind string

const (
	DispositionCancelled DispositionKind = "cancelled"
	DispositionWithdrawn DispositionKind = "withdrawn"
)

type Case struct {
	ID                int64    `json:"id"`
	Petitioner        string   `json:"petitioner"`
	Respondent        string   `json:"respondent"`
	Status            Status   `json:"status" enum:"received,validated,in_session,decided,cancelled,withdrawn"`
	AgencyCount       *int     `json:"agency_count,omitempty"`
	Agencies          []string `json:"agencies,omitempty"`
	CurrentScheduleID *int64   `json:"current_schedule_id,omitempty"`
	ReceivedBy        string   `json:"received_by"`
	CreatedAt         string   `json:"created_at" format:"date-time"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
}

type Parties struct {
	CaseID     int64  `json:"case_id"`
	Petitioner string `json:"petitioner"`
	Respondent string `json:"respondent"`
}

type Agencies struct {
	CaseID int64    `json:"case_id"`
	Count  int      `json:"count"`
	Codes  []string `json:"codes"`
}

type Hearing struct {
	CaseID      int64       `json:"case_id"`
	ScheduleID  int64       `json:"schedule_id"`
	Seq         int         `json:"seq"`
	Kind        HearingKind `json:"kind" minimum:"0" maximum:"2"`
	Agenda      string      `json:"agenda"`
	ScheduledAt string      `json:"scheduled_at" format:"date-time"`
	Venue       string      `json:"venue"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   string      `json:"created_at" format:"date-time"`
	UpdatedAt   string      `json:"updated_at" format:"date-time"`
}

type Decision struct {
	CaseID         int64          `json:"case_id"`
	ScheduleID     int64          `json:"schedule_id"`
	Status         DecisionStatus `json:"status" minimum:"0" maximum:"5"`
	DocumentRef    string         `json:"document_ref,omitempty"`
	PublicationRef string         `json:"publication_ref,omitempty"`
	Final          bool           `json:"final"`
	DecidedBy      string         `json:"decided_by"`
	CreatedAt      string         `json:"created_at" format:"date-time"`
	UpdatedAt      string         `json:"updated_at" format:"date-time"`
	FinalizedAt    *string        `json:"finalized_at,omitempty" format:"date-time"`
}

type Disposition struct {
	CaseID      int64           `json:"case_id"`
	Kind        DispositionKind `json:"kind" enum:"cancelled,withdrawn"`
	DocumentRef string          `json:"document_ref,omitempty"`
	PriorStatus Status          `json:"prior_status"`
	RecordedBy  string          `json:"recorded_by"`
	RecordedAt  string          `json:"recorded_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	CaseID     *int64 `json:"case_id,omitempty"`
	ScheduleID *int64 `json:"schedule_id,omitempty"`
	Caller     string `json:"caller"`
	ReceiptID  string `json:"receipt_id"`
	Payload    string `json:"payload_json"`
}

// Receipt acknowledges an accepted transition. It is derived from the event
// appended in the same transaction as the state change.
type Receipt struct {
	ID         string `json:"id"`
	EventID    int64  `json:"event_id"`
	Operation  string `json:"operation"`
	CaseID     int64  `json:"case_id"`
	ScheduleID *int64 `json:"schedule_id,omitempty"`
	Caller     string `json:"caller"`
	Status     Status `json:"status"`
	TS         string `json:"ts" format:"date-time"`
}

type RoleAssignment struct {
	Identity   string `json:"identity"`
	Role       Role   `json:"role"`
	AssignedAt string `json:"assigned_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	Identity  string `json:"identity"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// FormatTime renders timestamps the way every record stores them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
