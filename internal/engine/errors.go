package engine

import (
	"errors"
	"fmt"
	"strings"

	"sengketa/internal/domain"
)

// Kind classifies every rejection the engine can return.
type Kind string

const (
	KindUnauthorized            Kind = "unauthorized"
	KindValidation              Kind = "validation_error"
	KindStateConflict           Kind = "state_conflict"
	KindNotFound                Kind = "not_found"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
)

// Sentinels for errors.Is against a *TransitionError of the matching kind.
var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrValidation              = errors.New("validation error")
	ErrStateConflict           = errors.New("state conflict")
	ErrNotFound                = errors.New("not found")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindValidation:
		return ErrValidation
	case KindStateConflict:
		return ErrStateConflict
	case KindNotFound:
		return ErrNotFound
	case KindCollaboratorUnavailable:
		return ErrCollaboratorUnavailable
	}
	return nil
}

// Code names the guard that rejected a request.
type Code string

const (
	CodeUnauthorized          Code = "Unauthorized"
	CodePetitionerRequired    Code = "PetitionerRequired"
	CodeRespondentRequired    Code = "RespondentRequired"
	CodeCaseAlreadyExists     Code = "CaseAlreadyExists"
	CodeInvalidCaseStatus     Code = "InvalidCaseStatus"
	CodeAgencyListInvalid     Code = "AgencyListInvalid"
	CodeNotYetValidated       Code = "NotYetValidated"
	CodeInvalidDate           Code = "InvalidDate"
	CodeScheduleAlreadyFilled Code = "ScheduleAlreadyFilled"
	CodeMustBeInSession       Code = "MustBeInSession"
	CodeInvalidHearingKind    Code = "InvalidHearingKind"
	CodeHearingNotFound       Code = "HearingNotFound"
	CodeInvalidDecisionStatus Code = "InvalidDecisionStatus"
	CodeDecisionAlreadyFinal  Code = "DecisionAlreadyFinal"
	CodePublicationRequired   Code = "PublicationRequired"
	CodeCaseClosed            Code = "CaseClosed"
	CodeCancelNotEligible     Code = "CancelNotEligible"
	CodeWithdrawNotEligible   Code = "WithdrawNotEligible"
	CodeInvalidIdentifier     Code = "InvalidIdentifier"
	CodeNotFound              Code = "NotFound"
	CodeInvalidArgument       Code = "InvalidArgument"
	CodeUnknownOperation      Code = "UnknownOperation"
	CodeUnknownDocument       Code = "UnknownDocument"
	CodeDocumentStore         Code = "DocumentStoreUnavailable"
	CodeLedger                Code = "LedgerUnavailable"
)

var codeKinds = map[Code]Kind{
	CodeUnauthorized:          KindUnauthorized,
	CodePetitionerRequired:    KindValidation,
	CodeRespondentRequired:    KindValidation,
	CodeCaseAlreadyExists:     KindStateConflict,
	CodeInvalidCaseStatus:     KindStateConflict,
	CodeAgencyListInvalid:     KindValidation,
	CodeNotYetValidated:       KindStateConflict,
	CodeInvalidDate:           KindValidation,
	CodeScheduleAlreadyFilled: KindStateConflict,
	CodeMustBeInSession:       KindStateConflict,
	CodeInvalidHearingKind:    KindValidation,
	CodeHearingNotFound:       KindNotFound,
	CodeInvalidDecisionStatus: KindValidation,
	CodeDecisionAlreadyFinal:  KindStateConflict,
	CodePublicationRequired:   KindValidation,
	CodeCaseClosed:            KindStateConflict,
	CodeCancelNotEligible:     KindStateConflict,
	CodeWithdrawNotEligible:   KindStateConflict,
	CodeInvalidIdentifier:     KindValidation,
	CodeNotFound:              KindNotFound,
	CodeInvalidArgument:       KindValidation,
	CodeUnknownOperation:      KindValidation,
	CodeUnknownDocument:       KindValidation,
	CodeDocumentStore:         KindCollaboratorUnavailable,
	CodeLedger:                KindCollaboratorUnavailable,
}

// KindOf returns the taxonomy kind of a guard code.
func KindOf(c Code) Kind {
	return codeKinds[c]
}

// TransitionError is the single error type returned for a rejected request.
type TransitionError struct {
	Kind       Kind
	Code       Code
	Operation  string
	CaseID     *int64
	ScheduleID *int64
	Identity   string
	Expected   string
	Actual     string
	Detail     string
	Err        error
}

func (e *TransitionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.CaseID != nil {
		fmt.Fprintf(&b, " case=%d", *e.CaseID)
	}
	if e.ScheduleID != nil {
		fmt.Fprintf(&b, " schedule=%d", *e.ScheduleID)
	}
	if e.Identity != "" {
		fmt.Fprintf(&b, " identity=%s", e.Identity)
	}
	if e.Expected != "" || e.Actual != "" {
		fmt.Fprintf(&b, " expected=%s actual=%s", e.Expected, e.Actual)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the kind sentinel so callers can test errors.Is(err, ErrStateConflict).
func (e *TransitionError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *TransitionError) Unwrap() error { return e.Err }

// Details flattens the error context for transport layers.
func (e *TransitionError) Details() map[string]any {
	d := map[string]any{"kind": string(e.Kind), "code": string(e.Code)}
	if e.Operation != "" {
		d["operation"] = e.Operation
	}
	if e.CaseID != nil {
		d["case_id"] = *e.CaseID
	}
	if e.ScheduleID != nil {
		d["schedule_id"] = *e.ScheduleID
	}
	if e.Identity != "" {
		d["identity"] = e.Identity
	}
	if e.Expected != "" {
		d["expected"] = e.Expected
	}
	if e.Actual != "" {
		d["actual"] = e.Actual
	}
	if e.Detail != "" {
		d["detail"] = e.Detail
	}
	return d
}

// NewError builds a TransitionError for code, deriving its kind.
func NewError(code Code, caseID int64, detail string) *TransitionError {
	return &TransitionError{Kind: KindOf(code), Code: code, CaseID: &caseID, Detail: detail}
}

// ArgumentError rejects a malformed request before it reaches a guard.
func ArgumentError(code Code, op, detail string) *TransitionError {
	return &TransitionError{Kind: KindOf(code), Code: code, Operation: op, Detail: detail}
}

// Unavailable wraps a collaborator failure.
func Unavailable(code Code, err error) *TransitionError {
	return &TransitionError{Kind: KindCollaboratorUnavailable, Code: code, Err: err}
}

// AsTransitionError unwraps err to a *TransitionError when it is one.
func AsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

func (e *TransitionError) withSchedule(id int64) *TransitionError {
	e.ScheduleID = &id
	return e
}

func (e *TransitionError) withStatus(expected []domain.Status, actual domain.Status) *TransitionError {
	names := make([]string, len(expected))
	for i, s := range expected {
		names[i] = string(s)
	}
	e.Expected = strings.Join(names, "|")
	e.Actual = string(actual)
	if e.Actual == "" {
		e.Actual = "absent"
	}
	return e
}
