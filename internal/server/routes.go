package server

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"sengketa/internal/domain"
	"sengketa/internal/engine"
	"sengketa/internal/intake"
	"sengketa/internal/ledger"
	"sengketa/internal/repo"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusServiceUnavailable,
}

type receiptOutput struct {
	Body ReceiptResponse `json:"body"`
}

func receiptOut(rec domain.Receipt, err error) (*receiptOutput, error) {
	if err != nil {
		return nil, handleError(err)
	}
	return &receiptOutput{Body: receiptResponse(rec)}, nil
}

type casePath struct {
	CaseID int64 `path:"case_id"`
}

type hearingPath struct {
	CaseID     int64 `path:"case_id"`
	ScheduleID int64 `path:"schedule_id"`
}

type decisionInput struct {
	CaseID     int64           `path:"case_id"`
	ScheduleID int64           `path:"schedule_id"`
	Body       DecisionRequest `json:"body"`
}

type dispositionInput struct {
	CaseID int64              `path:"case_id"`
	Body   DispositionRequest `json:"body" required:"false"`
}

func parseAt(raw string) (time.Time, huma.StatusError) {
	t, err := ledger.ParseTime(raw)
	if err != nil {
		return time.Time{}, handleError(engine.ArgumentError(engine.CodeInvalidArgument, "", "at: "+err.Error()))
	}
	return t, nil
}

func registerCases(api huma.API, cfg Config) {
	e := cfg.Engine
	huma.Register(api, huma.Operation{
		OperationID:   "receive-case",
		Method:        http.MethodPost,
		Path:          "/cases",
		Summary:       "Receive a dispute",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body ReceiveCaseRequest `json:"body"`
	}) (*receiptOutput, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return receiptOut(e.ReceiveCase(ctx, caller, input.Body.ID, input.Body.Petitioner, input.Body.Respondent))
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-case",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/validate",
		Summary:     "Validate a received dispute against its agency list",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CaseID int64               `path:"case_id"`
		Body   ValidateCaseRequest `json:"body"`
	}) (*receiptOutput, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return receiptOut(e.ValidateCase(ctx, caller, input.CaseID, input.Body.AgencyCount, input.Body.Agencies))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-cases",
		Method:      http.MethodGet,
		Path:        "/cases",
		Summary:     "List cases",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" doc:"received, validated, in_session, decided, cancelled or withdrawn"`
		Limit  int    `query:"limit" default:"50"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body paginatedCases `json:"body"`
	}, error) {
		if input.Status != "" && !domain.Status(input.Status).Valid() {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown status %q", input.Status), nil)
		}
		limit := normalizeLimit(input.Limit)
		after, perr := parseCursor(input.Cursor)
		if perr != nil {
			return nil, perr
		}
		items, err := e.ListCases(ctx, repo.CaseFilters{Status: input.Status, AfterID: after, Limit: limit + 1})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedCases{Items: nonNilSlice(items)}
		if len(items) > limit {
			resp.Items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		return &struct {
			Body paginatedCases `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-case",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}",
		Summary:     "Get case",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body domain.Case `json:"body"`
	}, error) {
		c, err := e.Case(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Case `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-parties",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/parties",
		Summary:     "Petitioner and respondent of a case",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body domain.Parties `json:"body"`
	}, error) {
		p, err := e.Parties(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Parties `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-agencies",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/agencies",
		Summary:     "Agencies recorded at validation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body domain.Agencies `json:"body"`
	}, error) {
		a, err := e.Agencies(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Agencies `json:"body"`
		}{Body: a}, nil
	})
}

func registerHearings(api huma.API, cfg Config) {
	e := cfg.Engine
	huma.Register(api, huma.Operation{
		OperationID:   "schedule-initial-hearing",
		Method:        http.MethodPost,
		Path:          "/cases/{case_id}/hearings",
		Summary:       "Schedule the preliminary hearing",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		CaseID int64                  `path:"case_id"`
		Body   ScheduleHearingRequest `json:"body"`
	}) (*receiptOutput, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		at, perr := parseAt(input.Body.At)
		if perr != nil {
			return nil, perr
		}
		return receiptOut(e.ScheduleInitialHearing(ctx, caller, engine.HearingInput{
			CaseID:     input.CaseID,
			ScheduleID: input.Body.ScheduleID,
			Agenda:     input.Body.Agenda,
			At:         at,
			Venue:      input.Body.Venue,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-hearing",
		Method:      http.MethodPut,
		Path:        "/cases/{case_id}/hearings",
		Summary:     "Schedule a follow-up hearing",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		CaseID int64                `path:"case_id"`
		Body   UpdateHearingRequest `json:"body"`
	}) (*receiptOutput, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		at, perr := parseAt(input.Body.At)
		if perr != nil {
			return nil, perr
		}
		return receiptOut(e.UpdateHearing(ctx, caller, engine.HearingInput{
			CaseID:     input.CaseID,
			ScheduleID: input.Body.ScheduleID,
			Kind:       domain.HearingKind(input.Body.Kind),
			Agenda:     input.Body.Agenda,
			At:         at,
			Venue:      input.Body.Venue,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-hearings",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/hearings",
		Summary:     "Hearings of a case in schedule order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body []domain.Hearing `json:"body"`
	}, error) {
		hs, err := e.ListHearings(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Hearing `json:"body"`
		}{Body: nonNilSlice(hs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-hearing",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/hearings/{schedule_id}",
		Summary:     "Get hearing",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *hearingPath) (*struct {
		Body domain.Hearing `json:"body"`
	}, error) {
		h, err := e.Hearing(ctx, input.CaseID, input.ScheduleID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Hearing `json:"body"`
		}{Body: h}, nil
	})
}

func registerDecisions(api huma.API, cfg Config) {
	e := cfg.Engine
	svc := cfg.Service
	decide := func(final bool) func(context.Context, *decisionInput) (*receiptOutput, error) {
		return func(ctx context.Context, input *decisionInput) (*receiptOutput, error) {
			if err := requireBody(ctx); err != nil {
				return nil, err
			}
			caller, authErr := callerFromContext(ctx)
			if authErr != nil {
				return nil, authErr
			}
			in := engine.DecisionInput{
				CaseID:         input.CaseID,
				ScheduleID:     input.ScheduleID,
				Status:         domain.DecisionStatus(input.Body.Status),
				DocumentRef:    input.Body.DocumentRef,
				PublicationRef: input.Body.PublicationRef,
			}
			return receiptOut(svc.Decide(ctx, caller, in, input.Body.Document.upload(), final))
		}
	}

	huma.Register(api, huma.Operation{
		OperationID: "add-decision",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/hearings/{schedule_id}/decision",
		Summary:     "Record or revise a provisional decision",
		Errors:      writeErrors,
	}, decide(false))

	huma.Register(api, huma.Operation{
		OperationID: "finalize-decision",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/hearings/{schedule_id}/decision/final",
		Summary:     "Finalize a decision and close the case as decided",
		Errors:      writeErrors,
	}, decide(true))

	huma.Register(api, huma.Operation{
		OperationID: "get-decision",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/hearings/{schedule_id}/decision",
		Summary:     "Get decision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *hearingPath) (*struct {
		Body domain.Decision `json:"body"`
	}, error) {
		d, err := e.Decision(ctx, input.CaseID, input.ScheduleID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Decision `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-decisions",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/decisions",
		Summary:     "Decisions recorded on a case, by schedule id",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body []domain.Decision `json:"body"`
	}, error) {
		ds, err := e.Decisions(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Decision `json:"body"`
		}{Body: nonNilSlice(ds)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-publication",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/hearings/{schedule_id}/publication",
		Summary:     "Publication reference of a decision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *hearingPath) (*struct {
		Body PublicationResponse `json:"body"`
	}, error) {
		ref, err := e.Publication(ctx, input.CaseID, input.ScheduleID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body PublicationResponse `json:"body"`
		}{Body: PublicationResponse{CaseID: input.CaseID, ScheduleID: input.ScheduleID, PublicationRef: ref}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-decision-document",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/hearings/{schedule_id}/document",
		Summary:     "Document reference of a decision",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *hearingPath) (*struct {
		Body DocumentLinkResponse `json:"body"`
	}, error) {
		ref, err := e.DecisionDocument(ctx, input.CaseID, input.ScheduleID)
		if err != nil {
			return nil, handleError(err)
		}
		sid := input.ScheduleID
		return &struct {
			Body DocumentLinkResponse `json:"body"`
		}{Body: DocumentLinkResponse{CaseID: input.CaseID, ScheduleID: &sid, DocumentRef: ref}}, nil
	})
}

func registerDispositions(api huma.API, cfg Config) {
	e := cfg.Engine
	svc := cfg.Service

	huma.Register(api, huma.Operation{
		OperationID: "cancel-case",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/cancel",
		Summary:     "Cancel a case before its first hearing",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *dispositionInput) (*receiptOutput, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return receiptOut(svc.Cancel(ctx, caller, input.CaseID, input.Body.DocumentRef, input.Body.Document.upload()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "withdraw-case",
		Method:      http.MethodPost,
		Path:        "/cases/{case_id}/withdraw",
		Summary:     "Withdraw a case that is in session",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *dispositionInput) (*receiptOutput, error) {
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return receiptOut(svc.Withdraw(ctx, caller, input.CaseID, input.Body.DocumentRef, input.Body.Document.upload()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-disposition-document",
		Method:      http.MethodGet,
		Path:        "/cases/{case_id}/disposition/document",
		Summary:     "Document reference of a cancellation or withdrawal",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *casePath) (*struct {
		Body DocumentLinkResponse `json:"body"`
	}, error) {
		ref, err := e.DispositionDocument(ctx, input.CaseID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentLinkResponse `json:"body"`
		}{Body: DocumentLinkResponse{CaseID: input.CaseID, DocumentRef: ref}}, nil
	})
}

func registerDocuments(api huma.API, cfg Config) {
	svc := cfg.Service
	huma.Register(api, huma.Operation{
		OperationID:   "upload-document",
		Method:        http.MethodPost,
		Path:          "/documents",
		Summary:       "Store a document and return its reference",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body DocumentUpload `json:"body"`
	}) (*struct {
		Body DocumentRefResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		if _, authErr := callerFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		ref, err := svc.StoreDocument(ctx, *input.Body.upload())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentRefResponse `json:"body"`
		}{Body: DocumentRefResponse{Ref: ref}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "download-document",
		Method:      http.MethodGet,
		Path:        "/documents/{ref}",
		Summary:     "Download a stored document",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Ref string `path:"ref"`
	}) (*struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		Body               []byte
	}, error) {
		doc, err := svc.Document(ctx, input.Ref)
		if err != nil {
			return nil, handleError(err)
		}
		ct := doc.MimeType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return &struct {
			ContentType        string `header:"Content-Type"`
			ContentDisposition string `header:"Content-Disposition"`
			Body               []byte
		}{
			ContentType:        ct,
			ContentDisposition: mime.FormatMediaType("inline", map[string]string{"filename": doc.Filename()}),
			Body:               doc.Data,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-document-metadata",
		Method:      http.MethodGet,
		Path:        "/documents/{ref}/metadata",
		Summary:     "Metadata of a stored document",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Ref string `path:"ref"`
	}) (*struct {
		Body DocumentMetadataResponse `json:"body"`
	}, error) {
		meta, err := svc.DocumentMetadata(ctx, input.Ref)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body DocumentMetadataResponse `json:"body"`
		}{Body: DocumentMetadataResponse{
			Ref:       input.Ref,
			Name:      meta.Name,
			MimeType:  meta.MimeType,
			Size:      meta.Size,
			Extension: meta.Extension,
			FileHash:  meta.FileHash,
		}}, nil
	})
}

func registerLedger(api huma.API, cfg Config) {
	l := cfg.Ledger
	huma.Register(api, huma.Operation{
		OperationID: "ledger-submit",
		Method:      http.MethodPost,
		Path:        "/ledger/submit",
		Summary:     "Submit a lifecycle operation by name with positional arguments",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body LedgerRequest `json:"body"`
	}) (*receiptOutput, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		caller, authErr := callerFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return receiptOut(l.Submit(ctx, caller, input.Body.Operation, input.Body.Args))
	})

	huma.Register(api, huma.Operation{
		OperationID: "ledger-query",
		Method:      http.MethodPost,
		Path:        "/ledger/query",
		Summary:     "Evaluate a query by name with positional arguments",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body LedgerRequest `json:"body"`
	}) (*struct {
		Body LedgerQueryResponse `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		res, err := l.Query(ctx, input.Body.Operation, input.Body.Args)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LedgerQueryResponse `json:"body"`
		}{Body: LedgerQueryResponse{Operation: input.Body.Operation, Result: res}}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type   string `query:"type"`
		CaseID int64  `query:"case_id"`
		Limit  int    `query:"limit" default:"50"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		before, perr := parseCursor(input.Cursor)
		if perr != nil {
			return nil, perr
		}
		f := repo.EventFilters{Type: input.Type, Before: before, Limit: limit + 1}
		if input.CaseID != 0 {
			id := input.CaseID
			f.CaseID = &id
		}
		items, err := e.EventLog(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerReceipts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-receipt-event",
		Method:      http.MethodGet,
		Path:        "/receipts/{receipt_id}",
		Summary:     "Resolve a receipt to the event it acknowledged",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ReceiptID string `path:"receipt_id"`
	}) (*struct {
		Body EventResponse `json:"body"`
	}, error) {
		evt, err := e.EventForReceipt(ctx, input.ReceiptID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EventResponse `json:"body"`
		}{Body: eventResponse(evt)}, nil
	})
}

func normalizeLimit(in int) int {
	switch {
	case in <= 0:
		return 50
	case in > 200:
		return 200
	default:
		return in
	}
}

func parseCursor(cursor string) (int64, huma.StatusError) {
	if cursor == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || v < 0 {
		return 0, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid cursor %q", cursor), map[string]any{"cursor": cursor})
	}
	return v, nil
}

func registerIntake(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "extract-intake",
		Method:      http.MethodPost,
		Path:        "/intake/extract",
		Summary:     "Read the registration number and parties from a filing's text",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body IntakeRequest `json:"body"`
	}) (*struct {
		Body intake.Result `json:"body"`
	}, error) {
		if err := requireBody(ctx); err != nil {
			return nil, err
		}
		if _, authErr := callerFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body intake.Result `json:"body"`
		}{Body: intake.Extract(input.Body.Text)}, nil
	})
}
