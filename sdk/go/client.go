// Package sengketasdk is a small HTTP client for the Sengketa API. Client
// satisfies ledger.Transport, so tools written against the positional
// operation interface run unchanged against a remote server.
package sengketasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sengketa/internal/domain"
	"sengketa/internal/engine"
	"sengketa/internal/ledger"
)

// Client is a minimal Sengketa HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	// Caller is sent as X-Caller-Id when no credential is set and the
	// request does not name its own caller.
	Caller     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

var _ ledger.Transport = (*Client)(nil)

// New creates a client with sane defaults. baseURL includes the API base
// path, e.g. http://127.0.0.1:8080/v0.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses that carry no lifecycle error.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Upload carries document content inline.
type Upload struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor"`
}

type eventItem struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	CaseID     *int64         `json:"case_id,omitempty"`
	ScheduleID *int64         `json:"schedule_id,omitempty"`
	Caller     string         `json:"caller"`
	ReceiptID  string         `json:"receipt_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Submit runs a lifecycle operation through the positional ledger route.
func (c *Client) Submit(ctx context.Context, caller string, op string, args []string) (domain.Receipt, error) {
	var resp domain.Receipt
	err := c.do(ctx, caller, http.MethodPost, "ledger/submit", map[string]any{"operation": op, "args": nonNil(args)}, &resp)
	return resp, err
}

// Query evaluates a read query by name. The result is the decoded JSON value.
func (c *Client) Query(ctx context.Context, op string, args []string) (any, error) {
	var resp struct {
		Result any `json:"result"`
	}
	err := c.do(ctx, "", http.MethodPost, "ledger/query", map[string]any{"operation": op, "args": nonNil(args)}, &resp)
	return resp.Result, err
}

// ReceiveCase registers a new dispute.
func (c *Client) ReceiveCase(ctx context.Context, caseID int64, petitioner, respondent string) (domain.Receipt, error) {
	var resp domain.Receipt
	err := c.do(ctx, "", http.MethodPost, "cases", map[string]any{
		"id": caseID, "petitioner": petitioner, "respondent": respondent,
	}, &resp)
	return resp, err
}

// ValidateCase records the agencies involved in a case.
func (c *Client) ValidateCase(ctx context.Context, caseID int64, agencies []string) (domain.Receipt, error) {
	var resp domain.Receipt
	err := c.do(ctx, "", http.MethodPost, casePath(caseID, "validate"), map[string]any{
		"agency_count": len(agencies), "agencies": nonNil(agencies),
	}, &resp)
	return resp, err
}

// ScheduleHearing schedules the preliminary hearing of a validated case.
func (c *Client) ScheduleHearing(ctx context.Context, caseID, scheduleID int64, agenda string, at time.Time, venue string) (domain.Receipt, error) {
	var resp domain.Receipt
	err := c.do(ctx, "", http.MethodPost, casePath(caseID, "hearings"), map[string]any{
		"schedule_id": scheduleID, "agenda": agenda, "at": at.UTC().Format(time.RFC3339), "venue": venue,
	}, &resp)
	return resp, err
}

// UpdateHearing adds a follow-up or decision-reading hearing.
func (c *Client) UpdateHearing(ctx context.Context, caseID, scheduleID int64, kind domain.HearingKind, agenda string, at time.Time, venue string) (domain.Receipt, error) {
	var resp domain.Receipt
	err := c.do(ctx, "", http.MethodPut, casePath(caseID, "hearings"), map[string]any{
		"schedule_id": scheduleID, "kind": int(kind), "agenda": agenda, "at": at.UTC().Format(time.RFC3339), "venue": venue,
	}, &resp)
	return resp, err
}

// Decide records (final=false) or finalizes a decision. doc may be nil when
// documentRef names an already stored document.
func (c *Client) Decide(ctx context.Context, caseID, scheduleID int64, status domain.DecisionStatus, documentRef, publicationRef string, doc *Upload, final bool) (domain.Receipt, error) {
	p := casePath(caseID, "hearings/"+strconv.FormatInt(scheduleID, 10)+"/decision")
	if final {
		p += "/final"
	}
	body := map[string]any{"status": int(status)}
	if documentRef != "" {
		body["document_ref"] = documentRef
	}
	if publicationRef != "" {
		body["publication_ref"] = publicationRef
	}
	if doc != nil {
		body["document"] = doc
	}
	var resp domain.Receipt
	err := c.do(ctx, "", http.MethodPost, p, body, &resp)
	return resp, err
}

// Cancel closes a case before its first hearing.
func (c *Client) Cancel(ctx context.Context, caseID int64, documentRef string, doc *Upload) (domain.Receipt, error) {
	return c.dispose(ctx, caseID, "cancel", documentRef, doc)
}

// Withdraw closes an in-session case.
func (c *Client) Withdraw(ctx context.Context, caseID int64, documentRef string, doc *Upload) (domain.Receipt, error) {
	return c.dispose(ctx, caseID, "withdraw", documentRef, doc)
}

func (c *Client) dispose(ctx context.Context, caseID int64, action, documentRef string, doc *Upload) (domain.Receipt, error) {
	body := map[string]any{}
	if documentRef != "" {
		body["document_ref"] = documentRef
	}
	if doc != nil {
		body["document"] = doc
	}
	var resp domain.Receipt
	err := c.do(ctx, "", http.MethodPost, casePath(caseID, action), body, &resp)
	return resp, err
}

// Case fetches a case record.
func (c *Client) Case(ctx context.Context, caseID int64) (domain.Case, error) {
	var resp domain.Case
	err := c.do(ctx, "", http.MethodGet, casePath(caseID, ""), nil, &resp)
	return resp, err
}

// Hearings lists the hearings of a case in schedule order.
func (c *Client) Hearings(ctx context.Context, caseID int64) ([]domain.Hearing, error) {
	var resp []domain.Hearing
	err := c.do(ctx, "", http.MethodGet, casePath(caseID, "hearings"), nil, &resp)
	return resp, err
}

// PutDocument stores a document and returns its reference.
func (c *Client) PutDocument(ctx context.Context, doc Upload) (string, error) {
	var resp struct {
		Ref string `json:"ref"`
	}
	err := c.do(ctx, "", http.MethodPost, "documents", doc, &resp)
	return resp.Ref, err
}

// Document downloads the raw bytes of a stored document.
func (c *Client) Document(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, "", http.MethodGet, "documents/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, "", err
	}
	res, err := c.httpClient().Do(req)
	if err != nil {
		return nil, "", engine.Unavailable(engine.CodeLedger, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, "", engine.Unavailable(engine.CodeLedger, err)
	}
	if res.StatusCode >= 300 {
		return nil, "", decodeError(res.StatusCode, b)
	}
	return b, res.Header.Get("Content-Type"), nil
}

// EventsPage returns a paginated event listing, newest first.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp struct {
		Items      []eventItem `json:"items"`
		NextCursor string      `json:"next_cursor"`
	}
	if err := c.do(ctx, "", http.MethodGet, endpoint, nil, &resp); err != nil {
		return PaginatedEvents{}, err
	}
	out := PaginatedEvents{NextCursor: resp.NextCursor}
	for _, it := range resp.Items {
		payload, _ := json.Marshal(it.Payload)
		out.Items = append(out.Items, domain.Event{
			ID: it.ID, TS: it.TS, Type: it.Type, CaseID: it.CaseID, ScheduleID: it.ScheduleID,
			Caller: it.Caller, ReceiptID: it.ReceiptID, Payload: string(payload),
		})
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, caller, method, endpoint string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := c.newRequest(ctx, caller, method, endpoint, &buf)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return engine.Unavailable(engine.CodeLedger, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeError(resp.StatusCode, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, caller, method, endpoint string, body io.Reader) (*http.Request, error) {
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(target, "/"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	default:
		if caller == "" {
			caller = c.Caller
		}
		if caller != "" {
			req.Header.Set("X-Caller-Id", caller)
		}
	}
	return req, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	return c.HTTPClient
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

// decodeError rebuilds the server's TransitionError from the error envelope
// so errors.Is against the engine kind sentinels works across the wire.
func decodeError(status int, body []byte) error {
	var env struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		if kind, ok := env.Error.Details["kind"].(string); ok && kind != "" {
			return transitionError(engine.Kind(kind), engine.Code(env.Error.Code), env.Error.Details)
		}
	}
	if status >= 500 {
		return engine.Unavailable(engine.CodeLedger, apiErr)
	}
	return apiErr
}

func transitionError(kind engine.Kind, code engine.Code, d map[string]any) *engine.TransitionError {
	te := &engine.TransitionError{Kind: kind, Code: code}
	te.Operation, _ = d["operation"].(string)
	te.Identity, _ = d["identity"].(string)
	te.Expected, _ = d["expected"].(string)
	te.Actual, _ = d["actual"].(string)
	te.Detail, _ = d["detail"].(string)
	if v, ok := d["case_id"].(float64); ok {
		id := int64(v)
		te.CaseID = &id
	}
	if v, ok := d["schedule_id"].(float64); ok {
		id := int64(v)
		te.ScheduleID = &id
	}
	return te
}

func casePath(caseID int64, suffix string) string {
	p := "cases/" + strconv.FormatInt(caseID, 10)
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

func nonNil(args []string) []string {
	if args == nil {
		return []string{}
	}
	return args
}

// IsUnavailable reports whether err means the server could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, engine.ErrCollaboratorUnavailable)
}
