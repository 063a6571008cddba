package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"sengketa/internal/app"
	"sengketa/internal/config"
	"sengketa/internal/domain"
	"sengketa/internal/repo"
)

const testSecret = "test-secret"

var (
	fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pdf      = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
)

type testServer struct {
	URL    string
	App    *app.App
	client *http.Client
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default("admin")
	cfg.Roles.Convener = []string{"pantera"}
	cfg.Roles.Adjudicator = []string{"majelis"}
	cfg.Documents.Driver = "memory"
	reg := prometheus.NewRegistry()
	a, err := app.Open(context.Background(), app.Options{
		Workspace:  t.TempDir(),
		Config:     cfg,
		Registerer: reg,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)

	scfg := FromApp(a)
	scfg.Auth.JWTSecret = testSecret
	scfg.Auth.AllowCallerHeader = true
	scfg.Gatherer = reg
	handler, err := New(scfg)
	require.NoError(t, err)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
		a.Close()
	})
	return &testServer{URL: "http://" + ln.Addr().String(), App: a, client: &http.Client{}}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := s.client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func as(identity string) map[string]string {
	return map[string]string{"X-Caller-Id": identity}
}

func decodeReceipt(t *testing.T, data []byte) ReceiptResponse {
	t.Helper()
	var rec ReceiptResponse
	require.NoError(t, json.Unmarshal(data, &rec), string(data))
	return rec
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env.Error
}

func hearingAt(d time.Duration) string {
	return fixedNow.Add(d).Format(time.RFC3339)
}

func TestLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	res, data := srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 10, Petitioner: "Pemohon", Respondent: "Termohon"}, as("warga"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	rec := decodeReceipt(t, data)
	assert.Equal(t, "received", rec.Status)
	assert.Equal(t, "warga", rec.Caller)
	assert.NotEmpty(t, rec.ID)

	res, data = srv.do(t, http.MethodPost, "/v0/cases/10/validate", ValidateCaseRequest{AgencyCount: 2, Agencies: []string{"DINKES", "DISHUB"}}, as("admin"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "validated", decodeReceipt(t, data).Status)

	res, data = srv.do(t, http.MethodPost, "/v0/cases/10/hearings", ScheduleHearingRequest{ScheduleID: 1, Agenda: "pemeriksaan", At: hearingAt(48 * time.Hour), Venue: "ruang 1"}, as("pantera"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	rec = decodeReceipt(t, data)
	assert.Equal(t, "in_session", rec.Status)
	require.NotNil(t, rec.ScheduleID)
	assert.Equal(t, int64(1), *rec.ScheduleID)

	res, data = srv.do(t, http.MethodPut, "/v0/cases/10/hearings", UpdateHearingRequest{ScheduleID: 2, Kind: 2, Agenda: "pembacaan", At: "1704326400", Venue: "ruang 2"}, as("pantera"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = srv.do(t, http.MethodGet, "/v0/cases/10/hearings", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var hearings []domain.Hearing
	require.NoError(t, json.Unmarshal(data, &hearings))
	require.Len(t, hearings, 2)
	assert.Equal(t, domain.HearingDecisionReading, hearings[1].Kind)

	res, data = srv.do(t, http.MethodPost, "/v0/cases/10/hearings/2/decision", DecisionRequest{Status: 1}, as("majelis"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = srv.do(t, http.MethodPost, "/v0/cases/10/hearings/2/decision/final", DecisionRequest{
		Status:         3,
		PublicationRef: "JDIH-10",
		Document:       &DocumentUpload{Name: "putusan.pdf", Content: pdf},
	}, as("majelis"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "decided", decodeReceipt(t, data).Status)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/10/hearings/2/publication", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var pub PublicationResponse
	require.NoError(t, json.Unmarshal(data, &pub))
	assert.Equal(t, "JDIH-10", pub.PublicationRef)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/10/hearings/2/document", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var link DocumentLinkResponse
	require.NoError(t, json.Unmarshal(data, &link))
	require.NotEmpty(t, link.DocumentRef)

	res, data = srv.do(t, http.MethodGet, "/v0/documents/"+link.DocumentRef, nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, pdf, data)
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "putusan.pdf")

	res, data = srv.do(t, http.MethodGet, "/v0/cases/10/parties", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var parties domain.Parties
	require.NoError(t, json.Unmarshal(data, &parties))
	assert.Equal(t, "Pemohon", parties.Petitioner)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/10/agencies", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var agencies domain.Agencies
	require.NoError(t, json.Unmarshal(data, &agencies))
	assert.Equal(t, []string{"DINKES", "DISHUB"}, agencies.Codes)

	res, data = srv.do(t, http.MethodGet, "/v0/events?case_id=10&limit=3", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var page paginatedEvents
	require.NoError(t, json.Unmarshal(data, &page))
	require.Len(t, page.Items, 3)
	assert.Equal(t, "decision.finalized", page.Items[0].Type)
	assert.NotEmpty(t, page.NextCursor)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	srv := newTestServer(t)
	_, data := srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 20, Petitioner: "A", Respondent: "B"}, as("warga"))
	decodeReceipt(t, data)

	res, data := srv.do(t, http.MethodPost, "/v0/cases/20/validate", ValidateCaseRequest{AgencyCount: 1, Agencies: []string{"X"}}, as("pantera"))
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	body := decodeError(t, data)
	assert.Equal(t, "Unauthorized", body.Code)
	assert.Equal(t, "admin", body.Details["expected"])

	res, data = srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 20, Petitioner: "A", Respondent: "B"}, as("warga"))
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "CaseAlreadyExists", decodeError(t, data).Code)

	res, data = srv.do(t, http.MethodPost, "/v0/cases/20/validate", ValidateCaseRequest{AgencyCount: 3, Agencies: []string{"X"}}, as("admin"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "AgencyListInvalid", decodeError(t, data).Code)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/404/parties", nil, as("warga"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "NotFound", decodeError(t, data).Code)

	res, data = srv.do(t, http.MethodPost, "/v0/cases/20/hearings", ScheduleHearingRequest{ScheduleID: 1, Agenda: "a", At: "next week", Venue: "v"}, as("pantera"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "InvalidArgument", decodeError(t, data).Code)

	res, _ = srv.do(t, http.MethodGet, "/v0/cases?status=archived", nil, as("warga"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCancelWithInlineDocument(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 30, Petitioner: "A", Respondent: "B"}, as("warga"))

	res, data := srv.do(t, http.MethodPost, "/v0/cases/30/cancel", DispositionRequest{Document: &DocumentUpload{Name: "batal.pdf", Content: pdf}}, as("admin"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "cancelled", decodeReceipt(t, data).Status)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/30/disposition/document", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var link DocumentLinkResponse
	require.NoError(t, json.Unmarshal(data, &link))

	res, data = srv.do(t, http.MethodGet, "/v0/documents/"+link.DocumentRef+"/metadata", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var meta DocumentMetadataResponse
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "batal", meta.Name)
	assert.Equal(t, ".pdf", meta.Extension)

	res, data = srv.do(t, http.MethodPost, "/v0/cases/30/withdraw", DispositionRequest{}, as("admin"))
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "WithdrawNotEligible", decodeError(t, data).Code)
}

func TestDocumentUploadRejectsNonPDF(t *testing.T) {
	srv := newTestServer(t)
	res, data := srv.do(t, http.MethodPost, "/v0/documents", DocumentUpload{Name: "x.txt", Content: []byte("hello")}, as("warga"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))

	res, data = srv.do(t, http.MethodPost, "/v0/documents", DocumentUpload{Name: "x.pdf", Content: pdf}, as("warga"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var ref DocumentRefResponse
	require.NoError(t, json.Unmarshal(data, &ref))
	assert.True(t, strings.HasPrefix(ref.Ref, "sha256:"))

	res, _ = srv.do(t, http.MethodGet, "/v0/documents/sha256:"+strings.Repeat("0", 64), nil, as("warga"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestLedgerRoutes(t *testing.T) {
	srv := newTestServer(t)
	res, data := srv.do(t, http.MethodPost, "/v0/ledger/submit", LedgerRequest{Operation: "menerimaSengketa", Args: []string{"40", "A", "B"}}, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "menerimaSengketa", decodeReceipt(t, data).Operation)

	res, data = srv.do(t, http.MethodPost, "/v0/ledger/query", LedgerRequest{Operation: "getPemohonTermohon", Args: []string{"40"}}, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var out struct {
		Result domain.Parties `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "B", out.Result.Respondent)

	res, data = srv.do(t, http.MethodPost, "/v0/ledger/submit", LedgerRequest{Operation: "hapusSengketa", Args: []string{"40"}}, as("admin"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "UnknownOperation", decodeError(t, data).Code)
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t)

	res, _ := srv.do(t, http.MethodGet, "/v0/health", nil, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, data := srv.do(t, http.MethodGet, "/v0/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Positive(t, health.SchemaVersion)

	res, _ = srv.do(t, http.MethodGet, "/v0/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = srv.do(t, http.MethodGet, "/v0/me", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	token, err := SignToken(testSecret, "majelis", time.Hour)
	require.NoError(t, err)
	res, data = srv.do(t, http.MethodGet, "/v0/me", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var who WhoAmIResponse
	require.NoError(t, json.Unmarshal(data, &who))
	assert.Equal(t, WhoAmIResponse{Identity: "majelis", Role: "adjudicator", Source: "jwt"}, who)

	ctx := context.Background()
	require.NoError(t, srv.App.Repo.InsertAPIKey(ctx, nil, domain.APIKey{
		ID: "k1", Identity: "admin", KeyHash: repo.HashAPIKey("secret-key"),
	}))
	res, data = srv.do(t, http.MethodGet, "/v0/me", nil, map[string]string{"X-Api-Key": "secret-key"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	require.NoError(t, json.Unmarshal(data, &who))
	assert.Equal(t, "admin", who.Identity)
	assert.Equal(t, "api_key", who.Source)

	res, _ = srv.do(t, http.MethodGet, "/v0/me", nil, map[string]string{"X-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAnonymousReads(t *testing.T) {
	srv := newTestServer(t)
	res, data := srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 45, Petitioner: "Pemohon", Respondent: "Termohon"}, as("warga"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	res, data = srv.do(t, http.MethodGet, "/v0/cases/45/parties", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var parties domain.Parties
	require.NoError(t, json.Unmarshal(data, &parties))
	assert.Equal(t, "Pemohon", parties.Petitioner)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/45", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = srv.do(t, http.MethodPost, "/v0/ledger/query", LedgerRequest{Operation: "getPemohonTermohon", Args: []string{"45"}}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, _ = srv.do(t, http.MethodGet, "/v0/cases/46/parties", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 46, Petitioner: "A", Respondent: "B"}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res, _ = srv.do(t, http.MethodPost, "/v0/ledger/submit", LedgerRequest{Operation: "menerimaSengketa", Args: []string{"46", "A", "B"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res, _ = srv.do(t, http.MethodGet, "/v0/cases/45/parties", nil, map[string]string{"X-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "bad credentials are still rejected on reads")
}

func TestIntakeExtractFeedsReceive(t *testing.T) {
	srv := newTestServer(t)
	text := "Nomor: 012/V/KIP-PS-A/2023\nNama Pemohon: Budi Santoso\nNama Termohon: Dinas Kesehatan Kota Bandung"
	res, data := srv.do(t, http.MethodPost, "/v0/intake/extract", IntakeRequest{Text: text}, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var got struct {
		Number     string `json:"number"`
		Petitioner string `json:"petitioner"`
		Respondent string `json:"respondent"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "012/V/KIP-PS-A/2023", got.Number)

	res, data = srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 47, Petitioner: got.Petitioner, Respondent: got.Respondent}, as("warga"))
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	res, data = srv.do(t, http.MethodGet, "/v0/cases/47/parties", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var parties domain.Parties
	require.NoError(t, json.Unmarshal(data, &parties))
	assert.Equal(t, domain.Parties{CaseID: 47, Petitioner: "Budi Santoso", Respondent: "Dinas Kesehatan Kota Bandung"}, parties)

	res, _ = srv.do(t, http.MethodPost, "/v0/intake/extract", IntakeRequest{Text: text}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	res, _ = srv.do(t, http.MethodPost, "/v0/intake/extract", IntakeRequest{}, as("warga"))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCheckWebhookEvents(t *testing.T) {
	require.NoError(t, CheckWebhookEvents([]config.WebhookConfig{{URL: "http://h", Events: []string{"case.validated", "decision.finalized"}}}))
	require.NoError(t, CheckWebhookEvents([]config.WebhookConfig{{URL: "http://h"}}))
	err := CheckWebhookEvents([]config.WebhookConfig{{Name: "jdih", URL: "http://h", Events: []string{"case.closed"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case.closed")
}

func TestOpenAPIServedConcurrently(t *testing.T) {
	srv := newTestServer(t)
	bodies := make([][]byte, 8)
	var g errgroup.Group
	for i := range bodies {
		g.Go(func() error {
			res, err := srv.client.Get(srv.URL + "/v0/openapi.json")
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d", res.StatusCode)
			}
			bodies[i], err = io.ReadAll(res.Body)
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
	var doc struct {
		Paths map[string]map[string]struct {
			Security []map[string][]string `json:"security"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(bodies[0], &doc))
	assert.Empty(t, doc.Paths["/v0/cases/{case_id}/parties"]["get"].Security)
	assert.Empty(t, doc.Paths["/v0/ledger/query"]["post"].Security)
	assert.NotEmpty(t, doc.Paths["/v0/cases"]["post"].Security)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 50, Petitioner: "A", Respondent: "B"}, as("warga"))
	res, data := srv.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), `sengketa_transitions_total{operation="menerimaSengketa",outcome="accepted"} 1`)
}

func TestWebhookDelivery(t *testing.T) {
	srv := newTestServer(t)
	var (
		mu       sync.Mutex
		received []webhookEvent
		sigs     []string
		bodies   [][]byte
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var evt webhookEvent
		_ = json.Unmarshal(body, &evt)
		mu.Lock()
		received = append(received, evt)
		sigs = append(sigs, r.Header.Get("X-Sengketa-Signature"))
		bodies = append(bodies, body)
		mu.Unlock()
	}))
	defer hook.Close()

	d := NewWebhookDispatcher(srv.App.Repo, []config.WebhookConfig{{
		Name:   "audit",
		URL:    hook.URL,
		Events: []string{"case.validated"},
		Secret: "s3cret",
	}}, nil, srv.App.Metrics)
	ctx := context.Background()
	d.DispatchOnce(ctx)

	srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 60, Petitioner: "A", Respondent: "B"}, as("warga"))
	srv.do(t, http.MethodPost, "/v0/cases/60/validate", ValidateCaseRequest{AgencyCount: 1, Agencies: []string{"X"}}, as("admin"))
	d.DispatchOnce(ctx)
	d.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "case.validated", received[0].Type)
	require.NotNil(t, received[0].CaseID)
	assert.Equal(t, int64(60), *received[0].CaseID)
	assert.Equal(t, Sign("s3cret", bodies[0]), sigs[0])
}

func TestReceiptAndDecisionListing(t *testing.T) {
	srv := newTestServer(t)
	_, data := srv.do(t, http.MethodPost, "/v0/cases", ReceiveCaseRequest{ID: 70, Petitioner: "A", Respondent: "B"}, as("warga"))
	rec := decodeReceipt(t, data)

	res, data := srv.do(t, http.MethodGet, "/v0/receipts/"+rec.ID, nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var evt EventResponse
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, rec.EventID, evt.ID)
	assert.Equal(t, "case.received", evt.Type)

	res, _ = srv.do(t, http.MethodGet, "/v0/receipts/nope", nil, as("warga"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, data = srv.do(t, http.MethodGet, "/v0/cases/70/decisions", nil, as("warga"))
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.JSONEq(t, "[]", string(data))

	res, _ = srv.do(t, http.MethodGet, "/v0/cases/71/decisions", nil, as("warga"))
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
