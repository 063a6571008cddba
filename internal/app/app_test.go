package app

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sengketa/internal/config"
	"sengketa/internal/domain"
	"sengketa/internal/engine"
)

var (
	fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pdf      = []byte("%PDF-1.4\n%%EOF\n")
)

func openTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default("admin")
	cfg.Roles.Convener = []string{"pantera"}
	cfg.Roles.Adjudicator = []string{"majelis"}
	cfg.Documents.Driver = "memory"
	a, err := Open(context.Background(), Options{Workspace: t.TempDir(), Config: cfg, Now: func() time.Time { return fixedNow }})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func inSession(t *testing.T, a *App, caseID int64) {
	t.Helper()
	ctx := context.Background()
	_, err := a.Engine.ReceiveCase(ctx, "anyone", caseID, "A", "B")
	require.NoError(t, err)
	_, err = a.Engine.ValidateCase(ctx, "admin", caseID, 1, []string{"DINKES"})
	require.NoError(t, err)
	_, err = a.Engine.ScheduleInitialHearing(ctx, "pantera", engine.HearingInput{
		CaseID: caseID, ScheduleID: 1, Agenda: "awal", At: fixedNow.Add(24 * time.Hour), Venue: "ruang 1",
	})
	require.NoError(t, err)
}

func TestOpenRequiresConfig(t *testing.T) {
	_, err := Open(context.Background(), Options{Workspace: t.TempDir()})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestInitWritesConfigAndSeedsAdmin(t *testing.T) {
	ws := t.TempDir()
	path, err := Init(context.Background(), ws, "root-admin", false)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = Init(context.Background(), ws, "root-admin", false)
	assert.Error(t, err)

	a, err := Open(context.Background(), Options{Workspace: ws})
	require.NoError(t, err)
	defer a.Close()
	role, err := a.Whoami(context.Background(), "root-admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestDecideStoresUploadFirst(t *testing.T) {
	a := openTestApp(t)
	ctx := context.Background()
	inSession(t, a, 10)

	rec, err := a.Service.Decide(ctx, "majelis", engine.DecisionInput{CaseID: 10, ScheduleID: 1, Status: 2, PublicationRef: "JDIH-10"},
		&Upload{Name: "putusan.pdf", Data: pdf}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDecided, rec.Status)

	ref, err := a.Engine.DecisionDocument(ctx, 10, 1)
	require.NoError(t, err)
	doc, err := a.Service.Document(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, pdf, doc.Data)
	assert.Equal(t, "putusan.pdf", doc.Filename())
}

func TestUnknownDocumentRefRejected(t *testing.T) {
	a := openTestApp(t)
	ctx := context.Background()
	_, err := a.Engine.ReceiveCase(ctx, "anyone", 20, "A", "B")
	require.NoError(t, err)

	_, err = a.Service.Cancel(ctx, "admin", 20, "sha256:0000000000000000000000000000000000000000000000000000000000000000", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrValidation)
	te, ok := engine.AsTransitionError(err)
	require.True(t, ok)
	assert.Equal(t, engine.CodeUnknownDocument, te.Code)
	assert.Equal(t, string(domain.OpCancelCase), te.Operation)

	c, err := a.Engine.Case(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReceived, c.Status)
}

func TestWithdrawWithStoredReference(t *testing.T) {
	a := openTestApp(t)
	ctx := context.Background()
	inSession(t, a, 30)
	ref, err := a.Service.StoreDocument(ctx, Upload{Name: "cabut.pdf", Data: pdf})
	require.NoError(t, err)

	rec, err := a.Service.Withdraw(ctx, "admin", 30, ref, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithdrawn, rec.Status)

	got, err := a.Engine.DispositionDocument(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestUnsupportedUploadIsValidationError(t *testing.T) {
	a := openTestApp(t)
	_, err := a.Service.StoreDocument(context.Background(), Upload{Name: "x.txt", Data: []byte("plain text")})
	assert.ErrorIs(t, err, engine.ErrValidation)
}
