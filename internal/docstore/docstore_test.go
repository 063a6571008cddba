package docstore

import (
	"context"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sengketa/internal/blob/memory"
	"sengketa/internal/config"
	"sengketa/internal/metrics"
)

var pdf = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

func TestPutGetRoundTrip(t *testing.T) {
	svc := Service{Store: memory.New(), Metrics: metrics.New(nil)}
	ctx := context.Background()

	ref, err := svc.Put(ctx, pdf, "putusan-10.pdf")
	require.NoError(t, err)
	_, err = digest.Parse(ref)
	require.NoError(t, err)

	doc, err := svc.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, pdf, doc.Data)
	assert.Equal(t, "putusan-10", doc.Name)
	assert.Equal(t, ".pdf", doc.Extension)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, int64(len(pdf)), doc.Size)
	assert.Equal(t, digest.FromBytes(pdf).String(), doc.FileHash)
	assert.Equal(t, "putusan-10.pdf", doc.Filename())
}

func TestPutIsIdempotent(t *testing.T) {
	store := memory.New()
	svc := Service{Store: store}
	first, err := svc.Put(context.Background(), pdf, "a.pdf")
	require.NoError(t, err)
	second, err := svc.Put(context.Background(), pdf, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, store.Len())
}

func TestAllowedTypes(t *testing.T) {
	svc := Service{Store: memory.New(), AllowedTypes: []string{"application/pdf"}}
	_, err := svc.Put(context.Background(), []byte("plain text body"), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.Put(context.Background(), pdf, "ok.pdf")
	assert.NoError(t, err)
}

func TestEmptyUploadRejected(t *testing.T) {
	_, err := Service{Store: memory.New()}.Put(context.Background(), nil, "x.pdf")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestGetUnknownReference(t *testing.T) {
	svc := Service{Store: memory.New()}
	_, err := svc.Get(context.Background(), digest.FromString("missing").String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(context.Background(), "not-a-digest")
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = svc.Stat(context.Background(), digest.FromString("missing").String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileDigestIsNotAReference(t *testing.T) {
	svc := Service{Store: memory.New()}
	_, err := svc.Put(context.Background(), pdf, "a.pdf")
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), digest.FromBytes(pdf).String())
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestNameFallsBackToDigest(t *testing.T) {
	svc := Service{Store: memory.New()}
	ref, err := svc.Put(context.Background(), pdf, "")
	require.NoError(t, err)
	meta, err := svc.Stat(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest.FromBytes(pdf).Encoded(), meta.Name))
	assert.Equal(t, ".pdf", meta.Extension)
}

func TestOpenStoreDrivers(t *testing.T) {
	dir := t.TempDir()
	svc, err := Open(context.Background(), config.DocumentsConfig{Driver: "fs"}, dir, nil, nil)
	require.NoError(t, err)
	ref, err := svc.Put(context.Background(), pdf, "fs.pdf")
	require.NoError(t, err)
	doc, err := svc.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, pdf, doc.Data)

	_, err = OpenStore(context.Background(), config.DocumentsConfig{Driver: "ipfs"}, dir)
	assert.Error(t, err)
}
