package fs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sengketa/internal/blob/core"
)

func TestFilesystemRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	info, err := s.Put(ctx, "sha256/ab/abcdef", strings.NewReader("payload"), core.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.Len(t, info.ETag, 64)

	got, rc, err := s.Get(ctx, "sha256/ab/abcdef")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
	assert.Equal(t, "text/plain", got.ContentType)

	_, err = s.Put(ctx, "sha256/ab/abcdef", strings.NewReader("other"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "../x", "/etc/passwd"} {
		_, err := s.Put(context.Background(), key, strings.NewReader("x"), core.PutOptions{})
		assert.Error(t, err, key)
	}
}

func TestFilesystemMissing(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = s.Head(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
