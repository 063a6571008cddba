package memory

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sengketa/internal/blob/core"
)

func TestPutGetHead(t *testing.T) {
	s := New()
	ctx := context.Background()
	info, err := s.Put(ctx, "a/b", strings.NewReader("hello"), core.PutOptions{ContentType: "text/plain", Metadata: map[string]string{"k": "v"}})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	got, rc, err := s.Get(ctx, "a/b")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "text/plain", got.ContentType)

	got.Metadata["k"] = "changed"
	head, err := s.Head(ctx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "v", head.Metadata["k"])
	assert.Equal(t, core.DriverMemory, s.Driver())
}

func TestPutIsWriteOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Put(ctx, "k", strings.NewReader("1"), core.PutOptions{})
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", strings.NewReader("2"), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
	assert.Equal(t, 1, s.Len())
}

func TestMissingKey(t *testing.T) {
	s := New()
	_, _, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.Head(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
