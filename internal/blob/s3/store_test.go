package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sengketa/internal/blob/core"
)

// fakeS3 serves the Head/Get/Put subset of a path-style bucket from memory.
type fakeS3 struct {
	mu    sync.Mutex
	state map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	empty := func(code int) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}, Request: req}
	}
	switch req.Method {
	case http.MethodHead:
		st, ok := f.state[key]
		if !ok {
			return empty(http.StatusNotFound), nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Request: req, Header: http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(st.body))},
			"Content-Type":   {st.contentType},
			"Etag":           {"\"etag123\""},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}}, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.state[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		resp := empty(http.StatusOK)
		resp.Header.Set("ETag", "\"etag123\"")
		return resp, nil
	case http.MethodGet:
		st, ok := f.state[key]
		if !ok {
			return empty(http.StatusNotFound), nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(st.body)), Request: req, Header: http.Header{
			"Content-Length": {fmt.Sprintf("%d", len(st.body))},
			"Content-Type":   {st.contentType},
			"Etag":           {"\"etag123\""},
			"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
		}}, nil
	}
	return empty(http.StatusNotImplemented), nil
}

// decodeChunked unwraps a single-chunk aws-chunked body.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	sizeHex, _, _ := strings.Cut(parts[0], ";")
	n, err := strconv.ParseInt(sizeHex, 16, 64)
	if err != nil || n <= 0 || int64(len(parts[1])) != n {
		return nil, false
	}
	if zero, _, _ := strings.Cut(parts[2], ";"); zero != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeStore(t *testing.T) (*Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{state: make(map[string]fakeObject)}
	s, err := New(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "documents",
		Prefix:          "sengketa",
		Endpoint:        "https://mock.s3.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		HTTPClient:      &http.Client{Transport: fake},
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3PutGetHead(t *testing.T) {
	s, fake := newFakeStore(t)
	ctx := context.Background()

	info, err := s.Put(ctx, "sha256/ab/abc", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "etag123", info.ETag)
	assert.Contains(t, fake.state, "sengketa/sha256/ab/abc")

	head, err := s.Head(ctx, "sha256/ab/abc")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", head.ContentType)

	_, rc, err := s.Get(ctx, "sha256/ab/abc")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = s.Put(ctx, "sha256/ab/abc", bytes.NewReader([]byte("again")), core.PutOptions{})
	assert.ErrorIs(t, err, core.ErrExists)
}

func TestS3MissingKeys(t *testing.T) {
	s, _ := newFakeStore(t)
	_, err := s.Head(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestS3RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	assert.Error(t, err)
}
