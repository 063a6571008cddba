// Package docstore keeps case documents in a content-addressed blob store.
// Every stored file is paired with a metadata record; the digest of that
// record is the reference handed to the lifecycle engine.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opencontainers/go-digest"

	"sengketa/internal/blob/core"
	"sengketa/internal/metrics"
)

var (
	// ErrNotFound reports a reference that resolves to nothing.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidReference reports a reference that is not a digest.
	ErrInvalidReference = errors.New("invalid document reference")
	// ErrUnsupportedType reports content outside the allowed MIME types.
	ErrUnsupportedType = errors.New("unsupported document type")
	// ErrEmpty reports an upload with no content.
	ErrEmpty = errors.New("empty document")
)

const metadataContentType = "application/json"

// Metadata is the record stored alongside each file.
type Metadata struct {
	Name      string `json:"name"`
	MimeType  string `json:"mimetype"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	FileHash  string `json:"file_hash"`
}

// Document is a retrieved file with its metadata.
type Document struct {
	Ref string `json:"ref"`
	Metadata
	Data []byte `json:"-"`
}

// Filename rebuilds the original upload name.
func (d Document) Filename() string {
	return d.Name + d.Extension
}

// Service stores and resolves documents.
type Service struct {
	Store   core.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// AllowedTypes restricts detected MIME types; empty allows anything.
	AllowedTypes []string
}

func (s Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Put stores data under its digest and returns the metadata reference.
// Storing identical content twice yields the same reference.
func (s Service) Put(ctx context.Context, data []byte, originalName string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	mt := mimetype.Detect(data)
	if !s.allowed(mt) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}
	fileDigest := digest.FromBytes(data)
	if err := s.putBlob(ctx, blobKey(fileDigest), data, mt.String()); err != nil {
		return "", err
	}

	var base string
	if n := strings.TrimSpace(originalName); n != "" {
		base = filepath.Base(n)
	}
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if ext == "" || ext == "." {
		ext = mt.Extension()
	}
	if name == "" || name == "." {
		name = fileDigest.Encoded()[:12]
	}
	meta := Metadata{
		Name:      name,
		MimeType:  mt.String(),
		Size:      int64(len(data)),
		Extension: ext,
		FileHash:  fileDigest.String(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	metaDigest := digest.FromBytes(raw)
	if err := s.putBlob(ctx, blobKey(metaDigest), raw, metadataContentType); err != nil {
		return "", err
	}
	s.Metrics.ObserveDocumentStored(string(s.Store.Driver()), int64(len(data)))
	s.logger().Info("document stored", "ref", metaDigest.String(), "mimetype", meta.MimeType, "size", meta.Size)
	return metaDigest.String(), nil
}

func (s Service) allowed(mt *mimetype.MIME) bool {
	if len(s.AllowedTypes) == 0 {
		return true
	}
	for _, t := range s.AllowedTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

func (s Service) putBlob(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.Store.Put(ctx, key, bytes.NewReader(data), core.PutOptions{ContentType: contentType})
	if err != nil && !errors.Is(err, core.ErrExists) {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Stat resolves a reference to its metadata without reading the file.
func (s Service) Stat(ctx context.Context, ref string) (Metadata, error) {
	d, err := digest.Parse(strings.TrimSpace(ref))
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	raw, err := s.readBlob(ctx, d)
	if err != nil {
		return Metadata{}, err
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s is not a document reference", ErrInvalidReference, ref)
	}
	if meta.FileHash == "" {
		return Metadata{}, fmt.Errorf("%w: %s is not a document reference", ErrInvalidReference, ref)
	}
	return meta, nil
}

// Get resolves a reference and returns the file with its metadata.
func (s Service) Get(ctx context.Context, ref string) (Document, error) {
	meta, err := s.Stat(ctx, ref)
	if err != nil {
		return Document{}, err
	}
	fd, err := digest.Parse(meta.FileHash)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	data, err := s.readBlob(ctx, fd)
	if err != nil {
		return Document{}, err
	}
	return Document{Ref: strings.TrimSpace(ref), Metadata: meta, Data: data}, nil
}

func (s Service) readBlob(ctx context.Context, d digest.Digest) ([]byte, error) {
	_, rc, err := s.Store.Get(ctx, blobKey(d))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, d)
		}
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if d.Algorithm().Available() && d.Algorithm().FromBytes(data) != d {
		return nil, fmt.Errorf("blob %s failed digest verification", d)
	}
	return data, nil
}

// blobKey lays digests out as <alg>/<first two>/<encoded>.
func blobKey(d digest.Digest) string {
	enc := d.Encoded()
	return fmt.Sprintf("%s/%s/%s", d.Algorithm(), enc[:2], enc)
}
