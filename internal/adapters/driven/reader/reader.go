// Package reader fetches document bytes from local files and http(s) URLs.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultTimeout bounds a single remote fetch.
const DefaultTimeout = 60 * time.Second

// Ensure Reader implements the interface.
var _ driven.DocumentReader = (*Reader)(nil)

// Reader reads document sources. Remote sources are fetched with GET.
type Reader struct {
	client  *http.Client
	maxSize int64
}

// Option configures a Reader.
type Option func(*Reader)

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reader) {
		r.client = c
	}
}

// WithMaxSize overrides domain.MaxDocumentSize.
func WithMaxSize(n int64) Option {
	return func(r *Reader) {
		r.maxSize = n
	}
}

// New creates a reader.
func New(opts ...Option) *Reader {
	r := &Reader{
		client:  &http.Client{Timeout: DefaultTimeout},
		maxSize: domain.MaxDocumentSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read returns the raw bytes of src with the MIME type of its document type.
func (r *Reader) Read(ctx context.Context, src domain.DocumentSource) (*domain.RawDocument, error) {
	if src.Path == "" {
		return nil, fmt.Errorf("%w: empty document path", domain.ErrInvalidInput)
	}
	docType := src.ResolvedType()
	if !docType.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, src.Path)
	}

	var (
		content []byte
		err     error
	)
	if src.IsRemote() {
		content, err = r.fetch(ctx, src.Path)
	} else {
		content, err = r.readFile(src.Path)
	}
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"type": string(docType)}
	if src.Name != "" {
		metadata["title"] = src.Name
	}
	if src.Description != "" {
		metadata["description"] = src.Description
	}

	return &domain.RawDocument{
		URI:      src.Path,
		MIMEType: docType.MIMEType(),
		Content:  content,
		Metadata: metadata,
	}, nil
}

func (r *Reader) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > r.maxSize {
		return nil, r.tooLarge(path, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return r.readLimited(path, f)
}

func (r *Reader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrExternalService, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: fetch %s: status %d", domain.ErrExternalService, url, resp.StatusCode)
	case resp.ContentLength > r.maxSize:
		return nil, r.tooLarge(url, resp.ContentLength)
	}
	return r.readLimited(url, resp.Body)
}

// readLimited reads at most maxSize bytes, failing if there is more.
func (r *Reader) readLimited(name string, rd io.Reader) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(rd, r.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(content)) > r.maxSize {
		return nil, r.tooLarge(name, int64(len(content)))
	}
	return content, nil
}

func (r *Reader) tooLarge(name string, size int64) error {
	return fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrInvalidInput, name, size, r.maxSize)
}
