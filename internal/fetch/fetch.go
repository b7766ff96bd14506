package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"quoteflow/internal/domain"
)

// DefaultMaxBytes is the download ceiling used when none is configured.
const DefaultMaxBytes int64 = 20 << 20

// HTTPStatusError is returned when the document source answers with a non-2xx status.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Downloader retrieves source documents over HTTP with a size ceiling.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

// NewDownloader creates a Downloader. A zero timeout means no client timeout;
// a non-positive maxBytes falls back to DefaultMaxBytes.
func NewDownloader(timeout time.Duration, maxBytes int64) *Downloader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Downloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// MaxBytes returns the configured ceiling.
func (d *Downloader) MaxBytes() int64 {
	return d.maxBytes
}

// Fetch downloads url fully into memory. Bodies larger than the ceiling fail
// with domain.ErrDocumentTooLarge.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := d.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, d.maxBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s: read body", url)
	}
	if int64(len(data)) > d.maxBytes {
		return nil, eris.Wrapf(domain.ErrDocumentTooLarge, "fetch %s: limit %d bytes", url, d.maxBytes)
	}
	return data, nil
}

// FetchToTemp streams url into a temporary file. The returned cleanup removes
// the file and must be called on every path once err is nil.
func (d *Downloader) FetchToTemp(ctx context.Context, url, pattern string) (string, func(), error) {
	body, err := d.open(ctx, url)
	if err != nil {
		return "", nil, err
	}
	defer body.Close()

	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, eris.Wrap(err, "fetch: create temp file")
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	n, copyErr := io.Copy(f, io.LimitReader(body, d.maxBytes+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		cleanup()
		return "", nil, eris.Wrapf(copyErr, "fetch %s: write temp file", url)
	case closeErr != nil:
		cleanup()
		return "", nil, eris.Wrap(closeErr, "fetch: close temp file")
	case n > d.maxBytes:
		cleanup()
		return "", nil, eris.Wrapf(domain.ErrDocumentTooLarge, "fetch %s: limit %d bytes", url, d.maxBytes)
	}
	return path, cleanup, nil
}

func (d *Downloader) open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s: build request", url)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch %s", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}
	if resp.ContentLength > d.maxBytes {
		_ = resp.Body.Close()
		return nil, eris.Wrapf(domain.ErrDocumentTooLarge, "fetch %s: content-length %d exceeds %d bytes", url, resp.ContentLength, d.maxBytes)
	}
	return resp.Body, nil
}
