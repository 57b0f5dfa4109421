// Package fetch performs the HTTP GET step of the pipeline (spec §4.1 step
// 4): redirect-bounded, timed, size-capped, with transparent decompression
// and a PDF handoff path.
package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/riptide-engine/riptide/internal/models"
)

// Config parameterizes the fetch client (spec §6: "redirect cap
// configurable, default 10").
type Config struct {
	Timeout         time.Duration
	MaxRedirects    int
	MaxBodyBytes    int64
	InsecureSkipTLS bool
	UserAgent       string
}

func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRedirects: 10,
		MaxBodyBytes: 20 * 1024 * 1024,
		UserAgent:    "riptide/1.0 (+https://github.com/riptide-engine/riptide)",
	}
}

// Client performs raw HTTP fetches with the pipeline's failure semantics:
// transport-level errors map to retryable timeout_error, 5xx maps to
// retryable dependency_error, 401/403/404 map to their specific
// non-retryable kinds, and the remaining 4xx fall back to non-retryable
// fetch_error (spec §4.1, §7).
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	transport := &http.Transport{}
	if cfg.InsecureSkipTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("fetch: stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		},
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// IsPDF reports whether a fetched response's content type indicates a PDF,
// the signal the orchestrator uses to hand off to the PDF extractor and
// skip the gate (spec §4.1 step 4).
func IsPDF(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/pdf")
}

// Get performs the bounded GET described above. Context cancellation and
// deadline both apply; ctx's deadline, if nearer than cfg.Timeout, wins.
func (c *Client) Get(ctx context.Context, url string, extraHeaders map[string]string) (models.FetchResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.FetchResult{}, models.NewError(models.KindValidation, fmt.Sprintf("fetch: invalid url %q: %v", url, err), err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.FetchResult{}, models.Wrapf(models.KindTimeout, ctx.Err(), "fetch: context done fetching %s", url)
		}
		return models.FetchResult{}, models.Wrapf(models.KindTimeout, err, "fetch: request to %s failed", url)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return models.FetchResult{}, models.Wrapf(models.KindFetch, err, "fetch: reading body from %s", url)
	}
	if int64(len(raw)) > c.cfg.MaxBodyBytes {
		return models.FetchResult{}, models.NewError(models.KindFetch, fmt.Sprintf("fetch: %s exceeded size cap of %d bytes (payload_too_large)", url, c.cfg.MaxBodyBytes), nil)
	}

	body, err := decompress(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		body = raw
	}

	result := models.FetchResult{
		Status:      resp.StatusCode,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Size:        int64(len(body)),
		Duration:    time.Since(start),
	}

	if err := statusError(resp.StatusCode, url); err != nil {
		return result, err
	}
	return result, nil
}

// statusError classifies a non-2xx/3xx response per spec §4.1/§7: 5xx is a
// retryable dependency failure, 401/403/404 map to their specific non-retryable
// kinds, and the remaining 4xx fall back to the generic fetch_error.
func statusError(status int, url string) error {
	msg := fmt.Sprintf("fetch: %s returned %d", url, status)
	switch {
	case status >= 500:
		return models.NewError(models.KindDependency, msg, nil)
	case status == http.StatusUnauthorized:
		return models.NewError(models.KindAuthentication, msg, nil)
	case status == http.StatusForbidden:
		return models.NewError(models.KindPermissionDenied, msg, nil)
	case status == http.StatusNotFound:
		return models.NewError(models.KindNotFound, msg, nil)
	case status >= 400:
		return models.NewError(models.KindFetch, msg, nil)
	default:
		return nil
	}
}

// decompress handles the three encodings the pipeline is expected to meet
// in the wild: gzip, deflate, and brotli (spec's ambient HTTP concerns;
// grounded on the teacher's static fetch path).
func decompress(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		return io.ReadAll(r)
	case "br":
		r := brotli.NewReader(bytes.NewReader(body))
		return io.ReadAll(r)
	default:
		return body, nil
	}
}
