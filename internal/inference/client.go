// Package inference holds the clients for the model services used by the
// analysis pipeline: hosted text models (HuggingFace, Gemini) and the
// detection and face-embedding services.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// ErrEmptyResponse is returned when a model answers without usable content.
var ErrEmptyResponse = errors.New("empty model response")

// StatusError reports a non-200 answer from a model service.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed with status: %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s failed with status: %d: %s", e.Service, e.StatusCode, e.Body)
}

// Option configures an HTTP-backed inference client.
type Option func(*httpOptions)

type httpOptions struct {
	client *http.Client
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *httpOptions) {
		if client != nil {
			o.client = client
		}
	}
}

func buildOptions(timeout time.Duration, opts []Option) httpOptions {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	o := httpOptions{client: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func doJSON(client *http.Client, req *http.Request, service string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Service: service, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func postImage(ctx context.Context, client *http.Client, endpoint, service string, img image.Image, out any) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return doJSON(client, req, service, out)
}

// healthURL maps a service endpoint such as http://host:8001/detect to
// http://host:8001/health.
func healthURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	u.Path = "/health"
	u.RawQuery = ""
	return u.String(), nil
}

func checkHealth(ctx context.Context, client *http.Client, endpoint, service string) error {
	target, err := healthURL(endpoint)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s unhealthy: %d", service, resp.StatusCode)
	}
	return nil
}
