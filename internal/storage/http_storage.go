package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// httpSource downloads artifacts from a static HTTP location, e.g. a model registry
// or an object store exposed over HTTPS.
type httpSource struct {
	baseURL string
	client  *http.Client
	sleep   func(time.Duration)
}

// HTTPOption customizes the HTTP artifact source.
type HTTPOption func(*httpSource)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *httpSource) {
		if client != nil {
			s.client = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleep func(time.Duration)) HTTPOption {
	return func(s *httpSource) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// NewHTTPSource creates an artifact source rooted at baseURL.
func NewHTTPSource(baseURL string, opts ...HTTPOption) ArtifactSource {
	transport := &http.Transport{
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	s := &httpSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   5 * time.Minute,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads one artifact. Network failures and 5xx responses are retried
// up to 3 attempts; 4xx responses fail immediately.
func (s *httpSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	url := s.baseURL + "/" + name

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			s.sleep(time.Duration(attempt) * time.Second)
		}

		data, retryable, err := s.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("failed to fetch %s: %w", name, lastErr)
}

func (s *httpSource) fetchOnce(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", "Comic-Spoiler-Detector/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := readLimited(resp.Body)
		return data, false, err
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: status code 404", ErrArtifactNotFound)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	default:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	}
}

func (s *httpSource) Describe() string {
	return "http:" + s.baseURL
}
