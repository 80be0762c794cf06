package validation

import (
	"strings"
	"testing"

	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
)

func TestEndpointValidator_Accepts(t *testing.T) {
	v := NewEndpointValidator()

	for _, endpoint := range []string{
		"http://localhost:8001/detect",
		"http://127.0.0.1:8002/represent",
		"https://api-inference.huggingface.co",
		"HTTPS://models.example.com/spoiler/v3",
		" http://detector:8001 ",
	} {
		if err := v.Validate("detector", endpoint); err != nil {
			t.Errorf("Validate(%q) error = %v", endpoint, err)
		}
	}
}

func TestEndpointValidator_Rejects(t *testing.T) {
	v := NewEndpointValidator()

	tests := []struct {
		name     string
		endpoint string
		wantMsg  string
	}{
		{"empty", "", "not configured"},
		{"whitespace", "   ", "not configured"},
		{"bad format", "http://[::1", "not a URL"},
		{"ftp scheme", "ftp://example.com/models", `got "ftp"`},
		{"missing scheme", "localhost:8001/detect", "must use http or https"},
		{"no host", "http:///detect", "no host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate("embedder", tt.endpoint)
			if err == nil {
				t.Fatalf("Validate(%q) should fail", tt.endpoint)
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("error type = %T, want validation", err)
			}
			if !strings.HasPrefix(err.Error(), "validation: embedder endpoint") || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to name the endpoint and mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestEndpointValidator_RestrictHosts(t *testing.T) {
	v := NewEndpointValidator("https").RestrictHosts("models.example.com")

	if err := v.Validate("artifacts", "https://models.example.com:443/a"); err != nil {
		t.Errorf("allowed host rejected: %v", err)
	}
	if err := v.Validate("artifacts", "https://evil.example.com/a"); err == nil {
		t.Error("other host accepted")
	}
	if err := v.Validate("artifacts", "http://models.example.com/a"); err == nil {
		t.Error("http accepted when only https is allowed")
	}
}
