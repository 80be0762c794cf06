package caption

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSummarizer struct {
	summary string
	err     error
	calls   int
	minLen  int
	maxLen  int
}

func (s *stubSummarizer) Summarize(_ context.Context, _ string, minLength, maxLength int) (string, error) {
	s.calls++
	s.minLen, s.maxLen = minLength, maxLength
	return s.summary, s.err
}

func TestGenerate_BlankTextNeverInvokesSummarizer(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		stub := &stubSummarizer{summary: "should not be used"}
		got := New(stub).Generate(context.Background(), text)

		assert.Equal(t, NoCaption, got.Value)
		assert.True(t, got.Fallback)
		assert.ErrorIs(t, got.Err, ErrNoText)
		assert.Zero(t, stub.calls)
	}
}

func TestGenerate_Success(t *testing.T) {
	stub := &stubSummarizer{summary: " Batman unmasks the Joker. "}
	got := New(stub).Generate(context.Background(), "BATMAN: WHO ARE YOU REALLY")

	assert.True(t, got.Succeeded())
	assert.Equal(t, "Batman unmasks the Joker.", got.Value)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, MinLength, stub.minLen)
	assert.Equal(t, MaxLength, stub.maxLen)
}

func TestGenerate_FailuresUseErrorSentinel(t *testing.T) {
	tests := []struct {
		name string
		stub *stubSummarizer
	}{
		{"model error", &stubSummarizer{err: errors.New("503 model loading")}},
		{"empty summary", &stubSummarizer{summary: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.stub).Generate(context.Background(), "some text")
			assert.Equal(t, CaptionError, got.Value)
			assert.True(t, got.Fallback)
			assert.Error(t, got.Err)
		})
	}
}
