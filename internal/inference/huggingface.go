package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HuggingFaceConfig selects the hosted models used for text tasks.
type HuggingFaceConfig struct {
	BaseURL         string
	Token           string
	SummarizerModel string
	ZeroShotModel   string
	Timeout         time.Duration
}

// HuggingFace calls the HuggingFace inference API for summarization and
// zero-shot classification.
type HuggingFace struct {
	cfg    HuggingFaceConfig
	client *http.Client
}

// NewHuggingFace creates a HuggingFace inference client.
func NewHuggingFace(cfg HuggingFaceConfig, opts ...Option) *HuggingFace {
	o := buildOptions(cfg.Timeout, opts)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HuggingFace{cfg: cfg, client: o.client}
}

// Summarize runs the summarization model with greedy decoding.
func (h *HuggingFace) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"min_length": minLength,
			"max_length": maxLength,
			"do_sample":  false,
		},
	}

	var out []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := h.post(ctx, h.cfg.SummarizerModel, payload, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || strings.TrimSpace(out[0].SummaryText) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(out[0].SummaryText), nil
}

// RankLabels returns candidates ordered from most to least likely.
func (h *HuggingFace) RankLabels(ctx context.Context, text string, candidates []string) ([]string, error) {
	payload := map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"candidate_labels": candidates,
		},
	}

	var raw json.RawMessage
	if err := h.post(ctx, h.cfg.ZeroShotModel, payload, &raw); err != nil {
		return nil, err
	}
	return parseZeroShot(raw)
}

func (h *HuggingFace) post(ctx context.Context, model string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+"/models/"+model, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	}

	return doJSON(h.client, req, "huggingface "+model, out)
}

type scoredLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// parseZeroShot accepts the classic {"labels": [...], "scores": [...]} answer
// (already sorted) and the [{"label", "score"}] form.
func parseZeroShot(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrEmptyResponse
	}

	if raw[0] == '[' {
		var scored []scoredLabel
		if err := json.Unmarshal(raw, &scored); err != nil {
			return nil, fmt.Errorf("decode zero-shot list: %w", err)
		}
		sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
		labels := make([]string, 0, len(scored))
		for _, s := range scored {
			labels = append(labels, s.Label)
		}
		if len(labels) == 0 {
			return nil, ErrEmptyResponse
		}
		return labels, nil
	}

	var obj struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode zero-shot: %w", err)
	}
	if len(obj.Labels) == 0 {
		return nil, ErrEmptyResponse
	}
	return obj.Labels, nil
}
