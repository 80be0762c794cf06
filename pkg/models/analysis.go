package models

// Spoiler labels produced by the classifier.
const (
	SpoilerUnknown    = "Unknown"
	SpoilerNonSpoiler = "Non-Spoiler"
	SpoilerSpoiler    = "Spoiler"
)

// PipelineResult is the outcome of one pipeline invocation.
// All five fields are always populated.
type PipelineResult struct {
	Text           string `json:"text"`
	Caption        string `json:"caption"`
	Genre          string `json:"genre"`
	CharacterCount int    `json:"character_count"`
	Result         string `json:"result"`
}

// AnalysisResponse is the body returned by POST /analyze.
type AnalysisResponse struct {
	ExtractedText  string `json:"extracted_text"`
	Caption        string `json:"caption"`
	Genre          string `json:"genre"`
	CharacterCount int    `json:"character_count"`
	SpoilerResult  string `json:"spoiler_result"`
}

// NewAnalysisResponse maps a pipeline result onto the HTTP response shape.
func NewAnalysisResponse(r *PipelineResult) *AnalysisResponse {
	if r == nil {
		return &AnalysisResponse{SpoilerResult: SpoilerUnknown}
	}
	return &AnalysisResponse{
		ExtractedText:  r.Text,
		Caption:        r.Caption,
		Genre:          r.Genre,
		CharacterCount: r.CharacterCount,
		SpoilerResult:  r.Result,
	}
}
