package features

import (
	"encoding/json"
	"fmt"
)

// UnseenLabel encodes a genre the encoder was not fitted on.
const UnseenLabel = -1

// LabelEncoder maps genre names to the integer codes used during training.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// ParseLabelEncoder decodes {"classes": [...]}.
func ParseLabelEncoder(data []byte) (*LabelEncoder, error) {
	var spec struct {
		Classes []string `json:"classes"`
	}
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode label encoder: %w", err)
	}
	return NewLabelEncoder(spec.Classes)
}

// NewLabelEncoder builds an encoder whose code for classes[i] is i.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("label encoder: duplicate class %q", c)
		}
		index[c] = i
	}
	return &LabelEncoder{classes: append([]string(nil), classes...), index: index}, nil
}

// Encode returns the code of label, or UnseenLabel.
func (e *LabelEncoder) Encode(label string) int {
	if i, ok := e.index[label]; ok {
		return i
	}
	return UnseenLabel
}

// Classes returns a copy of the fitted classes.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
