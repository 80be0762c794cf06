// Package classifier evaluates a gradient boosted tree model saved in the
// XGBoost JSON format and maps its classes to spoiler labels.
package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrFeatureMismatch is returned when the input vector does not have the
// number of features the model was trained on.
var ErrFeatureMismatch = errors.New("feature vector length does not match model")

type tree struct {
	left        []int
	right       []int
	splitIndex  []int
	splitCond   []float32
	defaultLeft []bool
}

// Model is an immutable XGBoost gbtree (or dart) model.
type Model struct {
	trees      []tree
	treeGroup  []int
	treeWeight []float64
	numClass   int
	numFeature int
	baseMargin []float64
	objective  string
}

type jsonModel struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name       string         `json:"name"`
			Model      *jsonGBTree    `json:"model"`
			GBTree     *jsonDartInner `json:"gbtree"`
			WeightDrop []float64      `json:"weight_drop"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type jsonDartInner struct {
	Model *jsonGBTree `json:"model"`
}

type jsonGBTree struct {
	Trees    []jsonTree `json:"trees"`
	TreeInfo []int      `json:"tree_info"`
}

type jsonTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float32 `json:"split_conditions"`
	DefaultLeft     flags     `json:"default_left"`
}

// flags decodes default_left written either as 0/1 integers or as booleans.
type flags []bool

func (f *flags) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		switch s := string(bytes.TrimSpace(r)); s {
		case "true", "1":
			out[i] = true
		case "false", "0":
		default:
			return fmt.Errorf("default_left: unexpected value %s", s)
		}
	}
	*f = out
	return nil
}

// ParseModel decodes an XGBoost JSON model.
func ParseModel(data []byte) (*Model, error) {
	var jm jsonModel
	if err := json.Unmarshal(data, &jm); err != nil {
		return nil, fmt.Errorf("decode xgboost model: %w", err)
	}
	learner := jm.Learner
	booster := learner.GradientBooster

	var gb *jsonGBTree
	switch booster.Name {
	case "gbtree", "":
		gb = booster.Model
	case "dart":
		if booster.GBTree != nil {
			gb = booster.GBTree.Model
		}
	default:
		return nil, fmt.Errorf("unsupported booster %q", booster.Name)
	}
	if gb == nil || len(gb.Trees) == 0 {
		return nil, errors.New("xgboost model has no trees")
	}
	if len(gb.TreeInfo) != len(gb.Trees) {
		return nil, fmt.Errorf("xgboost model: tree_info has %d entries for %d trees", len(gb.TreeInfo), len(gb.Trees))
	}

	numFeature, err := strconv.Atoi(learner.LearnerModelParam.NumFeature)
	if err != nil || numFeature <= 0 {
		return nil, fmt.Errorf("xgboost model: invalid num_feature %q", learner.LearnerModelParam.NumFeature)
	}
	numClass := 0
	if s := learner.LearnerModelParam.NumClass; s != "" {
		if numClass, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("xgboost model: invalid num_class %q", s)
		}
	}
	groups := max(numClass, 1)

	m := &Model{
		numClass:   numClass,
		numFeature: numFeature,
		objective:  learner.Objective.Name,
		treeGroup:  gb.TreeInfo,
		treeWeight: make([]float64, len(gb.Trees)),
	}

	for i, jt := range gb.Trees {
		t, err := buildTree(jt, numFeature)
		if err != nil {
			return nil, fmt.Errorf("xgboost model: tree %d: %w", i, err)
		}
		if g := gb.TreeInfo[i]; g < 0 || g >= groups {
			return nil, fmt.Errorf("xgboost model: tree %d belongs to group %d of %d", i, g, groups)
		}
		m.trees = append(m.trees, t)
		m.treeWeight[i] = 1
	}
	if booster.Name == "dart" && len(booster.WeightDrop) == len(gb.Trees) {
		copy(m.treeWeight, booster.WeightDrop)
	}

	base, err := parseBaseScore(learner.LearnerModelParam.BaseScore, groups)
	if err != nil {
		return nil, err
	}
	m.baseMargin = make([]float64, groups)
	for i, b := range base {
		m.baseMargin[i] = m.probToMargin(b)
	}
	return m, nil
}

func buildTree(jt jsonTree, numFeature int) (tree, error) {
	n := len(jt.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("empty tree")
	}
	if len(jt.RightChildren) != n || len(jt.SplitIndices) != n || len(jt.SplitConditions) != n {
		return tree{}, errors.New("node arrays have different lengths")
	}
	defaultLeft := []bool(jt.DefaultLeft)
	if len(defaultLeft) == 0 {
		defaultLeft = make([]bool, n)
	} else if len(defaultLeft) != n {
		return tree{}, errors.New("default_left has the wrong length")
	}

	for i := 0; i < n; i++ {
		l, r := jt.LeftChildren[i], jt.RightChildren[i]
		if l == -1 {
			continue
		}
		if l <= i || l >= n || r <= i || r >= n {
			return tree{}, fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if f := jt.SplitIndices[i]; f < 0 || f >= numFeature {
			return tree{}, fmt.Errorf("node %d splits on feature %d", i, f)
		}
	}

	return tree{
		left:        jt.LeftChildren,
		right:       jt.RightChildren,
		splitIndex:  jt.SplitIndices,
		splitCond:   jt.SplitConditions,
		defaultLeft: defaultLeft,
	}, nil
}

// parseBaseScore accepts "5E-1" and the bracketed "[5E-1]" or
// "[3.3E-1,3.3E-1,3.3E-1]" forms of newer releases.
func parseBaseScore(s string, groups int) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "0.5"
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")

	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("xgboost model: invalid base_score %q", s)
		}
		values = append(values, v)
	}

	switch len(values) {
	case groups:
		return values, nil
	case 1:
		out := make([]float64, groups)
		for i := range out {
			out[i] = values[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("xgboost model: %d base scores for %d outputs", len(values), groups)
	}
}

func (m *Model) probToMargin(base float64) float64 {
	switch m.objective {
	case "binary:logistic", "reg:logistic":
		return -math.Log(1/base - 1)
	default:
		return base
	}
}

// NumFeature is the input width the model expects.
func (m *Model) NumFeature() int {
	return m.numFeature
}

// NumClass is the number of classes, 0 for single-output models.
func (m *Model) NumClass() int {
	return m.numClass
}

// Margins returns the raw (untransformed) score per output group.
func (m *Model) Margins(features []float64) ([]float64, error) {
	if len(features) != m.numFeature {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(features), m.numFeature)
	}

	// Accumulated in float32, the precision the booster predicts with.
	acc := make([]float32, len(m.baseMargin))
	for i, b := range m.baseMargin {
		acc[i] = float32(b)
	}
	for i := range m.trees {
		acc[m.treeGroup[i]] += float32(m.treeWeight[i]) * m.trees[i].leaf(features)
	}

	margins := make([]float64, len(acc))
	for i, v := range acc {
		margins[i] = float64(v)
	}
	return margins, nil
}

// Predict returns the predicted class index. Multi-class models take the
// argmax of the margins, first index winning ties; single-output models
// threshold the logistic output at 0.5.
func (m *Model) Predict(features []float64) (int, error) {
	margins, err := m.Margins(features)
	if err != nil {
		return 0, err
	}

	if len(margins) == 1 {
		if sigmoid(margins[0]) > 0.5 {
			return 1, nil
		}
		return 0, nil
	}

	best := 0
	for i := 1; i < len(margins); i++ {
		if margins[i] > margins[best] {
			best = i
		}
	}
	return best, nil
}

// leaf walks the tree comparing in float32: features are narrowed the way the
// booster stores them, so a value that rounds onto a threshold goes right.
func (t tree) leaf(features []float64) float32 {
	n := 0
	for t.left[n] != -1 {
		x := features[t.splitIndex[n]]
		switch {
		case math.IsNaN(x):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case float32(x) < t.splitCond[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return t.splitCond[n]
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
