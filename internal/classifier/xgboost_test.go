package classifier

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/comic-spoiler/spoiler-detector/pkg/models"
)

func stump(feature int, cond, left, right float64, defaultLeft string) string {
	return fmt.Sprintf(`{"left_children":[1,-1,-1],"right_children":[2,-1,-1],`+
		`"split_indices":[%d,0,0],"split_conditions":[%g,%g,%g],"default_left":%s}`,
		feature, cond, left, right, defaultLeft)
}

func modelJSON(objective, numClass, numFeature, baseScore string, treeInfo []int, trees ...string) string {
	info := make([]string, len(treeInfo))
	for i, g := range treeInfo {
		info[i] = fmt.Sprint(g)
	}
	return fmt.Sprintf(`{"learner":{
		"learner_model_param":{"base_score":%q,"num_class":%q,"num_feature":%q},
		"objective":{"name":%q},
		"gradient_booster":{"name":"gbtree","model":{
			"gbtree_model_param":{"num_trees":"%d"},
			"trees":[%s],
			"tree_info":[%s]}}},
		"version":[2,1,0]}`,
		baseScore, numClass, numFeature, objective, len(trees),
		strings.Join(trees, ","), strings.Join(info, ","))
}

func threeClassModel(t *testing.T) *Model {
	t.Helper()
	data := modelJSON("multi:softprob", "3", "3", "5E-1", []int{0, 1, 2},
		stump(0, 1.5, 0.5, -0.5, "[1,0,0]"),
		stump(1, 0, -0.3, 0.4, "[1,0,0]"),
		stump(2, 0.2, -0.2, 0.9, "[false,false,false]"),
	)
	m, err := ParseModel([]byte(data))
	if err != nil {
		t.Fatalf("ParseModel() error = %v", err)
	}
	return m
}

func TestPredict_MultiClassArgmax(t *testing.T) {
	m := threeClassModel(t)
	if m.NumFeature() != 3 || m.NumClass() != 3 {
		t.Fatalf("unexpected shape %d features, %d classes", m.NumFeature(), m.NumClass())
	}

	nan := math.NaN()
	tests := []struct {
		name     string
		features []float64
		want     int
	}{
		{"left branches", []float64{0, 0, 0}, 0},
		{"split value goes right", []float64{1.5, 1, 0}, 1},
		{"all right", []float64{2, 1, 0.5}, 2},
		{"missing values follow default", []float64{nan, nan, nan}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Predict(tt.features)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if got != tt.want {
				margins, _ := m.Margins(tt.features)
				t.Errorf("Predict() = %d, want %d (margins %v)", got, tt.want, margins)
			}
		})
	}
}

func TestPredict_TieTakesFirstClass(t *testing.T) {
	data := modelJSON("multi:softmax", "3", "1", "0", []int{0, 1, 2},
		stump(0, 1, 0.2, 0.2, "[0,0,0]"),
		stump(0, 1, 0.2, 0.2, "[0,0,0]"),
		stump(0, 1, 0.2, 0.2, "[0,0,0]"),
	)
	m, err := ParseModel([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Predict([]float64{0}); got != 0 {
		t.Errorf("Predict() = %d, want 0 on tie", got)
	}
}

func TestPredict_Binary(t *testing.T) {
	tests := []struct {
		name      string
		baseScore string
		x         float64
		want      int
	}{
		{"negative leaf", "5E-1", 0, 0},
		{"positive leaf", "5E-1", 1, 1},
		{"bracketed base score shifts margin", "[2.5E-1]", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := modelJSON("binary:logistic", "0", "1", tt.baseScore, []int{0}, stump(0, 0.5, -1, 1, "[0,0,0]"))
			m, err := ParseModel([]byte(data))
			if err != nil {
				t.Fatal(err)
			}
			got, err := m.Predict([]float64{tt.x})
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Predict() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPredict_SplitBoundaryComparesInFloat32(t *testing.T) {
	// 0.1 is stored as float32(0.1) = 0.10000000149011612.
	threshold := float32(0.1)
	data := modelJSON("multi:softprob", "3", "1", "5E-1", []int{0, 1, 2},
		stump(0, 0.1, 1, -1, "[0,0,0]"),
		stump(0, 0.1, 0, 0, "[0,0,0]"),
		stump(0, 0.1, -1, 1, "[0,0,0]"),
	)
	m, err := ParseModel([]byte(data))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		x    float64
		want int
	}{
		{"float64 literal of threshold", 0.1, 2},
		{"rounds up onto threshold", 0.0999999999, 2},
		{"exact float32 threshold", float64(threshold), 2},
		{"one float32 step below", float64(math.Nextafter32(threshold, 0)), 0},
		{"clearly below", 0.05, 0},
		{"unit tf-idf weight", 1 / math.Sqrt(5), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Predict([]float64{tt.x})
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Predict(%.17g) = %d, want %d", tt.x, got, tt.want)
			}
		})
	}

	// A cut taken from a real normalised weight must route equal values right.
	w := 2 / math.Sqrt(6)
	cut := fmt.Sprintf("%g", float32(w))
	data = modelJSON("binary:logistic", "0", "1", "5E-1", []int{0},
		fmt.Sprintf(`{"left_children":[1,-1,-1],"right_children":[2,-1,-1],`+
			`"split_indices":[0,0,0],"split_conditions":[%s,-1,1],"default_left":[0,0,0]}`, cut))
	m, err = ParseModel([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Predict([]float64{w}); got != 1 {
		t.Errorf("Predict(%.17g) at cut %s = %d, want 1", w, cut, got)
	}
}

func TestPredict_FeatureMismatch(t *testing.T) {
	m := threeClassModel(t)
	for _, features := range [][]float64{{1, 2}, {1, 2, 3, 4}, nil} {
		if _, err := m.Predict(features); !errors.Is(err, ErrFeatureMismatch) {
			t.Errorf("Predict(%v) error = %v, want ErrFeatureMismatch", features, err)
		}
	}
}

func TestParseModel_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"no trees", modelJSON("multi:softprob", "3", "3", "5E-1", nil)},
		{"tree info mismatch", modelJSON("multi:softprob", "3", "3", "5E-1", []int{0, 1}, stump(0, 1, 0, 0, "[0,0,0]"))},
		{"group out of range", modelJSON("multi:softprob", "3", "3", "5E-1", []int{5}, stump(0, 1, 0, 0, "[0,0,0]"))},
		{"feature out of range", modelJSON("multi:softprob", "3", "3", "5E-1", []int{0}, stump(7, 1, 0, 0, "[0,0,0]"))},
		{"bad num_feature", modelJSON("multi:softprob", "3", "x", "5E-1", []int{0}, stump(0, 1, 0, 0, "[0,0,0]"))},
		{"bad base score", modelJSON("multi:softprob", "3", "3", "[1,2]", []int{0}, stump(0, 1, 0, 0, "[0,0,0]"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseModel([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLabelTable(t *testing.T) {
	tests := map[int]string{
		0:  models.SpoilerUnknown,
		1:  models.SpoilerNonSpoiler,
		2:  models.SpoilerSpoiler,
		3:  models.SpoilerUnknown,
		-1: models.SpoilerUnknown,
	}
	for class, want := range tests {
		if got := DefaultLabels.Label(class); got != want {
			t.Errorf("Label(%d) = %q, want %q", class, got, want)
		}
	}
}
