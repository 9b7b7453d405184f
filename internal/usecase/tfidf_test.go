package usecase

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitTFIDF(t *testing.T) {
	m := FitTFIDF([]string{"Conference Table", "Task Chair", "conference chair", "a"})

	assert.Equal(t, 4, m.Rows())
	// single-character tokens are not part of the vocabulary
	assert.Equal(t, 4, m.VocabularySize())
}

func TestTFIDF_CosineSimilarities(t *testing.T) {
	m := FitTFIDF([]string{"conference table", "task chair", "conference chair"})

	sims := m.CosineSimilarities("Conference TABLE")
	require.Len(t, sims, 3)
	assert.InDelta(t, 1.0, sims[0], 1e-9)
	assert.Equal(t, 0.0, sims[1])
	assert.Greater(t, sims[2], 0.0)
	assert.Less(t, sims[2], 1.0)

	for _, s := range m.CosineSimilarities("sofa") {
		assert.Equal(t, 0.0, s)
	}
}

func TestTFIDF_RareTermsWeighMore(t *testing.T) {
	m := FitTFIDF([]string{"mesh task chair", "leather chair", "stacking chair"})

	sims := m.CosineSimilarities("mesh chair")
	assert.Greater(t, sims[0], sims[1])
	assert.InDelta(t, sims[1], sims[2], 1e-9)
}

func TestTFIDF_TermsInEveryRowKeepWeight(t *testing.T) {
	single := FitTFIDF([]string{"Oak Lectern"})
	assert.InDelta(t, 1.0, single.CosineSimilarities("oak lectern")[0], 1e-9)
	assert.Greater(t, single.CosineSimilarities("lectern")[0], 0.0)

	seating := FitTFIDF([]string{"task chair", "guest chair", "stacking chair"})
	for i, s := range seating.CosineSimilarities("chair") {
		assert.Greater(t, s, 0.0, "row %d", i)
	}
}

func TestTFIDF_KeepsDimensionTokens(t *testing.T) {
	m := FitTFIDF([]string{"table 30d x 60w", "table 24d x 48w"})

	sims := m.CosineSimilarities("60w")
	assert.Greater(t, sims[0], 0.0)
	assert.Equal(t, 0.0, sims[1])
}

func TestTFIDF_NilMatrix(t *testing.T) {
	var m *TFIDFMatrix
	assert.Equal(t, 0, m.Rows())
	assert.Equal(t, 0, m.VocabularySize())
	assert.Empty(t, m.CosineSimilarities("desk"))
}

func TestTopKIndices(t *testing.T) {
	testCases := []struct {
		name   string
		scores []float64
		k      int
		want   []int
	}{
		{"keeps highest ascending", []float64{0.1, 0.5, 0.3, 0.2}, 2, []int{2, 1}},
		// equal scores keep index order (implementation-defined tie-break)
		{"ties in index order", []float64{0.1, 0.5, 0.5, 0.2}, 2, []int{1, 2}},
		{"k larger than scores", []float64{0.3, 0.1}, 10, []int{1, 0}},
		{"k zero", []float64{0.3, 0.1}, 0, []int{}},
		{"no scores", nil, 5, []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := topKIndices(tc.scores, tc.k)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("topKIndices(%v, %d) = %v, want %v", tc.scores, tc.k, got, tc.want)
			}
		})
	}
}
