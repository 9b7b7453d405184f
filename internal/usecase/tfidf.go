package usecase

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// lexicalTokenPattern keeps words of two or more word characters
var lexicalTokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// posting is one non-zero cell of the lexical matrix
type posting struct {
	row    int
	weight float64
}

// termWeight is one non-zero component of a transformed query
type termWeight struct {
	term   int
	weight float64
}

// TFIDFMatrix is a sparse, L2-normalised TF-IDF matrix fit once over the catalog
// descriptions. It is stored column-wise (term -> postings) so a query only touches
// the rows that share one of its terms.
type TFIDFMatrix struct {
	vocabulary map[string]int
	idf        []float64
	postings   [][]posting
	rows       int
}

// FitTFIDF builds the matrix over docs. Row i corresponds to docs[i].
// idf uses smoothing: ln((1+n)/(1+df)) + 1.
func FitTFIDF(docs []string) *TFIDFMatrix {
	m := &TFIDFMatrix{
		vocabulary: make(map[string]int),
		rows:       len(docs),
	}

	counts := make([]map[int]int, len(docs))
	var df []int
	for i, doc := range docs {
		counts[i] = make(map[int]int)
		for _, tok := range lexicalTokens(doc) {
			idx, ok := m.vocabulary[tok]
			if !ok {
				idx = len(m.vocabulary)
				m.vocabulary[tok] = idx
				df = append(df, 0)
			}
			if counts[i][idx] == 0 {
				df[idx]++
			}
			counts[i][idx]++
		}
	}

	n := float64(len(docs))
	m.idf = make([]float64, len(df))
	for idx, d := range df {
		m.idf[idx] = math.Log((1+n)/(1+float64(d))) + 1
	}

	m.postings = make([][]posting, len(df))
	for i, tc := range counts {
		terms := make([]int, 0, len(tc))
		for idx := range tc {
			terms = append(terms, idx)
		}
		sort.Ints(terms)

		var norm float64
		weights := make([]float64, len(terms))
		for k, idx := range terms {
			weights[k] = float64(tc[idx]) * m.idf[idx]
			norm += weights[k] * weights[k]
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for k, idx := range terms {
			m.postings[idx] = append(m.postings[idx], posting{row: i, weight: weights[k] / norm})
		}
	}

	return m
}

// Rows returns the number of documents the matrix was fit on
func (m *TFIDFMatrix) Rows() int {
	if m == nil {
		return 0
	}
	return m.rows
}

// VocabularySize returns the number of distinct terms
func (m *TFIDFMatrix) VocabularySize() int {
	if m == nil {
		return 0
	}
	return len(m.vocabulary)
}

// transform returns the L2-normalised query vector, ordered by term index.
// Terms outside the fitted vocabulary are ignored.
func (m *TFIDFMatrix) transform(text string) []termWeight {
	tc := make(map[int]int)
	for _, tok := range lexicalTokens(text) {
		if idx, ok := m.vocabulary[tok]; ok {
			tc[idx]++
		}
	}

	vec := make([]termWeight, 0, len(tc))
	var norm float64
	for idx, c := range tc {
		w := float64(c) * m.idf[idx]
		vec = append(vec, termWeight{term: idx, weight: w})
		norm += w * w
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].term < vec[j].term })

	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].weight /= norm
	}
	return vec
}

// CosineSimilarities returns the cosine similarity of text against every row.
// Rows and queries are unit length, so this is a sparse dot product.
func (m *TFIDFMatrix) CosineSimilarities(text string) []float64 {
	sims := make([]float64, m.Rows())
	if m == nil {
		return sims
	}
	for _, tw := range m.transform(text) {
		for _, p := range m.postings[tw.term] {
			sims[p.row] += tw.weight * p.weight
		}
	}
	return sims
}

func lexicalTokens(text string) []string {
	return lexicalTokenPattern.FindAllString(strings.ToLower(text), -1)
}

// topKIndices returns the indices of the k highest scores, ordered by ascending score.
// Equal scores keep ascending index order; this tie-break is implementation-defined.
func topKIndices(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	if k < len(idx) {
		idx = idx[len(idx)-k:]
	}
	return idx
}
