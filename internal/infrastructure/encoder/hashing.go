// Package encoder provides the sentence encoders used to embed catalog descriptions.
package encoder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var hashingWordPattern = regexp.MustCompile(`\w+`)

// Feature weights of the hashing encoder
const (
	unigramWeight = 1.0
	bigramWeight  = 0.5
	trigramWeight = 0.25
)

// Hashing is a deterministic offline encoder: word unigrams, word bigrams and
// character trigrams are hashed into a fixed number of signed buckets.
type Hashing struct {
	dim int
}

// NewHashing creates a hashing encoder of the given width (256 when dim <= 0)
func NewHashing(dim int) *Hashing {
	if dim <= 0 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

// Encode embeds every text into one L2-normalised row
func (h *Hashing) Encode(ctx context.Context, texts []string) (*mat.Dense, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to encode")
	}

	data := make([]float64, len(texts)*h.dim)
	for i, text := range texts {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		h.embedInto(data[i*h.dim:(i+1)*h.dim], text)
	}
	return mat.NewDense(len(texts), h.dim, data), nil
}

// Dimension returns the embedding width
func (h *Hashing) Dimension() int {
	return h.dim
}

// ModelInfo returns model information
func (h *Hashing) ModelInfo() string {
	return fmt.Sprintf("hashing-%d", h.dim)
}

func (h *Hashing) embedInto(vec []float64, text string) {
	words := hashingWordPattern.FindAllString(strings.ToLower(text), -1)

	for i, w := range words {
		h.add(vec, "w:"+w, unigramWeight)
		if i > 0 {
			h.add(vec, "b:"+words[i-1]+" "+w, bigramWeight)
		}
		padded := []rune("#" + w + "#")
		for j := 0; j+3 <= len(padded); j++ {
			h.add(vec, "c:"+string(padded[j:j+3]), trigramWeight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
}

// add hashes feature into a bucket; the top bit of the hash picks the sign
func (h *Hashing) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	sign := 1.0
	if sum>>63 == 1 {
		sign = -1.0
	}
	vec[sum%uint64(h.dim)] += sign * weight
}
