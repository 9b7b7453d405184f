package usecase

import (
	"strings"

	"github.com/rfpquote/backend/internal/domain"
)

// Score weights and boosts. These jointly define the acceptance boundary against the
// match threshold, so they are tuned together and must not be changed in isolation.
const (
	embeddingWeight = 0.5
	categoryWeight  = 2.0

	categoryMatchBoost      = 0.3
	categoryMismatchPenalty = -0.5

	dimensionMatchBoost      = 0.2
	dimensionMismatchPenalty = -0.3

	fuzzyStrongRatio = 0.8
	fuzzyStrongBoost = 0.3
	fuzzyWeakRatio   = 0.6
	fuzzyWeakBoost   = 0.1
	fuzzyPenalty     = -0.2

	categoryOverlapBoost = 0.2

	sharedKeywordRatio = 0.5
	sharedKeywordBoost = 0.3

	mainTypeMatchBoost = 1.5
)

// CategoryOther is returned by NormalizeCategory when no rule matches
const CategoryOther = "other"

// categoryRule maps keyword containment to a category label
type categoryRule struct {
	label    string
	keywords []string
}

// categoryRules are evaluated in order; the first rule with a contained keyword wins.
// Multi-word table phrases come before seating so "conference table" is not read as a chair.
var categoryRules = []categoryRule{
	{"conference tables", []string{"conference table", "boardroom table", "meeting table"}},
	{"coffee tables", []string{"coffee table", "side table", "end table", "occasional table"}},
	{"work tables", []string{"desk", "workstation", "worksurface", "training table"}},
	{"seating", []string{"chair", "chairs", "stool", "bench", "sofa", "seating", "rocker"}},
	{"beds", []string{"bed", "cot", "bunk", "couch"}},
	{"storage", []string{"pedestal", "file", "cabinet", "locker", "shelf", "storage"}},
	{"partitions", []string{"partition", "divider", "screen", "panel"}},
	{"markerboards", []string{"markerboard", "whiteboard", "blackboard", "tackboard", "eraser"}},
	{"acoustic panels", []string{"acoustic", "hush", "felt", "sound", "noise"}},
	{"wall features", []string{"wall", "ceiling", "profile", "paneling"}},
}

// knownMainTypes is ordered longest phrase first (stable for equal lengths)
var knownMainTypes = []string{
	"conference table",
	"reception sofa",
	"2-seater sofa",
	"3-seater sofa",
	"coffee table",
	"lateral file",
	"task chair",
	"whiteboard",
	"partition",
	"bench",
	"stool",
	"desk",
	"sofa",
}

// mainTypeStopWords are skipped when falling back to the first two words
var mainTypeStopWords = map[string]bool{
	"black": true, "white": true, "brown": true,
	"small": true, "large": true, "for": true,
}

// NormalizeCategory maps free text onto the closed set of furniture categories
func NormalizeCategory(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.label
			}
		}
	}
	return CategoryOther
}

// CategoryBoost rewards equal categories and penalises conflicting ones.
// Either side being "other" is neutral.
func CategoryBoost(query, candidate string) float64 {
	qCat := NormalizeCategory(query)
	cCat := NormalizeCategory(candidate)

	switch {
	case qCat == CategoryOther || cCat == CategoryOther:
		return 0.0
	case qCat == cCat:
		return categoryMatchBoost
	default:
		return categoryMismatchPenalty
	}
}

// DimensionBoost checks whether any dimension token of the query appears verbatim in the
// candidate. Queries without dimensions are neutral.
func DimensionBoost(query, candidate string) float64 {
	dims := ExtractDimensions(query)
	if len(dims) == 0 {
		return 0.0
	}

	candLower := strings.ToLower(candidate)
	for _, d := range dims {
		if strings.TrimSpace(d) != "" && strings.Contains(candLower, d) {
			return dimensionMatchBoost
		}
	}
	return dimensionMismatchPenalty
}

// FuzzyBoost tiers the token-order-insensitive similarity of the two texts
func FuzzyBoost(query, candidate string) float64 {
	ratio := TokenSortRatio(strings.ToLower(query), strings.ToLower(candidate))
	switch {
	case ratio > fuzzyStrongRatio:
		return fuzzyStrongBoost
	case ratio > fuzzyWeakRatio:
		return fuzzyWeakBoost
	default:
		return fuzzyPenalty
	}
}

// TokenOverlapBoost rewards a query mentioning any word of the candidate's category label
func TokenOverlapBoost(query, category string) float64 {
	queryLower := strings.ToLower(query)
	for _, token := range wordPattern.FindAllString(strings.ToLower(category), -1) {
		if strings.Contains(queryLower, token) {
			return categoryOverlapBoost
		}
	}
	return 0.0
}

// SharedKeywordBoost rewards candidates containing more than half of the query's words
func SharedKeywordBoost(query, candidate string) float64 {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0.0
	}

	candWords := wordSet(candidate)
	common := 0
	for w := range queryWords {
		if _, ok := candWords[w]; ok {
			common++
		}
	}

	if float64(common)/float64(len(queryWords)) > sharedKeywordRatio {
		return sharedKeywordBoost
	}
	return 0.0
}

// ExtractMainType returns the canonical furniture type of text: the longest known type
// phrase it contains, otherwise its first two non-stopword words.
func ExtractMainType(text string) string {
	lower := strings.ToLower(text)
	for _, t := range knownMainTypes {
		if strings.Contains(lower, t) || strings.Contains(lower, strings.TrimRight(t, "s")) {
			return t
		}
	}

	var tokens []string
	for _, w := range strings.Fields(lower) {
		if mainTypeStopWords[w] {
			continue
		}
		tokens = append(tokens, w)
		if len(tokens) == 2 {
			break
		}
	}
	return strings.Join(tokens, " ")
}

// MainTypeBoost is the dominant term: an exact main type match usually outweighs lexical noise
func MainTypeBoost(query, candidate string) float64 {
	qType := ExtractMainType(query)
	cType := ExtractMainType(candidate)
	if qType != "" && qType == cType {
		return mainTypeMatchBoost
	}
	return 0.0
}

// candidate is a top-k entry under evaluation
type candidate struct {
	entry        domain.CatalogEntry
	embeddingSim float64
}

// scorer is one weighted additive term of a candidate's score
type scorer struct {
	name   string
	weight float64
	score  func(query string, c candidate) float64
}

// defaultScorers is the score table, summed in this order
var defaultScorers = []scorer{
	{"embedding", embeddingWeight, func(_ string, c candidate) float64 {
		return c.embeddingSim
	}},
	{"fuzzy", 1, func(q string, c candidate) float64 {
		return FuzzyBoost(StripDimensions(q), c.entry.Description)
	}},
	{"category", categoryWeight, func(q string, c candidate) float64 {
		return CategoryBoost(q, c.entry.Description)
	}},
	{"dimension", 1, func(q string, c candidate) float64 {
		return DimensionBoost(q, c.entry.Description)
	}},
	{"category_overlap", 1, func(q string, c candidate) float64 {
		return TokenOverlapBoost(StripDimensions(q), c.entry.Category)
	}},
	{"shared_keywords", 1, func(q string, c candidate) float64 {
		return SharedKeywordBoost(q, c.entry.Description)
	}},
	{"main_type", 1, func(q string, c candidate) float64 {
		return MainTypeBoost(q, c.entry.Description)
	}},
}

// scoreCandidate sums the weighted scorer terms for one candidate
func scoreCandidate(scorers []scorer, query string, c candidate) float64 {
	score := 0.0
	for _, s := range scorers {
		score += s.weight * s.score(query, c)
	}
	return score
}
