package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// Compiled regex patterns for requirement/description preprocessing
var (
	// Dimension tokens as they appear in RFP lines: "30d", "60w ", "72 x", "29h"
	dimensionTokenPattern = regexp.MustCompile(`\d+\s*(?:[dxwh]+)?\s*\d*`)

	// Dimension tokens stripped before fuzzy/category-overlap comparisons: `30d x `, `29.5” h`
	nonDimensionPattern = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:”)?\s*[wdxh]\s*(?:x\s*)?`)

	// Labelled dimensions with optional range, e.g. `30"W`, `30-36" D`, `72 L`
	labelledDimensionPattern = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?(?:-\d+(?:\.\d+)?)?"?\s*[WHDL]\b`)

	// Dimension ranges keyed by axis, e.g. `30-36"H` -> H:(30,36)
	dimensionRangePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)(?:"?\s*-\s*(\d+(?:\.\d+)?))?"?\s*([WDH])\b`)

	// Standalone "x" separators left behind once dimensions are removed
	dimensionSeparatorPattern = regexp.MustCompile(`\s*\bx\b\s*`)

	wordPattern       = regexp.MustCompile(`\w+`)
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// DimensionRange is an inclusive [Min, Max] span for one axis
type DimensionRange struct {
	Min float64
	Max float64
}

// ExtractDimensions returns the raw dimension tokens of text (lowercased).
// Tokens keep any trailing whitespace the pattern consumed; callers compare them verbatim.
func ExtractDimensions(text string) []string {
	return dimensionTokenPattern.FindAllString(strings.ToLower(text), -1)
}

// StripDimensions lowercases text and removes dimension tokens such as "30d x 60w x 29h".
func StripDimensions(text string) string {
	return nonDimensionPattern.ReplaceAllString(strings.ToLower(text), "")
}

// RemoveDimensions removes labelled W/H/D/L dimensions and their "x" separators,
// keeping the original casing of the remaining words.
func RemoveDimensions(text string) string {
	cleaned := labelledDimensionPattern.ReplaceAllString(text, "")
	cleaned = dimensionSeparatorPattern.ReplaceAllString(cleaned, " ")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.Trim(cleaned, " ,")
}

// CleanDescription lowercases a catalog description and strips its dimensions
func CleanDescription(text string) string {
	return RemoveDimensions(strings.ToLower(text))
}

// ParseDimensionRanges extracts per-axis (W, D, H) ranges. A single value yields Min == Max;
// a later mention of the same axis overrides an earlier one.
func ParseDimensionRanges(text string) map[string]DimensionRange {
	dims := make(map[string]DimensionRange)
	for _, m := range dimensionRangePattern.FindAllStringSubmatch(text, -1) {
		minVal, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		maxVal := minVal
		if m[2] != "" {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				maxVal = v
			}
		}
		dims[strings.ToUpper(m[3])] = DimensionRange{Min: minVal, Max: maxVal}
	}
	return dims
}

// DimensionsMatch reports whether every axis the requirement specifies exists on the
// product with an overlapping range. Text without dimensions on either side never matches.
func DimensionsMatch(requirement, product string) bool {
	reqDims := ParseDimensionRanges(requirement)
	prodDims := ParseDimensionRanges(product)
	if len(reqDims) == 0 || len(prodDims) == 0 {
		return false
	}

	for axis, req := range reqDims {
		prod, ok := prodDims[axis]
		if !ok {
			return false
		}
		if req.Max < prod.Min || req.Min > prod.Max {
			return false
		}
	}
	return true
}

// wordSet returns the set of lowercase \w+ tokens in text
func wordSet(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// normalizeQuery lowercases and collapses whitespace; used for cache keys
func normalizeQuery(s string) string {
	s = multiSpacePattern.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(s)
}
