package usecase

import (
	"sort"
	"strings"
)

// TokenSortRatio compares two strings after sorting their whitespace-separated tokens,
// so word order does not matter. Returns a similarity in [0, 1] based on the indel
// distance: 2*LCS / (len(a)+len(b)).
func TokenSortRatio(a, b string) float64 {
	return indelRatio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// indelRatio returns the normalized indel similarity of two strings.
// Two empty strings are identical.
func indelRatio(s1, s2 string) float64 {
	r1 := []rune(s1)
	r2 := []rune(s2)
	total := len(r1) + len(r2)
	if total == 0 {
		return 1.0
	}
	return float64(2*longestCommonSubsequence(r1, r2)) / float64(total)
}

// longestCommonSubsequence computes the LCS length using two rows
func longestCommonSubsequence(r1, r2 []rune) int {
	if len(r1) == 0 || len(r2) == 0 {
		return 0
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)

	for i := 1; i <= len(r1); i++ {
		curr[0] = 0
		for j := 1; j <= len(r2); j++ {
			if r1[i-1] == r2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(r2)]
}
