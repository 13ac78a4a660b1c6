// Package fuzzy scores string similarity on a 0..100 scale.
//
// WRatio is the weighted ratio used to match free-form medication names against the
// reference vocabulary. It is tolerant of word reordering and partial overlap and is
// symmetric in its arguments. The scoring is frozen: thresholds elsewhere in the
// service are tuned against exactly these numbers.
package fuzzy

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

const (
	unbaseScale        = 0.95
	partialScale       = 0.90
	longPartialScale   = 0.60
	partialLengthRatio = 1.5
	longLengthRatio    = 8.0

	// floatTolerance absorbs float error from the scale factors, so 100*0.95 stays 95
	floatTolerance = 1e-9
)

// Scorer scores the similarity of two strings between 0 and 100.
type Scorer interface {
	Score(a, b string) int
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(a, b string) int

// Score implements Scorer.
func (f ScorerFunc) Score(a, b string) int { return f(a, b) }

// Default is the scorer the resolver uses unless told otherwise.
var Default Scorer = ScorerFunc(WRatio)

// Process lower-cases s, turns everything that is not a letter or digit into a
// single space and trims the result.
func Process(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// WRatio returns the weighted similarity of a and b after processing both.
// Either side processing to the empty string scores 0.
func WRatio(a, b string) int {
	p1, p2 := []rune(Process(a)), []rune(Process(b))
	if len(p1) == 0 || len(p2) == 0 {
		return 0
	}

	base := ratio(p1, p2)

	short, long := float64(len(p1)), float64(len(p2))
	if short > long {
		short, long = long, short
	}
	lengthRatio := long / short

	if lengthRatio < partialLengthRatio {
		tsor := tokenSortRatio(p1, p2, ratio) * unbaseScale
		tser := tokenSetRatio(p1, p2, ratio) * unbaseScale
		return truncate(max(base, tsor, tser))
	}

	scale := partialScale
	if lengthRatio > longLengthRatio {
		scale = longPartialScale
	}

	partial := partialRatio(p1, p2) * scale
	ptsor := tokenSortRatio(p1, p2, partialRatio) * unbaseScale * scale
	ptser := tokenSetRatio(p1, p2, partialRatio) * unbaseScale * scale
	return truncate(max(base, partial, ptsor, ptser))
}

// Ratio returns the normalized indel similarity of the processed strings.
func Ratio(a, b string) int {
	return truncate(ratio([]rune(Process(a)), []rune(Process(b))))
}

// truncate drops the fraction so an integer score of n means the exact score is at
// least n. Rounding would let 87.5 pass a threshold of 88.
func truncate(score float64) int {
	return int(math.Floor(score + floatTolerance))
}

// ratio is 100 * (1 - indel/(len(a)+len(b))) where indel counts the insertions and
// deletions needed to turn a into b, i.e. len(a)+len(b)-2*LCS(a, b).
func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(a, b)) / float64(total)
}

// partialRatio scores the shorter string against every same-length window of the
// longer one and keeps the best.
func partialRatio(a, b []rune) float64 {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0.0
	for start := 0; start+len(short) <= len(long); start++ {
		if r := ratio(short, long[start:start+len(short)]); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

type ratioFunc func(a, b []rune) float64

func tokens(s []rune) []string {
	return strings.Fields(string(s))
}

// tokenSortRatio compares the strings with their words sorted.
func tokenSortRatio(a, b []rune, score ratioFunc) float64 {
	ta, tb := tokens(a), tokens(b)
	slices.Sort(ta)
	slices.Sort(tb)
	return score([]rune(strings.Join(ta, " ")), []rune(strings.Join(tb, " ")))
}

// tokenSetRatio compares the shared words against each side's shared+remaining words.
func tokenSetRatio(a, b []rune, score ratioFunc) float64 {
	setA, setB := uniqueSorted(tokens(a)), uniqueSorted(tokens(b))

	var common, onlyA, onlyB []string
	for _, t := range setA {
		if _, found := slices.BinarySearch(setB, t); found {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range setB {
		if _, found := slices.BinarySearch(setA, t); !found {
			onlyB = append(onlyB, t)
		}
	}

	sect := strings.Join(common, " ")
	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	rs, ra, rb := []rune(sect), []rune(combinedA), []rune(combinedB)
	return max(score(rs, ra), score(rs, rb), score(ra, rb))
}

func uniqueSorted(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// lcsLength is the length of the longest common subsequence, two-row DP.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
