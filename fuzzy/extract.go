package fuzzy

// Match is the best candidate found by ExtractOne.
type Match struct {
	Value string
	Score int
	Index int
}

// ExtractOne scores query against every choice and returns the best one.
// Ties go to the earliest choice. ok is false when choices is empty.
func ExtractOne(query string, choices []string, scorer Scorer) (Match, bool) {
	if scorer == nil {
		scorer = Default
	}
	if len(choices) == 0 {
		return Match{Index: -1}, false
	}

	best := Match{Index: -1, Score: -1}
	for i, choice := range choices {
		score := scorer.Score(query, choice)
		if score > best.Score {
			best = Match{Value: choice, Score: score, Index: i}
			if score == 100 {
				break
			}
		}
	}
	return best, true
}
