package conflict

// bigrams returns the multiset of adjacent rune pairs of a string.
func bigrams(s string) map[string]int {
	runes := []rune(s)
	grams := map[string]int{}
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])]++
	}
	return grams
}

// Similarity computes the Sorensen-Dice coefficient over rune bigrams of
// two strings, in [0, 1]. Identical strings score 1; strings shorter than
// two runes only match exactly.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	gramsA := bigrams(a)
	gramsB := bigrams(b)
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0
	}

	totalA := 0
	for _, n := range gramsA {
		totalA += n
	}
	totalB := 0
	for _, n := range gramsB {
		totalB += n
	}

	overlap := 0
	for gram, n := range gramsA {
		if m, ok := gramsB[gram]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}

	return 2 * float64(overlap) / float64(totalA+totalB)
}
