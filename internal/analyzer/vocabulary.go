package analyzer

// Vocabulary holds the word lists the analyzer scans for. The lists are
// data, not logic: callers may supply their own, and DefaultVocabulary
// returns the canonical set used in production.
type Vocabulary struct {
	// PowerWords is hype vocabulary that signals an attention-grabbing script.
	PowerWords []string
	// RiskyClaims is health/efficacy superlative vocabulary. Entries may be
	// multi-word phrases, matched as substrings of the case-folded text.
	RiskyClaims []string
	// Positive and Negative drive the bag-of-words sentiment score.
	Positive []string
	// Negative see Positive.
	Negative []string
	// CTAVerbs are imperative verbs matched per line, case-insensitive.
	CTAVerbs []string
}

// DefaultVocabulary returns the canonical production word lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		PowerWords: []string{
			"secret", "hack", "insane", "crazy", "amazing", "unbelievable",
			"shocking", "instantly", "exposed", "viral", "free", "proven",
			"ultimate", "guaranteed", "trick", "genius",
		},
		RiskyClaims: []string{
			"miracle", "cure", "cures", "detox", "guaranteed results",
			"no side effects", "clinically proven", "100% effective",
			"instant results", "lose weight fast", "melts fat",
		},
		Positive: []string{
			"love", "great", "amazing", "best", "happy", "win", "good",
			"awesome", "perfect", "easy", "beautiful", "favorite",
		},
		Negative: []string{
			"bad", "hate", "worst", "fail", "scam", "problem", "hard",
			"never", "broke", "waste", "ugly", "annoying",
		},
		CTAVerbs: []string{
			"buy", "shop", "order", "tap", "click", "follow", "subscribe",
			"comment", "share", "download", "grab", "dm",
		},
	}
}
