package models

// AnalysisResult holds the heuristic metrics derived from a transcript.
// It is a pure function of the transcript text: re-analyzing the same
// text must produce an identical result.
type AnalysisResult struct {
	Metrics   AnalysisMetrics   `json:"metrics"`
	HookScore float64           `json:"hook_score"`
	Structure AnalysisStructure `json:"structure"`
}

// AnalysisMetrics are the raw counts and extracted substrings.
type AnalysisMetrics struct {
	Words               int      `json:"words"`
	Sentences           int      `json:"sentences"`
	AvgWordsPerSentence float64  `json:"avg_words_per_sentence"`
	PowerWords          []string `json:"power_words"`
	RiskyClaims         []string `json:"risky_claims"`
	CTALines            []string `json:"cta_lines"`
	DigitTokens         int      `json:"digit_tokens"`
	Exclamations        int      `json:"exclamations"`
	Questions           int      `json:"questions"`
	Sentiment           float64  `json:"sentiment"`
}

// AnalysisStructure describes the shape of the script: the opening line,
// the last call-to-action line, and whether risky efficacy claims appear.
type AnalysisStructure struct {
	Prehook        string `json:"prehook"`
	CTA            string `json:"cta"`
	HasRiskyClaims bool   `json:"has_risky_claims"`
}
