// Package analyzer derives heuristic metrics from a transcript. Analysis is
// a pure function of the input text: no I/O, no state, never fails.
package analyzer

import (
	"math"
	"regexp"
	"strings"

	"github.com/marandichmax-boop/tiktok-analyzer-backend/pkg/models"
)

// Tokenization regexes compiled once at package init.
var (
	reWord        = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)*`)
	reSentenceEnd = regexp.MustCompile(`[.!?]+\s+`)
	reDigit       = regexp.MustCompile(`\p{N}`)
)

// Hook score signal weights. They sum to 1.0 so no cap is needed.
const (
	weightPowerWord  = 0.3
	weightDigitToken = 0.2
	weightFirstLine  = 0.3
	weightWordCount  = 0.2
)

const (
	maxPrehookLen = 150
	minHookWords  = 30
	maxHookWords  = 220
)

// Analyzer scans transcripts against a fixed vocabulary.
type Analyzer struct {
	vocab Vocabulary
	ctaRe *regexp.Regexp
}

// New builds an Analyzer for the given vocabulary.
func New(vocab Vocabulary) *Analyzer {
	pattern := `(?i)\b(` + strings.Join(vocab.CTAVerbs, "|") + `)\b`
	return &Analyzer{
		vocab: vocab,
		ctaRe: regexp.MustCompile(pattern),
	}
}

// Analyze computes the full metric set for a transcript. Empty or
// whitespace-only input yields the zero result.
func (a *Analyzer) Analyze(text string) models.AnalysisResult {
	result := models.AnalysisResult{
		Metrics: models.AnalysisMetrics{
			PowerWords:  []string{},
			RiskyClaims: []string{},
			CTALines:    []string{},
		},
	}

	if strings.TrimSpace(text) == "" {
		return result
	}

	tokens := reWord.FindAllString(text, -1)
	words := len(tokens)

	// Splitting on terminator+whitespace leaves trailing punctuation attached
	// to the last segment; text without any terminator is a single sentence.
	sentences := 0
	for _, seg := range reSentenceEnd.Split(text, -1) {
		if strings.TrimSpace(seg) != "" {
			sentences++
		}
	}
	if sentences < 1 {
		sentences = 1
	}

	folded := strings.ToLower(text)
	tokenSet := make(map[string]bool, words)
	digitTokens := 0
	for _, tok := range tokens {
		tokenSet[strings.ToLower(tok)] = true
		if reDigit.MatchString(tok) {
			digitTokens++
		}
	}

	result.Metrics.Words = words
	result.Metrics.Sentences = sentences
	result.Metrics.AvgWordsPerSentence = round2(float64(words) / float64(sentences))
	result.Metrics.PowerWords = matchVocabulary(a.vocab.PowerWords, folded, tokenSet)
	result.Metrics.RiskyClaims = matchVocabulary(a.vocab.RiskyClaims, folded, tokenSet)
	result.Metrics.DigitTokens = digitTokens
	result.Metrics.Exclamations = strings.Count(text, "!")
	result.Metrics.Questions = strings.Count(text, "?")
	result.Metrics.Sentiment = a.sentiment(tokens)

	lines := splitLines(text)
	prehook := ""
	if len(lines) > 0 {
		prehook = lines[0]
	}
	cta := ""
	for _, line := range lines {
		if a.ctaRe.MatchString(line) {
			result.Metrics.CTALines = append(result.Metrics.CTALines, line)
			cta = line
		}
	}

	result.Structure = models.AnalysisStructure{
		Prehook:        prehook,
		CTA:            cta,
		HasRiskyClaims: len(result.Metrics.RiskyClaims) > 0,
	}

	score := 0.0
	if len(result.Metrics.PowerWords) > 0 {
		score += weightPowerWord
	}
	if digitTokens > 0 {
		score += weightDigitToken
	}
	if n := len([]rune(prehook)); n >= 1 && n <= maxPrehookLen {
		score += weightFirstLine
	}
	if words >= minHookWords && words <= maxHookWords {
		score += weightWordCount
	}
	result.HookScore = round2(score)

	return result
}

// sentiment scores +1 per positive token, -1 per negative token, normalized
// by sqrt(words) so long transcripts do not dominate.
func (a *Analyzer) sentiment(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}

	positive := make(map[string]bool, len(a.vocab.Positive))
	for _, w := range a.vocab.Positive {
		positive[w] = true
	}
	negative := make(map[string]bool, len(a.vocab.Negative))
	for _, w := range a.vocab.Negative {
		negative[w] = true
	}

	score := 0
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		if positive[lower] {
			score++
		}
		if negative[lower] {
			score--
		}
	}

	return round2(float64(score) / math.Sqrt(float64(len(tokens))))
}

// matchVocabulary returns the vocabulary entries present in the text, in
// vocabulary order. Single words match whole tokens; phrases match as
// substrings of the case-folded text.
func matchVocabulary(vocab []string, folded string, tokenSet map[string]bool) []string {
	matched := []string{}
	for _, entry := range vocab {
		lower := strings.ToLower(entry)
		if strings.ContainsRune(lower, ' ') {
			if strings.Contains(folded, lower) {
				matched = append(matched, entry)
			}
			continue
		}
		if tokenSet[lower] {
			matched = append(matched, entry)
		}
	}
	return matched
}

// splitLines returns the trimmed non-empty lines of the text.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
