package enrich

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	summaryWordThreshold = 30
	summarySentences     = 2
	maxAutoTags          = 5
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Engine derives summaries, tags, sentiment, and mood suggestions from
// transcript text using fixed Turkish keyword lexicons. All methods are pure
// and safe for concurrent use.
type Engine struct{}

// NewEngine returns a keyword enrichment engine.
func NewEngine() *Engine {
	return &Engine{}
}

// lowerTurkish folds case with Turkish rules, so dotted and dotless I map
// correctly. A Caser is not safe for concurrent use, so each call builds its
// own.
func lowerTurkish(text string) string {
	return cases.Lower(language.Turkish).String(text)
}

// Summarize produces an extractive summary of at most two sentences. Short
// texts (under 30 words) come back unchanged, as do texts with two or fewer
// sentences.
func (e *Engine) Summarize(text string) string {
	if len(strings.Fields(text)) < summaryWordThreshold {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) <= summarySentences {
		return text
	}

	type scored struct {
		score int
		index int
	}
	ranked := make([]scored, 0, len(sentences))
	for i, sentence := range sentences {
		lowered := lowerTurkish(sentence)
		score := 0
		if i == 0 {
			score += 2
		}
		for _, category := range tagCategories {
			for _, keyword := range category.Keywords {
				if strings.Contains(lowered, keyword) {
					score++
					break
				}
			}
		}
		if len(strings.Fields(sentence)) < 5 {
			score--
		}
		ranked = append(ranked, scored{score: score, index: i})
	}

	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].index > ranked[b].index
	})

	top := make([]int, 0, summarySentences)
	for _, s := range ranked[:summarySentences] {
		top = append(top, s.index)
	}
	sort.Ints(top)

	picked := make([]string, 0, len(top))
	for _, idx := range top {
		picked = append(picked, sentences[idx])
	}
	return strings.Join(picked, ". ") + "."
}

// AutoTag returns up to five tags whose keyword variants appear in the text,
// in fixed category order.
func (e *Engine) AutoTag(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lowered := lowerTurkish(text)
	var tags []string
	for _, category := range tagCategories {
		for _, keyword := range category.Keywords {
			if strings.Contains(lowered, keyword) {
				tags = append(tags, category.Tag)
				break
			}
		}
		if len(tags) == maxAutoTags {
			break
		}
	}
	return tags
}

// AnalyzeSentiment scores the text from -1 to 1 by lexicon presence. Each
// lexicon word counts at most once no matter how often it appears. Text with
// no hits scores exactly 0.
func (e *Engine) AnalyzeSentiment(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	lowered := lowerTurkish(text)
	positive := 0
	for _, word := range positiveWords {
		if strings.Contains(lowered, word) {
			positive++
		}
	}
	negative := 0
	for _, word := range negativeWords {
		if strings.Contains(lowered, word) {
			negative++
		}
	}

	total := positive + negative
	if total == 0 {
		return 0.0
	}

	score := float64(positive-negative) / float64(total)
	if score > 1.0 {
		return 1.0
	}
	if score < -1.0 {
		return -1.0
	}
	return score
}

// SuggestMood maps the sentiment score onto a mood label through half-open
// bands. A score of exactly 1.0 falls outside every band and reads neutral.
func (e *Engine) SuggestMood(text string) string {
	sentiment := e.AnalyzeSentiment(text)

	bands := []struct {
		low, high float64
		mood      string
	}{
		{0.5, 1.0, "happy"},
		{0.2, 0.5, "peaceful"},
		{-0.2, 0.2, "neutral"},
		{-0.5, -0.2, "anxious"},
		{-1.0, -0.5, "sad"},
	}
	for _, band := range bands {
		if band.low <= sentiment && sentiment < band.high {
			return band.mood
		}
	}
	return "neutral"
}

func splitSentences(text string) []string {
	raw := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, part := range raw {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}
