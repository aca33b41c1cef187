// Package mentions scans transcript text for phrases that conventionally
// introduce a new contestant and scores each match. It is the fallback
// signal source, used only when a video's description carries no usable
// chapter markers.
package mentions

import (
	"strconv"
	"strings"

	"killtony-catalog/pkg/domain"
)

const (
	// Caption segments split sentences mid-phrase, so patterns are matched
	// against a sliding window of consecutive segments joined with spaces.
	matchWindow = 5

	// Confidence adjustments and bounds.
	multiWordBonus   = 0.15
	longSnippetBonus = 0.05
	minConfidence    = 0.10
	maxConfidence    = 0.99

	// Snippet window around the mention start, in seconds.
	snippetBefore = 5
	snippetAfter  = 10
	maxSnippetLen = 200
)

// Config adjusts extractor behavior.
type Config struct {
	// Denylist suppresses matches whose normalized name is a known
	// non-contestant speaker. Nil applies DefaultDenylist; an empty map
	// disables suppression.
	Denylist map[string]struct{}
}

// Extractor matches an ordered table of introduction-phrase patterns
// against caption segments.
type Extractor struct {
	rules    []patternRule
	denylist map[string]struct{}
}

// NewExtractor creates a transcript mention extractor.
func NewExtractor(cfg Config) *Extractor {
	denylist := cfg.Denylist
	if denylist == nil {
		denylist = DefaultDenylist()
	}
	return &Extractor{
		rules:    defaultRules,
		denylist: denylist,
	}
}

// ExtractMentions scans the segments for contestant introductions. Pure
// function, no I/O. Mentions are returned in scan order; sorting is the
// resolver's job.
func (e *Extractor) ExtractMentions(segments []domain.CaptionSegment) []domain.CandidateMention {
	var found []domain.CandidateMention

	for i := 0; i < len(segments); i++ {
		windowEnd := i + matchWindow
		if windowEnd > len(segments) {
			windowEnd = len(segments)
		}
		windowText := joinSegmentText(segments[i:windowEnd])

		name, base, ok := e.matchWindow(windowText)
		if !ok {
			continue
		}

		startSeconds := int(segments[i].StartSeconds)
		snippet := buildSnippet(segments, segments[i].StartSeconds)

		found = append(found, domain.CandidateMention{
			Source:         domain.SourceTranscript,
			ContestantName: name,
			StartSeconds:   startSeconds,
			Confidence:     scoreMention(base, name, snippet),
			Snippet:        snippet,
		})

		// Jump past the window so the same introduction is not matched
		// again from the next segment.
		i += matchWindow - 1
	}

	return found
}

// matchWindow tries each rule in priority order against the window text.
func (e *Extractor) matchWindow(text string) (name string, baseConfidence float64, ok bool) {
	for _, rule := range e.rules {
		match := rule.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		name := e.cleanName(match[1])
		if name == "" {
			continue
		}
		return name, rule.baseConfidence, true
	}
	return "", 0, false
}

// cleanName truncates the raw capture at the first stopword, normalizes
// capitalization, and rejects tokens that cannot be a contestant name.
func (e *Extractor) cleanName(raw string) string {
	var words []string
	for _, word := range strings.Fields(raw) {
		if _, stop := stopwords[strings.ToLower(word)]; stop {
			break
		}
		words = append(words, word)
	}
	if len(words) == 0 {
		return ""
	}

	name := capitalizeName(strings.Join(words, " "))
	lower := strings.ToLower(name)

	if len(name) < 2 {
		return ""
	}
	if _, err := strconv.Atoi(name); err == nil {
		return ""
	}
	if _, denied := e.denylist[lower]; denied {
		return ""
	}
	return name
}

// scoreMention applies the confidence bonuses and clamps the result.
func scoreMention(base float64, name, snippet string) float64 {
	confidence := base
	if len(strings.Fields(name)) >= 2 {
		confidence += multiWordBonus
	}
	if len(snippet) > 40 {
		confidence += longSnippetBonus
	}

	if confidence > maxConfidence {
		return maxConfidence
	}
	if confidence < minConfidence {
		return minConfidence
	}
	return confidence
}

// buildSnippet joins segment text around the mention start, truncated to a
// readable length.
func buildSnippet(segments []domain.CaptionSegment, startSeconds float64) string {
	var parts []string
	for _, seg := range segments {
		if seg.StartSeconds >= startSeconds-snippetBefore && seg.StartSeconds <= startSeconds+snippetAfter {
			parts = append(parts, seg.Text)
		}
	}

	snippet := strings.Join(parts, " ")
	if len(snippet) > maxSnippetLen {
		return snippet[:maxSnippetLen-3] + "..."
	}
	return snippet
}

func joinSegmentText(segments []domain.CaptionSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

// capitalizeName re-capitalizes each word; auto-captions often arrive all
// lowercase or all uppercase.
func capitalizeName(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
