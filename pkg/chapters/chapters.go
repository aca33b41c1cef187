// Package chapters turns author-curated "HH:MM:SS - label" chapter lists in
// video descriptions into candidate performance boundaries. Chapter markers
// are treated as ground truth, so every emitted mention carries a fixed high
// confidence.
package chapters

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"killtony-catalog/pkg/domain"
)

// ChapterConfidence is assigned to every chapter-derived mention.
const ChapterConfidence = 0.95

var (
	chapterLine   = regexp.MustCompile(`^((?:\d{1,2}:)?\d{1,2}:\d{2})\s*(?:[-–—|•])?\s*(.+)$`)
	parenthetical = regexp.MustCompile(`\([^)]*\)`)
	nameToken     = regexp.MustCompile(`[A-Z][a-zA-Z'-]*(?:\s+(?:de\s+la\s+|van\s+|von\s+|O'|Mc|Mac)?[A-Z][a-zA-Z'-]*)*`)
	nonNameChars  = regexp.MustCompile(`[^\w\s'-]`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// Labels that mark show segments rather than contestants.
var nonContestantLabels = map[string]struct{}{
	"intro":        {},
	"introduction": {},
	"housekeeping": {},
	"sponsors":     {},
	"sponsor":      {},
	"ads":          {},
	"ad":           {},
	"intermission": {},
	"outro":        {},
	"closing":      {},
	"credits":      {},
	"band":         {},
}

// ExtractMentions scans a video's description for chapter lines and emits
// one candidate mention per line naming a contestant. Pure function, no
// I/O. The result is sorted by start time.
func ExtractMentions(video domain.Video) []domain.CandidateMention {
	if video.Description == "" {
		return nil
	}

	var mentions []domain.CandidateMention

	for _, line := range strings.Split(video.Description, "\n") {
		match := chapterLine.FindStringSubmatch(strings.TrimSpace(strings.TrimSuffix(line, "\r")))
		if match == nil {
			continue
		}

		startSeconds, ok := parseTimestamp(match[1])
		if !ok {
			continue
		}

		label := strings.TrimSpace(match[2])
		name := contestantNameFromLabel(label)
		if name == "" {
			continue
		}

		mentions = append(mentions, domain.CandidateMention{
			Source:         domain.SourceChapter,
			ContestantName: name,
			StartSeconds:   startSeconds,
			Confidence:     ChapterConfidence,
			Snippet:        label,
		})
	}

	sort.Slice(mentions, func(i, j int) bool {
		return mentions[i].StartSeconds < mentions[j].StartSeconds
	})
	return mentions
}

// parseTimestamp converts "H:MM:SS" or "MM:SS" to seconds.
func parseTimestamp(value string) (int, bool) {
	parts := strings.Split(value, ":")
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, false
		}
		nums = append(nums, n)
	}

	switch len(nums) {
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2], true
	case 2:
		return nums[0]*60 + nums[1], true
	default:
		return 0, false
	}
}

// contestantNameFromLabel strips parenthetical asides, rejects known
// non-contestant labels, and pulls out a name-shaped token. Returns ""
// when the label does not name a person.
func contestantNameFromLabel(label string) string {
	cleaned := strings.TrimSpace(parenthetical.ReplaceAllString(label, ""))
	if cleaned == "" {
		return ""
	}

	if _, skip := nonContestantLabels[strings.ToLower(cleaned)]; skip {
		return ""
	}

	token := nameToken.FindString(cleaned)
	if token == "" {
		return ""
	}

	name := normalizeName(token)
	if len(name) < 2 {
		return ""
	}
	return name
}

func normalizeName(name string) string {
	name = nonNameChars.ReplaceAllString(name, "")
	name = spaceRuns.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
