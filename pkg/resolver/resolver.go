// Package resolver merges a video's candidate mentions into final
// performances: it deduplicates repeated mentions of the same contestant
// and infers each performance's end time from its successor.
package resolver

import (
	"sort"
	"strings"

	"killtony-catalog/pkg/domain"
)

const (
	// DedupWindowSeconds suppresses a repeated mention of the same name
	// within this window; a performer is often named again during their own
	// set ("one more time for X").
	DedupWindowSeconds = 120

	// MinSetSeconds is the minimum credible performance length.
	MinSetSeconds = 30

	// MaxSetSeconds caps a transcript-estimated performance. A long gap to
	// the next transcript mention is interview time or crowd work, not one
	// continuous set; chapter markers are author-curated and not capped.
	MaxSetSeconds = 120

	// EndBufferSeconds ends a performance this long before the next one
	// begins.
	EndBufferSeconds = 5

	// TypicalSetSeconds estimates the end of the last transcript-sourced
	// performance, whose true end is unknown.
	TypicalSetSeconds = 60

	// minSpacingSeconds drops a mention that follows its predecessor too
	// closely for both to be real sets; keeps start/end monotonic and the
	// minimum duration intact by construction.
	minSpacingSeconds = MinSetSeconds + EndBufferSeconds
)

// Resolve turns one video's candidate mentions into performances. The
// caller passes mentions from exactly one source per video: chapters when
// present and non-empty, transcript mentions otherwise; the two are never
// merged. Output start times are strictly increasing and non-overlapping.
func Resolve(videoID string, candidates []domain.CandidateMention) []domain.ExtractedPerformance {
	if len(candidates) == 0 {
		return nil
	}

	mentions := make([]domain.CandidateMention, len(candidates))
	copy(mentions, candidates)
	sort.SliceStable(mentions, func(i, j int) bool {
		return mentions[i].StartSeconds < mentions[j].StartSeconds
	})

	survivors := dedup(mentions)

	performances := make([]domain.ExtractedPerformance, 0, len(survivors))
	for i, mention := range survivors {
		performances = append(performances, domain.ExtractedPerformance{
			EpisodeYouTubeID: videoID,
			ContestantName:   mention.ContestantName,
			StartSeconds:     mention.StartSeconds,
			EndSeconds:       endSeconds(survivors, i),
			Confidence:       mention.Confidence,
			IntroSnippet:     mention.Snippet,
		})
	}
	return performances
}

// dedup scans in time order, suppressing a mention whose normalized name
// already survived within the dedup window, and any mention following its
// predecessor too closely to be a separate set.
func dedup(mentions []domain.CandidateMention) []domain.CandidateMention {
	var survivors []domain.CandidateMention
	lastSeen := make(map[string]int)

	for _, mention := range mentions {
		key := strings.ToLower(strings.TrimSpace(mention.ContestantName))
		if key == "" {
			continue
		}

		if at, ok := lastSeen[key]; ok && mention.StartSeconds-at <= DedupWindowSeconds {
			continue
		}
		if n := len(survivors); n > 0 && mention.StartSeconds-survivors[n-1].StartSeconds < minSpacingSeconds {
			continue
		}

		lastSeen[key] = mention.StartSeconds
		survivors = append(survivors, mention)
	}
	return survivors
}

// endSeconds infers the end of the i-th surviving mention: a buffer before
// the next mention, never shorter than the minimum set length, and for
// transcript mentions never longer than the maximum. The last mention has
// no successor; chapter mode leaves the end unknown, transcript mode
// estimates a typical set length.
func endSeconds(survivors []domain.CandidateMention, i int) *int {
	mention := survivors[i]

	if i+1 < len(survivors) {
		end := survivors[i+1].StartSeconds - EndBufferSeconds
		if mention.Source == domain.SourceTranscript {
			if maxEnd := mention.StartSeconds + MaxSetSeconds; end > maxEnd {
				end = maxEnd
			}
		}
		if minEnd := mention.StartSeconds + MinSetSeconds; end < minEnd {
			end = minEnd
		}
		return &end
	}

	if mention.Source == domain.SourceChapter {
		return nil
	}
	end := mention.StartSeconds + TypicalSetSeconds
	return &end
}
