// Package classify filters a channel's raw video list down to genuine
// numbered episodes of the show, separating them from clips, compilations,
// and trailers.
package classify

import (
	"regexp"
	"strconv"
	"strings"

	"killtony-catalog/pkg/domain"
)

// ShowName is matched case-insensitively against video titles. A video
// whose title does not mention the show is never an episode.
const ShowName = "kill tony"

// Titles containing any of these markers are not full episodes.
var nonEpisodeMarkers = []string{
	"clip",
	"compilation",
	"trailer",
	"highlights",
	"best of",
	"preview",
}

var (
	hashNumber     = regexp.MustCompile(`#(\d+)`)
	episodeNumber  = regexp.MustCompile(`(?i)episode\s*(\d+)`)
	epAbbreviation = regexp.MustCompile(`(?i)\bep\.?\s*(\d+)`)
)

// IsEpisode reports whether a title names a full episode of the show.
func IsEpisode(title string) bool {
	lower := strings.ToLower(title)

	if !strings.Contains(lower, ShowName) {
		return false
	}
	for _, marker := range nonEpisodeMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// ExtractEpisodeNumber parses the episode number from a title. Formats, in
// order of preference: "#712", "Episode 712", "Ep. 712". Returns nil when
// none match; a missing number does not disqualify the video.
func ExtractEpisodeNumber(title string) *int {
	for _, pattern := range []*regexp.Regexp{hashNumber, episodeNumber, epAbbreviation} {
		match := pattern.FindStringSubmatch(title)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		return &n
	}
	return nil
}

// Classify filters videos down to episodes. Pure function; repeated calls
// over the same input produce the same output.
func Classify(videos []domain.Video) []domain.Episode {
	episodes := make([]domain.Episode, 0, len(videos))
	for _, video := range videos {
		if !IsEpisode(video.Title) {
			continue
		}
		episodes = append(episodes, domain.Episode{
			YouTubeID:       video.ID,
			Title:           video.Title,
			EpisodeNumber:   ExtractEpisodeNumber(video.Title),
			PublishedAt:     video.PublishedAt,
			DurationSeconds: video.DurationSeconds,
			URL:             video.URL,
		})
	}
	return episodes
}
