package captions

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"strings"

	"killtony-catalog/pkg/domain"
)

// timedText mirrors YouTube's timedtext XML: a flat list of <text> elements
// carrying start and dur attributes.
type timedText struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Body     string  `xml:",chardata"`
}

// ParseSegments normalizes a caption-track payload into segments. Providers
// return either timed-text XML markup or a JSON segment array; both forms
// are accepted.
func ParseSegments(payload []byte) ([]domain.CaptionSegment, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, nil
	}

	if trimmed[0] == '[' || trimmed[0] == '{' {
		return parseJSONSegments(trimmed)
	}
	return parseTimedTextXML(trimmed)
}

func parseTimedTextXML(payload string) ([]domain.CaptionSegment, error) {
	var doc timedText
	if err := xml.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}

	segments := make([]domain.CaptionSegment, 0, len(doc.Texts))
	for _, cue := range doc.Texts {
		text := decodeCueText(cue.Body)
		if text == "" {
			continue
		}
		segments = append(segments, domain.CaptionSegment{
			Text:            text,
			StartSeconds:    cue.Start,
			DurationSeconds: cue.Duration,
		})
	}
	return segments, nil
}

// jsonEvents covers YouTube's json3 track format.
type jsonEvents struct {
	Events []struct {
		StartMs    float64 `json:"tStartMs"`
		DurationMs float64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// jsonSegment covers the plain segment-array form used by the fallback
// provider.
type jsonSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func parseJSONSegments(payload string) ([]domain.CaptionSegment, error) {
	if strings.HasPrefix(payload, "[") {
		var entries []jsonSegment
		if err := json.Unmarshal([]byte(payload), &entries); err != nil {
			return nil, fmt.Errorf("parse segment array: %w", err)
		}

		segments := make([]domain.CaptionSegment, 0, len(entries))
		for _, entry := range entries {
			text := decodeCueText(entry.Text)
			if text == "" {
				continue
			}
			segments = append(segments, domain.CaptionSegment{
				Text:            text,
				StartSeconds:    entry.Start,
				DurationSeconds: entry.Duration,
			})
		}
		return segments, nil
	}

	var doc jsonEvents
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("parse json3 track: %w", err)
	}

	segments := make([]domain.CaptionSegment, 0, len(doc.Events))
	for _, event := range doc.Events {
		var parts []string
		for _, seg := range event.Segs {
			if s := strings.TrimSpace(seg.UTF8); s != "" {
				parts = append(parts, s)
			}
		}
		text := decodeCueText(strings.Join(parts, " "))
		if text == "" {
			continue
		}
		segments = append(segments, domain.CaptionSegment{
			Text:            text,
			StartSeconds:    event.StartMs / 1000,
			DurationSeconds: event.DurationMs / 1000,
		})
	}
	return segments, nil
}

// decodeCueText strips entity encoding and newlines from cue text. Track
// payloads are frequently double-escaped ("&amp;#39;"), so unescape twice.
func decodeCueText(text string) string {
	text = html.UnescapeString(html.UnescapeString(text))
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
