package captions

import (
	"encoding/json"
	"errors"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoCaptionTracks  = errors.New("no caption tracks in watch page")
	ErrCaptionsDisabled = errors.New("captions are disabled for this video")
)

// CaptionTrack is one entry of the caption-track manifest embedded in a
// watch page's player payload.
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

const trackMarker = `"captionTracks":`

// ExtractCaptionTracks finds the caption-track manifest inside a watch
// page. The manifest lives in a script payload; goquery narrows the search
// to script elements before scanning for the manifest literal, and the scan
// tolerates the payload appearing inside an escaped JSON string.
func ExtractCaptionTracks(html string) ([]CaptionTrack, error) {
	if strings.Contains(strings.ToLower(html), "captions are disabled") {
		return nil, ErrCaptionsDisabled
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		var tracks []CaptionTrack
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			found, ok := scanTracks(sel.Text())
			if ok {
				tracks = found
				return false
			}
			return true
		})
		if tracks != nil {
			return tracks, nil
		}
	}

	// Some page variants inline the payload outside script elements or the
	// HTML does not parse cleanly; fall back to scanning the raw document.
	if tracks, ok := scanTracks(html); ok {
		return tracks, nil
	}

	return nil, ErrNoCaptionTracks
}

// scanTracks looks for the manifest literal in one text blob.
func scanTracks(text string) ([]CaptionTrack, bool) {
	raw, ok := sliceTrackArray(text)
	if !ok {
		// Escaped variant: the manifest sits inside a JSON string value.
		unescaped := strings.ReplaceAll(text, `\"`, `"`)
		raw, ok = sliceTrackArray(unescaped)
		if !ok {
			return nil, false
		}
	}

	var tracks []CaptionTrack
	if err := json.Unmarshal([]byte(raw), &tracks); err != nil {
		return nil, false
	}
	if len(tracks) == 0 {
		return nil, false
	}
	for i := range tracks {
		tracks[i].BaseURL = decodeTrackURL(tracks[i].BaseURL)
	}
	return tracks, true
}

// decodeTrackURL resolves escapes that survive extraction. Track URLs
// separate query parameters with ampersands, which arrive as \u0026 in
// double-escaped payloads and &amp; in some page variants; left encoded,
// the download hits a corrupt URL.
func decodeTrackURL(raw string) string {
	raw = strings.ReplaceAll(raw, `\u0026`, "&")
	return html.UnescapeString(raw)
}

// sliceTrackArray returns the JSON array literal following the manifest
// marker, using a depth scanner that is aware of strings and escapes.
func sliceTrackArray(text string) (string, bool) {
	markerIdx := strings.Index(text, trackMarker)
	if markerIdx == -1 {
		return "", false
	}

	start := strings.IndexByte(text[markerIdx:], '[')
	if start == -1 {
		return "", false
	}
	start += markerIdx

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}

// SelectTrack chooses the preferred track: manually authored English, then
// auto-generated English, then the first track of any language.
func SelectTrack(tracks []CaptionTrack) (CaptionTrack, bool) {
	if len(tracks) == 0 {
		return CaptionTrack{}, false
	}

	for _, track := range tracks {
		if track.LanguageCode == "en" && track.Kind != "asr" && track.BaseURL != "" {
			return track, true
		}
	}
	for _, track := range tracks {
		if track.LanguageCode == "en" && track.Kind == "asr" && track.BaseURL != "" {
			return track, true
		}
	}
	for _, track := range tracks {
		if track.BaseURL != "" {
			return track, true
		}
	}
	return CaptionTrack{}, false
}
