package mentions

import "regexp"

// patternRule pairs an introduction phrase pattern with a base confidence
// reflecting how unambiguous the phrase is. Rules are evaluated in order;
// the first match wins.
type patternRule struct {
	pattern        *regexp.Regexp
	baseConfidence float64
}

// The captured group is a run of up to three name-like words; apostrophes
// and hyphens are allowed so names like O'Neil and Jean-Claude survive.
// Auto-generated captions are frequently all lowercase, so the name words
// are matched case-insensitively and re-capitalized later.
const nameGroup = `([A-Za-z][A-Za-z'-]*(?:\s+[A-Za-z][A-Za-z'-]*){0,2})`

// defaultRules is the ordered introduction-phrase table. Curated announcer
// phrases score highest; generic transition phrases score lowest.
var defaultRules = []patternRule{
	{
		pattern:        regexp.MustCompile(`(?i)(?:please welcome|put your hands together for|give it up for)\s+` + nameGroup),
		baseConfidence: 0.80,
	},
	{
		pattern:        regexp.MustCompile(`(?i)(?:our next comedian is|let's hear it for|coming to the stage,?|introducing)\s+` + nameGroup),
		baseConfidence: 0.70,
	},
	{
		pattern:        regexp.MustCompile(`(?i)(?:next up(?: is)?|here(?:'s| is)|we have)\s+` + nameGroup),
		baseConfidence: 0.60,
	},
	{
		pattern:        regexp.MustCompile(`(?i)` + nameGroup + `,?\s+(?:come on up|take the stage|you're up)`),
		baseConfidence: 0.65,
	},
}

// DefaultDenylist names the show's recurring non-contestant speakers: the
// host, the sidekick, and the house band. This is configuration data, not
// fixed business logic; callers may replace it wholesale via Config.
func DefaultDenylist() map[string]struct{} {
	names := []string{
		"tony",
		"tony hinchcliffe",
		"redban",
		"brian redban",
		"william montgomery",
		"kill tony",
		"the band",
		"band",
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// stopwords are generic words that can trail or replace a captured name.
// A captured name is truncated at the first stopword; a name consisting
// only of stopwords is rejected.
var stopwords = map[string]struct{}{
	"to": {}, "the": {}, "a": {}, "an": {}, "on": {}, "in": {}, "at": {},
	"for": {}, "and": {}, "is": {}, "up": {}, "out": {}, "stage": {},
	"everyone": {}, "everybody": {}, "you": {}, "me": {}, "him": {},
	"her": {}, "them": {}, "us": {}, "guys": {}, "ladies": {},
	"gentlemen": {}, "next": {}, "this": {}, "that": {}, "your": {},
	"our": {}, "my": {},
}
