// Package sector classifies text into cognitive sectors and pre-filters
// text that is not worth remembering.
package sector

import (
	"regexp"
	"sort"
	"strings"

	"github.com/engramkit/engram/internal/model"
)

// pattern is one weighted regex in a sector's table.
type pattern struct {
	re     *regexp.Regexp
	weight float64
}

// sectorPatterns is the immutable classification table, compiled once at
// package init and indexed by sector.
var sectorPatterns = map[model.Sector][]pattern{
	model.SectorSemantic: {
		{regexp.MustCompile(`(?i)\b(?:is|are|was|were)\s+(?:a|an|the)\b`), 1.0},
		{regexp.MustCompile(`(?i)\b(?:lives?|works?|studies|studied)\s+(?:in|at|for)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:name|birthday|address|email|phone)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:means|defined as|known as|called)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:fact|information|detail)s?\b`), 1.0},
		{regexp.MustCompile(`(?i)\b(?:likes?|loves?|prefers?|favorite|enjoys?)\b`), 1.5},
	},
	model.SectorEpisodic: {
		{regexp.MustCompile(`(?i)\b(?:yesterday|today|tomorrow|last\s+(?:week|month|year|night))\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:went|visited|met|saw|attended|traveled)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:on\s+(?:mon|tues|wednes|thurs|fri|satur|sun)day)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:happened|occurred|event|meeting|appointment)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:at\s+\d{1,2}(?::\d{2})?\s*(?:am|pm)?)\b`), 1.0},
		{regexp.MustCompile(`\b(?:19|20)\d{2}\b`), 1.0},
	},
	model.SectorProcedural: {
		{regexp.MustCompile(`(?i)\b(?:how\s+to|steps?\s+to|in\s+order\s+to)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:first|then|next|finally|afterwards)\b.*\b(?:then|next|finally)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:install|configure|setup|build|run|execute|compile)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:process|procedure|method|workflow|routine|recipe)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:always|never)\s+\w+\s+before\b`), 1.0},
	},
	model.SectorEmotional: {
		{regexp.MustCompile(`(?i)\b(?:feel|feels|felt|feeling)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:happy|sad|angry|anxious|excited|frustrated|scared|proud)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:hate|hated|afraid|worried|stressed|overwhelmed)\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:amazing|terrible|wonderful|awful|horrible)\b`), 1.0},
		{regexp.MustCompile(`(?i)(?:!{2,}|\b(?:so|really|very)\s+(?:much|bad|good))`), 0.5},
	},
	model.SectorReflective: {
		{regexp.MustCompile(`(?i)\b(?:i\s+(?:think|believe|realize[d]?|wonder|learned))\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:should\s+have|could\s+have|next\s+time|in\s+hindsight)\b`), 2.0},
		{regexp.MustCompile(`(?i)\b(?:goal|plan|intention|resolution|aspiration)s?\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:lesson|insight|takeaway|reflection)s?\b`), 1.5},
		{regexp.MustCompile(`(?i)\b(?:want\s+to\s+(?:be|become|improve|change))\b`), 1.0},
	},
}

// Classification is the result of classifying a piece of text.
type Classification struct {
	Primary    model.Sector
	Additional []model.Sector
	Confidence float64
	Scores     map[model.Sector]float64
}

// Classifier scores text against the per-sector pattern tables.
// The zero value is not usable; construct with New.
type Classifier struct {
	patterns map[model.Sector][]pattern
}

// New returns a Classifier over the built-in pattern tables.
func New() *Classifier {
	return &Classifier{patterns: sectorPatterns}
}

// Classify assigns text to its highest-scoring sector. When nothing
// matches it defaults to semantic with low confidence rather than failing.
func (c *Classifier) Classify(text string) Classification {
	scores := make(map[model.Sector]float64, len(c.patterns))
	for sec, pats := range c.patterns {
		var score float64
		for _, p := range pats {
			score += float64(len(p.re.FindAllStringIndex(text, -1))) * p.weight
		}
		scores[sec] = score
	}

	primary := model.SectorSemantic
	var best, second float64
	for _, sec := range model.Sectors {
		s := scores[sec]
		if s > best {
			second = best
			best = s
			primary = sec
		} else if s > second {
			second = s
		}
	}

	if best == 0 {
		return Classification{
			Primary:    model.SectorSemantic,
			Confidence: 0.2,
			Scores:     scores,
		}
	}

	threshold := best * 0.3
	if threshold < 1.0 {
		threshold = 1.0
	}
	var additional []model.Sector
	for _, sec := range model.Sectors {
		if sec != primary && scores[sec] >= threshold {
			additional = append(additional, sec)
		}
	}
	sort.Slice(additional, func(i, j int) bool {
		return scores[additional[i]] > scores[additional[j]]
	})

	return Classification{
		Primary:    primary,
		Additional: additional,
		Confidence: model.Clamp01(best / (best + second + 1)),
		Scores:     scores,
	}
}

// Forced short-circuits scoring with an explicitly supplied sector.
func (c *Classifier) Forced(sec model.Sector) Classification {
	return Classification{Primary: sec, Confidence: 1.0, Scores: map[model.Sector]float64{sec: 1}}
}

// Deny-list for the worthiness pre-filter: greetings, commands, filler.
var rejectPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)^(?:hi|hello|hey|yo|sup|good\s+(?:morning|afternoon|evening|night))[!.\s]*$`), "greeting"},
	{regexp.MustCompile(`(?i)^(?:ok(?:ay)?|yes|no|yeah|nah|sure|thanks?|thank\s+you|bye|goodbye)[!.\s]*$`), "filler"},
	{regexp.MustCompile(`(?i)^(?:open|close|quit|exit|stop|start|play|pause|scroll|click)\b.{0,20}$`), "command"},
	{regexp.MustCompile(`^[\d\s\W]*$`), "no letters"},
}

// High-value personal-information patterns accepted unconditionally.
var acceptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy\s+(?:name|birthday|address|email|phone|wife|husband|son|daughter|job)\b`),
	regexp.MustCompile(`(?i)\bi\s+(?:live|work|was\s+born|grew\s+up)\b`),
	regexp.MustCompile(`(?i)\bi(?:'m|\s+am)\s+allergic\b`),
	regexp.MustCompile(`(?i)\bmy\s+favorite\b`),
}

// WorthRemembering is a fast pre-filter over the raw input string.
// It is pure regex over the input and never touches the store.
func WorthRemembering(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, "empty"
	}
	for _, rp := range rejectPatterns {
		if rp.re.MatchString(trimmed) {
			return false, rp.reason
		}
	}
	for _, re := range acceptPatterns {
		if re.MatchString(trimmed) {
			return true, "personal information"
		}
	}
	if len(trimmed) < 20 {
		return false, "too short"
	}
	return true, "substantive"
}
