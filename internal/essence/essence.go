// Package essence condenses raw text into atomic, third-person memory
// candidates. It is the fallback path used when no extraction service
// is available.
package essence

import (
	"regexp"
	"sort"
	"strings"

	"github.com/engramkit/engram/internal/model"
	"github.com/engramkit/engram/internal/sector"
	"github.com/engramkit/engram/internal/text"
)

const minSentenceLen = 15

// Extractor scores and selects sentences, rewrites first-person phrasing
// to third person, and derives lightweight tags.
type Extractor struct {
	classifier *sector.Classifier
}

// New returns an Extractor backed by the given classifier.
func New(c *sector.Classifier) *Extractor {
	return &Extractor{classifier: c}
}

var (
	headerRe     = regexp.MustCompile(`(?m)^(?:#+\s|\p{Lu}[\p{Lu}\s]{3,}$)|:\s*$`)
	dateRe       = regexp.MustCompile(`(?i)\b(?:\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?|(?:19|20)\d{2}|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\b`)
	quantRe      = regexp.MustCompile(`\d+(?:\.\d+)?%?`)
	entityRe     = regexp.MustCompile(`\b\p{Lu}\p{Ll}+\b`)
	actionRe     = regexp.MustCompile(`(?i)\b(?:decided|started|finished|built|created|moved|changed|bought|sold|learned|met|joined|left)\b`)
	questionRe   = regexp.MustCompile(`(?i)\b(?:who|what|when|where|why|how)\b`)
	firstPerson  = regexp.MustCompile(`(?i)\b(?:i|my|me|mine)\b`)
	strongFactRe = regexp.MustCompile(`(?i)\b(?:my\s+name|i\s+live|i\s+work|my\s+birthday|i\s+was\s+born|my\s+favorite|i'?m\s+allergic)\b`)
)

// sectorBonuses biases sentence scores toward the content style each
// sector tends to produce.
var sectorBonuses = map[model.Sector]*regexp.Regexp{
	model.SectorSemantic:   regexp.MustCompile(`(?i)\b(?:is|are|means|lives?|works?)\b`),
	model.SectorEpisodic:   regexp.MustCompile(`(?i)\b(?:yesterday|today|went|met|visited)\b`),
	model.SectorProcedural: regexp.MustCompile(`(?i)\b(?:first|then|next|step|how\s+to)\b`),
	model.SectorEmotional:  regexp.MustCompile(`(?i)\b(?:feel|felt|happy|sad|excited)\b`),
	model.SectorReflective: regexp.MustCompile(`(?i)\b(?:think|realized|should|learned|goal)\b`),
}

// scoreSentence computes the additive heuristic score for one sentence.
func scoreSentence(s string, position int, sec model.Sector) float64 {
	var score float64
	switch position {
	case 0:
		score += 3
	case 1:
		score += 1.5
	}
	if headerRe.MatchString(s) {
		score += 2
	}
	if dateRe.MatchString(s) {
		score += 2
	}
	if quantRe.MatchString(s) {
		score += 1.5
	}
	entities := len(entityRe.FindAllString(s, -1))
	if entities > 4 {
		entities = 4
	}
	score += 0.5 * float64(entities)
	if actionRe.MatchString(s) {
		score += 1
	}
	if questionRe.MatchString(s) {
		score += 0.5
	}
	if len(s) < 80 {
		score += 1
	}
	if firstPerson.MatchString(s) {
		score += 2
	}
	if re, ok := sectorBonuses[sec]; ok && re.MatchString(s) {
		score += 1.5
	}
	return score
}

// Essence condenses text to at most maxLen characters by picking the
// highest-scoring sentences, then restoring original order.
func (e *Extractor) Essence(input string, sec model.Sector, maxLen int) string {
	input = strings.TrimSpace(input)
	if maxLen <= 0 || len(input) <= maxLen {
		return input
	}

	sentences := text.SplitSentences(input)
	if len(sentences) == 0 {
		return ""
	}

	type cand struct {
		idx   int
		score float64
	}
	cands := make([]cand, len(sentences))
	for i, s := range sentences {
		cands[i] = cand{idx: i, score: scoreSentence(s, i, sec)}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	// Greedy selection under the character budget; the first sentence
	// is kept whenever it fits at all.
	picked := make(map[int]bool)
	budget := maxLen
	if len(sentences[0]) <= budget {
		picked[0] = true
		budget -= len(sentences[0]) + 1
	}
	for _, c := range cands {
		if picked[c.idx] {
			continue
		}
		n := len(sentences[c.idx])
		if n+1 > budget {
			continue
		}
		picked[c.idx] = true
		budget -= n + 1
	}

	var order []int
	for idx := range picked {
		order = append(order, idx)
	}
	sort.Ints(order)

	parts := make([]string, 0, len(order))
	for _, idx := range order {
		parts = append(parts, sentences[idx])
	}
	out := strings.Join(parts, " ")
	if len(out) > maxLen {
		out = strings.TrimSpace(out[:maxLen])
	}
	return out
}

// Atomic splits text into independent third-person facts. Each sentence
// long enough to matter and worth remembering is classified, rewritten,
// tagged and given an adjusted confidence.
func (e *Extractor) Atomic(input string) []model.AtomicFact {
	var facts []model.AtomicFact
	for _, s := range text.SplitSentences(input) {
		if len(s) < minSentenceLen {
			continue
		}
		if ok, _ := sector.WorthRemembering(s); !ok {
			continue
		}
		cls := e.classifier.Classify(s)
		content := ThirdPerson(s)

		conf := cls.Confidence
		if strongFactRe.MatchString(s) {
			conf += 0.1
		}
		if len(s) < 25 || len(s) > 300 {
			conf -= 0.1
		}

		facts = append(facts, model.AtomicFact{
			Content:    content,
			Sector:     cls.Primary,
			Confidence: model.Clamp01(conf),
			Tags:       DeriveTags(s, cls.Primary),
		})
	}
	return facts
}

// substitution is one ordered first-person rewrite rule.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

// thirdPersonSubs is applied in order: multi-word and most specific
// patterns first, the bare pronoun last.
var thirdPersonSubs = []substitution{
	{regexp.MustCompile(`\bI\s+am\b`), "User is"},
	{regexp.MustCompile(`\bI'm\b`), "User is"},
	{regexp.MustCompile(`\bI\s+was\b`), "User was"},
	{regexp.MustCompile(`\bI\s+have\b`), "User has"},
	{regexp.MustCompile(`\bI've\b`), "User has"},
	{regexp.MustCompile(`\bI\s+had\b`), "User had"},
	{regexp.MustCompile(`\bI\s+will\b`), "User will"},
	{regexp.MustCompile(`\bI'll\b`), "User will"},
	{regexp.MustCompile(`\bI\s+would\b`), "User would"},
	{regexp.MustCompile(`\bI'd\b`), "User would"},
	{regexp.MustCompile(`\bI\s+do\s+not\b`), "User does not"},
	{regexp.MustCompile(`\bI\s+don't\b`), "User doesn't"},
	{regexp.MustCompile(`\bI\s+do\b`), "User does"},
	{regexp.MustCompile(`\bI\s+can\b`), "User can"},
	{regexp.MustCompile(`\bI\s+live\b`), "User lives"},
	{regexp.MustCompile(`\bI\s+work\b`), "User works"},
	{regexp.MustCompile(`\bI\s+love\b`), "User loves"},
	{regexp.MustCompile(`\bI\s+like\b`), "User likes"},
	{regexp.MustCompile(`\bI\s+hate\b`), "User hates"},
	{regexp.MustCompile(`\bI\s+enjoy\b`), "User enjoys"},
	{regexp.MustCompile(`\bI\s+prefer\b`), "User prefers"},
	{regexp.MustCompile(`\bI\s+want\b`), "User wants"},
	{regexp.MustCompile(`\bI\s+need\b`), "User needs"},
	{regexp.MustCompile(`\bI\s+think\b`), "User thinks"},
	{regexp.MustCompile(`\bI\s+feel\b`), "User feels"},
	{regexp.MustCompile(`\bI\s+believe\b`), "User believes"},
	{regexp.MustCompile(`\bI\s+know\b`), "User knows"},
	{regexp.MustCompile(`\bI\s+use\b`), "User uses"},
	{regexp.MustCompile(`\bI\s+own\b`), "User owns"},
	{regexp.MustCompile(`\bI\s+go\b`), "User goes"},
	{regexp.MustCompile(`\bI\s+play\b`), "User plays"},
	{regexp.MustCompile(`(?i)\bmyself\b`), "themselves"},
	{regexp.MustCompile(`(?i)\bmy\b`), "User's"},
	{regexp.MustCompile(`(?i)\bmine\b`), "User's"},
	{regexp.MustCompile(`\bme\b`), "User"},
	{regexp.MustCompile(`\bI\b`), "User"},
}

// ThirdPerson rewrites first-person phrasing to third person using the
// ordered substitution list.
func ThirdPerson(s string) string {
	for _, sub := range thirdPersonSubs {
		s = sub.re.ReplaceAllString(s, sub.repl)
	}
	return s
}

// tagKeywords maps derived tag names to trigger patterns.
var tagKeywords = []struct {
	tag string
	re  *regexp.Regexp
}{
	{"location", regexp.MustCompile(`(?i)\b(?:live|lives|city|moved|from|address)\b`)},
	{"work", regexp.MustCompile(`(?i)\b(?:work|works|job|career|company|office)\b`)},
	{"preference", regexp.MustCompile(`(?i)\b(?:love|loves|like|likes|favorite|prefer|prefers|enjoy|enjoys|hate|hates)\b`)},
	{"family", regexp.MustCompile(`(?i)\b(?:wife|husband|son|daughter|mother|father|sister|brother|family)\b`)},
	{"health", regexp.MustCompile(`(?i)\b(?:allergic|doctor|medication|diet|exercise|sleep)\b`)},
	{"schedule", regexp.MustCompile(`(?i)\b(?:meeting|appointment|deadline|tomorrow|schedule)\b`)},
}

// DeriveTags produces lightweight category labels for content: the
// sector name plus any matching keyword tags.
func DeriveTags(content string, sec model.Sector) []string {
	tags := []string{string(sec)}
	for _, tk := range tagKeywords {
		if tk.re.MatchString(content) {
			tags = append(tags, tk.tag)
		}
	}
	return tags
}
