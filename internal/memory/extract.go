package memory

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var patternsYAML []byte

type patternCategory struct {
	Name     string   `yaml:"name"`
	Target   string   `yaml:"target"`
	Cap      int      `yaml:"cap"`
	Patterns []string `yaml:"patterns"`
}

type patternFile struct {
	MinLength  int               `yaml:"min_length"`
	Categories []patternCategory `yaml:"categories"`
}

type compiledCategory struct {
	name    string
	target  string
	cap     int
	regexps []*regexp.Regexp
}

// Extractor pulls structured personal context out of free text using a
// declarative rule table.
type Extractor struct {
	minLength  int
	categories []compiledCategory
	limits     Limits
}

// Limits holds the retention cap for each profile list, as declared in
// the rule table.
type Limits struct {
	FutureEvents  int
	Goals         int
	Challenges    int
	Preferences   int
	Relationships int
}

// Limits reports the per-list caps of the loaded rule table.
func (ex *Extractor) Limits() Limits { return ex.limits }

// Extraction is the per-message yield of the extractor.
type Extraction struct {
	FutureEvents  []string
	Goals         []string
	Challenges    []string
	Preferences   []string
	Relationships []string
	Topics        []string
}

// NewExtractor compiles the embedded rule table.
func NewExtractor() (*Extractor, error) {
	return newExtractorFrom(patternsYAML)
}

func newExtractorFrom(raw []byte) (*Extractor, error) {
	var pf patternFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse pattern table: %w", err)
	}
	if pf.MinLength <= 0 {
		pf.MinLength = 3
	}
	ex := &Extractor{minLength: pf.MinLength}
	for _, cat := range pf.Categories {
		cc := compiledCategory{name: cat.Name, target: cat.Target, cap: cat.Cap}
		for _, p := range cat.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("category %s: compile %q: %w", cat.Name, p, err)
			}
			cc.regexps = append(cc.regexps, re)
		}
		ex.categories = append(ex.categories, cc)
		switch cat.Target {
		case "future_events":
			ex.limits.FutureEvents = cat.Cap
		case "goals":
			ex.limits.Goals = cat.Cap
		case "challenges":
			ex.limits.Challenges = cat.Cap
		case "preferences":
			ex.limits.Preferences = cat.Cap
		case "relationships":
			ex.limits.Relationships = cat.Cap
		}
	}
	return ex, nil
}

// Extract runs every category against the message and returns trimmed,
// deduplicated captures plus the topic tokens.
func (ex *Extractor) Extract(text string) Extraction {
	var out Extraction
	for _, cat := range ex.categories {
		var hits []string
		for _, re := range cat.regexps {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				// Non-empty capture groups are joined so a pattern can
				// pick up a subject plus a trailing descriptive clause.
				capture := m[0]
				if len(m) > 1 {
					var parts []string
					for _, g := range m[1:] {
						if g = strings.TrimSpace(g); g != "" {
							parts = append(parts, g)
						}
					}
					if len(parts) > 0 {
						capture = strings.Join(parts, " ")
					}
				}
				capture = strings.TrimSpace(capture)
				if len(capture) < ex.minLength {
					continue
				}
				hits = append(hits, capture)
			}
		}
		hits = dedupe(hits)
		switch cat.target {
		case "future_events":
			out.FutureEvents = append(out.FutureEvents, hits...)
		case "goals":
			out.Goals = append(out.Goals, hits...)
		case "challenges":
			out.Challenges = append(out.Challenges, hits...)
		case "preferences":
			out.Preferences = append(out.Preferences, hits...)
		case "relationships":
			out.Relationships = append(out.Relationships, hits...)
		}
	}
	out.FutureEvents = dedupe(out.FutureEvents)
	out.Topics = extractTopics(text)
	return out
}

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"will": true, "been": true, "were": true, "they": true, "them": true,
	"their": true, "there": true, "then": true, "than": true, "what": true,
	"when": true, "where": true, "which": true, "would": true, "could": true,
	"should": true, "about": true, "just": true, "like": true, "really": true,
	"very": true, "some": true, "more": true, "your": true, "into": true,
	"over": true, "because": true, "being": true, "doing": true, "going": true,
}

var wordRE = regexp.MustCompile(`[a-z]+`)

// extractTopics returns the distinct meaningful words of a message, in
// order of first appearance.
func extractTopics(text string) []string {
	var topics []string
	seen := map[string]bool{}
	for _, w := range wordRE.FindAllString(strings.ToLower(text), -1) {
		if len(w) <= 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		topics = append(topics, w)
	}
	return topics
}

func dedupe(list []string) []string {
	if len(list) < 2 {
		return list
	}
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, v := range list {
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
