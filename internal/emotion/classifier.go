// Package emotion provides keyword-heuristic emotion detection and the
// derived simulated resource telemetry. Everything here is pure computation;
// no ML models and no I/O.
package emotion

import (
	"regexp"
	"strings"
)

// Emotion labels, in declaration order. Ties between keyword scores are
// broken by this order: the first declared emotion wins.
const (
	Happy     = "happy"
	Sad       = "sad"
	Angry     = "angry"
	Fearful   = "fearful"
	Surprised = "surprised"
	Disgusted = "disgusted"
	Euphoric  = "euphoric"
	Depressed = "depressed"
	Content   = "content"
)

// State is the result of classifying one message.
type State struct {
	Emotion    string  `json:"emotion"`
	Intensity  float64 `json:"intensity"`  // 0..2, 1 is baseline
	Confidence float64 `json:"confidence"` // 0.1..1.0
}

type keywordSet struct {
	emotion  string
	keywords []string
}

// Ordered: earlier entries win ties.
var emotionKeywords = []keywordSet{
	{Happy, []string{"happy", "joy", "excited", "great", "wonderful", "amazing", "fantastic", "love", "perfect"}},
	{Sad, []string{"sad", "depressed", "down", "upset", "disappointed", "miserable", "crying", "hurt"}},
	{Angry, []string{"angry", "mad", "frustrated", "annoyed", "furious", "rage", "hate", "pissed"}},
	{Fearful, []string{"scared", "afraid", "worried", "anxious", "nervous", "terrified", "panic", "stress", "stressed"}},
	{Surprised, []string{"surprised", "shocked", "amazed", "unexpected", "wow", "incredible", "unbelievable"}},
	{Disgusted, []string{"disgusted", "gross", "awful", "terrible", "revolting", "sick", "nasty"}},
	{Euphoric, []string{"euphoric", "ecstatic", "blissful", "elated", "overjoyed", "thrilled"}},
	{Depressed, []string{"depressed", "hopeless", "worthless", "empty", "numb", "suicidal"}},
}

var (
	wordBoundaryCache = buildKeywordRegexps()
	punctRunRegex     = regexp.MustCompile(`[!?]+`)
	capsRunRegex      = regexp.MustCompile(`[A-Z]{3,}`)
	wordSplitRegex    = regexp.MustCompile(`\s+`)
)

// repeatedRuns counts runs of three or more identical runes. RE2 has no
// backreferences, so this is a plain scan.
func repeatedRuns(text string) int {
	runs := 0
	var prev rune
	length := 0
	for _, r := range text {
		if r == prev {
			length++
		} else {
			if length >= 3 {
				runs++
			}
			prev, length = r, 1
		}
	}
	if length >= 3 {
		runs++
	}
	return runs
}

func buildKeywordRegexps() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp)
	for _, set := range emotionKeywords {
		for _, kw := range set.keywords {
			m[kw] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
	return m
}

// Classify scores text against the per-emotion keyword lists and measures
// intensity and confidence from surface features. Deterministic for a given
// input.
func Classify(text string) State {
	return State{
		Emotion:    detectEmotion(text),
		Intensity:  measureIntensity(text),
		Confidence: measureConfidence(text),
	}
}

func detectEmotion(text string) string {
	best := Content
	maxScore := 0
	for _, set := range emotionKeywords {
		score := 0
		for _, kw := range set.keywords {
			score += len(wordBoundaryCache[kw].FindAllStringIndex(text, -1))
		}
		if score > maxScore {
			maxScore = score
			best = set.emotion
		}
	}
	return best
}

func measureIntensity(text string) float64 {
	intensity := 1.0
	if len(text) == 0 {
		return intensity
	}

	caps := 0
	for _, r := range text {
		if r >= 'A' && r <= 'Z' {
			caps++
		}
	}
	intensity += float64(caps) / float64(len(text)) * 0.5
	intensity += float64(strings.Count(text, "!")) * 0.2
	intensity += float64(strings.Count(text, "?")) * 0.1
	intensity += float64(repeatedRuns(text)) * 0.15

	return clamp(intensity, 0, 2)
}

func measureConfidence(text string) float64 {
	confidence := 0.5

	words := 0
	for _, w := range wordSplitRegex.Split(text, -1) {
		if w != "" {
			words++
		}
	}
	if words > 10 {
		confidence += 0.2
	}
	if words > 20 {
		confidence += 0.1
	}

	emphatic := len(punctRunRegex.FindAllString(text, -1)) +
		len(capsRunRegex.FindAllString(text, -1)) +
		repeatedRuns(text)
	if emphatic > 0 {
		boost := float64(emphatic) * 0.1
		if boost > 0.3 {
			boost = 0.3
		}
		confidence += boost
	}

	return clamp(confidence, 0.1, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
