package emotion

import "strings"

// GenerationHint is a single-message demographic guess used to tune reply
// framing. The dialogue package does the heavier multi-response profiling;
// this one works from one message only.
type GenerationHint struct {
	Generation string   `json:"generation"`
	Traits     []string `json:"traits"`
	Guidance   string   `json:"guidance"`
	Confidence float64  `json:"confidence"`
}

type generationMarker struct {
	name     string
	markers  []string
	traits   []string
	guidance string
}

var generationMarkers = []generationMarker{
	{
		name:     "Gen Z",
		markers:  []string{"tiktok", "discord", "sus", "no cap", "fr", "periodt", "bet", "slaps", "bussin"},
		traits:   []string{"Digital native", "Social justice oriented", "Entrepreneurial", "Mental health aware"},
		guidance: "I'll keep my response authentic and direct, focusing on practical solutions and acknowledging the unique challenges your generation faces.",
	},
	{
		name:     "Millennial",
		markers:  []string{"facebook", "instagram", "adulting", "netflix", "student loans", "avocado toast", "gig economy"},
		traits:   []string{"Tech-savvy", "Experience-focused", "Socially conscious", "Career-driven"},
		guidance: "Let me provide a balanced perspective that considers both idealistic goals and practical constraints, recognizing your generation's unique position.",
	},
	{
		name:     "Gen X",
		markers:  []string{"email", "work-life balance", "mortgage", "kids", "401k", "mtv", "grunge"},
		traits:   []string{"Independent", "Pragmatic", "Skeptical", "Self-reliant"},
		guidance: "I'll focus on pragmatic solutions that work within existing systems, respecting your independent and self-reliant approach.",
	},
	{
		name:     "Boomer",
		markers:  []string{"retirement", "grandchildren", "facebook", "traditional", "pension", "landline"},
		traits:   []string{"Experience-rich", "Value-driven", "Relationship-focused", "Stability-oriented"},
		guidance: "I'll provide thoughtful, experience-based guidance with respect for traditional values and the wisdom that comes with experience.",
	},
}

const unknownGenerationGuidance = "I'll provide a balanced response suitable for any background, focusing on universal human experiences."

// InferGeneration counts marker-keyword hits per generation in a single
// message. Zero hits yields "Unknown" with the neutral guidance string.
func InferGeneration(text string) GenerationHint {
	lower := strings.ToLower(text)

	hint := GenerationHint{Generation: "Unknown", Guidance: unknownGenerationGuidance}
	maxMatches := 0
	for _, gen := range generationMarkers {
		matches := 0
		for _, m := range gen.markers {
			if strings.Contains(lower, m) {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			hint.Generation = gen.name
			hint.Traits = gen.traits
			hint.Guidance = gen.guidance
			hint.Confidence = float64(matches) * 0.3
			if hint.Confidence > 1.0 {
				hint.Confidence = 1.0
			}
		}
	}
	return hint
}
