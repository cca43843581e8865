package emotion

import "strings"

// BiasAnalysis reports generalization patterns detected in a message, with
// canned guidance the reply composer can prepend.
type BiasAnalysis struct {
	Detected   []string `json:"detected"`
	Guidance   string   `json:"guidance"`
	Mitigation string   `json:"mitigation"`
}

type biasRule struct {
	kind       string
	patterns   []string
	mitigation string
}

var biasRules = []biasRule{
	{
		kind:       "confirmation",
		patterns:   []string{"always", "never", "everyone", "nobody", "all", "none"},
		mitigation: "Consider alternative perspectives and exceptions to this generalization.",
	},
	{
		kind:       "cultural",
		patterns:   []string{"those people", "they all", "typical", "all of them"},
		mitigation: "Remember that individuals within any group are diverse and unique.",
	},
	{
		kind:       "political",
		patterns:   []string{"liberals", "conservatives", "left", "right", "democrats", "republicans"},
		mitigation: "Political views exist on a spectrum, and people often hold nuanced positions.",
	},
	{
		kind:       "gender",
		patterns:   []string{"all men", "all women", "typical male", "typical female"},
		mitigation: "Gender expressions and behaviors vary greatly among individuals.",
	},
	{
		kind:       "age",
		patterns:   []string{"millennials are", "boomers are", "gen z", "old people"},
		mitigation: "Each generation contains individuals with diverse experiences and perspectives.",
	},
}

// AnalyzeBias scans text against the fixed bias-pattern taxonomy.
func AnalyzeBias(text string) BiasAnalysis {
	lower := strings.ToLower(text)

	var detected []string
	var mitigations []string
	for _, rule := range biasRules {
		for _, p := range rule.patterns {
			if strings.Contains(lower, p) {
				detected = append(detected, rule.kind)
				mitigations = append(mitigations, rule.mitigation)
				break
			}
		}
	}

	guidance := "This seems like a balanced perspective. Let me help you explore this further while maintaining awareness of different viewpoints."
	mitigation := "Continue with current balanced approach."
	if len(detected) > 0 {
		guidance = "I notice some potential biases in this perspective. Let me provide a balanced view that considers multiple viewpoints and individual differences."
		mitigation = strings.Join(mitigations, " ")
	}

	return BiasAnalysis{Detected: detected, Guidance: guidance, Mitigation: mitigation}
}
