package dialogue

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Response is one answered question kept for pattern analysis.
type Response struct {
	Question  string
	Answer    string
	Timestamp time.Time
	Tone      string
	KeyTopics []string
}

// DemographicProfile estimates the user's generation cohort.
type DemographicProfile struct {
	Generation        string   `json:"generation,omitempty"`
	AgeRange          string   `json:"ageRange,omitempty"`
	BirthYearEstimate int      `json:"birthYearEstimate,omitempty"`
	Confidence        float64  `json:"confidence"`
	GenerationTraits  []string `json:"generationTraits"`
}

// EmotionalProfile summarizes the tones observed across answers.
type EmotionalProfile struct {
	DominantEmotions    []string `json:"dominantEmotions"`
	EmotionalStrengths  []string `json:"emotionalStrengths"`
	EmotionalWeaknesses []string `json:"emotionalWeaknesses"`
	CopingMechanisms    []string `json:"copingMechanisms"`
	Confidence          float64  `json:"confidence"`
}

// BeliefSystem captures inferred values and worldview.
type BeliefSystem struct {
	CoreValues []string `json:"coreValues"`
	Worldview  string   `json:"worldview"`
	Priorities []string `json:"priorities"`
	Confidence float64  `json:"confidence"`
}

// MindDataset models what the user cares about and how they are likely
// to react.
type MindDataset struct {
	ObjectsOfImportance []string `json:"objectsOfImportance"`
	GoalMotives         []string `json:"goalMotives"`
	LikelyResponses     []string `json:"likelyResponses"`
	UnderlyingValues    []string `json:"underlyingValues"`
	Confidence          float64  `json:"confidence"`
}

// AnalysisResult is the combined profile produced by the pattern system.
type AnalysisResult struct {
	Demographic       DemographicProfile `json:"demographic"`
	Emotional         EmotionalProfile   `json:"emotional"`
	Beliefs           BeliefSystem       `json:"beliefs"`
	MindDataset       MindDataset        `json:"mindDataset"`
	OverallConfidence float64            `json:"overallConfidence"`
}

type generationBand struct {
	name       string
	birthYears [2]int
	markers    []string
	traits     []string
}

var generationBands = []generationBand{
	{
		name:       "Gen Z",
		birthYears: [2]int{1997, 2012},
		markers:    []string{"tiktok", "social media", "climate change", "digital native", "covid", "pandemic", "online learning"},
		traits:     []string{"Digital native", "Social justice oriented", "Entrepreneurial", "Mental health aware"},
	},
	{
		name:       "Millennial",
		birthYears: [2]int{1981, 1996},
		markers:    []string{"college debt", "housing market", "9/11", "2008 recession", "harry potter", "social media", "internet"},
		traits:     []string{"Tech-savvy", "Experience-focused", "Socially conscious", "Career-driven"},
	},
	{
		name:       "Gen X",
		birthYears: [2]int{1965, 1980},
		markers:    []string{"cold war", "mtv", "reagan", "challenger", "berlin wall", "dial-up", "walkman"},
		traits:     []string{"Independent", "Pragmatic", "Skeptical", "Self-reliant"},
	},
	{
		name:       "Boomer",
		birthYears: [2]int{1946, 1964},
		markers:    []string{"vietnam", "woodstock", "kennedy", "moon landing", "watergate", "civil rights"},
		traits:     []string{"Experience-rich", "Value-driven", "Relationship-focused", "Stability-oriented"},
	},
}

type keywordGroup struct {
	name     string
	keywords []string
}

var toneGroups = []keywordGroup{
	{"happy", []string{"happy", "joy", "excited", "great", "wonderful", "amazing", "love"}},
	{"sad", []string{"sad", "depressed", "down", "upset", "disappointed", "miserable"}},
	{"angry", []string{"angry", "mad", "frustrated", "annoyed", "furious", "rage"}},
	{"fearful", []string{"scared", "afraid", "worried", "anxious", "nervous", "terrified"}},
	{"nostalgic", []string{"remember", "miss", "nostalgia", "back then", "those days", "childhood"}},
	{"hopeful", []string{"hope", "looking forward", "excited about", "future", "plan", "dream"}},
	{"regretful", []string{"regret", "wish i had", "should have", "missed opportunity"}},
}

var topicGroups = []keywordGroup{
	{"career", []string{"job", "career", "work", "profession", "company", "business"}},
	{"education", []string{"school", "college", "university", "degree", "study", "learn"}},
	{"family", []string{"family", "parent", "child", "mother", "father", "sister", "brother"}},
	{"relationships", []string{"friend", "relationship", "partner", "marriage", "date", "love"}},
	{"health", []string{"health", "exercise", "diet", "doctor", "illness", "wellness"}},
	{"finance", []string{"money", "finance", "budget", "saving", "investment", "debt"}},
	{"hobbies", []string{"hobby", "interest", "sport", "game", "music", "art", "read"}},
	{"technology", []string{"technology", "computer", "internet", "digital", "online", "app"}},
	{"politics", []string{"politics", "government", "election", "vote", "policy", "law"}},
	{"spirituality", []string{"god", "faith", "spiritual", "religion", "belief", "soul"}},
}

var valueGroups = []keywordGroup{
	{"family", []string{"family", "parents", "children", "siblings", "relatives"}},
	{"achievement", []string{"success", "achievement", "accomplish", "goal", "ambition"}},
	{"security", []string{"security", "safety", "stability", "protection", "reliable"}},
	{"freedom", []string{"freedom", "independence", "choice", "liberty", "autonomy"}},
	{"tradition", []string{"tradition", "heritage", "culture", "custom", "ritual"}},
	{"spirituality", []string{"god", "faith", "spiritual", "religion", "belief", "soul"}},
	{"knowledge", []string{"knowledge", "learning", "education", "wisdom", "understanding"}},
	{"creativity", []string{"creative", "art", "innovation", "original", "imagination"}},
	{"helping others", []string{"help", "service", "volunteer", "community", "giving back"}},
	{"health", []string{"health", "wellness", "fitness", "wellbeing", "self-care"}},
}

var worldviewGroups = []keywordGroup{
	{"optimistic", []string{"positive", "hopeful", "optimistic", "bright future", "opportunity"}},
	{"pessimistic", []string{"negative", "worried", "pessimistic", "dark future", "problem"}},
	{"pragmatic", []string{"practical", "realistic", "sensible", "logical", "rational"}},
	{"idealistic", []string{"ideal", "perfect", "utopia", "dream", "vision", "should be"}},
	{"individualistic", []string{"individual", "self", "personal", "own", "independent"}},
	{"collectivistic", []string{"community", "together", "group", "society", "collective"}},
}

var goalMotivesByTopic = map[string][]string{
	"career":        {"Professional advancement", "Financial stability"},
	"education":     {"Knowledge acquisition", "Skill development"},
	"family":        {"Nurturing relationships", "Creating stability"},
	"relationships": {"Connection", "Emotional fulfillment"},
	"health":        {"Wellbeing", "Longevity"},
	"finance":       {"Financial security", "Wealth building"},
	"hobbies":       {"Personal enjoyment", "Self-expression"},
}

var likelyResponsesByTone = map[string][]string{
	"happy":     {"Enthusiastic engagement", "Positive outlook on challenges"},
	"sad":       {"Cautious approach", "Seeking emotional support"},
	"angry":     {"Direct confrontation", "Seeking justice or resolution"},
	"fearful":   {"Risk avoidance", "Seeking security and reassurance"},
	"nostalgic": {"Connection to past experiences", "Seeking familiar patterns"},
}

var (
	directAgeRE = regexp.MustCompile(`(?i)\b(?:I am|I'm)\s+(\d{1,2})\s+(?:years old|year old|years|year)\b`)
	birthYearRE = regexp.MustCompile(`(?i)\b(?:born in|birth year|born)\s+(?:in\s+)?(\d{4})\b`)
	gradYearRE  = regexp.MustCompile(`(?i)\b(?:graduated|graduation|graduate)\s+(?:in|from)?\s+(\d{4})\b`)
	ageAtRE     = regexp.MustCompile(`(?i)\b(?:I was|I remember being)\s+(\d{1,2})\b`)
)

// PatternSystem accumulates time-based answers and infers a demographic,
// emotional, and belief profile from them.
type PatternSystem struct {
	responses []Response
	now       func() time.Time
}

func NewPatternSystem() *PatternSystem {
	return &PatternSystem{now: time.Now}
}

// AddResponse records an answered question with its detected tone and
// topics.
func (ps *PatternSystem) AddResponse(question, answer string) {
	ps.responses = append(ps.responses, Response{
		Question:  question,
		Answer:    answer,
		Timestamp: ps.now(),
		Tone:      detectTone(answer),
		KeyTopics: keyTopics(answer),
	})
}

// ResponseCount reports how many answers have been collected.
func (ps *PatternSystem) ResponseCount() int { return len(ps.responses) }

// Reset drops all collected responses.
func (ps *PatternSystem) Reset() { ps.responses = nil }

// Analyze produces the combined profile from everything collected so far.
func (ps *PatternSystem) Analyze() AnalysisResult {
	demographic := ps.inferDemographic()
	emotional := ps.inferEmotional()
	beliefs := ps.inferBeliefs()
	mind := ps.inferMindDataset(beliefs)
	overall := (demographic.Confidence + emotional.Confidence + beliefs.Confidence + mind.Confidence) / 4
	return AnalysisResult{
		Demographic:       demographic,
		Emotional:         emotional,
		Beliefs:           beliefs,
		MindDataset:       mind,
		OverallConfidence: overall,
	}
}

// detectTone picks the emotion group with the most keyword hits; ties
// keep the earlier group, no hits mean neutral.
func detectTone(text string) string {
	lower := strings.ToLower(text)
	tone := "neutral"
	max := 0
	for _, g := range toneGroups {
		matches := 0
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		if matches > max {
			max = matches
			tone = g.name
		}
	}
	return tone
}

func keyTopics(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, g := range topicGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				found = append(found, g.name)
				break
			}
		}
	}
	return found
}

type ageEstimate struct {
	age        int
	birthYear  int
	confidence float64
}

func (ps *PatternSystem) estimateAge() ageEstimate {
	var est ageEstimate
	currentYear := ps.now().Year()

	for _, r := range ps.responses {
		if m := directAgeRE.FindStringSubmatch(r.Answer); m != nil {
			est.age = atoiOrZero(m[1])
			est.confidence = 0.9
			break
		}
		if m := birthYearRE.FindStringSubmatch(r.Answer); m != nil {
			est.birthYear = atoiOrZero(m[1])
			est.confidence = 0.85
			break
		}
		if m := gradYearRE.FindStringSubmatch(r.Answer); m != nil {
			// college graduation at roughly 22
			est.birthYear = atoiOrZero(m[1]) - 22
			est.confidence = 0.6
		}
		if strings.Contains(r.Answer, "9/11") {
			if m := ageAtRE.FindStringSubmatch(r.Answer); m != nil {
				est.birthYear = 2001 - atoiOrZero(m[1])
				est.confidence = 0.7
			}
		}
	}

	if est.birthYear != 0 && est.age == 0 {
		est.age = currentYear - est.birthYear
	}
	if est.age != 0 && est.birthYear == 0 {
		est.birthYear = currentYear - est.age
	}
	return est
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func (ps *PatternSystem) inferDemographic() DemographicProfile {
	est := ps.estimateAge()
	profile := DemographicProfile{
		Confidence:       est.confidence,
		GenerationTraits: []string{},
	}
	if est.birthYear != 0 {
		profile.BirthYearEstimate = est.birthYear
		for _, band := range generationBands {
			if est.birthYear >= band.birthYears[0] && est.birthYear <= band.birthYears[1] {
				profile.Generation = band.name
				profile.GenerationTraits = band.traits
				profile.Confidence += 0.2
				break
			}
		}
	}

	// Fall back to cultural markers when the birth year gave nothing.
	if profile.Generation == "" {
		all := ps.joinedAnswers()
		maxMatches := 0
		for _, band := range generationBands {
			matches := 0
			for _, marker := range band.markers {
				if strings.Contains(all, marker) {
					matches++
				}
			}
			if matches > maxMatches {
				maxMatches = matches
				profile.Generation = band.name
				profile.GenerationTraits = band.traits
			}
		}
		if maxMatches > 0 {
			profile.Confidence = math.Min(0.7, 0.3+float64(maxMatches)*0.1)
		} else {
			profile.Generation = ""
		}
	}

	currentYear := ps.now().Year()
	if profile.Generation != "" {
		for _, band := range generationBands {
			if band.name == profile.Generation {
				profile.AgeRange = fmt.Sprintf("%d-%d", currentYear-band.birthYears[1], currentYear-band.birthYears[0])
				break
			}
		}
	} else if est.age != 0 {
		profile.AgeRange = fmt.Sprintf("%d-%d", est.age-2, est.age+2)
	}

	if profile.Confidence > 1 {
		profile.Confidence = 1
	}
	return profile
}

func (ps *PatternSystem) joinedAnswers() string {
	var parts []string
	for _, r := range ps.responses {
		parts = append(parts, strings.ToLower(r.Answer))
	}
	return strings.Join(parts, " ")
}

func (ps *PatternSystem) inferEmotional() EmotionalProfile {
	counts := map[string]int{}
	var order []string
	total := 0
	for _, r := range ps.responses {
		if r.Tone == "" {
			continue
		}
		if counts[r.Tone] == 0 {
			order = append(order, r.Tone)
		}
		counts[r.Tone]++
		total++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	dominant := order
	if len(dominant) > 3 {
		dominant = dominant[:3]
	}

	has := func(tone string) bool {
		for _, d := range dominant {
			if d == tone {
				return true
			}
		}
		return false
	}

	var strengths, weaknesses, coping []string
	if has("happy") || has("hopeful") {
		strengths = append(strengths, "Optimism", "Positive outlook")
	}
	if has("nostalgic") {
		strengths = append(strengths, "Strong memory recall", "Emotional connection to past")
		if has("sad") {
			weaknesses = append(weaknesses, "May dwell on the past")
		}
	}
	if has("angry") {
		weaknesses = append(weaknesses, "Frustration management")
		coping = append(coping, "Needs healthy outlets for frustration")
	}
	if has("fearful") {
		weaknesses = append(weaknesses, "Anxiety management")
		coping = append(coping, "May benefit from stress reduction techniques")
	}
	if has("regretful") {
		weaknesses = append(weaknesses, "Self-forgiveness")
		coping = append(coping, "Needs to practice acceptance of past decisions")
	}

	consistency := 0.0
	if len(counts) > 0 {
		consistency = float64(total) / float64(len(counts))
	}
	confidence := math.Min(1.0, float64(len(ps.responses))*0.2*(consistency*0.5))

	return EmotionalProfile{
		DominantEmotions:    dominant,
		EmotionalStrengths:  orInsufficient(strengths),
		EmotionalWeaknesses: orInsufficient(weaknesses),
		CopingMechanisms:    orInsufficient(coping),
		Confidence:          confidence,
	}
}

func orInsufficient(list []string) []string {
	if len(list) == 0 {
		return []string{"Insufficient data"}
	}
	return list
}

func (ps *PatternSystem) inferBeliefs() BeliefSystem {
	all := ps.joinedAnswers()

	countMatches := func(groups []keywordGroup) ([]string, map[string]int, int) {
		counts := map[string]int{}
		var names []string
		total := 0
		for _, g := range groups {
			n := 0
			for _, kw := range g.keywords {
				if strings.Contains(all, kw) {
					n++
				}
			}
			counts[g.name] = n
			names = append(names, g.name)
			total += n
		}
		return names, counts, total
	}

	valueNames, valueCounts, valueTotal := countMatches(valueGroups)
	worldviewNames, worldviewCounts, worldviewTotal := countMatches(worldviewGroups)

	sort.SliceStable(valueNames, func(i, j int) bool {
		return valueCounts[valueNames[i]] > valueCounts[valueNames[j]]
	})
	var coreValues []string
	for _, v := range valueNames {
		if valueCounts[v] > 0 {
			coreValues = append(coreValues, v)
		}
	}
	if len(coreValues) > 5 {
		coreValues = coreValues[:5]
	}

	sort.SliceStable(worldviewNames, func(i, j int) bool {
		return worldviewCounts[worldviewNames[i]] > worldviewCounts[worldviewNames[j]]
	})
	worldview := "unclear"
	if len(worldviewNames) > 0 && worldviewCounts[worldviewNames[0]] > 0 {
		worldview = worldviewNames[0]
	}

	priorities := ps.topTopics(3)

	confidence := math.Min(1.0,
		float64(valueTotal)*0.1+float64(worldviewTotal)*0.1+float64(len(ps.responses))*0.1)

	return BeliefSystem{
		CoreValues: orInsufficient(coreValues),
		Worldview:  worldview,
		Priorities: orInsufficient(priorities),
		Confidence: confidence,
	}
}

func (ps *PatternSystem) topTopics(limit int) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range ps.responses {
		for _, t := range r.KeyTopics {
			if counts[t] == 0 {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

func (ps *PatternSystem) inferMindDataset(beliefs BeliefSystem) MindDataset {
	objects := ps.topTopics(5)

	var motives []string
	for _, obj := range objects {
		if m, ok := goalMotivesByTopic[obj]; ok {
			motives = append(motives, m...)
		} else {
			motives = append(motives, "Personal fulfillment")
		}
	}

	dominant := "neutral"
	counts := map[string]int{}
	best := 0
	for _, r := range ps.responses {
		if r.Tone == "" {
			continue
		}
		counts[r.Tone]++
		if counts[r.Tone] > best {
			best = counts[r.Tone]
			dominant = r.Tone
		}
	}
	likely, ok := likelyResponsesByTone[dominant]
	if !ok {
		likely = []string{"Balanced consideration", "Pragmatic approach"}
	}

	confidence := math.Min(1.0,
		float64(len(objects))*0.1+float64(len(motives))*0.1+
			float64(len(likely))*0.1+float64(len(ps.responses))*0.1)

	return MindDataset{
		ObjectsOfImportance: objects,
		GoalMotives:         motives,
		LikelyResponses:     likely,
		UnderlyingValues:    beliefs.CoreValues,
		Confidence:          confidence,
	}
}

// RecommendedQuestions suggests up to five follow-ups aimed at the
// current knowledge gaps.
func (ps *PatternSystem) RecommendedQuestions() []string {
	var questions []string
	currentYear := ps.now().Year()

	if ps.estimateAge().age == 0 {
		questions = append(questions,
			fmt.Sprintf("What were you doing in the summer of %d?", currentYear-20),
			fmt.Sprintf("How did you feel about the events of %d?", currentYear-10),
			fmt.Sprintf("What was your favorite music or movie from the early %ds?", (currentYear-15)/10*10))
	}

	toned := 0
	for _, r := range ps.responses {
		if r.Tone != "" && r.Tone != "neutral" {
			toned++
		}
	}
	if toned < 2 {
		questions = append(questions,
			"What's a time in your life when you felt most proud?",
			"Can you tell me about a challenging period you've overcome?",
			"What's something you're looking forward to in the future?")
	}

	if ps.inferBeliefs().Confidence < 0.4 {
		questions = append(questions,
			"What values do you consider most important in life?",
			"How do you approach making difficult decisions?",
			"What do you think is most important for the next generation to understand?")
	}

	if len(ps.responses) < 3 {
		questions = append(questions,
			"What were you doing in 1999?",
			"How did you feel about life in 1992?",
			"What was happening in your world in 2005?")
	}

	seen := map[string]bool{}
	unique := questions[:0]
	for _, q := range questions {
		if seen[q] {
			continue
		}
		seen[q] = true
		unique = append(unique, q)
	}
	if len(unique) > 5 {
		unique = unique[:5]
	}
	return unique
}
