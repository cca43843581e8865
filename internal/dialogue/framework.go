package dialogue

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Stage identifies where in the guided conversation a session is.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageDemographics Stage = "demographics"
	StageTimeline     Stage = "timeline"
	StageAnalysis     Stage = "analysis"
	StageProfile      Stage = "profile"
	StageConversation Stage = "conversation"
)

const (
	greetingQuestion = "Hello! I'd like to get to know you better through a few questions about your experiences. This will help me provide more personalized assistance. Shall we begin?"

	accuracyFloor      = 20
	accuracyPerAnswer  = 15
	accuracyCeil       = 95
	timelineAnswersMin = 3
)

// QA is one asked question and the user's answer.
type QA struct {
	Question string `json:"question"`
	Response string `json:"response"`
}

// UserInfo holds demographics volunteered early in the dialogue.
type UserInfo struct {
	Age      string `json:"age,omitempty"`
	Location string `json:"location,omitempty"`
	Name     string `json:"name,omitempty"`
}

// State is a snapshot of the dialogue session.
type State struct {
	Stage              Stage    `json:"stage"`
	CurrentQuestion    string   `json:"currentQuestion"`
	QuestionHistory    []QA     `json:"questionHistory"`
	UserInfo           UserInfo `json:"userInfo"`
	PredictionAccuracy int      `json:"predictionAccuracy"`
	AnalysisComplete   bool     `json:"analysisComplete"`
}

// Framework walks a user through the staged profiling dialogue. The
// analysis stage runs as a background task; with a zero delay it
// completes before ProcessResponse returns.
type Framework struct {
	mu            sync.Mutex
	patterns      *PatternSystem
	state         State
	timeline      []string
	analysisDelay time.Duration
	onAnalysis    func(State)
}

func NewFramework(analysisDelay time.Duration) *Framework {
	f := &Framework{
		patterns:      NewPatternSystem(),
		analysisDelay: analysisDelay,
	}
	currentYear := time.Now().Year()
	f.timeline = []string{
		fmt.Sprintf("What were you doing in the summer of %d?", currentYear-20),
		"How did you feel about the music scene in the early 2000s?",
		"What's been the most significant challenge you've faced in your career so far?",
		"What were you doing in 1999?",
		"How did you feel about life in 1992?",
		"What was happening in your world in 2005?",
	}
	f.state = initialState()
	return f
}

func initialState() State {
	return State{
		Stage:              StageGreeting,
		CurrentQuestion:    greetingQuestion,
		PredictionAccuracy: accuracyFloor,
	}
}

// OnAnalysisComplete registers a callback invoked when the background
// analysis finishes and the session advances to the profile stage.
func (f *Framework) OnAnalysisComplete(fn func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAnalysis = fn
}

// State returns a copy of the current session state.
func (f *Framework) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

func (f *Framework) snapshot() State {
	s := f.state
	s.QuestionHistory = append([]QA(nil), f.state.QuestionHistory...)
	return s
}

// AnalysisResults exposes the pattern system's combined profile.
func (f *Framework) AnalysisResults() AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patterns.Analyze()
}

// Reset returns the session to the greeting stage and clears collected
// answers.
func (f *Framework) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patterns.Reset()
	f.state = initialState()
}

// ProcessResponse records the answer to the current question and
// advances the dialogue, returning the new state.
func (f *Framework) ProcessResponse(answer string) State {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.QuestionHistory = append(f.state.QuestionHistory, QA{
		Question: f.state.CurrentQuestion,
		Response: answer,
	})
	if f.state.Stage != StageGreeting {
		f.patterns.AddResponse(f.state.CurrentQuestion, answer)
	}

	switch f.state.Stage {
	case StageGreeting:
		f.advanceTo(StageDemographics)
	case StageDemographics:
		f.extractUserInfo(answer)
		f.advanceTo(StageTimeline)
	case StageTimeline:
		f.updateAccuracy()
		f.advanceTimelineOrAnalysis()
	case StageAnalysis:
		// waiting on the background task
	case StageProfile:
		f.handleProfileResponse(answer)
	case StageConversation:
		f.handleConversationResponse(answer)
	}

	return f.snapshot()
}

func (f *Framework) advanceTo(stage Stage) {
	f.state.Stage = stage
	switch stage {
	case StageDemographics:
		f.state.CurrentQuestion = "Great! To get started, could you tell me a bit about yourself? How old are you and where are you from?"
	case StageTimeline:
		f.state.CurrentQuestion = f.timeline[0]
	case StageAnalysis:
		f.state.CurrentQuestion = "Thank you for sharing! I'm analyzing your responses to better understand your perspective..."
	case StageProfile:
		f.state.CurrentQuestion = "Based on our conversation, I've created a profile that will help me provide more personalized assistance. Would you like to see what I've learned about you?"
	case StageConversation:
		// question set by the stage handlers
	}
}

var nameREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)my name is (\w+)`),
	regexp.MustCompile(`(?i)i'm (\w+)`),
	regexp.MustCompile(`(?i)i am (\w+)`),
	regexp.MustCompile(`(?i)call me (\w+)`),
}

var locationKeywords = []string{"from", "in", "live in", "living in", "based in"}

var demographicAgeRE = regexp.MustCompile(`\b(\d{1,2})\b`)

func (f *Framework) extractUserInfo(answer string) {
	if m := demographicAgeRE.FindStringSubmatch(answer); m != nil {
		f.state.UserInfo.Age = m[1]
	}
	for _, re := range nameREs {
		if m := re.FindStringSubmatch(answer); m != nil {
			f.state.UserInfo.Name = m[1]
			break
		}
	}
	for _, kw := range locationKeywords {
		re := regexp.MustCompile(`(?i)\b` + kw + `\s+([A-Za-z][A-Za-z ,]*)`)
		if m := re.FindStringSubmatch(answer); m != nil {
			f.state.UserInfo.Location = strings.TrimSpace(m[1])
			break
		}
	}
}

func (f *Framework) timelineAnswered() int {
	asked := map[string]bool{}
	for _, q := range f.timeline {
		asked[q] = true
	}
	n := 0
	for _, qa := range f.state.QuestionHistory {
		if asked[qa.Question] {
			n++
		}
	}
	return n
}

func (f *Framework) updateAccuracy() {
	acc := accuracyFloor + f.timelineAnswered()*accuracyPerAnswer
	if acc > accuracyCeil {
		acc = accuracyCeil
	}
	f.state.PredictionAccuracy = acc
}

func (f *Framework) advanceTimelineOrAnalysis() {
	if f.timelineAnswered() >= timelineAnswersMin {
		f.advanceTo(StageAnalysis)
		f.scheduleAnalysis()
		return
	}

	asked := map[string]bool{}
	for _, qa := range f.state.QuestionHistory {
		asked[qa.Question] = true
	}
	for _, q := range f.timeline {
		if !asked[q] {
			f.state.CurrentQuestion = q
			return
		}
	}
	if recommended := f.patterns.RecommendedQuestions(); len(recommended) > 0 {
		f.state.CurrentQuestion = recommended[0]
	} else {
		f.state.CurrentQuestion = "What's something that's been on your mind lately?"
	}
}

// scheduleAnalysis runs the analysis completion as a task. Callers hold
// f.mu; a zero delay completes inline so tests and synchronous callers
// observe the profile stage immediately.
func (f *Framework) scheduleAnalysis() {
	if f.analysisDelay <= 0 {
		f.completeAnalysisLocked()
		return
	}
	time.AfterFunc(f.analysisDelay, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.state.Stage != StageAnalysis {
			return
		}
		f.completeAnalysisLocked()
	})
}

func (f *Framework) completeAnalysisLocked() {
	f.state.AnalysisComplete = true
	f.advanceTo(StageProfile)
	if f.onAnalysis != nil {
		cb := f.onAnalysis
		state := f.snapshot()
		go cb(state)
	}
}

func (f *Framework) handleProfileResponse(answer string) {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "yes") || strings.Contains(lower, "sure") {
		f.state.CurrentQuestion = "Great! Here's what I've learned about you. Is there anything specific you'd like to know more about?"
	} else {
		f.state.CurrentQuestion = "No problem! Is there anything specific you'd like to talk about now?"
	}
	f.advanceTo(StageConversation)
}

func (f *Framework) handleConversationResponse(answer string) {
	lower := strings.ToLower(answer)
	if strings.Contains(lower, "profile") || strings.Contains(lower, "learn") || strings.Contains(lower, "about me") {
		f.state.CurrentQuestion = "Based on our conversation, I've identified some key aspects of your profile. Would you like to know more about a specific area?"
		return
	}

	result := f.patterns.Analyze()
	demographic := ""
	if result.Demographic.Generation != "" {
		demographic = fmt.Sprintf("As someone from the %s generation, ", result.Demographic.Generation)
	}
	value := ""
	if len(result.Beliefs.CoreValues) > 0 && result.Beliefs.CoreValues[0] != "Insufficient data" {
		value = fmt.Sprintf("Given your interest in %s, ", result.Beliefs.CoreValues[0])
	}

	candidates := []string{
		demographic + "how do you feel about the current trends in technology?",
		value + "what are your thoughts on balancing personal and professional life?",
		"What's something you're looking forward to in the coming months?",
		"How has your perspective changed over the years on what matters most to you?",
	}
	f.state.CurrentQuestion = candidates[rand.Intn(len(candidates))]
}
