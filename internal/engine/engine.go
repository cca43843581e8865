package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/graei/mindcore/internal/dialogue"
	"github.com/graei/mindcore/internal/emotion"
	"github.com/graei/mindcore/internal/llm"
	"github.com/graei/mindcore/internal/memory"
)

// MemoryStore is the persistence surface the engine needs. The SQLite
// store satisfies it; tests may substitute their own.
type MemoryStore interface {
	Append(memory.AppendInput) (string, error)
	RetrieveRelevant(userID, query string, limit int) ([]memory.Node, error)
	Profile(userID string) (*memory.Profile, bool, error)
	SaveProfile(*memory.Profile) error
	Insights(userID string) (memory.Insights, error)
	PredictiveQuestions(userID string) ([]string, error)
	Reminders(userID string) ([]string, error)
	ContextualLeadIn(userID, message string) (string, error)
	ExportProfile(userID string) ([]byte, error)
	ImportProfile(userID string, blob []byte) error
	ClearUser(userID string) error
	Stats(userID string) (memory.Stats, error)
	KnownUsers() ([]string, error)
}

// TurnResult is what one processed message yields.
type TurnResult struct {
	Emotion   emotion.State         `json:"emotion"`
	Resources emotion.ResourceState `json:"resources"`
	MemoryID  string                `json:"memoryId"`
}

// Engine runs the full per-message pipeline: classify, map to resource
// state, persist, and compose emotionally adjusted replies.
type Engine struct {
	store         MemoryStore
	completer     llm.Completer
	analysisDelay time.Duration

	mu       sync.Mutex
	sessions map[string]*dialogueSession
}

// dialogueSession ties one guided-interview framework to the user whose
// memory it writes into. The map key is the session key (one per
// conversation surface), which may differ from the user id.
type dialogueSession struct {
	framework *dialogue.Framework
	userID    string
}

func New(store MemoryStore, completer llm.Completer, analysisDelay time.Duration) *Engine {
	return &Engine{
		store:         store,
		completer:     completer,
		analysisDelay: analysisDelay,
		sessions:      make(map[string]*dialogueSession),
	}
}

// ProcessTurn classifies one message, derives the resource state, and
// persists the node plus profile update.
func (e *Engine) ProcessTurn(userID, text string) (TurnResult, error) {
	state := emotion.Classify(text)
	resources := emotion.ResourceFor(state.Emotion, state.Intensity)

	id, err := e.store.Append(memory.AppendInput{
		UserID:     userID,
		Content:    text,
		Emotion:    state.Emotion,
		Intensity:  state.Intensity,
		Importance: importanceFor(state),
		Resources: memory.ResourceUsage{
			ComputeRate:    resources.ComputeRate,
			MemoryPressure: resources.MemoryPressure,
			Throughput:     resources.Throughput,
			Load:           resources.Load,
		},
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("persist turn: %w", err)
	}

	return TurnResult{Emotion: state, Resources: resources, MemoryID: id}, nil
}

// importanceFor scales intensity into the importance range the store
// expects.
func importanceFor(state emotion.State) float64 {
	imp := state.Intensity / 2
	if imp < 0.1 {
		imp = 0.1
	}
	if imp > 1 {
		imp = 1
	}
	return imp
}

// Respond runs the pipeline and asks the language model for a reply,
// framed by the user's emotional and historical context. A model
// failure records a disconnection point before returning the error.
func (e *Engine) Respond(ctx context.Context, userID, text string) (string, TurnResult, error) {
	result, err := e.ProcessTurn(userID, text)
	if err != nil {
		return "", TurnResult{}, err
	}

	system := e.systemPrompt(userID, text, result)
	messages := e.recentMessages(userID, text)

	reply, err := e.completer.Complete(ctx, system, messages)
	if err != nil {
		e.recordDisconnection(userID, text)
		return "", result, fmt.Errorf("complete reply: %w", err)
	}
	return e.EnhanceReply(userID, text, reply), result, nil
}

func (e *Engine) recentMessages(userID, text string) []llm.Message {
	var messages []llm.Message
	if p, ok, err := e.store.Profile(userID); err == nil && ok {
		history := p.History
		if len(history) > 6 {
			history = history[len(history)-6:]
		}
		for _, h := range history {
			messages = append(messages, llm.Message{Role: "user", Content: h.Content})
		}
	}
	messages = append(messages, llm.Message{Role: "user", Content: text})
	return messages
}

func (e *Engine) systemPrompt(userID, text string, result TurnResult) string {
	var b strings.Builder
	b.WriteString("You are a thoughtful personal companion with durable memory of the user.\n")
	fmt.Fprintf(&b, "The user currently reads as %s (intensity %.2f, confidence %.2f). ",
		result.Emotion.Emotion, result.Emotion.Intensity, result.Emotion.Confidence)
	fmt.Fprintf(&b, "Operate at compute rate %.2f with throughput %.2f.\n",
		result.Resources.ComputeRate, result.Resources.Throughput)

	if lead, err := e.store.ContextualLeadIn(userID, text); err == nil && lead != "" {
		b.WriteString("Context: " + lead + "\n")
	}
	if bias := emotion.AnalyzeBias(text); len(bias.Detected) > 0 {
		b.WriteString(bias.Mitigation + "\n")
	}
	hint := emotion.InferGeneration(text)
	b.WriteString(hint.Guidance + "\n")
	return b.String()
}

func (e *Engine) recordDisconnection(userID, text string) {
	p, ok, err := e.store.Profile(userID)
	if err != nil || !ok {
		return
	}
	topic := "conversation"
	if topics := firstTopic(text); topics != "" {
		topic = topics
	}
	p.RecordDisconnection(topic, text, time.Now())
	if err := e.store.SaveProfile(p); err != nil {
		log.Printf("[engine] record disconnection: %v", err)
	}
}

func firstTopic(text string) string {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) > 3 {
			return strings.Trim(w, ".,!?")
		}
	}
	return ""
}

// EnhanceReply layers emotional framing, bias mitigation, and a
// contextual lead-in onto a base reply.
func (e *Engine) EnhanceReply(userID, userText, baseReply string) string {
	var parts []string

	state := emotion.Classify(userText)
	if frame := empathicFrame(state); frame != "" {
		parts = append(parts, frame)
	}
	if lead, err := e.store.ContextualLeadIn(userID, userText); err == nil && lead != "" {
		parts = append(parts, lead)
	}
	parts = append(parts, baseReply)

	if bias := emotion.AnalyzeBias(userText); len(bias.Detected) > 0 {
		parts = append(parts, bias.Guidance)
	}
	return strings.Join(parts, " ")
}

func empathicFrame(state emotion.State) string {
	if state.Intensity < 1.2 {
		return ""
	}
	switch state.Emotion {
	case emotion.Sad, emotion.Depressed:
		return "I hear that this is weighing on you."
	case emotion.Angry:
		return "That sounds genuinely frustrating."
	case emotion.Fearful:
		return "It makes sense to feel uneasy about this."
	case emotion.Happy, emotion.Euphoric:
		return "I love the energy here!"
	default:
		return ""
	}
}

// Session returns the dialogue framework stored under key, creating one
// on first use. Analysis summaries and memory writes go to userID, so
// the same user can hold independent interview sessions on different
// surfaces while sharing one memory.
func (e *Engine) Session(key, userID string) *dialogue.Framework {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.sessions[key]; ok {
		return s.framework
	}
	f := dialogue.NewFramework(e.analysisDelay)
	f.OnAnalysisComplete(func(s dialogue.State) {
		e.persistAnalysis(userID, f)
	})
	e.sessions[key] = &dialogueSession{framework: f, userID: userID}
	return f
}

func (e *Engine) persistAnalysis(userID string, f *dialogue.Framework) {
	result := f.AnalysisResults()
	summary := fmt.Sprintf("profile analysis: generation=%s worldview=%s values=%s",
		result.Demographic.Generation, result.Beliefs.Worldview,
		strings.Join(result.Beliefs.CoreValues, ","))
	if _, err := e.store.Append(memory.AppendInput{
		UserID:     userID,
		Content:    summary,
		Emotion:    emotion.Content,
		Intensity:  1,
		Importance: result.OverallConfidence,
	}); err != nil {
		log.Printf("[engine] persist analysis for %s: %v", userID, err)
	}
}

// ResetSession drops the dialogue session stored under key.
func (e *Engine) ResetSession(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, key)
}

// Insights proxies the store's aggregate snapshot.
func (e *Engine) Insights(userID string) (memory.Insights, error) {
	return e.store.Insights(userID)
}

func (e *Engine) PredictiveQuestions(userID string) ([]string, error) {
	return e.store.PredictiveQuestions(userID)
}

func (e *Engine) Reminders(userID string) ([]string, error) {
	return e.store.Reminders(userID)
}

func (e *Engine) Stats(userID string) (memory.Stats, error) {
	return e.store.Stats(userID)
}

func (e *Engine) ExportProfile(userID string) ([]byte, error) {
	return e.store.ExportProfile(userID)
}

func (e *Engine) ImportProfile(userID string, blob []byte) error {
	return e.store.ImportProfile(userID, blob)
}

func (e *Engine) KnownUsers() ([]string, error) {
	return e.store.KnownUsers()
}

// ClearUser removes all stored memory and every live dialogue session
// the user owns, whichever surface it came in on.
func (e *Engine) ClearUser(userID string) error {
	e.mu.Lock()
	for key, s := range e.sessions {
		if s.userID == userID {
			delete(e.sessions, key)
		}
	}
	e.mu.Unlock()
	return e.store.ClearUser(userID)
}
