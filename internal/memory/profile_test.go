package memory

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func testLimits() Limits {
	return Limits{FutureEvents: 25, Goals: 20, Challenges: 20, Preferences: 30, Relationships: 15}
}

func TestFoldBoundsGoals(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	for i := 0; i < 25; i++ {
		ex := Extraction{Goals: []string{fmt.Sprintf("goal %d", i)}}
		Fold(p, Node{Content: "x", Emotion: "content"}, ex, testLimits(), 100, now)
	}
	if len(p.Goals) != 20 {
		t.Fatalf("expected 20 goals after overflow, got %d", len(p.Goals))
	}
	if p.Goals[0] != "goal 5" {
		t.Errorf("oldest goals should be evicted first, got head %q", p.Goals[0])
	}
	if p.Goals[19] != "goal 24" {
		t.Errorf("newest goal should survive, got tail %q", p.Goals[19])
	}
}

func TestFoldDedupesCaseInsensitive(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	Fold(p, Node{Emotion: "happy"}, Extraction{Goals: []string{"Run a marathon"}}, testLimits(), 100, now)
	Fold(p, Node{Emotion: "happy"}, Extraction{Goals: []string{"run a MARATHON"}}, testLimits(), 100, now)
	if len(p.Goals) != 1 {
		t.Errorf("expected 1 goal, got %v", p.Goals)
	}
}

func TestFoldFutureEventDefaults(t *testing.T) {
	p := NewProfile("u")
	Fold(p, Node{Emotion: "content"}, Extraction{FutureEvents: []string{"call the dentist"}}, testLimits(), 100, time.Now())
	if len(p.FutureEvents) != 1 {
		t.Fatalf("expected 1 event, got %v", p.FutureEvents)
	}
	ev := p.FutureEvents[0]
	if ev.Date != "TBD" || ev.Importance != 0.7 {
		t.Errorf("unexpected event defaults: %+v", ev)
	}
	if ev.Mentioned.IsZero() {
		t.Error("event should carry its mention timestamp")
	}
}

func TestFoldEmotionalPatternsUniqueByEmotion(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	Fold(p, Node{Content: "bad day at work", Emotion: "sad"}, Extraction{}, testLimits(), 100, now)
	Fold(p, Node{Content: "still feeling low", Emotion: "sad"}, Extraction{}, testLimits(), 100, now.Add(time.Minute))
	Fold(p, Node{Content: "good news though", Emotion: "happy"}, Extraction{}, testLimits(), 100, now.Add(2*time.Minute))

	if len(p.EmotionalPatterns) != 2 {
		t.Fatalf("expected 2 patterns, got %v", p.EmotionalPatterns)
	}
	sad := p.EmotionalPatterns[0]
	if sad.Emotion != "sad" || sad.Frequency != 2 {
		t.Errorf("unexpected sad pattern: %+v", sad)
	}
	if !sad.LastSeen.Equal(now.Add(time.Minute)) {
		t.Errorf("lastSeen should track the newest occurrence, got %v", sad.LastSeen)
	}
	if len(sad.Triggers) != 2 || sad.Triggers[0] != "bad day at work" {
		t.Errorf("unexpected triggers: %v", sad.Triggers)
	}
}

func TestFoldTriggerSnippet(t *testing.T) {
	p := NewProfile("u")
	long := strings.Repeat("a", 80)
	Fold(p, Node{Content: long, Emotion: "angry", Intensity: 1.8}, Extraction{}, testLimits(), 100, time.Now())
	if len(p.EmotionalPatterns) != 1 || len(p.EmotionalPatterns[0].Triggers) != 1 {
		t.Fatalf("expected one pattern with one trigger, got %v", p.EmotionalPatterns)
	}
	if got := p.EmotionalPatterns[0].Triggers[0]; len(got) != 50 {
		t.Errorf("trigger snippet should be 50 chars, got %d", len(got))
	}

	// Same snippet again must not duplicate.
	Fold(p, Node{Content: long, Emotion: "angry", Intensity: 1.1}, Extraction{}, testLimits(), 100, time.Now())
	if len(p.EmotionalPatterns[0].Triggers) != 1 {
		t.Errorf("duplicate trigger should not be re-added, got %v", p.EmotionalPatterns[0].Triggers)
	}
}

func TestFoldTriggersBoundedPerPattern(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	for i := 0; i < 14; i++ {
		Fold(p, Node{Content: fmt.Sprintf("upset about thing %d", i), Emotion: "sad"}, Extraction{}, testLimits(), 100, now)
	}
	pat := p.EmotionalPatterns[0]
	if pat.Frequency != 14 {
		t.Errorf("frequency should count every fold, got %d", pat.Frequency)
	}
	if len(pat.Triggers) != 10 {
		t.Fatalf("expected triggers capped at 10, got %d", len(pat.Triggers))
	}
	if pat.Triggers[9] != "upset about thing 13" {
		t.Errorf("newest trigger should survive, got %q", pat.Triggers[9])
	}
}

func TestFoldHistoryRing(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	for i := 0; i < 7; i++ {
		Fold(p, Node{ID: fmt.Sprintf("id-%d", i), Content: fmt.Sprintf("msg %d", i), Emotion: "content", Importance: 0.4}, Extraction{}, testLimits(), 5, now)
	}
	if len(p.History) != 5 {
		t.Fatalf("expected history capped at 5, got %d", len(p.History))
	}
	if p.History[4].Content != "msg 6" {
		t.Errorf("newest entry should be last, got %q", p.History[4].Content)
	}
	if p.History[0].Content != "msg 2" {
		t.Errorf("oldest entries should be evicted, got head %q", p.History[0].Content)
	}
	tail := p.History[4]
	if tail.MemoryID != "id-6" || tail.Importance != 0.4 {
		t.Errorf("history entry should carry memory id and importance, got %+v", tail)
	}
}

func TestFoldTopicFrequency(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	Fold(p, Node{Emotion: "happy"}, Extraction{Topics: []string{"guitar"}}, testLimits(), 100, now)
	Fold(p, Node{Emotion: "sad"}, Extraction{Topics: []string{"guitar"}}, testLimits(), 100, now.Add(time.Minute))
	if len(p.Topics) != 1 {
		t.Fatalf("expected 1 topic, got %v", p.Topics)
	}
	topic := p.Topics[0]
	if topic.Frequency != 2 {
		t.Errorf("expected frequency 2, got %d", topic.Frequency)
	}
	if topic.Sentiment != "sad" {
		t.Errorf("sentiment should track the latest mention, got %q", topic.Sentiment)
	}
}

func TestRecordDisconnectionNeverPruned(t *testing.T) {
	p := NewProfile("u")
	now := time.Now()
	for i := 0; i < 120; i++ {
		p.RecordDisconnection(fmt.Sprintf("topic %d", i), "ctx", now)
	}
	if len(p.DisconnectionPoints) != 120 {
		t.Fatalf("disconnection points must not be pruned, got %d", len(p.DisconnectionPoints))
	}
	if p.DisconnectionPoints[0].Topic != "topic 0" {
		t.Errorf("oldest point should survive, got %q", p.DisconnectionPoints[0].Topic)
	}
}
