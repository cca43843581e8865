package dialogue

import (
	"testing"
	"time"
)

func TestDetectTone(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"I was so happy and excited that summer", "happy"},
		{"I remember those days, I miss my childhood", "nostalgic"},
		{"I regret it, I wish I had taken the job", "regretful"},
		{"it was a tuesday", "neutral"},
	}
	for _, c := range cases {
		if got := detectTone(c.text); got != c.want {
			t.Errorf("detectTone(%q) = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestKeyTopics(t *testing.T) {
	topics := keyTopics("My job at the company pays for my college degree")
	found := map[string]bool{}
	for _, topic := range topics {
		found[topic] = true
	}
	if !found["career"] || !found["education"] {
		t.Errorf("expected career and education, got %v", topics)
	}
}

func TestDirectAgeConfidence(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "I'm 34 years old and doing fine")
	result := ps.Analyze()
	if result.Demographic.Confidence < 0.9 {
		t.Errorf("direct age mention should give confidence >= 0.9, got %f", result.Demographic.Confidence)
	}
	birthYear := time.Now().Year() - 34
	if result.Demographic.BirthYearEstimate != birthYear {
		t.Errorf("expected birth year %d, got %d", birthYear, result.Demographic.BirthYearEstimate)
	}
}

func TestBirthYearGeneration(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "I was born in 1990 in a small town")
	d := ps.Analyze().Demographic
	if d.Generation != "Millennial" {
		t.Errorf("birth year 1990 should map to Millennial, got %q", d.Generation)
	}
	if len(d.GenerationTraits) == 0 {
		t.Error("generation match should carry traits")
	}
}

func TestGenerationFromMarkers(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "I spent my evenings watching mtv with my walkman during the cold war")
	d := ps.Analyze().Demographic
	if d.Generation != "Gen X" {
		t.Errorf("cultural markers should map to Gen X, got %q", d.Generation)
	}
	// three marker hits: min(0.7, 0.3 + 3*0.1)
	if d.Confidence < 0.59 || d.Confidence > 0.61 {
		t.Errorf("expected marker confidence 0.6, got %f", d.Confidence)
	}
}

func TestNineElevenAgeAnchor(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "During 9/11 I was 15 and in school")
	d := ps.Analyze().Demographic
	if d.BirthYearEstimate != 1986 {
		t.Errorf("expected birth year 1986, got %d", d.BirthYearEstimate)
	}
	if d.Generation != "Millennial" {
		t.Errorf("1986 should map to Millennial, got %q", d.Generation)
	}
}

func TestEmotionalProfileRules(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q1", "I'm worried and anxious about everything")
	ps.AddResponse("q2", "still scared and nervous honestly")
	e := ps.Analyze().Emotional
	if len(e.DominantEmotions) == 0 || e.DominantEmotions[0] != "fearful" {
		t.Fatalf("expected fearful to dominate, got %v", e.DominantEmotions)
	}
	foundCoping := false
	for _, c := range e.CopingMechanisms {
		if c == "May benefit from stress reduction techniques" {
			foundCoping = true
		}
	}
	if !foundCoping {
		t.Errorf("fearful dominance should suggest stress reduction, got %v", e.CopingMechanisms)
	}
}

func TestBeliefSystemValues(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "My family and my parents taught me that success and achievement come from practical, realistic work")
	b := ps.Analyze().Beliefs
	if len(b.CoreValues) == 0 || b.CoreValues[0] != "family" {
		t.Errorf("family should be the top value, got %v", b.CoreValues)
	}
	if b.Worldview != "pragmatic" {
		t.Errorf("expected pragmatic worldview, got %q", b.Worldview)
	}
}

func TestInsufficientDataDefaults(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "it was a tuesday")
	r := ps.Analyze()
	if r.Beliefs.CoreValues[0] != "Insufficient data" {
		t.Errorf("expected insufficient data marker, got %v", r.Beliefs.CoreValues)
	}
	if r.Beliefs.Worldview != "unclear" {
		t.Errorf("expected unclear worldview, got %q", r.Beliefs.Worldview)
	}
}

func TestMindDatasetMotives(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q1", "my career and my job at the company matter a lot")
	ps.AddResponse("q2", "work has been busy")
	m := ps.Analyze().MindDataset
	if len(m.ObjectsOfImportance) == 0 || m.ObjectsOfImportance[0] != "career" {
		t.Fatalf("career should lead objects of importance, got %v", m.ObjectsOfImportance)
	}
	foundMotive := false
	for _, g := range m.GoalMotives {
		if g == "Professional advancement" {
			foundMotive = true
		}
	}
	if !foundMotive {
		t.Errorf("career should yield professional advancement motive, got %v", m.GoalMotives)
	}
}

func TestRecommendedQuestionsCapped(t *testing.T) {
	ps := NewPatternSystem()
	qs := ps.RecommendedQuestions()
	if len(qs) == 0 || len(qs) > 5 {
		t.Fatalf("expected 1..5 questions, got %d", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q] {
			t.Errorf("duplicate question %q", q)
		}
		seen[q] = true
	}
}

func TestPatternReset(t *testing.T) {
	ps := NewPatternSystem()
	ps.AddResponse("q", "hello there")
	ps.Reset()
	if ps.ResponseCount() != 0 {
		t.Errorf("reset should drop responses, got %d", ps.ResponseCount())
	}
}
