package emotion

import "testing"

func TestClassify_Keywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"happy", "I am so happy about this", Happy},
		{"sad", "feeling really down and upset today", Sad},
		{"angry", "this makes me furious and mad", Angry},
		{"fearful", "I'm worried and anxious about tomorrow", Fearful},
		{"stressed counts as fearful", "I need to finish my presentation tomorrow, I'm so stressed!!", Fearful},
		{"surprised", "wow that was unexpected", Surprised},
		{"disgusted", "that is gross and revolting", Disgusted},
		{"euphoric", "absolutely ecstatic and overjoyed and elated", Euphoric},
		{"no keywords", "the meeting is at three", Content},
		{"empty", "", Content},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Emotion != tt.want {
				t.Errorf("Classify(%q).Emotion = %q, want %q", tt.text, got.Emotion, tt.want)
			}
		})
	}
}

func TestClassify_DepressedGoesToSadFirst(t *testing.T) {
	// "depressed" appears in both the sad and depressed lists; sad is
	// declared first and wins the tie.
	got := Classify("I'm depressed")
	if got.Emotion != Sad {
		t.Errorf("Classify emotion = %q, want %q", got.Emotion, Sad)
	}
}

func TestRepeatedRuns(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"normal words", 0},
		{"soooo", 1},
		{"sooo goooood", 2},
		{"aaabbbccc", 3},
		{"!!!", 1},
		{"aab", 0},
	}
	for _, tt := range tests {
		if got := repeatedRuns(tt.text); got != tt.want {
			t.Errorf("repeatedRuns(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestClassify_RepeatedRunsRaiseIntensity(t *testing.T) {
	stretched := Classify("that was sooooo good")
	plain := Classify("that was so good")
	if stretched.Intensity <= plain.Intensity {
		t.Errorf("letter stretching should raise intensity: stretched=%v plain=%v",
			stretched.Intensity, plain.Intensity)
	}
}

func TestClassify_TieBreakDeclarationOrder(t *testing.T) {
	// One happy keyword and one sad keyword: happy is declared first and wins.
	got := Classify("happy but also sad")
	if got.Emotion != Happy {
		t.Errorf("tie should go to first-declared emotion, got %q", got.Emotion)
	}
}

func TestClassify_WholeWordOnly(t *testing.T) {
	// "madrid" must not match the angry keyword "mad".
	got := Classify("I flew to madrid")
	if got.Emotion != Content {
		t.Errorf("substring should not match, got %q", got.Emotion)
	}
}

func TestClassify_IntensityBounds(t *testing.T) {
	inputs := []string{
		"",
		"calm words only",
		"WHY?! WHY?! WHY?! WHY?! WHY?! AAAAAHHHH!!!!!!!!!!",
		"soooooo goooood!!!",
	}
	for _, in := range inputs {
		got := Classify(in)
		if got.Intensity < 0 || got.Intensity > 2 {
			t.Errorf("Classify(%q).Intensity = %v out of [0,2]", in, got.Intensity)
		}
		if got.Confidence < 0.1 || got.Confidence > 1.0 {
			t.Errorf("Classify(%q).Confidence = %v out of [0.1,1.0]", in, got.Confidence)
		}
	}
}

func TestClassify_CapsAndExclamationsRaiseIntensity(t *testing.T) {
	loud := Classify("I AM SO HAPPY!!!")
	if loud.Emotion != Happy {
		t.Fatalf("emotion = %q, want happy", loud.Emotion)
	}
	if loud.Intensity <= 1.5 {
		t.Errorf("intensity = %v, want > 1.5", loud.Intensity)
	}

	quiet := Classify("I am so happy")
	if loud.Intensity <= quiet.Intensity {
		t.Errorf("caps+exclamations should raise intensity: loud=%v quiet=%v", loud.Intensity, quiet.Intensity)
	}
}

func TestClassify_LongerTextRaisesConfidence(t *testing.T) {
	short := Classify("happy")
	long := Classify("I am really happy today because so many good things have been happening to me all week long honestly")
	if long.Confidence <= short.Confidence {
		t.Errorf("longer text should raise confidence: long=%v short=%v", long.Confidence, short.Confidence)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	const text = "I'm EXCITED!!! sooo excited?!"
	a := Classify(text)
	b := Classify(text)
	if a != b {
		t.Errorf("Classify not deterministic: %+v vs %+v", a, b)
	}
}
