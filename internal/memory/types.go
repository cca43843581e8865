package memory

import "time"

// Node is a single stored memory entry.
type Node struct {
	ID           string        `json:"id"`
	UserID       string        `json:"userId"`
	Content      string        `json:"content"`
	Emotion      string        `json:"emotion"`
	Intensity    float64       `json:"intensity"`
	Importance   float64       `json:"importance"`
	Tags         []string      `json:"tags"`
	Resources    ResourceUsage `json:"resources"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastAccessed time.Time     `json:"lastAccessed"`
	AccessCount  int           `json:"accessCount"`
}

// ResourceUsage is the resource snapshot captured alongside a node.
type ResourceUsage struct {
	ComputeRate    float64 `json:"computeRate"`
	MemoryPressure float64 `json:"memoryPressure"`
	Throughput     float64 `json:"throughput"`
	Load           float64 `json:"load"`
}

// EmotionalPattern aggregates every occurrence of one emotion for a
// user. Patterns are unique by emotion; Triggers holds the most recent
// message snippets that carried it.
type EmotionalPattern struct {
	Emotion   string    `json:"emotion"`
	Frequency int       `json:"frequency"`
	Triggers  []string  `json:"triggers"`
	LastSeen  time.Time `json:"lastSeen"`
}

// FutureEvent is a commitment or plan the user mentioned.
type FutureEvent struct {
	Event      string    `json:"event"`
	Date       string    `json:"date"`
	Importance float64   `json:"importance"`
	Mentioned  time.Time `json:"mentioned"`
}

// Topic tracks how often a subject came up and with what sentiment.
type Topic struct {
	Name        string    `json:"name"`
	Frequency   int       `json:"frequency"`
	LastMention time.Time `json:"lastMention"`
	Sentiment   string    `json:"sentiment"`
}

// DisconnectionPoint records a moment the assistant failed the user.
type DisconnectionPoint struct {
	Topic     string    `json:"topic"`
	Context   string    `json:"context"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is one turn of the bounded conversation ring.
type HistoryEntry struct {
	MemoryID   string    `json:"memoryId"`
	Content    string    `json:"content"`
	Emotion    string    `json:"emotion"`
	Importance float64   `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
}

// Profile is the aggregate picture of a user built up across turns.
type Profile struct {
	UserID              string               `json:"userId"`
	EmotionalPatterns   []EmotionalPattern   `json:"emotionalPatterns"`
	Goals               []string             `json:"goals"`
	Challenges          []string             `json:"challenges"`
	Preferences         []string             `json:"preferences"`
	Relationships       []string             `json:"relationships"`
	FutureEvents        []FutureEvent        `json:"futureEvents"`
	Topics              []Topic              `json:"topics"`
	DisconnectionPoints []DisconnectionPoint `json:"disconnectionPoints"`
	History             []HistoryEntry       `json:"history"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// NewProfile returns an empty profile for a user.
func NewProfile(userID string) *Profile {
	return &Profile{UserID: userID}
}

// EmotionTrend is one aggregated emotion bucket in an insight snapshot.
type EmotionTrend struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// Stats summarizes the stored memory volume for a user. ByEmotion and
// ByDay are always non-nil; ByDay keys are "2006-01-02" dates.
type Stats struct {
	TotalMemories  int            `json:"totalMemories"`
	RecentMemories int            `json:"recentMemories"`
	TopTopics      []string       `json:"topTopics"`
	ByEmotion      map[string]int `json:"byEmotion"`
	ByDay          map[string]int `json:"byDay"`
}

func emptyStats() Stats {
	return Stats{TopTopics: []string{}, ByEmotion: map[string]int{}, ByDay: map[string]int{}}
}

// Insights is the snapshot surfaced to callers. All slices are non-nil
// so an unknown user serializes as empty rather than null.
type Insights struct {
	EmotionalTrends []EmotionTrend `json:"emotionalTrends"`
	Goals           []string       `json:"goals"`
	Challenges      []string       `json:"challenges"`
	UpcomingEvents  []FutureEvent  `json:"upcomingEvents"`
	TopTopics       []Topic        `json:"topTopics"`
	Stats           Stats          `json:"stats"`
}

// EmptyInsights is what an unknown user gets.
func EmptyInsights() Insights {
	return Insights{
		EmotionalTrends: []EmotionTrend{},
		Goals:           []string{},
		Challenges:      []string{},
		UpcomingEvents:  []FutureEvent{},
		TopTopics:       []Topic{},
		Stats:           emptyStats(),
	}
}
