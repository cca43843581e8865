package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	recentWindow      = 7 * 24 * time.Hour
	topicWindow       = 3 * 24 * time.Hour
	maxQuestions      = 5
	maxReminders      = 3
	insightTopTopics  = 10
	insightTrendLimit = 5
)

// Insights builds the aggregate snapshot for a user. Unknown users get
// the empty snapshot, never an error.
func (s *Store) Insights(userID string) (Insights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.loadProfile(userID)
	if err != nil {
		return Insights{}, err
	}
	if !ok {
		return EmptyInsights(), nil
	}

	out := EmptyInsights()
	out.Goals = append(out.Goals, p.Goals...)
	out.Challenges = append(out.Challenges, p.Challenges...)
	out.UpcomingEvents = append(out.UpcomingEvents, p.FutureEvents...)
	out.EmotionalTrends = emotionalTrends(p, insightTrendLimit)

	topics := append([]Topic(nil), p.Topics...)
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].Frequency != topics[j].Frequency {
			return topics[i].Frequency > topics[j].Frequency
		}
		return topics[i].LastMention.After(topics[j].LastMention)
	})
	if len(topics) > insightTopTopics {
		topics = topics[:insightTopTopics]
	}
	out.TopTopics = topics

	stats, err := s.stats(userID, topics)
	if err != nil {
		return Insights{}, err
	}
	out.Stats = stats
	return out, nil
}

// Stats reports stored memory volume for a user.
func (s *Store) Stats(userID string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.loadProfile(userID)
	if err != nil {
		return Stats{}, err
	}
	var topics []Topic
	if ok {
		topics = append(topics, p.Topics...)
		sort.SliceStable(topics, func(i, j int) bool {
			if topics[i].Frequency != topics[j].Frequency {
				return topics[i].Frequency > topics[j].Frequency
			}
			return topics[i].LastMention.After(topics[j].LastMention)
		})
		if len(topics) > insightTopTopics {
			topics = topics[:insightTopTopics]
		}
	}
	return s.stats(userID, topics)
}

func (s *Store) stats(userID string, topTopics []Topic) (Stats, error) {
	st := emptyStats()
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memory_nodes WHERE user_id = ?`, userID).
		Scan(&st.TotalMemories); err != nil {
		return Stats{}, fmt.Errorf("count nodes: %w", err)
	}
	cutoff := s.now().Add(-recentWindow).UnixMilli()
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM memory_nodes WHERE user_id = ? AND created_at >= ?`,
		userID, cutoff).Scan(&st.RecentMemories); err != nil {
		return Stats{}, fmt.Errorf("count recent nodes: %w", err)
	}
	for _, t := range topTopics {
		st.TopTopics = append(st.TopTopics, t.Name)
	}

	rows, err := s.db.Query(`SELECT emotion, COUNT(*) FROM memory_nodes WHERE user_id = ? GROUP BY emotion`, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("count by emotion: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var emotion string
		var n int
		if err := rows.Scan(&emotion, &n); err != nil {
			return Stats{}, fmt.Errorf("scan emotion count: %w", err)
		}
		st.ByEmotion[emotion] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate emotion counts: %w", err)
	}

	dayRows, err := s.db.Query(`SELECT created_at FROM memory_nodes WHERE user_id = ?`, userID)
	if err != nil {
		return Stats{}, fmt.Errorf("load timestamps: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var ms int64
		if err := dayRows.Scan(&ms); err != nil {
			return Stats{}, fmt.Errorf("scan timestamp: %w", err)
		}
		day := time.UnixMilli(ms).UTC().Format("2006-01-02")
		st.ByDay[day]++
	}
	if err := dayRows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate timestamps: %w", err)
	}
	return st, nil
}

func emotionalTrends(p *Profile, limit int) []EmotionTrend {
	trends := make([]EmotionTrend, 0, len(p.EmotionalPatterns))
	for _, pat := range p.EmotionalPatterns {
		trends = append(trends, EmotionTrend{Emotion: pat.Emotion, Count: pat.Frequency})
	}
	sort.SliceStable(trends, func(i, j int) bool {
		return trends[i].Count > trends[j].Count
	})
	if len(trends) > limit {
		trends = trends[:limit]
	}
	return trends
}

// PredictiveQuestions suggests follow-up questions drawn from the
// user's stated plans, goals, challenges, and recent topics.
func (s *Store) PredictiveQuestions(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.loadProfile(userID)
	if err != nil {
		return nil, err
	}
	questions := []string{}
	if !ok {
		return questions, nil
	}

	for _, ev := range p.FutureEvents {
		questions = append(questions,
			fmt.Sprintf("How did %s go?", ev.Event),
			fmt.Sprintf("Are you still planning to %s?", ev.Event))
	}
	for _, g := range p.Goals {
		questions = append(questions,
			fmt.Sprintf("How is your progress on %s?", g),
			fmt.Sprintf("What's your next step toward %s?", g))
	}
	for _, c := range p.Challenges {
		questions = append(questions,
			fmt.Sprintf("How are you feeling about %s now?", c),
			fmt.Sprintf("Has anything changed with %s?", c))
	}

	cutoff := s.now().Add(-topicWindow)
	recent := []Topic{}
	for _, t := range p.Topics {
		if t.LastMention.After(cutoff) {
			recent = append(recent, t)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Frequency > recent[j].Frequency
	})
	if len(recent) > 3 {
		recent = recent[:3]
	}
	for _, t := range recent {
		questions = append(questions, fmt.Sprintf("Anything new with %s?", t.Name))
	}

	if len(questions) > maxQuestions {
		questions = questions[:maxQuestions]
	}
	return questions, nil
}

// Reminders lists the commitments and goals worth resurfacing.
func (s *Store) Reminders(userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.loadProfile(userID)
	if err != nil {
		return nil, err
	}
	reminders := []string{}
	if !ok {
		return reminders, nil
	}
	for _, ev := range p.FutureEvents {
		reminders = append(reminders, fmt.Sprintf("Remember: %s", ev.Event))
	}
	for _, g := range p.Goals {
		reminders = append(reminders, fmt.Sprintf("Goal: %s", g))
	}
	if len(reminders) > maxReminders {
		reminders = reminders[:maxReminders]
	}
	return reminders, nil
}

// ContextualLeadIn composes a short framing line for the next reply,
// weaving in the most relevant memory, the dominant recent emotion, and
// an open goal or plan.
func (s *Store) ContextualLeadIn(userID, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.loadProfile(userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}

	var parts []string

	nodes, err := s.userNodes(userID)
	if err != nil {
		return "", err
	}
	queryWords := strings.Fields(strings.ToLower(message))
	now := s.now()
	best := ""
	bestScore := 0.0
	for _, n := range nodes {
		if score := relevanceScore(n, queryWords, now); score > bestScore {
			best, bestScore = n.Content, score
		}
	}
	if best != "" && bestScore > 0.3 {
		parts = append(parts, fmt.Sprintf("Earlier you mentioned: %q.", best))
	}

	cutoff := now.Add(-recentWindow)
	dominant, dominantCount := "", 0
	for _, pat := range p.EmotionalPatterns {
		if !pat.LastSeen.After(cutoff) {
			continue
		}
		if pat.Frequency > dominantCount {
			dominant, dominantCount = pat.Emotion, pat.Frequency
		}
	}
	if dominant != "" && dominant != "content" {
		parts = append(parts, fmt.Sprintf("You've seemed %s lately.", dominant))
	}

	if len(p.FutureEvents) > 0 {
		parts = append(parts, fmt.Sprintf("Coming up: %s.", p.FutureEvents[0].Event))
	} else if len(p.Goals) > 0 {
		parts = append(parts, fmt.Sprintf("Still working toward %s.", p.Goals[0]))
	}

	return strings.Join(parts, " "), nil
}
