package memory

import (
	"sort"
	"strings"
	"time"
)

const (
	defaultHistoryCap = 100
	topicCap          = 50
	triggerCap        = 10
	triggerSnippetLen = 50
)

// Fold merges one classified message and its extraction into the profile.
// All lists stay bounded; when full, the oldest entry is evicted first.
func Fold(p *Profile, node Node, ex Extraction, limits Limits, historyCap int, now time.Time) {
	touchPattern(p, node.Emotion, node.Content, now)

	for _, g := range ex.Goals {
		p.Goals = appendBounded(p.Goals, g, limits.Goals)
	}
	for _, c := range ex.Challenges {
		p.Challenges = appendBounded(p.Challenges, c, limits.Challenges)
	}
	for _, pr := range ex.Preferences {
		p.Preferences = appendBounded(p.Preferences, pr, limits.Preferences)
	}
	for _, r := range ex.Relationships {
		p.Relationships = appendBounded(p.Relationships, r, limits.Relationships)
	}
	for _, ev := range ex.FutureEvents {
		p.FutureEvents = appendEvent(p.FutureEvents, FutureEvent{
			Event:      ev,
			Date:       "TBD",
			Importance: 0.7,
			Mentioned:  now,
		}, limits.FutureEvents)
	}

	for _, t := range ex.Topics {
		touchTopic(p, t, node.Emotion, now)
	}
	trimTopics(p)

	if historyCap <= 0 {
		historyCap = defaultHistoryCap
	}
	p.History = append(p.History, HistoryEntry{
		MemoryID:   node.ID,
		Content:    node.Content,
		Emotion:    node.Emotion,
		Importance: node.Importance,
		Timestamp:  now,
	})
	if len(p.History) > historyCap {
		p.History = p.History[len(p.History)-historyCap:]
	}

	p.UpdatedAt = now
}

// touchPattern bumps the pattern for the node's emotion, creating it on
// first sight. The message's leading snippet is kept as a trigger,
// deduplicated and bounded to the most recent entries.
func touchPattern(p *Profile, emotion, content string, now time.Time) {
	snippet := content
	if len(snippet) > triggerSnippetLen {
		snippet = snippet[:triggerSnippetLen]
	}
	for i := range p.EmotionalPatterns {
		if p.EmotionalPatterns[i].Emotion != emotion {
			continue
		}
		p.EmotionalPatterns[i].Frequency++
		p.EmotionalPatterns[i].LastSeen = now
		p.EmotionalPatterns[i].Triggers = appendBounded(p.EmotionalPatterns[i].Triggers, snippet, triggerCap)
		return
	}
	p.EmotionalPatterns = append(p.EmotionalPatterns, EmotionalPattern{
		Emotion:   emotion,
		Frequency: 1,
		Triggers:  []string{snippet},
		LastSeen:  now,
	})
}

// RecordDisconnection appends a failure moment. Unlike the other profile
// lists, disconnection points are never pruned.
func (p *Profile) RecordDisconnection(topic, context string, now time.Time) {
	p.DisconnectionPoints = append(p.DisconnectionPoints, DisconnectionPoint{
		Topic:     topic,
		Context:   context,
		Timestamp: now,
	})
	p.UpdatedAt = now
}

// appendBounded adds v unless an equal entry (case-insensitive) already
// exists, evicting the oldest entry when the list exceeds max.
func appendBounded(list []string, v string, max int) []string {
	lower := strings.ToLower(v)
	for _, existing := range list {
		if strings.ToLower(existing) == lower {
			return list
		}
	}
	list = append(list, v)
	if max > 0 && len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}

func appendEvent(list []FutureEvent, ev FutureEvent, max int) []FutureEvent {
	lower := strings.ToLower(ev.Event)
	for _, existing := range list {
		if strings.ToLower(existing.Event) == lower {
			return list
		}
	}
	list = append(list, ev)
	if max > 0 && len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}

func touchTopic(p *Profile, name, sentiment string, now time.Time) {
	for i := range p.Topics {
		if p.Topics[i].Name == name {
			p.Topics[i].Frequency++
			p.Topics[i].LastMention = now
			p.Topics[i].Sentiment = sentiment
			return
		}
	}
	p.Topics = append(p.Topics, Topic{
		Name:        name,
		Frequency:   1,
		LastMention: now,
		Sentiment:   sentiment,
	})
}

// trimTopics keeps the most frequent topics, preferring the more
// recently mentioned one on ties.
func trimTopics(p *Profile) {
	if len(p.Topics) <= topicCap {
		return
	}
	sort.SliceStable(p.Topics, func(i, j int) bool {
		if p.Topics[i].Frequency != p.Topics[j].Frequency {
			return p.Topics[i].Frequency > p.Topics[j].Frequency
		}
		return p.Topics[i].LastMention.After(p.Topics[j].LastMention)
	})
	p.Topics = p.Topics[:topicCap]
}
