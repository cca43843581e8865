package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists memory nodes and per-user profiles in SQLite. Appending
// a message classifies nothing itself; callers supply the emotion and
// resource snapshot, the store derives tags, folds the profile, and
// commits both in one transaction.
type Store struct {
	db         *sql.DB
	mu         sync.Mutex
	extractor  *Extractor
	historyCap int
	now        func() time.Time
}

// AppendInput carries everything needed to persist one turn.
type AppendInput struct {
	UserID     string
	Content    string
	Emotion    string
	Intensity  float64
	Importance float64
	Resources  ResourceUsage
}

func NewStore(dbPath string, historyCap int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ex, err := NewExtractor()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, extractor: ex, historyCap: historyCap, now: time.Now}
	if err := s.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_nodes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			emotion TEXT NOT NULL,
			intensity REAL NOT NULL DEFAULT 0,
			importance REAL NOT NULL DEFAULT 0.5,
			tags TEXT NOT NULL DEFAULT '[]',
			compute_rate REAL NOT NULL DEFAULT 1,
			memory_pressure REAL NOT NULL DEFAULT 1,
			throughput REAL NOT NULL DEFAULT 1,
			load_factor REAL NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_accessed INTEGER NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_user ON memory_nodes(user_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_created ON memory_nodes(created_at)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores one classified message and folds it into the user's
// profile atomically. Returns the new node's id.
func (s *Store) Append(in AppendInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ex := s.extractor.Extract(in.Content)
	node := Node{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		Content:      in.Content,
		Emotion:      in.Emotion,
		Intensity:    in.Intensity,
		Importance:   in.Importance,
		Tags:         deriveTags(in.Emotion, in.Content),
		Resources:    in.Resources,
		CreatedAt:    now,
		LastAccessed: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	tags, _ := json.Marshal(node.Tags)
	_, err = tx.Exec(`INSERT INTO memory_nodes
		(id, user_id, content, emotion, intensity, importance, tags,
		 compute_rate, memory_pressure, throughput, load_factor,
		 created_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		node.ID, node.UserID, node.Content, node.Emotion, node.Intensity,
		node.Importance, string(tags),
		node.Resources.ComputeRate, node.Resources.MemoryPressure,
		node.Resources.Throughput, node.Resources.Load,
		now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert node: %w", err)
	}

	profile, err := s.loadProfileTx(tx, in.UserID)
	if err != nil {
		return "", err
	}
	Fold(profile, node, ex, s.extractor.Limits(), s.historyCap, now)
	if err := s.saveProfileTx(tx, profile); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit append: %w", err)
	}
	return node.ID, nil
}

var tagTopics = []struct {
	tag      string
	keywords []string
}{
	{"work", []string{"work", "job", "career", "office", "meeting", "project", "deadline", "boss", "colleague"}},
	{"family", []string{"family", "mom", "dad", "sister", "brother", "parent", "child", "kids", "spouse"}},
	{"health", []string{"health", "doctor", "medicine", "exercise", "diet", "sick", "pain", "therapy"}},
	{"technology", []string{"code", "programming", "computer", "software", "app", "website", "tech"}},
	{"education", []string{"school", "study", "learn", "class", "teacher", "student", "homework", "exam"}},
	{"hobbies", []string{"hobby", "music", "art", "sports", "game", "book", "movie", "travel"}},
	{"relationships", []string{"friend", "relationship", "dating", "love", "partner", "social"}},
}

// deriveTags labels a node with its emotion, any matching topic
// categories, and temporal markers.
func deriveTags(emotion, content string) []string {
	tags := []string{emotion}
	lower := strings.ToLower(content)

	for _, topic := range tagTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, topic.tag)
				break
			}
		}
	}

	if strings.Contains(lower, "tomorrow") || strings.Contains(lower, "next") {
		tags = append(tags, "future")
	}
	if strings.Contains(lower, "yesterday") || strings.Contains(lower, "last") {
		tags = append(tags, "past")
	}
	if strings.Contains(lower, "today") || strings.Contains(lower, "now") {
		tags = append(tags, "present")
	}
	return tags
}

// RetrieveRelevant scores every node of the user against the query and
// returns the top limit nodes, most relevant first. Returned nodes get
// their access count bumped.
func (s *Store) RetrieveRelevant(userID, query string, limit int) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 5
	}
	nodes, err := s.userNodes(userID)
	if err != nil {
		return nil, err
	}
	queryWords := strings.Fields(strings.ToLower(query))
	now := s.now()

	type scored struct {
		node  Node
		score float64
	}
	ranked := make([]scored, 0, len(nodes))
	for _, n := range nodes {
		ranked = append(ranked, scored{n, relevanceScore(n, queryWords, now)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]Node, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.node)
	}
	if err := s.touchNodes(out, now); err != nil {
		return nil, err
	}
	return out, nil
}

// relevanceScore blends word overlap with the query, stored importance,
// and recency decayed by age in days.
func relevanceScore(n Node, queryWords []string, now time.Time) float64 {
	overlap := 0.0
	if len(queryWords) > 0 {
		contentWords := map[string]bool{}
		for _, w := range strings.Fields(strings.ToLower(n.Content)) {
			contentWords[w] = true
		}
		matched := 0
		for _, qw := range queryWords {
			if contentWords[qw] {
				matched++
			}
		}
		overlap = float64(matched) / float64(len(queryWords))
	}
	ageDays := now.Sub(n.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	recency := 1 / (1 + ageDays)
	return 0.4*overlap + 0.3*n.Importance + 0.3*recency
}

func (s *Store) touchNodes(nodes []Node, now time.Time) error {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin touch: %w", err)
	}
	defer tx.Rollback()
	for _, n := range nodes {
		if _, err := tx.Exec(
			`UPDATE memory_nodes SET access_count = access_count + 1, last_accessed = ? WHERE id = ?`,
			now.UnixMilli(), n.ID); err != nil {
			return fmt.Errorf("touch node %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) userNodes(userID string) ([]Node, error) {
	rows, err := s.db.Query(`SELECT id, user_id, content, emotion, intensity, importance, tags,
		compute_rate, memory_pressure, throughput, load_factor,
		created_at, last_accessed, access_count
		FROM memory_nodes WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]Node, error) {
	var nodes []Node
	for rows.Next() {
		var n Node
		var tags string
		var created, accessed int64
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.Emotion,
			&n.Intensity, &n.Importance, &tags,
			&n.Resources.ComputeRate, &n.Resources.MemoryPressure,
			&n.Resources.Throughput, &n.Resources.Load,
			&created, &accessed, &n.AccessCount); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		_ = json.Unmarshal([]byte(tags), &n.Tags)
		n.CreatedAt = time.UnixMilli(created)
		n.LastAccessed = time.UnixMilli(accessed)
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// Profile returns the stored profile for a user; ok is false when the
// user has never been seen.
func (s *Store) Profile(userID string) (*Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadProfile(userID)
}

func (s *Store) loadProfile(userID string) (*Profile, bool, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, false, fmt.Errorf("decode profile: %w", err)
	}
	return &p, true, nil
}

func (s *Store) loadProfileTx(tx *sql.Tx, userID string) (*Profile, error) {
	var data string
	err := tx.QueryRow(`SELECT data FROM profiles WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return NewProfile(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (s *Store) saveProfileTx(tx *sql.Tx, p *Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO profiles (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.UserID, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// SaveProfile overwrites the stored profile, used by import and by the
// engine when recording disconnection points.
func (s *Store) SaveProfile(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()
	if err := s.saveProfileTx(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearUser removes every node and the profile of a user atomically.
func (s *Store) ClearUser(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM memory_nodes WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return tx.Commit()
}

// KnownUsers lists every user id with a stored profile.
func (s *Store) KnownUsers() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT user_id FROM profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()
	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
