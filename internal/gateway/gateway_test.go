package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/graei/mindcore/internal/bus"
	"github.com/graei/mindcore/internal/config"
	"github.com/graei/mindcore/internal/cron"
	"github.com/graei/mindcore/internal/dialogue"
	"github.com/graei/mindcore/internal/llm"
)

// fakeCompleter returns a canned reply without network access.
type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, messages []llm.Message) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Channels = config.ChannelsConfig{} // no channels in tests
	cfg.Memory.DBPath = filepath.Join(t.TempDir(), "memory.db")
	cfg.Dialogue.AnalysisDelayMs = 0
	cfg.Scheduler.Enabled = false
	return cfg
}

func newTestGateway(t *testing.T, completer llm.Completer) *Gateway {
	t.Helper()
	g, err := NewWithOptions(testConfig(t), Options{Completer: completer})
	if err != nil {
		t.Fatalf("NewWithOptions error: %v", err)
	}
	t.Cleanup(func() { _ = g.store.Close() })
	return g
}

// advanceToConversation walks a fresh session through the guided
// stages: greeting, demographics, and three timeline answers, then the
// profile prompt.
func advanceToConversation(t *testing.T, g *Gateway, userID string) {
	t.Helper()
	ctx := context.Background()
	answers := []string{
		"Hi there",
		"I'm Dana, 34, from Lisbon",
		"I was backpacking through Spain",
		"I loved the early 2000s music scene",
		"Changing careers was hard",
		"yes, show me",
	}
	for _, a := range answers {
		_, _ = g.handleInbound(ctx, bus.InboundMessage{Channel: "test", SenderID: userID, ChatID: userID, Content: a})
	}
	if got := g.engine.Session("test:"+userID, userID).State().Stage; got != dialogue.StageConversation {
		t.Fatalf("stage = %q, want conversation", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("truncate long = %q", got)
	}
}

func TestNewWithOptions(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})
	if g.Engine() == nil {
		t.Error("Engine should not be nil")
	}
	if g.bus == nil {
		t.Error("bus should not be nil")
	}
}

func TestGateway_HandleInbound_Onboarding(t *testing.T) {
	fake := &fakeCompleter{reply: "model reply"}
	g := newTestGateway(t, fake)

	reply, meta := g.handleInbound(context.Background(), bus.InboundMessage{
		Channel: "test", SenderID: "user1", ChatID: "user1", Content: "Hello!",
	})

	if reply == "" {
		t.Fatal("expected a guided question as reply")
	}
	if meta == nil {
		t.Fatal("expected turn metadata alongside the guided question")
	}
	if fake.calls != 0 {
		t.Errorf("completer called %d times during onboarding, want 0", fake.calls)
	}
	if got := g.engine.Session("test:user1", "user1").State().Stage; got != dialogue.StageDemographics {
		t.Errorf("stage = %q, want demographics", got)
	}

	// Onboarding turns still feed memory
	stats, err := g.engine.Stats("user1")
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMemories == 0 {
		t.Error("expected the onboarding turn to be persisted")
	}
}

func TestGateway_SessionsKeyedByChannel(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{})
	ctx := context.Background()

	// Two turns over telegram, one over the web UI, same sender.
	for _, content := range []string{"hello", "I'm 30, from Porto"} {
		_, _ = g.handleInbound(ctx, bus.InboundMessage{Channel: "telegram", SenderID: "dana", ChatID: "dana", Content: content})
	}
	_, _ = g.handleInbound(ctx, bus.InboundMessage{Channel: "webui", SenderID: "dana", ChatID: "dana", Content: "hello again"})

	if got := g.engine.Session("telegram:dana", "dana").State().Stage; got != dialogue.StageTimeline {
		t.Errorf("telegram session stage = %q, want timeline", got)
	}
	if got := g.engine.Session("webui:dana", "dana").State().Stage; got != dialogue.StageDemographics {
		t.Errorf("webui session stage = %q, want demographics", got)
	}

	// Memory stays keyed by the sender across channels.
	stats, err := g.engine.Stats("dana")
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalMemories != 3 {
		t.Errorf("expected 3 memories for the sender, got %d", stats.TotalMemories)
	}
}

func TestGateway_HandleInbound_Conversation(t *testing.T) {
	fake := &fakeCompleter{reply: "model reply"}
	g := newTestGateway(t, fake)

	advanceToConversation(t, g, "user1")

	reply, meta := g.handleInbound(context.Background(), bus.InboundMessage{
		Channel: "test", SenderID: "user1", ChatID: "user1", Content: "I started a garden this spring",
	})

	if fake.calls != 1 {
		t.Fatalf("completer called %d times, want 1", fake.calls)
	}
	if !strings.Contains(reply, "model reply") {
		t.Errorf("reply = %q, want it to contain the model output", reply)
	}
	if meta == nil {
		t.Fatal("expected turn metadata on a conversation reply")
	}
	if _, ok := meta["emotion"].(string); !ok {
		t.Errorf("metadata emotion missing: %v", meta)
	}
	if _, ok := meta["computeRate"].(float64); !ok {
		t.Errorf("metadata computeRate missing: %v", meta)
	}
}

func TestGateway_HandleInbound_CompleterError(t *testing.T) {
	fake := &fakeCompleter{err: fmt.Errorf("api down")}
	g := newTestGateway(t, fake)

	advanceToConversation(t, g, "user1")

	reply, meta := g.handleInbound(context.Background(), bus.InboundMessage{
		Channel: "test", SenderID: "user1", ChatID: "user1", Content: "tell me something",
	})

	if reply != fallbackReply {
		t.Errorf("reply = %q, want fallback", reply)
	}
	if meta != nil {
		t.Errorf("failed turn should carry no metadata, got %v", meta)
	}
}

func TestGateway_ProcessLoop(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.processLoop(ctx)

	g.bus.Inbound <- bus.InboundMessage{
		Channel:  "test",
		SenderID: "user1",
		ChatID:   "chat1",
		Content:  "hello",
	}

	select {
	case outMsg := <-g.bus.Outbound:
		if outMsg.Content == "" {
			t.Error("outbound content should not be empty")
		}
		if outMsg.Channel != "test" {
			t.Errorf("outbound channel = %q, want test", outMsg.Channel)
		}
		if outMsg.ChatID != "chat1" {
			t.Errorf("outbound chatID = %q, want chat1", outMsg.ChatID)
		}
		if outMsg.Metadata == nil {
			t.Error("outbound message should carry turn metadata")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for outbound message")
	}
}

func TestGateway_ProcessLoop_ContextCancelled(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		g.processLoop(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("processLoop did not exit on context cancel")
	}
}

func TestGateway_Run_WithSignalChan(t *testing.T) {
	cfg := testConfig(t)
	sigCh := make(chan os.Signal, 1)

	g, err := NewWithOptions(cfg, Options{
		Completer:  &fakeCompleter{reply: "ok"},
		SignalChan: sigCh,
	})
	if err != nil {
		t.Fatalf("NewWithOptions error: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Run(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	sigCh <- os.Interrupt

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run did not exit after signal")
	}
}

func TestGateway_ReminderDigest(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})

	if _, err := g.engine.ProcessTurn("user1", "I need to finish my thesis by December"); err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	result, err := g.runReminderDigest(cron.Task{Channel: "test"})
	if err != nil {
		t.Fatalf("runReminderDigest error: %v", err)
	}
	if !strings.Contains(result, "1 users") {
		t.Errorf("result = %q, want summary covering 1 user", result)
	}

	select {
	case msg := <-g.bus.Outbound:
		if msg.Channel != "test" {
			t.Errorf("channel = %q, want test", msg.Channel)
		}
		if msg.ChatID != "user1" {
			t.Errorf("chatID = %q, want user1", msg.ChatID)
		}
		if msg.Content == "" {
			t.Error("digest content should not be empty")
		}
	default:
		t.Error("expected a digest on the outbound bus")
	}
}

func TestGateway_ReminderDigest_NoReminders(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})

	if _, err := g.engine.ProcessTurn("user1", "just saying hi"); err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	if _, err := g.runReminderDigest(cron.Task{Channel: "test"}); err != nil {
		t.Fatalf("runReminderDigest error: %v", err)
	}

	select {
	case msg := <-g.bus.Outbound:
		t.Errorf("unexpected outbound message: %+v", msg)
	default:
	}
}

func TestGateway_ProfileSnapshot(t *testing.T) {
	cfg := testConfig(t)
	g, err := NewWithOptions(cfg, Options{Completer: &fakeCompleter{reply: "ok"}})
	if err != nil {
		t.Fatalf("NewWithOptions error: %v", err)
	}
	t.Cleanup(func() { _ = g.store.Close() })

	if _, err := g.engine.ProcessTurn("snapuser", "I want to learn woodworking"); err != nil {
		t.Fatalf("ProcessTurn error: %v", err)
	}

	result, err := g.runProfileSnapshot(cron.Task{UserID: "snapuser"})
	if err != nil {
		t.Fatalf("runProfileSnapshot error: %v", err)
	}
	if !strings.Contains(result, "1 of 1") {
		t.Errorf("result = %q, want '1 of 1'", result)
	}

	stamp := time.Now().Format("20060102")
	path := filepath.Join(config.DataDir(), "snapshots", "snapuser-"+stamp+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !strings.Contains(string(data), "snapuser") {
		t.Error("snapshot should contain the user ID")
	}
	_ = os.Remove(path)
}

func TestGateway_RunTask_UnknownKind(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})

	if _, err := g.runTask(cron.Task{Kind: "bogus"}); err == nil {
		t.Error("expected error for unknown task kind")
	}
}

func TestGateway_RunTask_Message(t *testing.T) {
	g := newTestGateway(t, &fakeCompleter{reply: "ok"})

	result, err := g.runTask(cron.Task{
		Kind:    cron.TaskMessage,
		Channel: "test",
		ChatID:  "chat1",
		Message: "scheduled hello",
	})
	if err != nil {
		t.Fatalf("runTask error: %v", err)
	}
	if result != "delivered" {
		t.Errorf("result = %q, want delivered", result)
	}

	select {
	case msg := <-g.bus.Outbound:
		if msg.Content != "scheduled hello" {
			t.Errorf("content = %q, want 'scheduled hello'", msg.Content)
		}
	default:
		t.Error("expected outbound message")
	}
}

func TestGateway_Shutdown(t *testing.T) {
	g, err := NewWithOptions(testConfig(t), Options{Completer: &fakeCompleter{reply: "ok"}})
	if err != nil {
		t.Fatalf("NewWithOptions error: %v", err)
	}

	if err := g.Shutdown(); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}
}
