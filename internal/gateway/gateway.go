package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/graei/mindcore/internal/bus"
	"github.com/graei/mindcore/internal/channel"
	"github.com/graei/mindcore/internal/config"
	"github.com/graei/mindcore/internal/cron"
	"github.com/graei/mindcore/internal/dialogue"
	"github.com/graei/mindcore/internal/engine"
	"github.com/graei/mindcore/internal/llm"
	"github.com/graei/mindcore/internal/memory"
)

const fallbackReply = "Sorry, I encountered an error processing your message."

// Options for creating a Gateway. Both fields exist for tests: a fake
// completer avoids network calls and an injected signal channel lets
// Run be driven without real signals.
type Options struct {
	Completer  llm.Completer
	SignalChan chan os.Signal
}

// Gateway wires the store, engine, channels, and scheduler together
// and runs the inbound processing loop.
type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	store      *memory.Store
	engine     *engine.Engine
	channels   *channel.ChannelManager
	sched      *cron.Scheduler
	signalChan chan os.Signal
}

// New creates a Gateway with default options.
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing.
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	dbPath := strings.TrimSpace(cfg.Memory.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "memory.db")
	}
	historyCap := cfg.Memory.HistoryCap
	if historyCap <= 0 {
		historyCap = config.DefaultMemoryHistoryCap
	}
	store, err := memory.NewStore(dbPath, historyCap)
	if err != nil {
		return nil, fmt.Errorf("create memory store: %w", err)
	}
	g.store = store

	completer := opts.Completer
	if completer == nil {
		completer = llm.NewClient(cfg)
	}

	analysisDelay := time.Duration(cfg.Dialogue.AnalysisDelayMs) * time.Millisecond
	g.engine = engine.New(store, completer, analysisDelay)

	g.signalChan = opts.SignalChan

	cronStorePath := filepath.Join(config.DataDir(), "cron", "jobs.json")
	g.sched = cron.NewScheduler(cronStorePath, g.runTask)

	chMgr, err := channel.NewChannelManagerWithGateway(cfg.Channels, cfg.Gateway, g.bus)
	if err != nil {
		_ = g.store.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	return g, nil
}

// Engine exposes the engine for embedding callers like the CLI chat
// command.
func (g *Gateway) Engine() *engine.Engine {
	return g.engine
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if g.cfg.Scheduler.Enabled {
		if err := g.sched.Start(); err != nil {
			log.Printf("[gateway] scheduler start warning: %v", err)
		}
		if err := g.ensureBuiltinJobs(); err != nil {
			log.Printf("[gateway] ensure builtin jobs warning: %v", err)
		}
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running on %s:%d", g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

func (g *Gateway) ensureBuiltinJobs() error {
	reminderExpr := g.cfg.Scheduler.ReminderCron
	if reminderExpr == "" {
		reminderExpr = config.DefaultReminderCron
	}
	snapshotExpr := g.cfg.Scheduler.SnapshotCron
	if snapshotExpr == "" {
		snapshotExpr = config.DefaultSnapshotCron
	}

	if _, err := g.sched.Ensure("daily-reminder-digest", reminderExpr,
		cron.Task{Kind: cron.TaskReminderDigest}); err != nil {
		return err
	}
	if _, err := g.sched.Ensure("nightly-profile-snapshot", snapshotExpr,
		cron.Task{Kind: cron.TaskProfileSnapshot}); err != nil {
		return err
	}
	return nil
}

func (g *Gateway) runTask(task cron.Task) (string, error) {
	switch task.Kind {
	case cron.TaskReminderDigest:
		return g.runReminderDigest(task)
	case cron.TaskProfileSnapshot:
		return g.runProfileSnapshot(task)
	case cron.TaskMessage:
		if task.Channel == "" || task.Message == "" {
			return "", fmt.Errorf("message task needs a channel and message")
		}
		g.bus.Outbound <- bus.OutboundMessage{
			Channel: task.Channel,
			ChatID:  task.ChatID,
			Content: task.Message,
		}
		return "delivered", nil
	default:
		return "", fmt.Errorf("unknown task kind %q", task.Kind)
	}
}

// runReminderDigest collects each user's reminders and, when the task
// names a channel, delivers them there with the user ID as chat ID.
func (g *Gateway) runReminderDigest(task cron.Task) (string, error) {
	users, err := g.taskUsers(task)
	if err != nil {
		return "", err
	}

	delivered := 0
	for _, user := range users {
		reminders, err := g.engine.Reminders(user)
		if err != nil {
			log.Printf("[gateway] reminders for %s: %v", user, err)
			continue
		}
		if len(reminders) == 0 {
			continue
		}
		delivered++
		if task.Channel == "" {
			log.Printf("[gateway] digest for %s: %s", user, truncate(strings.Join(reminders, "; "), 120))
			continue
		}
		chatID := task.ChatID
		if chatID == "" {
			chatID = user
		}
		g.bus.Outbound <- bus.OutboundMessage{
			Channel: task.Channel,
			ChatID:  chatID,
			Content: strings.Join(reminders, "\n"),
		}
	}
	return fmt.Sprintf("digests for %d of %d users", delivered, len(users)), nil
}

// runProfileSnapshot exports each user's profile to a dated JSON file
// under the data directory.
func (g *Gateway) runProfileSnapshot(task cron.Task) (string, error) {
	users, err := g.taskUsers(task)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(config.DataDir(), "snapshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	written := 0
	stamp := time.Now().Format("20060102")
	for _, user := range users {
		blob, err := g.engine.ExportProfile(user)
		if err != nil {
			log.Printf("[gateway] export profile for %s: %v", user, err)
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", user, stamp))
		if err := os.WriteFile(path, blob, 0644); err != nil {
			log.Printf("[gateway] write snapshot for %s: %v", user, err)
			continue
		}
		written++
	}
	return fmt.Sprintf("snapshots for %d of %d users", written, len(users)), nil
}

func (g *Gateway) taskUsers(task cron.Task) ([]string, error) {
	if task.UserID != "" {
		return []string{task.UserID}, nil
	}
	users, err := g.engine.KnownUsers()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			reply, meta := g.handleInbound(ctx, msg)
			if reply != "" {
				g.bus.Outbound <- bus.OutboundMessage{
					Channel:  msg.Channel,
					ChatID:   msg.ChatID,
					Content:  reply,
					Metadata: meta,
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// handleInbound routes a message either through the guided profiling
// dialogue or, once that has reached free conversation, through the
// model-backed reply path. The returned metadata carries the turn's
// emotion reading and resource telemetry for channels that render it.
func (g *Gateway) handleInbound(ctx context.Context, msg bus.InboundMessage) (string, map[string]any) {
	userID := msg.SenderID
	session := g.engine.Session(msg.SessionKey(), userID)

	if session.State().Stage != dialogue.StageConversation {
		state := session.ProcessResponse(msg.Content)
		result, err := g.engine.ProcessTurn(userID, msg.Content)
		if err != nil {
			log.Printf("[gateway] persist turn for %s: %v", userID, err)
			return state.CurrentQuestion, nil
		}
		return state.CurrentQuestion, turnMetadata(result)
	}

	reply, result, err := g.engine.Respond(ctx, userID, msg.Content)
	if err != nil {
		log.Printf("[gateway] respond error for %s: %v", userID, err)
		return fallbackReply, nil
	}
	return reply, turnMetadata(result)
}

// turnMetadata flattens a turn result into outbound metadata.
func turnMetadata(result engine.TurnResult) map[string]any {
	return map[string]any{
		"emotion":        result.Emotion.Emotion,
		"intensity":      result.Emotion.Intensity,
		"computeRate":    result.Resources.ComputeRate,
		"memoryPressure": result.Resources.MemoryPressure,
		"throughput":     result.Resources.Throughput,
		"load":           result.Resources.Load,
	}
}

func (g *Gateway) Shutdown() error {
	if g.cfg.Scheduler.Enabled {
		g.sched.Stop()
	}
	_ = g.channels.StopAll()
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			log.Printf("[gateway] close memory store warning: %v", err)
		}
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
