package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graei/mindcore/internal/config"
	"github.com/graei/mindcore/internal/dialogue"
	"github.com/graei/mindcore/internal/engine"
	"github.com/graei/mindcore/internal/gateway"
	"github.com/graei/mindcore/internal/llm"
	"github.com/graei/mindcore/internal/memory"
)

// ChatOptions carries injectable dependencies for testing.
type ChatOptions struct {
	Completer llm.Completer
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "mindcore",
	Short: "mindcore - conversational memory and profile inference engine",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in single message or REPL mode",
	RunE:  runChat,
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the full gateway (channels + scheduler)",
	RunE:  runGateway,
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize config and data directories",
	RunE:  runOnboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mindcore status",
	RunE:  runStatus,
}

var insightsCmd = &cobra.Command{
	Use:   "insights <user>",
	Short: "Show memory insights, questions, and reminders for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsights,
}

var exportCmd = &cobra.Command{
	Use:   "export <user>",
	Short: "Export a user's profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <user> <file>",
	Short: "Import a profile JSON for a user",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

var clearCmd = &cobra.Command{
	Use:   "clear <user>",
	Short: "Delete all stored memory for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runClear,
}

var (
	messageFlag string
	userFlag    string
	outputFlag  string
)

func init() {
	chatCmd.Flags().StringVarP(&messageFlag, "message", "m", "", "Single message to send")
	chatCmd.Flags().StringVarP(&userFlag, "user", "u", "local", "User ID for the session")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write profile to this file instead of stdout")
	rootCmd.AddCommand(chatCmd, gatewayCmd, onboardCmd, statusCmd, insightsCmd, exportCmd, importCmd, clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openEngine builds the store-backed engine from the config. A nil
// completer means the real HTTP client.
func openEngine(cfg *config.Config, completer llm.Completer) (*engine.Engine, *memory.Store, error) {
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
		return nil, nil, fmt.Errorf("open memory store: %w", err)
	}
	if completer == nil {
		completer = llm.NewClient(cfg)
	}
	delay := time.Duration(cfg.Dialogue.AnalysisDelayMs) * time.Millisecond
	return engine.New(store, completer, delay), store, nil
}

// converse routes one message, through the guided dialogue until it
// reaches free conversation and through the model afterwards.
func converse(ctx context.Context, eng *engine.Engine, userID, text string) (string, error) {
	session := eng.Session("cli:"+userID, userID)
	if session.State().Stage != dialogue.StageConversation {
		state := session.ProcessResponse(text)
		if _, err := eng.ProcessTurn(userID, text); err != nil {
			return "", err
		}
		return state.CurrentQuestion, nil
	}
	reply, _, err := eng.Respond(ctx, userID, text)
	return reply, err
}

func runChat(cmd *cobra.Command, args []string) error {
	return runChatWithOptions(ChatOptions{})
}

func runChatWithOptions(opts ChatOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, store, err := openEngine(cfg, opts.Completer)
	if err != nil {
		return err
	}
	defer store.Close()

	stdin := opts.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	ctx := context.Background()
	userID := userFlag
	if userID == "" {
		userID = "local"
	}

	// Single message mode
	if messageFlag != "" {
		reply, err := converse(ctx, eng, userID, messageFlag)
		if err != nil {
			return fmt.Errorf("chat error: %w", err)
		}
		fmt.Fprintln(stdout, reply)
		return nil
	}

	// REPL mode
	fmt.Fprintln(stdout, "mindcore chat (type 'exit' to quit)")
	fmt.Fprintln(stdout, eng.Session("cli:"+userID, userID).State().CurrentQuestion)
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		reply, err := converse(ctx, eng, userID, input)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(stdout, reply)
	}
	return nil
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("API key not set. Run 'mindcore onboard' or set MINDCORE_API_KEY")
	}

	gw, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	return gw.Run(context.Background())
}

func runOnboard(cmd *cobra.Command, args []string) error {
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg := config.DefaultConfig()
		data, _ := json.MarshalIndent(cfg, "", "  ")
		if err := os.WriteFile(cfgPath, data, 0644); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("Created config: %s\n", cfgPath)
	} else {
		fmt.Printf("Config already exists: %s\n", cfgPath)
	}

	fmt.Printf("Data directory ready: %s\n", config.DataDir())
	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Edit %s to set your API key\n", cfgPath)
	fmt.Println("  2. Or set MINDCORE_API_KEY environment variable")
	fmt.Println("  3. Run 'mindcore chat -m \"Hello\"' to test")

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Config: error (%v)\n", err)
		return nil
	}

	fmt.Printf("Config: %s\n", config.ConfigPath())
	fmt.Printf("Model: %s\n", cfg.Provider.Model)
	if cfg.Provider.APIKey != "" && len(cfg.Provider.APIKey) > 8 {
		masked := cfg.Provider.APIKey[:4] + "..." + cfg.Provider.APIKey[len(cfg.Provider.APIKey)-4:]
		fmt.Printf("API Key: %s\n", masked)
	} else if cfg.Provider.APIKey != "" {
		fmt.Println("API Key: set")
	} else {
		fmt.Println("API Key: not set")
	}
	fmt.Printf("Telegram: enabled=%v\n", cfg.Channels.Telegram.Enabled)
	fmt.Printf("WebUI: enabled=%v\n", cfg.Channels.WebUI.Enabled)
	fmt.Printf("Scheduler: enabled=%v\n", cfg.Scheduler.Enabled)

	dbPath := strings.TrimSpace(cfg.Memory.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(config.DataDir(), "memory.db")
	}
	fmt.Printf("Memory DB: %s\n", dbPath)

	if _, err := os.Stat(dbPath); err != nil {
		fmt.Println("Memory: empty (run 'mindcore chat' to start)")
		return nil
	}

	eng, store, err := openEngine(cfg, nil)
	if err != nil {
		fmt.Printf("Memory: error (%v)\n", err)
		return nil
	}
	defer store.Close()

	users, err := eng.KnownUsers()
	if err != nil {
		fmt.Printf("Memory: error (%v)\n", err)
		return nil
	}
	fmt.Printf("Users: %d\n", len(users))
	for _, user := range users {
		stats, err := eng.Stats(user)
		if err != nil {
			continue
		}
		fmt.Printf("  %s: %d memories (%d recent)\n", user, stats.TotalMemories, stats.RecentMemories)
	}

	return nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	eng, store, err := openEngine(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	userID := args[0]

	insights, err := eng.Insights(userID)
	if err != nil {
		return fmt.Errorf("insights: %w", err)
	}

	fmt.Printf("Memories: %d total, %d in the last week\n",
		insights.Stats.TotalMemories, insights.Stats.RecentMemories)

	if len(insights.EmotionalTrends) > 0 {
		fmt.Println("\nEmotional trends:")
		for _, tr := range insights.EmotionalTrends {
			fmt.Printf("  %s: %d\n", tr.Emotion, tr.Count)
		}
	}
	if len(insights.Goals) > 0 {
		fmt.Println("\nGoals:")
		for _, goal := range insights.Goals {
			fmt.Printf("  - %s\n", goal)
		}
	}
	if len(insights.Challenges) > 0 {
		fmt.Println("\nChallenges:")
		for _, c := range insights.Challenges {
			fmt.Printf("  - %s\n", c)
		}
	}
	if len(insights.UpcomingEvents) > 0 {
		fmt.Println("\nUpcoming:")
		for _, ev := range insights.UpcomingEvents {
			fmt.Printf("  - %s (%s)\n", ev.Event, ev.Date)
		}
	}
	if len(insights.TopTopics) > 0 {
		fmt.Println("\nTop topics:")
		for _, topic := range insights.TopTopics {
			fmt.Printf("  %s (%d)\n", topic.Name, topic.Frequency)
		}
	}

	questions, err := eng.PredictiveQuestions(userID)
	if err == nil && len(questions) > 0 {
		fmt.Println("\nSuggested questions:")
		for _, q := range questions {
			fmt.Printf("  - %s\n", q)
		}
	}

	reminders, err := eng.Reminders(userID)
	if err == nil && len(reminders) > 0 {
		fmt.Println("\nReminders:")
		for _, r := range reminders {
			fmt.Printf("  - %s\n", r)
		}
	}

	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	eng, store, err := openEngine(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	blob, err := eng.ExportProfile(args[0])
	if err != nil {
		return fmt.Errorf("export profile: %w", err)
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, blob, 0644); err != nil {
			return fmt.Errorf("write profile: %w", err)
		}
		fmt.Printf("Exported profile for %s to %s\n", args[0], outputFlag)
		return nil
	}

	fmt.Println(string(blob))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	eng, store, err := openEngine(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	blob, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read profile file: %w", err)
	}
	if err := eng.ImportProfile(args[0], blob); err != nil {
		return fmt.Errorf("import profile: %w", err)
	}
	fmt.Printf("Imported profile for %s\n", args[0])
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	eng, store, err := openEngine(cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := eng.ClearUser(args[0]); err != nil {
		return fmt.Errorf("clear user: %w", err)
	}
	fmt.Printf("Cleared memory for %s\n", args[0])
	return nil
}
