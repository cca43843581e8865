package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	DefaultModel       = "nvidia/llama-3.1-nemotron-70b-instruct"
	DefaultBaseURL     = "https://integrate.api.nvidia.com/v1"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 18890
	DefaultBufSize     = 100

	DefaultMemoryHistoryCap = 100
	DefaultAnalysisDelayMs  = 1500

	// Six-field cron expressions; the scheduler runs with seconds enabled.
	DefaultReminderCron = "0 0 9 * * *"
	DefaultSnapshotCron = "0 0 3 * * *"
)

type Config struct {
	Provider  ProviderConfig  `json:"provider"`
	Channels  ChannelsConfig  `json:"channels"`
	Gateway   GatewayConfig   `json:"gateway"`
	Memory    MemoryConfig    `json:"memory"`
	Dialogue  DialogueConfig  `json:"dialogue"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type ProviderConfig struct {
	APIKey      string  `json:"apiKey"`
	BaseURL     string  `json:"baseUrl,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	WebUI    WebUIConfig    `json:"webui"`
}

type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
}

type WebUIConfig struct {
	Enabled   bool     `json:"enabled"`
	AllowFrom []string `json:"allowFrom"`
}

type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type MemoryConfig struct {
	DBPath     string `json:"dbPath,omitempty"`
	HistoryCap int    `json:"historyCap,omitempty"`
}

type DialogueConfig struct {
	// AnalysisDelayMs is a UX pause before pattern analysis completes.
	// Zero is valid and means "complete immediately".
	AnalysisDelayMs int `json:"analysisDelayMs"`
}

type SchedulerConfig struct {
	Enabled      bool   `json:"enabled"`
	ReminderCron string `json:"reminderCron,omitempty"`
	SnapshotCron string `json:"snapshotCron,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
		Channels: ChannelsConfig{
			WebUI: WebUIConfig{Enabled: true},
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Memory: MemoryConfig{
			HistoryCap: DefaultMemoryHistoryCap,
		},
		Dialogue: DialogueConfig{
			AnalysisDelayMs: DefaultAnalysisDelayMs,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			ReminderCron: DefaultReminderCron,
			SnapshotCron: DefaultSnapshotCron,
		},
	}
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".mindcore")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func DataDir() string {
	return filepath.Join(ConfigDir(), "data")
}

func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if key := os.Getenv("MINDCORE_API_KEY"); key != "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("NVIDIA_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.Provider.APIKey == "" {
		cfg.Provider.APIKey = key
	}
	if url := os.Getenv("MINDCORE_BASE_URL"); url != "" {
		cfg.Provider.BaseURL = url
	}
	if model := os.Getenv("MINDCORE_MODEL"); model != "" {
		cfg.Provider.Model = model
	}
	if token := os.Getenv("MINDCORE_TELEGRAM_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
	}
	if dbPath := os.Getenv("MINDCORE_MEMORY_DB_PATH"); dbPath != "" {
		cfg.Memory.DBPath = dbPath
	}
	if delay := os.Getenv("MINDCORE_ANALYSIS_DELAY_MS"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil && parsed >= 0 {
			cfg.Dialogue.AnalysisDelayMs = parsed
		}
	}

	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = DefaultBaseURL
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = DefaultModel
	}
	if cfg.Provider.MaxTokens <= 0 {
		cfg.Provider.MaxTokens = DefaultMaxTokens
	}
	if cfg.Memory.HistoryCap <= 0 {
		cfg.Memory.HistoryCap = DefaultMemoryHistoryCap
	}
	if cfg.Scheduler.ReminderCron == "" {
		cfg.Scheduler.ReminderCron = DefaultReminderCron
	}
	if cfg.Scheduler.SnapshotCron == "" {
		cfg.Scheduler.SnapshotCron = DefaultSnapshotCron
	}

	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(ConfigPath(), data, 0644)
}
