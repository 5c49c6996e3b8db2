package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// HostConfig holds configuration for pilot-hostd.
type HostConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	APIKey         string        `yaml:"api_key"`
	GuestEndpoint  string        `yaml:"guest_endpoint"`
	GuestDialRetry time.Duration `yaml:"guest_dial_retry"`
	LogLevel       string        `yaml:"log_level"`

	Model        string  `yaml:"model"`
	ModelAPIKey  string  `yaml:"model_api_key"`
	ModelBaseURL string  `yaml:"model_base_url"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`

	SystemPrompt  string `yaml:"system_prompt"`
	MaxTurns      int    `yaml:"max_turns"`
	HistoryLimit  int    `yaml:"history_limit"`
	TranscriptDir string `yaml:"transcript_dir"`

	PolicyFile          string        `yaml:"policy_file"`
	AutoApproveCommands bool          `yaml:"auto_approve_commands"`
	CommandTimeout      time.Duration `yaml:"command_timeout"`

	SearchURL string `yaml:"search_url"`

	Credentials []CredentialEntry `yaml:"credentials"`

	ConfigFile string `yaml:"-"`
}

// CredentialEntry is one site login preloaded into the in-memory credential
// store at startup. The agent only ever sees opaque tokens for these values.
type CredentialEntry struct {
	Site     string `yaml:"site"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SetDefaults initializes c with built-in defaults.
func (c *HostConfig) SetDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.GuestEndpoint == "" {
		c.GuestEndpoint = "vsock://3:52000"
	}
	if c.GuestDialRetry == 0 {
		c.GuestDialRetry = 3 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 16
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 200
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
}

// ApplyEnv overlays PILOT_-prefixed environment variables onto the current
// values.
func (c *HostConfig) ApplyEnv() {
	if v := getEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("LISTEN_ADDR", ""); v != "" {
		c.ListenAddr = v
	}
	if v := getEnv("API_KEY", ""); v != "" {
		c.APIKey = v
	}
	if v := getEnv("GUEST_ENDPOINT", ""); v != "" {
		c.GuestEndpoint = v
	}
	if v := getEnv("GUEST_DIAL_RETRY", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GuestDialRetry = d
		}
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("MODEL", ""); v != "" {
		c.Model = v
	}
	if v := getEnv("MODEL_API_KEY", ""); v != "" {
		c.ModelAPIKey = v
	}
	if v := getEnv("MODEL_BASE_URL", ""); v != "" {
		c.ModelBaseURL = v
	}
	if v := getEnv("TEMPERATURE", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
	if v := getEnv("MAX_TOKENS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := getEnv("SYSTEM_PROMPT", ""); v != "" {
		c.SystemPrompt = v
	}
	if v := getEnv("MAX_TURNS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTurns = n
		}
	}
	if v := getEnv("HISTORY_LIMIT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HistoryLimit = n
		}
	}
	if v := getEnv("TRANSCRIPT_DIR", ""); v != "" {
		c.TranscriptDir = v
	}
	if v := getEnv("POLICY_FILE", ""); v != "" {
		c.PolicyFile = v
	}
	if v := getEnv("AUTO_APPROVE_COMMANDS", ""); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AutoApproveCommands = b
		}
	}
	if v := getEnv("COMMAND_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CommandTimeout = d
		}
	}
	if v := getEnv("SEARCH_URL", ""); v != "" {
		c.SearchURL = v
	}
}

// BindFlagsFromCurrent binds command line flags using the current values as
// defaults so main can call flag.Parse().
func (c *HostConfig) BindFlagsFromCurrent() {
	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "host config file path")
	flag.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "HTTP listen address for the operator API")
	flag.StringVar(&c.APIKey, "api-key", c.APIKey, "bearer token required on /api/v1; leave empty to disable auth")
	flag.StringVar(&c.GuestEndpoint, "guest-endpoint", c.GuestEndpoint, "guest agent endpoint (tcp://host:port, unix:///path, vsock://cid:port)")
	flag.DurationVar(&c.GuestDialRetry, "guest-dial-retry", c.GuestDialRetry, "pause between guest connection attempts")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (debug, info, warn, error)")
	flag.StringVar(&c.Model, "model", c.Model, "chat model name; the provider is inferred from it")
	flag.StringVar(&c.ModelAPIKey, "model-api-key", c.ModelAPIKey, "API key for the model provider")
	flag.StringVar(&c.ModelBaseURL, "model-base-url", c.ModelBaseURL, "provider base URL override for gateways and proxies")
	flag.Float64Var(&c.Temperature, "temperature", c.Temperature, "sampling temperature (0 uses the provider default)")
	flag.IntVar(&c.MaxTokens, "max-tokens", c.MaxTokens, "completion token cap (0 uses the provider default)")
	flag.StringVar(&c.SystemPrompt, "system-prompt", c.SystemPrompt, "replace the built-in system prompt")
	flag.IntVar(&c.MaxTurns, "max-turns", c.MaxTurns, "model round limit per run")
	flag.IntVar(&c.HistoryLimit, "history-limit", c.HistoryLimit, "messages kept in conversation history")
	flag.StringVar(&c.TranscriptDir, "transcript-dir", c.TranscriptDir, "directory for conversation transcripts; empty keeps the session in memory only")
	flag.StringVar(&c.PolicyFile, "policy-file", c.PolicyFile, "Rego policy file; empty compiles the built-in policy")
	flag.BoolVar(&c.AutoApproveCommands, "auto-approve-commands", c.AutoApproveCommands, "run shell commands without asking a human first")
	flag.DurationVar(&c.CommandTimeout, "command-timeout", c.CommandTimeout, "default run_command timeout")
	flag.StringVar(&c.SearchURL, "search-url", c.SearchURL, "Instant Answer compatible search endpoint; empty uses DuckDuckGo")
}

// LoadFile merges the YAML file at path into c.
func (c *HostConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}
