package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// GuestConfig holds configuration for pilot-guestd.
type GuestConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	BindAttempts int           `yaml:"bind_attempts"`
	BindBackoff  time.Duration `yaml:"bind_backoff"`
	LogLevel     string        `yaml:"log_level"`

	Shell          string        `yaml:"shell"`
	WorkDir        string        `yaml:"work_dir"`
	CommandTimeout time.Duration `yaml:"command_timeout"`

	MaxTextBytes  int64  `yaml:"max_text_bytes"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`
	OpenCommand   string `yaml:"open_command"`

	ConfigFile string `yaml:"-"`
}

// SetDefaults initializes c with built-in defaults.
func (c *GuestConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "vsock://:52000"
	}
	if c.BindAttempts == 0 {
		c.BindAttempts = 5
	}
	if c.BindBackoff == 0 {
		c.BindBackoff = 2 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Shell == "" {
		c.Shell = "/bin/sh"
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
	if c.MaxTextBytes == 0 {
		c.MaxTextBytes = 256 << 10
	}
	if c.MaxImageBytes == 0 {
		c.MaxImageBytes = 8 << 20
	}
	if c.OpenCommand == "" {
		c.OpenCommand = "xdg-open"
	}
}

// ApplyEnv overlays PILOT_-prefixed environment variables onto the current
// values.
func (c *GuestConfig) ApplyEnv() {
	if v := getEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("ENDPOINT", ""); v != "" {
		c.Endpoint = v
	}
	if v := getEnv("BIND_ATTEMPTS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BindAttempts = n
		}
	}
	if v := getEnv("BIND_BACKOFF", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.BindBackoff = d
		}
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("SHELL", ""); v != "" {
		c.Shell = v
	}
	if v := getEnv("WORK_DIR", ""); v != "" {
		c.WorkDir = v
	}
	if v := getEnv("COMMAND_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CommandTimeout = d
		}
	}
	if v := getEnv("MAX_TEXT_BYTES", ""); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxTextBytes = n
		}
	}
	if v := getEnv("MAX_IMAGE_BYTES", ""); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxImageBytes = n
		}
	}
	if v := getEnv("OPEN_COMMAND", ""); v != "" {
		c.OpenCommand = v
	}
}

// BindFlagsFromCurrent binds command line flags using the current values as
// defaults so main can call flag.Parse().
func (c *GuestConfig) BindFlagsFromCurrent() {
	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "guest config file path")
	flag.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "endpoint to listen on (tcp://host:port, unix:///path, vsock://:port)")
	flag.IntVar(&c.BindAttempts, "bind-attempts", c.BindAttempts, "listen attempts before giving up")
	flag.DurationVar(&c.BindBackoff, "bind-backoff", c.BindBackoff, "pause between listen attempts")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (debug, info, warn, error)")
	flag.StringVar(&c.Shell, "shell", c.Shell, "shell used for run_command")
	flag.StringVar(&c.WorkDir, "work-dir", c.WorkDir, "working directory for commands; empty inherits the daemon's")
	flag.DurationVar(&c.CommandTimeout, "command-timeout", c.CommandTimeout, "default run_command timeout")
	flag.Int64Var(&c.MaxTextBytes, "max-text-bytes", c.MaxTextBytes, "largest text file read_file returns")
	flag.Int64Var(&c.MaxImageBytes, "max-image-bytes", c.MaxImageBytes, "largest image file read_file returns")
	flag.StringVar(&c.OpenCommand, "open-command", c.OpenCommand, "program that opens files and URLs on the desktop")
}

// LoadFile merges the YAML file at path into c.
func (c *GuestConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}
