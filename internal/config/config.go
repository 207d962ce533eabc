package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for the travel assistant.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Generation GenerationConfig `json:"generation"`
	Audio      AudioConfig      `json:"audio"`
	Channels   ChannelsConfig   `json:"channels"`
	Memory     MemoryConfig     `json:"memory"`
	Templates  TemplatesConfig  `json:"templates"`
}

type GeneralConfig struct {
	Workspace string `json:"workspace"`
	LogLevel  string `json:"logLevel"`
	Language  string `json:"language"` // default response language for new sessions
}

// GenerationConfig configures the generation/TTS service client.
type GenerationConfig struct {
	APIBase        string `json:"apiBase,omitempty"`
	APIKey         string `json:"apiKey,omitempty"`
	Model          string `json:"model,omitempty"`
	TTSModel       string `json:"ttsModel,omitempty"`
	Voice          string `json:"voice,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

type AudioConfig struct {
	Enabled           bool   `json:"enabled"`
	DefaultSampleRate int    `json:"defaultSampleRate,omitempty"` // used when the service omits a rate hint
	OutputDir         string `json:"outputDir,omitempty"`         // where the CLI channel drops WAV files
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	CLI      CLIConfig      `json:"cli"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type MemoryConfig struct {
	Enabled              bool   `json:"enabled"`
	DBPath               string `json:"dbPath"`
	MaxHistoryPerSession int    `json:"maxHistoryPerSession"`
}

type TemplatesConfig struct {
	Path string `json:"path,omitempty"` // optional YAML override file
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.tripbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tripbot"
	}
	return filepath.Join(home, ".tripbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.Workspace = ExpandPath(cfg.General.Workspace)
	cfg.Memory.DBPath = ExpandPath(cfg.Memory.DBPath)
	cfg.Audio.OutputDir = ExpandPath(cfg.Audio.OutputDir)
	cfg.Templates.Path = ExpandPath(cfg.Templates.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.Language == "" {
		errs = append(errs, "general.language must not be empty")
	}
	if cfg.Generation.TimeoutSeconds < 0 || cfg.Generation.TimeoutSeconds > 600 {
		errs = append(errs, "generation.timeoutSeconds must be between 0 and 600")
	}
	if cfg.Audio.DefaultSampleRate < 0 {
		errs = append(errs, "audio.defaultSampleRate must not be negative")
	}
	if cfg.Memory.Enabled && cfg.Memory.DBPath == "" {
		errs = append(errs, "memory.dbPath is required when memory is enabled")
	}
	if cfg.Memory.MaxHistoryPerSession < 1 {
		errs = append(errs, "memory.maxHistoryPerSession must be >= 1")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram.token is required when telegram is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Sanitize returns a copy with secrets blanked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	if out.Generation.APIKey != "" {
		out.Generation.APIKey = "***"
	}
	if out.Channels.Telegram.Token != "" {
		out.Channels.Telegram.Token = "***"
	}
	return &out
}
