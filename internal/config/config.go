package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ygalaxyy/bookmarkbot/internal/llm"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreAzure  = "azblob"
	StoreGitHub = "github"
)

// Config holds application configuration.
type Config struct {
	// Backends is the classification cascade, strongest first.
	Backends []llm.Config `json:"backends,omitempty"`

	// BackoffMS is the pause between two backends after a failure.
	BackoffMS int `json:"backoff_ms"`

	// MaxInputChars caps the message text sent to a backend.
	MaxInputChars int `json:"max_input_chars"`

	// MaxOutputTokens is the token budget of one backend reply.
	MaxOutputTokens int `json:"max_output_tokens"`

	// Temperature is the backend sampling temperature. nil means the default.
	Temperature *float64 `json:"temperature,omitempty"`

	// DocumentID identifies the published document in the store
	// (blob name, repository path, or sqlite row id).
	DocumentID string `json:"document_id"`

	// Store selects the document store driver: "sqlite", "azblob" or "github".
	Store string `json:"store"`

	GitHub   GitHubConfig   `json:"github"`
	Azure    AzureConfig    `json:"azure"`
	Telegram TelegramConfig `json:"telegram"`

	// HTTPPort is where the liveness endpoint listens.
	HTTPPort int `json:"http_port"`

	// RestartDelay is how long serve waits before restarting a crashed bot.
	RestartDelay string `json:"restart_delay"`

	// SelfDomains are URL fragments that point back at the published page
	// itself; such links count as missing.
	SelfDomains []string `json:"self_domains,omitempty"`

	// PlatformHosts are the chat platform's own link hosts, never used as a
	// record's URL.
	PlatformHosts []string `json:"platform_hosts,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// GitHubConfig addresses the repository holding the published document.
type GitHubConfig struct {
	Repo    string `json:"repo,omitempty"` // owner/name
	Branch  string `json:"branch,omitempty"`
	Token   string `json:"token,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

// AzureConfig addresses the blob container holding the published document.
type AzureConfig struct {
	Container        string `json:"container,omitempty"`
	ConnectionString string `json:"connection_string,omitempty"`
	// AccountURL is used with the default credential chain when no
	// connection string is set.
	AccountURL string `json:"account_url,omitempty"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token       string `json:"token,omitempty"`
	PollTimeout int    `json:"poll_timeout,omitempty"` // seconds
	BaseURL     string `json:"base_url,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	temp := 0.1
	return &Config{
		Backends: []llm.Config{
			{Provider: "huggingface", Model: "Qwen/Qwen2.5-72B-Instruct"},
			{Provider: "huggingface", Model: "meta-llama/Llama-3.3-70B-Instruct"},
			{Provider: "huggingface", Model: "meta-llama/Llama-3.1-8B-Instruct"},
			{Provider: "huggingface", Model: "mistralai/Mistral-Nemo-Instruct-2407"},
		},
		BackoffMS:       1000,
		MaxInputChars:   8000,
		MaxOutputTokens: 4000,
		Temperature:     &temp,
		DocumentID:      "index.html",
		Store:           StoreSQLite,
		GitHub:          GitHubConfig{Branch: "main"},
		Azure:           AzureConfig{Container: "bookmarks"},
		Telegram:        TelegramConfig{PollTimeout: 30},
		HTTPPort:        8080,
		RestartDelay:    "5s",
		SelfDomains:     []string{"ygalaxyy"},
		PlatformHosts:   []string{"t.me", "telegram.me"},
	}
}

// Load loads configuration from baseDir/config.json on top of the defaults,
// then applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.bookmarkbot.
func Load(baseDir string) (*Config, error) {
	file, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	cfg := Merge(DefaultConfig(), file)
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; the backend list is replaced
// as a whole because its order matters; other arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Backends:        append([]llm.Config(nil), base.Backends...),
		BackoffMS:       orInt(overlay.BackoffMS, base.BackoffMS),
		MaxInputChars:   orInt(overlay.MaxInputChars, base.MaxInputChars),
		MaxOutputTokens: orInt(overlay.MaxOutputTokens, base.MaxOutputTokens),
		Temperature:     base.Temperature,
		DocumentID:      orString(overlay.DocumentID, base.DocumentID),
		Store:           orString(overlay.Store, base.Store),
		GitHub: GitHubConfig{
			Repo:    orString(overlay.GitHub.Repo, base.GitHub.Repo),
			Branch:  orString(overlay.GitHub.Branch, base.GitHub.Branch),
			Token:   orString(overlay.GitHub.Token, base.GitHub.Token),
			BaseURL: orString(overlay.GitHub.BaseURL, base.GitHub.BaseURL),
		},
		Azure: AzureConfig{
			Container:        orString(overlay.Azure.Container, base.Azure.Container),
			ConnectionString: orString(overlay.Azure.ConnectionString, base.Azure.ConnectionString),
			AccountURL:       orString(overlay.Azure.AccountURL, base.Azure.AccountURL),
		},
		Telegram: TelegramConfig{
			Token:       orString(overlay.Telegram.Token, base.Telegram.Token),
			PollTimeout: orInt(overlay.Telegram.PollTimeout, base.Telegram.PollTimeout),
			BaseURL:     orString(overlay.Telegram.BaseURL, base.Telegram.BaseURL),
		},
		HTTPPort:       orInt(overlay.HTTPPort, base.HTTPPort),
		RestartDelay:   orString(overlay.RestartDelay, base.RestartDelay),
		DBMaxOpenConns: orInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: orInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	if len(overlay.Backends) > 0 {
		result.Backends = append([]llm.Config(nil), overlay.Backends...)
	}
	if overlay.Temperature != nil {
		result.Temperature = overlay.Temperature
	}

	result.SelfDomains = mergeStringSlice(base.SelfDomains, overlay.SelfDomains)
	result.PlatformHosts = mergeStringSlice(base.PlatformHosts, overlay.PlatformHosts)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// ApplyEnv overrides secrets and deployment settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("TG_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := getenv("AZURE_STORAGE_CONNECTION_STRING"); v != "" {
		c.Azure.ConnectionString = v
	}
	if v := getenv("AZURE_STORAGE_ACCOUNT_URL"); v != "" {
		c.Azure.AccountURL = v
	}
	if v := getenv("BOOKMARKBOT_STORE"); v != "" {
		c.Store = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = n
		}
	}

	keys := map[string]string{
		"huggingface": getenv("HF_TOKEN"),
		"hf":          getenv("HF_TOKEN"),
		"openrouter":  getenv("OPENROUTER_API_KEY"),
	}
	for i := range c.Backends {
		b := &c.Backends[i]
		if b.APIKey == "" {
			b.APIKey = keys[strings.ToLower(b.Provider)]
		}
	}
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
	case StoreAzure:
		if c.Azure.ConnectionString == "" && c.Azure.AccountURL == "" {
			return fmt.Errorf("store %q requires azure.connection_string or azure.account_url", c.Store)
		}
		if c.Azure.Container == "" {
			return fmt.Errorf("store %q requires azure.container", c.Store)
		}
	case StoreGitHub:
		if owner, name, ok := strings.Cut(c.GitHub.Repo, "/"); !ok || owner == "" || name == "" {
			return fmt.Errorf("store %q requires github.repo as owner/name, got %q", c.Store, c.GitHub.Repo)
		}
		if c.GitHub.Token == "" {
			return fmt.Errorf("store %q requires github.token or GITHUB_TOKEN", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (supported: %s, %s, %s)", c.Store, StoreSQLite, StoreAzure, StoreGitHub)
	}

	if strings.TrimSpace(c.DocumentID) == "" {
		return fmt.Errorf("document_id must not be empty")
	}
	if c.BackoffMS < 0 {
		return fmt.Errorf("backoff_ms must not be negative")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", c.HTTPPort)
	}
	if _, err := c.RestartDelayDuration(); err != nil {
		return err
	}
	for i, b := range c.Backends {
		if strings.TrimSpace(b.Provider) == "" || strings.TrimSpace(b.Model) == "" {
			return fmt.Errorf("backend %d needs provider and model", i)
		}
	}
	return nil
}

// RestartDelayDuration parses RestartDelay.
func (c *Config) RestartDelayDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.RestartDelay)
	if err != nil {
		return 0, fmt.Errorf("invalid restart_delay %q: %w", c.RestartDelay, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("restart_delay must not be negative")
	}
	return d, nil
}

// Backoff returns the pause between backends.
func (c *Config) Backoff() time.Duration {
	return time.Duration(c.BackoffMS) * time.Millisecond
}

// SamplingTemperature returns the configured temperature or the default.
func (c *Config) SamplingTemperature() float64 {
	if c.Temperature == nil {
		return *DefaultConfig().Temperature
	}
	return *c.Temperature
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
