package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Job names known to the scheduler
const (
	JobConfluenceReingest = "confluence_reingest"
	JobSharePointReingest = "sharepoint_reingest"
	JobJiraChase          = "jira_chase"
	JobJiraProgress       = "jira_progress"
	JobFollowupDispatch   = "followup_dispatch"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Scheduler   SchedulerConfig  `toml:"scheduler"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	LLM         LLMConfig        `toml:"llm"`
	Ingest      IngestConfig     `toml:"ingest"`
	Splitter    SplitterConfig   `toml:"splitter"`
	Confluence  ConfluenceConfig `toml:"confluence"`
	SharePoint  SharePointConfig `toml:"sharepoint"`
	Jira        JiraConfig       `toml:"jira"`
	Notifier    NotifierConfig   `toml:"notifier"`
	Prompts     PromptsConfig    `toml:"prompts"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Format     string   `toml:"format" validate:"oneof=text json"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// SchedulerConfig controls the cron service and the per-job schedules
type SchedulerConfig struct {
	Enabled bool                 `toml:"enabled"`
	Jobs    map[string]JobConfig `toml:"jobs" validate:"dive"`
}

// JobConfig is the schedule for a single named job
type JobConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule" validate:"required"` // 5-field cron expression
}

// WebSocketConfig contains configuration for the job event stream
type WebSocketConfig struct {
	ThrottleInterval string `toml:"throttle_interval"` // Minimum gap between broadcasts of the same event type
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`      // Chat model (default: "gemini-2.5-flash")
	Timeout     string  `toml:"timeout"`    // Operation timeout as duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"` // Minimum gap between calls (default: "4s")
	Temperature float32 `toml:"temperature" validate:"min=0,max=2"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens" validate:"min=1"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature" validate:"min=0,max=1"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the chat provider and the embedding model
type LLMConfig struct {
	DefaultProvider    LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
	EmbeddingModel     string      `toml:"embedding_model"`     // Gemini embedding model (default: "text-embedding-004")
	EmbeddingDimension int         `toml:"embedding_dimension"` // Output dimensionality (default: 768)
}

// IngestConfig contains settings shared by the document ingesters
type IngestConfig struct {
	LeaseTTL string `toml:"lease_ttl"` // How long a scope lease is held before it may be taken over (default: "2h")
}

// SplitterConfig tunes the content splitter
type SplitterConfig struct {
	RowsPerChunk         int     `toml:"rows_per_chunk" validate:"min=1"`
	MaxSectionChars      int     `toml:"max_section_chars" validate:"min=1"`
	ChunkSize            int     `toml:"chunk_size" validate:"min=1"`
	ChunkOverlap         int     `toml:"chunk_overlap" validate:"min=0,ltfield=ChunkSize"`
	BufferSize           int     `toml:"buffer_size" validate:"min=0"`
	BreakpointPercentile float64 `toml:"breakpoint_percentile" validate:"min=0,max=100"`
	NumberOfChunks       int     `toml:"number_of_chunks" validate:"min=0"` // When > 0 the threshold is derived from the desired chunk count
	EmbedConcurrency     int     `toml:"embed_concurrency" validate:"min=1"`
}

// ConfluenceConfig contains the Confluence REST source settings
type ConfluenceConfig struct {
	BaseURL   string   `toml:"base_url" validate:"omitempty,url"`
	Token     string   `toml:"token"`    // Personal access token (Bearer)
	Username  string   `toml:"username"` // When set, Token is sent as basic auth password
	Spaces    []string `toml:"spaces"`
	Summarize bool     `toml:"summarize"` // Store a page summary alongside the chunks
	MaxPages  int      `toml:"max_pages" validate:"min=1"`
	PageLimit int      `toml:"page_limit" validate:"min=1,max=500"`
}

// SharePointConfig contains the SharePoint REST source settings
type SharePointConfig struct {
	SiteURL      string                  `toml:"site_url" validate:"omitempty,url"`
	TenantID     string                  `toml:"tenant_id"`
	ClientID     string                  `toml:"client_id"`
	ClientSecret string                  `toml:"client_secret"`
	TokenURL     string                  `toml:"token_url" validate:"omitempty,url"` // Overrides the Azure AD v2 token endpoint
	AccessToken  string                  `toml:"access_token"`                       // Static bearer token instead of client credentials
	MaxFolders   int                     `toml:"max_folders" validate:"min=0"`       // Subfolders scanned per scope (default: 100)
	Scopes       []SharePointScopeConfig `toml:"scopes" validate:"dive"`
}

// SharePointScopeConfig describes one folder to ingest
type SharePointScopeConfig struct {
	RelativeURL  string `toml:"relative_url" validate:"required"`
	Recursive    bool   `toml:"recursive"`
	IncludeRegex string `toml:"include_regex"` // Matched from the start of the escaped server-relative URL (default: "(.*)\\.docx")
	ExcludeRegex string `toml:"exclude_regex"`
	Summarize    bool   `toml:"summarize"`
}

// JiraConfig contains the Jira chaser and progress settings
type JiraConfig struct {
	BaseURL    string   `toml:"base_url" validate:"omitempty,url"`
	Token      string   `toml:"token"`
	Username   string   `toml:"username"`
	Project    string   `toml:"project"`
	JQL        string   `toml:"jql"`
	Components []string `toml:"components"`
	PageSize   int      `toml:"page_size" validate:"min=1,max=1000"`
	PageDelay  string   `toml:"page_delay"`
	MaxTickets int      `toml:"max_tickets" validate:"min=1"`
}

// NotifierConfig contains SMTP settings for follow-up reminders
type NotifierConfig struct {
	Enabled    bool              `toml:"enabled"`
	SMTPHost   string            `toml:"smtp_host" validate:"required_if=Enabled true"`
	SMTPPort   int               `toml:"smtp_port" validate:"min=0,max=65535"`
	Username   string            `toml:"username"`
	Password   string            `toml:"password"`
	From       string            `toml:"from" validate:"omitempty,email"`
	FromName   string            `toml:"from_name"`
	UseTLS     bool              `toml:"use_tls"`
	Domain     string            `toml:"domain"`     // Fallback: recipient display name -> first.last@domain
	Recipients map[string]string `toml:"recipients"` // Explicit recipient display name -> email address
	BatchLimit int               `toml:"batch_limit" validate:"min=1"`
}

// PromptsConfig points at an optional YAML file overriding the default prompts
type PromptsConfig struct {
	File string `toml:"file"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Jobs: map[string]JobConfig{
				JobConfluenceReingest: {Enabled: true, Schedule: "0 2 * * *"},
				JobSharePointReingest: {Enabled: true, Schedule: "30 2 * * *"},
				JobJiraChase:          {Enabled: true, Schedule: "0 * * * *"},
				JobJiraProgress:       {Enabled: true, Schedule: "0 3 * * *"},
				JobFollowupDispatch:   {Enabled: false, Schedule: "15 * * * *"},
			},
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: "500ms",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     "5m",
			RateLimit:   "4s", // 15 RPM free tier
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-4-5",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider:    LLMProviderGemini,
			EmbeddingModel:     "text-embedding-004",
			EmbeddingDimension: 768,
		},
		Ingest: IngestConfig{
			LeaseTTL: "2h",
		},
		Splitter: SplitterConfig{
			RowsPerChunk:         5,
			MaxSectionChars:      8000,
			ChunkSize:            4096,
			ChunkOverlap:         20,
			BufferSize:           1,
			BreakpointPercentile: 95,
			NumberOfChunks:       3,
			EmbedConcurrency:     4,
		},
		Confluence: ConfluenceConfig{
			MaxPages:  1500,
			PageLimit: 100,
		},
		SharePoint: SharePointConfig{
			MaxFolders: 100,
		},
		Jira: JiraConfig{
			JQL:        `status IN ("Open","Development To-Do","Development In-Progress","Work in Progress") AND issuetype NOT IN ("Epic") ORDER BY updated DESC`,
			PageSize:   50,
			PageDelay:  "5s",
			MaxTickets: 100,
		},
		Notifier: NotifierConfig{
			SMTPPort:   587,
			UseTLS:     true,
			FromName:   "Scribe",
			BatchLimit: 50,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRIBE_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SCRIBE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCRIBE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("SCRIBE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SCRIBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SCRIBE_LOG_OUTPUT"); output != "" {
		if outputs := splitList(output); len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("SCRIBE_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}

	// LLM configuration
	if apiKey := os.Getenv("SCRIBE_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("SCRIBE_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("SCRIBE_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // SCRIBE_ prefix takes priority
	}
	if model := os.Getenv("SCRIBE_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if provider := os.Getenv("SCRIBE_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Source credentials
	if baseURL := os.Getenv("SCRIBE_CONFLUENCE_BASE_URL"); baseURL != "" {
		config.Confluence.BaseURL = baseURL
	}
	if token := os.Getenv("SCRIBE_CONFLUENCE_TOKEN"); token != "" {
		config.Confluence.Token = token
	}
	if spaces := os.Getenv("SCRIBE_CONFLUENCE_SPACES"); spaces != "" {
		config.Confluence.Spaces = splitList(spaces)
	}
	if secret := os.Getenv("SCRIBE_SHAREPOINT_CLIENT_SECRET"); secret != "" {
		config.SharePoint.ClientSecret = secret
	}
	if baseURL := os.Getenv("SCRIBE_JIRA_BASE_URL"); baseURL != "" {
		config.Jira.BaseURL = baseURL
	}
	if token := os.Getenv("SCRIBE_JIRA_TOKEN"); token != "" {
		config.Jira.Token = token
	}
	if components := os.Getenv("SCRIBE_JIRA_COMPONENTS"); components != "" {
		config.Jira.Components = splitList(components)
	}
	if maxTickets := os.Getenv("SCRIBE_JIRA_MAX_TICKETS"); maxTickets != "" {
		if mt, err := strconv.Atoi(maxTickets); err == nil {
			config.Jira.MaxTickets = mt
		}
	}

	// Notifier configuration
	if password := os.Getenv("SCRIBE_SMTP_PASSWORD"); password != "" {
		config.Notifier.Password = password
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks struct constraints, duration strings and job schedules
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"gemini.timeout":              c.Gemini.Timeout,
		"gemini.rate_limit":           c.Gemini.RateLimit,
		"claude.timeout":              c.Claude.Timeout,
		"claude.rate_limit":           c.Claude.RateLimit,
		"ingest.lease_ttl":            c.Ingest.LeaseTTL,
		"jira.page_delay":             c.Jira.PageDelay,
		"websocket.throttle_interval": c.WebSocket.ThrottleInterval,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	for name, job := range c.Scheduler.Jobs {
		if err := ValidateJobSchedule(job.Schedule); err != nil {
			return fmt.Errorf("job %s: %w", name, err)
		}
	}

	return nil
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ValidateJobSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateJobSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
