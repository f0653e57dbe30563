// Package config loads the agent's YAML/JSON5 configuration file, with
// support for $include directives and ${VAR} environment expansion.
package config

// Config is the full set of options the composition root needs to wire
// the agent. Field names mirror the option names in the external
// interface contract exactly.
type Config struct {
	WakeIntervalSeconds int `yaml:"wake_interval_seconds"`
	ToolTimeout         int `yaml:"tool_timeout"`
	ContextMaxTokens    int `yaml:"context_max_tokens"`

	OpenAI OpenAIConfig `yaml:"openai"`

	Container   ContainerConfig   `yaml:"container"`
	Firecracker FirecrackerConfig `yaml:"firecracker"`

	CWD         string `yaml:"cwd"`
	WorkspaceDir string `yaml:"workspace_dir"`
	SkillsDir   string `yaml:"skills_dir"`

	Messaging MessagingConfig `yaml:"messaging"`

	API APIConfig `yaml:"api"`

	EventLogger EventLoggerConfig `yaml:"event_logger"`

	Logging LoggingConfig `yaml:"logging"`

	Database DatabaseConfig `yaml:"database"`

	WebSearch WebSearchConfig `yaml:"web_search"`
}

// OpenAIConfig describes the OpenAI-compatible LLM endpoint.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// ContainerConfig describes the sandboxed execution container. An empty
// Runtime means the Host runtime is used instead of a container.
type ContainerConfig struct {
	Name    string `yaml:"name"`
	Runtime string `yaml:"runtime"`
}

// FirecrackerConfig describes the microVM used as a stronger-isolation
// alternative to ContainerConfig. An empty KernelPath means the
// Firecracker backend is not used even if Container is also unset.
type FirecrackerConfig struct {
	KernelPath string `yaml:"kernel_path"`
	RootFSPath string `yaml:"rootfs_path"`
	VCPUs      int64  `yaml:"vcpus"`
	MemSizeMB  int64  `yaml:"mem_size_mb"`
}

// MessagingConfig carries credentials for whichever chat-platform adapter
// is configured. Absent credentials select the Null adapter.
type MessagingConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// TelegramConfig configures the Telegram Bot API adapter.
type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	NotifyChatID   string `yaml:"notify_chat_id"`
}

// DiscordConfig configures the Discord bot adapter.
type DiscordConfig struct {
	BotToken        string `yaml:"bot_token"`
	NotifyChannelID string `yaml:"notify_channel_id"`
}

// APIConfig controls the HTTP ingress server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventLoggerConfig points the EventLogger at a sink for tool_use and
// agent_response events.
type EventLoggerConfig struct {
	SinkURL       string `yaml:"sink_url"`
	APIKey        string `yaml:"api_key"`
	FlushInterval int    `yaml:"flush_interval_seconds"`
	BatchSize     int    `yaml:"batch_size"`
}

// LoggingConfig configures the observability logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig, when SinkPath is set, enables durable Conversation
// persistence via modernc.org/sqlite.
type DatabaseConfig struct {
	SinkPath string `yaml:"path"`
}

// WebSearchConfig configures the web_search tool's backend.
type WebSearchConfig struct {
	Backend      string `yaml:"backend"`
	SearXNGURL   string `yaml:"searxng_url"`
	BraveAPIKey  string `yaml:"brave_api_key"`
}

func (c *Config) applyDefaults() {
	if c.WakeIntervalSeconds == 0 {
		c.WakeIntervalSeconds = 1800
	}
	if c.ToolTimeout == 0 {
		c.ToolTimeout = 60
	}
	if c.ContextMaxTokens == 0 {
		c.ContextMaxTokens = 30000
	}
	if c.CWD == "" {
		c.CWD = "."
	}
	if c.WorkspaceDir == "" {
		c.WorkspaceDir = "workspace"
	}
	if c.SkillsDir == "" {
		c.SkillsDir = "skills"
	}
	if c.API.Host == "" {
		c.API.Host = "0.0.0.0"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.EventLogger.FlushInterval == 0 {
		c.EventLogger.FlushInterval = 10
	}
	if c.EventLogger.BatchSize == 0 {
		c.EventLogger.BatchSize = 50
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.WebSearch.Backend == "" {
		c.WebSearch.Backend = "duckduckgo"
	}
}

// HasContainer reports whether a container runtime is configured.
func (c *Config) HasContainer() bool {
	return c.Container.Runtime != ""
}

// HasFirecracker reports whether the microVM runtime is configured.
func (c *Config) HasFirecracker() bool {
	return c.Firecracker.KernelPath != "" && c.Firecracker.RootFSPath != ""
}

// HasTelegram reports whether Telegram credentials are present.
func (c *Config) HasTelegram() bool {
	return c.Messaging.Telegram.BotToken != ""
}

// HasDiscord reports whether Discord credentials are present.
func (c *Config) HasDiscord() bool {
	return c.Messaging.Discord.BotToken != ""
}

// HasDatabase reports whether durable Conversation persistence is enabled.
func (c *Config) HasDatabase() bool {
	return c.Database.SinkPath != ""
}
