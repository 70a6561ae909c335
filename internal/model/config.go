package model

// Config is the full application configuration, loaded from
// ~/.rfpd/config.yaml, RFPD_* environment variables and CLI flags.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Mailbox   MailboxConfig   `yaml:"mailbox" mapstructure:"mailbox"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MailboxConfig configures the IMAP mailbox the poller reads.
type MailboxConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	Folder      string `yaml:"folder" mapstructure:"folder"`
	Timeout     int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	InsecureTLS bool   `yaml:"insecure_tls" mapstructure:"insecure_tls"`
}

// SMTPConfig configures the outbound invitation mailer.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	From     string `yaml:"from" mapstructure:"from"`
}

// LLMConfig configures the structured-extraction and comparison
// provider.
type LLMConfig struct {
	// Provider name: "openai", "ollama", ""
	Provider string `yaml:"provider" mapstructure:"provider"`

	// Model name (provider-specific)
	Model string `yaml:"model" mapstructure:"model"`

	// APIKey for OpenAI (usually via OPENAI_API_KEY)
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// BaseURL for custom endpoints (e.g. Ollama)
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout for API requests, seconds
	Timeout int `yaml:"timeout" mapstructure:"timeout"`

	// MaxTokens for response generation
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens"`

	// RequestsPerSecond and Burst throttle calls to the provider
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DirectoryConfig configures the vendor lookup cache.
type DirectoryConfig struct {
	CacheTTL int `yaml:"cache_ttl" mapstructure:"cache_ttl"` // seconds
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "rfpd.db",
		},
		Mailbox: MailboxConfig{
			Host:    "imap.gmail.com",
			Port:    993,
			Folder:  "INBOX",
			Timeout: 30,
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		LLM: LLMConfig{
			Provider:          "openai",
			Timeout:           60,
			MaxTokens:         1024,
			RequestsPerSecond: 1,
			Burst:             2,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Directory: DirectoryConfig{
			CacheTTL: 300,
		},
	}
}
