package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/mdidris/rfpd/internal/directory"
	"github.com/mdidris/rfpd/internal/llm"
	"github.com/mdidris/rfpd/internal/mailbox"
	"github.com/mdidris/rfpd/internal/model"
	"github.com/mdidris/rfpd/internal/outbound"
	"github.com/mdidris/rfpd/internal/pipeline"
	"github.com/mdidris/rfpd/internal/store"
)

// loadConfig builds the effective configuration: defaults, overlaid by
// the config file and RFPD_* environment variables, plus the standard
// credential variables.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.Provider == "ollama" {
		if base := os.Getenv("OLLAMA_BASE_URL"); base != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = base
		}
	}
	if cfg.Mailbox.Password == "" {
		cfg.Mailbox.Password = os.Getenv("RFPD_MAILBOX_PASSWORD")
	}
	if cfg.SMTP.Password == "" {
		cfg.SMTP.Password = os.Getenv("RFPD_SMTP_PASSWORD")
	}
	return cfg, nil
}

// app holds the wired application components behind the commands.
type app struct {
	cfg       *model.Config
	store     *store.Store
	vendors   *directory.Directory
	assistant *llm.Assistant
	ingestor  *pipeline.Ingestor
	analyzer  *pipeline.Analyzer
	mailer    *outbound.Mailer
}

// newApp wires the full component graph from configuration. The mailer
// is nil when SMTP is not configured; commands that need it check.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}

	vendors := directory.New(st, time.Duration(cfg.Directory.CacheTTL)*time.Second)

	assistant, err := llm.NewAssistant(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	poller := mailbox.New(mailbox.ConfigFromModel(cfg.Mailbox))
	ingestor := pipeline.NewIngestor(poller, vendors, assistant, st)
	analyzer := pipeline.NewAnalyzer(st, assistant)

	var mailer *outbound.Mailer
	if cfg.SMTP.Host != "" && cfg.SMTP.From != "" {
		mailer = outbound.New(outbound.ConfigFromModel(cfg.SMTP))
	}

	return &app{
		cfg:       cfg,
		store:     st,
		vendors:   vendors,
		assistant: assistant,
		ingestor:  ingestor,
		analyzer:  analyzer,
		mailer:    mailer,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
