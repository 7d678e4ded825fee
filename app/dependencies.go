package app

import (
	"context"
	"fmt"

	"github.com/upb/manuals-assistant/config"
	"github.com/upb/manuals-assistant/handlers"
	"github.com/upb/manuals-assistant/repositories"
	"github.com/upb/manuals-assistant/repositories/postgres"
	"github.com/upb/manuals-assistant/services/generation"
	"github.com/upb/manuals-assistant/services/generation/azureopenai"
	"github.com/upb/manuals-assistant/services/rag"
	"github.com/upb/manuals-assistant/services/search"
	"github.com/upb/manuals-assistant/services/speech"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB // nil when chat history is disabled

	// Gateways
	Search    *search.Client
	Generator generation.Generator
	Speech    *speech.Client // nil when speech is not configured

	// Services
	History repositories.HistoryRepository // nil when chat history is disabled
	RAG     *rag.Service

	// Handlers
	AskHandler     *handlers.AskHandler
	SpeechHandler  *handlers.SpeechHandler // nil when speech is not configured
	SessionHandler *handlers.SessionHandler
	HealthHandler  *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initGateways(cfg)
	deps.initServices(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the optional chat history database
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Info("no database configured, chat history disabled")
		return nil
	}

	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.DB = db
	d.History = postgres.NewHistoryRepository(db, d.Logger)
	return nil
}

// initGateways initializes the Azure collaborator clients
func (d *Dependencies) initGateways(cfg *config.Config) {
	d.Search = search.NewClient(search.Config{
		Endpoint:   cfg.Search.Endpoint,
		APIKey:     cfg.Search.APIKey,
		Index:      cfg.Search.Index,
		APIVersion: cfg.Search.APIVersion,
		Timeout:    cfg.Search.Timeout,
	}, d.Logger)

	d.Generator = azureopenai.NewAdapter(azureopenai.Config{
		Endpoint:            cfg.OpenAI.Endpoint,
		APIKey:              cfg.OpenAI.APIKey,
		Deployment:          cfg.OpenAI.Deployment,
		APIVersion:          cfg.OpenAI.APIVersion,
		Timeout:             cfg.OpenAI.Timeout,
		MaxCompletionTokens: cfg.OpenAI.MaxCompletionTokens,
	}, d.Logger)

	if cfg.Speech.Configured() {
		d.Speech = speech.NewClient(speech.Config{
			APIKey:   cfg.Speech.APIKey,
			Region:   cfg.Speech.Region,
			Language: cfg.Speech.Language,
			Voice:    cfg.Speech.Voice,
			Timeout:  cfg.Speech.Timeout,
		}, d.Logger)
		d.Logger.Info("speech gateway enabled", zap.String("region", cfg.Speech.Region))
	} else {
		d.Logger.Info("speech not configured, voice endpoints disabled")
	}
}

// initServices initializes the answer pipeline
func (d *Dependencies) initServices(cfg *config.Config) {
	d.RAG = rag.NewService(d.Search, d.Generator, cfg.OpenAI.SystemPrompt, d.Logger)
}

// initHandlers initializes the HTTP handlers
func (d *Dependencies) initHandlers() {
	d.AskHandler = handlers.NewAskHandler(d.RAG, d.History, d.Logger)
	d.SessionHandler = handlers.NewSessionHandler(d.History, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB, d.Logger)
	if d.Speech != nil {
		d.SpeechHandler = handlers.NewSpeechHandler(d.Speech, d.Logger)
	}
}

// HistoryEnabled reports whether chat history endpoints should be wired
func (d *Dependencies) HistoryEnabled() bool {
	return d.History != nil
}

// SpeechEnabled reports whether speech endpoints should be wired
func (d *Dependencies) SpeechEnabled() bool {
	return d.SpeechHandler != nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
