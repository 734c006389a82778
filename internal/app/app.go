package app

import (
	"context"
	"errors"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/handlers"
	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/services/atlassian"
	"github.com/ternarybob/scribe/internal/services/convert"
	"github.com/ternarybob/scribe/internal/services/events"
	"github.com/ternarybob/scribe/internal/services/ingest"
	"github.com/ternarybob/scribe/internal/services/jira"
	"github.com/ternarybob/scribe/internal/services/llm"
	"github.com/ternarybob/scribe/internal/services/mailer"
	"github.com/ternarybob/scribe/internal/services/mcp"
	"github.com/ternarybob/scribe/internal/services/pdf"
	"github.com/ternarybob/scribe/internal/services/scheduler"
	"github.com/ternarybob/scribe/internal/services/search"
	"github.com/ternarybob/scribe/internal/services/sharepoint"
	"github.com/ternarybob/scribe/internal/services/splitter"
	"github.com/ternarybob/scribe/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	ctx            context.Context
	cancelCtx      context.CancelFunc
	StorageManager interfaces.StorageManager

	// Model services
	LLMFactory *llm.ProviderFactory
	LLMService *llm.Service
	Embedder   *llm.GeminiEmbedder

	// Ingestion
	Converter          *convert.Converter
	Splitter           *splitter.Splitter
	ConfluencePipeline *ingest.Pipeline
	SharePointPipeline *ingest.Pipeline
	SearchService      *search.Service
	PDFService         *pdf.Service

	// Jira
	JiraClient *atlassian.JiraClient
	Chaser     *jira.Chaser
	Progress   *jira.Progress
	Dispatcher *jira.Dispatcher
	Mailer     *mailer.Service

	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService
	MCPServer        *mcpserver.MCPServer

	// HTTP handlers
	APIHandler        *handlers.APIHandler
	OperationsHandler *handlers.OperationsHandler
	JobsHandler       *handlers.JobsHandler
	SearchHandler     *handlers.SearchHandler
	FollowupsHandler  *handlers.FollowupsHandler
	ProgressHandler   *handlers.ProgressHandler
	WSHandler         *handlers.WebSocketHandler
	MCPHandler        *handlers.MCPHandler

	// Operations left out at startup, by handlers.Operation* name
	disabled map[string]error
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
		disabled:  make(map[string]error),
	}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	if err := events.SubscribeLoggerToAllEvents(app.EventService, app.Logger); err != nil {
		app.Logger.Warn().Err(err).Msg("Failed to subscribe event logger")
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Bool("confluence", app.ConfluencePipeline != nil).
		Bool("sharepoint", app.SharePointPipeline != nil).
		Bool("jira", app.JiraClient != nil).
		Bool("llm", app.LLMFactory.Configured()).
		Bool("notifier", app.Mailer.IsConfigured()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices builds the services in dependency order. A source whose
// configuration is missing is logged and left out; the rest still start.
func (a *App) initServices() error {
	// 1. Model providers
	a.LLMFactory = llm.NewProviderFactory(a.Config.Gemini, a.Config.Claude, a.Config.LLM, a.Logger)
	if !a.LLMFactory.Configured() {
		a.Logger.Error().
			Str("provider", string(a.LLMFactory.DetectProvider(""))).
			Msg("No LLM provider configured - document ingestion and Jira analysis are disabled")
	}

	prompts, err := llm.LoadPrompts(a.Config.Prompts.File)
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	a.LLMService = llm.NewService(a.LLMFactory, prompts, a.Logger)
	a.Embedder = llm.NewGeminiEmbedder(a.LLMFactory, a.Config.LLM, a.Logger)

	// 2. Document sources
	a.Converter = convert.NewConverter(a.Logger)
	a.Splitter = splitter.NewSplitter(a.Config.Splitter, a.Embedder, a.Logger)

	if err := a.initConfluence(); err != nil {
		return err
	}
	if err := a.initSharePoint(); err != nil {
		return err
	}

	a.SearchService = search.NewService(a.Embedder, a.StorageManager, a.Logger)
	a.PDFService = pdf.NewService(a.Logger)

	// 3. Jira
	a.Mailer = mailer.NewService(a.Config.Notifier, a.Logger)
	a.Dispatcher = jira.NewDispatcher(a.StorageManager, a.Mailer, a.Config.Notifier, a.Logger)
	if err := a.initJira(); err != nil {
		return err
	}

	// 4. MCP tools
	deps := mcp.Dependencies{
		Search:    a.SearchService,
		Progress:  a.progressReader(),
		Summaries: a.StorageManager.SummaryStorage(),
	}
	if a.Chaser != nil {
		deps.Followups = a.Chaser
	}
	a.MCPServer = mcp.NewServer(deps, common.GetVersion(), a.Logger)

	// 5. Scheduler
	a.SchedulerService = scheduler.NewService(a.EventService, a.Logger)
	if err := a.registerJobs(); err != nil {
		return err
	}
	if a.Config.Scheduler.Enabled {
		if err := a.SchedulerService.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	return nil
}

func (a *App) initConfluence() error {
	client, err := atlassian.NewConfluenceClient(a.Config.Confluence, a.Logger)
	if errors.Is(err, atlassian.ErrNotConfigured) {
		a.Logger.Info().Msg("Confluence not configured - skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create confluence client: %w", err)
	}

	if err := a.requireModels(a.Config.Confluence.Summarize); err != nil {
		a.disable(handlers.OperationReingest, "confluence", err)
		return nil
	}

	source := atlassian.NewConfluenceSource(client, a.Converter, a.Logger)
	a.ConfluencePipeline = a.newPipeline(source)
	for _, space := range a.Config.Confluence.Spaces {
		a.ConfluencePipeline.AddScope(ingest.Scope{Name: space, Summarize: a.Config.Confluence.Summarize})
	}

	a.Logger.Debug().
		Strs("spaces", a.Config.Confluence.Spaces).
		Msg("Confluence pipeline initialized")
	return nil
}

func (a *App) initSharePoint() error {
	client, err := sharepoint.NewClient(a.Config.SharePoint, a.Logger)
	if errors.Is(err, sharepoint.ErrNotConfigured) {
		a.Logger.Info().Msg("SharePoint not configured - skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create sharepoint client: %w", err)
	}

	summarize := false
	for _, scope := range a.Config.SharePoint.Scopes {
		summarize = summarize || scope.Summarize
	}
	if err := a.requireModels(summarize); err != nil {
		a.disable(handlers.OperationReingest, "sharepoint", err)
		return nil
	}

	source, err := sharepoint.NewSource(client, a.Converter, a.Config.SharePoint, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create sharepoint source: %w", err)
	}

	a.SharePointPipeline = a.newPipeline(source)
	for _, scope := range a.Config.SharePoint.Scopes {
		a.SharePointPipeline.AddScope(ingest.Scope{Name: scope.RelativeURL, Summarize: scope.Summarize})
	}

	a.Logger.Debug().
		Int("scopes", len(a.Config.SharePoint.Scopes)).
		Msg("SharePoint pipeline initialized")
	return nil
}

func (a *App) newPipeline(source interfaces.Source) *ingest.Pipeline {
	return ingest.NewPipeline(
		source,
		a.StorageManager,
		a.Splitter,
		a.Embedder,
		a.LLMService,
		a.EventService,
		a.Config.Ingest,
		a.Logger,
	)
}

func (a *App) initJira() error {
	client, err := atlassian.NewJiraClient(a.Config.Jira, a.Logger)
	if errors.Is(err, atlassian.ErrNotConfigured) {
		a.Logger.Info().Msg("Jira not configured - skipping chaser and progress")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create jira client: %w", err)
	}

	a.JiraClient = client
	if err := a.LLMFactory.RequireGenerator(); err != nil {
		a.disable(handlers.OperationChase, "jira", err)
		a.disable(handlers.OperationProgress, "jira", err)
		return nil
	}

	a.Chaser = jira.NewChaser(client, a.StorageManager, a.LLMService, a.EventService, a.Config.Jira, a.Logger)
	a.Progress = jira.NewProgress(client, a.StorageManager, a.LLMService, a.Config.Jira, a.Logger)

	a.Logger.Debug().
		Str("project", a.Config.Jira.Project).
		Strs("components", a.Progress.Components()).
		Msg("Jira services initialized")
	return nil
}

// requireModels checks the keys a document pipeline needs: always embeddings,
// and generation when summaries are enabled
func (a *App) requireModels(summarize bool) error {
	if err := a.LLMFactory.RequireEmbedder(); err != nil {
		return err
	}
	if summarize {
		return a.LLMFactory.RequireGenerator()
	}
	return nil
}

// disable records why operation is unavailable; the first reason wins
func (a *App) disable(operation, component string, err error) {
	a.Logger.Error().
		Err(err).
		Str("component", component).
		Str("operation", operation).
		Msg("Service disabled - its jobs are not registered")
	if _, ok := a.disabled[operation]; !ok {
		a.disabled[operation] = err
	}
}

// Unavailable returns the startup reason operation was disabled, or fallback
// when the service is simply not configured
func (a *App) Unavailable(operation, fallback string) error {
	if err, ok := a.disabled[operation]; ok {
		return fmt.Errorf("%s unavailable: %w", operation, err)
	}
	return errors.New(fallback)
}

// progressReader serves stored summaries even when Jira is not configured
func (a *App) progressReader() mcp.ProgressReader {
	if a.Progress != nil {
		return a.Progress
	}
	return storedProgress{storage: a.StorageManager.ProgressStorage()}
}

type storedProgress struct {
	storage interfaces.ProgressStorage
}

func (p storedProgress) GetSummaries(ctx context.Context, component string, limit int) (string, error) {
	rows, err := p.storage.GetSummaries(ctx, component, limit)
	if err != nil {
		return "", err
	}
	return jira.SummaryTable(rows), nil
}

// registerJobs adds every job whose service exists. Disabled jobs stay listed
// so they can be enabled at runtime.
func (a *App) registerJobs() error {
	type job struct {
		name        string
		description string
		handler     interfaces.JobHandler
	}

	var jobs []job
	if a.ConfluencePipeline != nil {
		jobs = append(jobs, job{common.JobConfluenceReingest, "Reingest Confluence spaces", reingestJob(a.ConfluencePipeline)})
	}
	if a.SharePointPipeline != nil {
		jobs = append(jobs, job{common.JobSharePointReingest, "Reingest SharePoint folders", reingestJob(a.SharePointPipeline)})
	}
	if a.Chaser != nil {
		jobs = append(jobs, job{common.JobJiraChase, "Chase open Jira tickets", func(ctx context.Context) error {
			_, err := a.Chaser.Chase(ctx)
			return err
		}})
	}
	if a.Progress != nil {
		jobs = append(jobs, job{common.JobJiraProgress, "Summarize Jira component progress", a.Progress.Reingest})
	}
	if a.Mailer.IsConfigured() {
		jobs = append(jobs, job{common.JobFollowupDispatch, "Mail open follow-up reminders", func(ctx context.Context) error {
			_, err := a.Dispatcher.Dispatch(ctx)
			return err
		}})
	}

	for _, j := range jobs {
		jobConfig, ok := a.Config.Scheduler.Jobs[j.name]
		if !ok {
			a.Logger.Debug().Str("job_name", j.name).Msg("No schedule configured - job not registered")
			continue
		}
		if err := a.SchedulerService.RegisterJob(j.name, jobConfig.Schedule, j.description, jobConfig.Enabled, j.handler); err != nil {
			return fmt.Errorf("failed to register job %s: %w", j.name, err)
		}
	}

	return nil
}

func reingestJob(pipeline *ingest.Pipeline) interfaces.JobHandler {
	return func(ctx context.Context) error {
		_, err := pipeline.Reingest(ctx)
		return err
	}
}

// Reingesters returns the configured document pipelines
func (a *App) Reingesters() []handlers.Reingester {
	var pipelines []handlers.Reingester
	if a.ConfluencePipeline != nil {
		pipelines = append(pipelines, a.ConfluencePipeline)
	}
	if a.SharePointPipeline != nil {
		pipelines = append(pipelines, a.SharePointPipeline)
	}
	return pipelines
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.APIHandler = handlers.NewAPIHandler(a.StorageManager.ChunkStorage(), a.Logger)

	var chaser handlers.ChaseRunner
	var progress handlers.ProgressRunner
	if a.Chaser != nil {
		chaser = a.Chaser
		a.FollowupsHandler = handlers.NewFollowupsHandler(a.Chaser, a.Logger)
	}
	if a.Progress != nil {
		progress = a.Progress
	}
	a.OperationsHandler = handlers.NewOperationsHandler(a.Reingesters(), chaser, progress, a.disabled, a.Logger)

	a.JobsHandler = handlers.NewJobsHandler(a.SchedulerService, a.Logger)
	a.SearchHandler = handlers.NewSearchHandler(a.SearchService, a.Logger)
	a.ProgressHandler = handlers.NewProgressHandler(a.StorageManager.ProgressStorage(), a.PDFService, a.Logger)

	a.WSHandler = handlers.NewWebSocketHandler(a.Logger, &a.Config.WebSocket)
	if err := a.WSHandler.SubscribeToEvents(a.EventService); err != nil {
		return fmt.Errorf("failed to subscribe websocket to events: %w", err)
	}

	a.MCPHandler = handlers.NewMCPHandler(mcp.NewHTTPHandler(a.MCPServer), a.Logger)

	return nil
}

// Close stops background work and closes storage
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM clients")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
