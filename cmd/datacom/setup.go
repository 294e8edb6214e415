package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/datacom/internal/config"
	"github.com/sandevgo/datacom/internal/providers/llm"
	"github.com/sandevgo/datacom/internal/service/chat"
	"github.com/sandevgo/datacom/internal/service/command"
	"github.com/sandevgo/datacom/internal/storage/sqlite"
	"github.com/sandevgo/datacom/internal/transport/api"
	"github.com/sandevgo/datacom/internal/transport/telegram"
	"github.com/sandevgo/datacom/pkg/log"
	"github.com/sandevgo/datacom/pkg/srv"
)

// pipeline is everything a transport needs to run chat turns.
type pipeline struct {
	appCfg   *config.AppConfig
	llmCfg   *config.LLMConfig
	db       *sql.DB
	repo     *sqlite.ConversationsRepo
	model    *llm.ModelHandle
	chat     *chat.Service
	commands *command.Router
}

func newPipeline(ctx context.Context) *pipeline {
	logger := log.FromCtx(ctx)

	// init env
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)

	// 2. Storage
	if err := os.MkdirAll(appCfg.GetRuntimePath(), 0755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create runtime directory")
	}
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	repo := sqlite.NewConversationsRepo(db)

	// 3. Persona
	systemPrompt, err := chat.LoadSystemPrompt(appCfg.GetPersonaPromptPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load persona prompt")
	}

	// 4. Model, loaded on the first turn
	model := llm.NewModelHandle(llm.NewOllamaLoader(llmCfg.OllamaBaseURL, llmCfg.GetModel()))
	executor := llm.NewExecutor(model, llm.ExecutorConfig{
		Generation: llm.GenerationConfig{
			MaxNewTokens: llmCfg.GetMaxNewTokens(),
			Temperature:  llmCfg.GetTemperature(),
			TopP:         llmCfg.GetTopP(),
		},
		Timeout:         llmCfg.GetInferenceTimeout(),
		Workers:         llmCfg.InferenceWorkers,
		MaxPromptTokens: llmCfg.MaxPromptTokens,
	}, llm.NewTokenMeter())

	// 5. Chat service
	svc := chat.NewService(repo, executor, systemPrompt, appCfg.GetMaxContextMessages())

	// 6. Slash commands for the chat transports
	commands := command.New(command.NewCommands(repo, model, llmCfg))

	logger.Debug().
		Str("model", llmCfg.GetModel()).
		Str("ollama", llmCfg.OllamaBaseURL).
		Str("db", appCfg.GetDatabasePath()).
		Msg("chat pipeline ready")

	return &pipeline{
		appCfg:   appCfg,
		llmCfg:   llmCfg,
		db:       db,
		repo:     repo,
		model:    model,
		chat:     svc,
		commands: commands,
	}
}

func NewServices(ctx context.Context, p *pipeline) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// The database closes last
	services = append(services, srv.NewCleanup(p.db.Close))

	transports, err := initTransports(ctx, p)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	if len(transports) == 0 {
		logger.Fatal().Msg("no transport enabled, set ENABLE_HTTP or ENABLE_TELEGRAM")
	}
	services = append(services, transports...)

	return services
}

func initTransports(ctx context.Context, p *pipeline) ([]srv.Service, error) {
	var services []srv.Service

	// HTTP API
	if p.appCfg.IsHTTPEnabled() {
		httpCfg := config.NewHTTPConfig(ctx)
		handler := api.NewHandler(p.chat, p.repo, p.model)
		router := api.NewRouter(ctx, handler, httpCfg.APIPrefix)

		// A turn may take the whole inference timeout
		writeTimeout := p.llmCfg.GetInferenceTimeout() + 30*time.Second
		services = append(services, api.NewServer(httpCfg.Addr, router, writeTimeout))
	}

	// Telegram Bot
	if p.appCfg.IsTelegramEnabled() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg, p.chat, p.commands)
		if err != nil {
			return nil, err
		}
		services = append(services, bot)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Variables already set in the process win over the file
	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
