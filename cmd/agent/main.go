// Command agent is the composition root for the always-on autonomous
// agent: it loads configuration, wires every collaborator explicitly (no
// package-level singletons), and runs until a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentineld/agent/internal/agent"
	apiserver "github.com/sentineld/agent/internal/api"
	"github.com/sentineld/agent/internal/config"
	"github.com/sentineld/agent/internal/eventlogger"
	"github.com/sentineld/agent/internal/llm"
	"github.com/sentineld/agent/internal/messaging"
	"github.com/sentineld/agent/internal/observability"
	"github.com/sentineld/agent/internal/prompt"
	"github.com/sentineld/agent/internal/runtime"
	"github.com/sentineld/agent/internal/scheduler"
	"github.com/sentineld/agent/internal/skills"
	"github.com/sentineld/agent/internal/toolbox"
	"github.com/sentineld/agent/internal/websearch"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "agent: "+err.Error())
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.Chdir(cfg.CWD); err != nil {
		return fmt.Errorf("chdir to %s: %w", cfg.CWD, err)
	}

	queue := scheduler.NewEventQueue(1024)

	var rt runtime.Runtime
	switch {
	case cfg.HasFirecracker():
		rt = runtime.NewFirecracker(runtime.FirecrackerConfig{
			KernelPath: cfg.Firecracker.KernelPath,
			RootFSPath: cfg.Firecracker.RootFSPath,
			VCPUs:      cfg.Firecracker.VCPUs,
			MemSizeMB:  cfg.Firecracker.MemSizeMB,
		})
	case cfg.HasContainer():
		rt = runtime.NewContainer(cfg.Container.Name, cfg.Container.Runtime, "/")
	default:
		rt = runtime.NewHost()
	}

	skillLoader := skills.NewLoader(cfg.SkillsDir)
	searcher := websearch.NewSearcher(websearch.Config{
		SearXNGURL:  cfg.WebSearch.SearXNGURL,
		BraveAPIKey: cfg.WebSearch.BraveAPIKey,
	})
	extractor := websearch.NewExtractor()

	metrics := observability.NewMetrics()

	toolRegistry := agent.NewToolRegistry(time.Duration(cfg.ToolTimeout) * time.Second)
	toolbox.RegisterDefaultTools(toolRegistry, rt, skillLoader, searcher, extractor)
	toolRegistry.SetMetrics(metrics)

	eventLog := eventlogger.New(eventlogger.Config{
		SinkURL:       cfg.EventLogger.SinkURL,
		APIKey:        cfg.EventLogger.APIKey,
		FlushInterval: time.Duration(cfg.EventLogger.FlushInterval) * time.Second,
		BatchSize:     cfg.EventLogger.BatchSize,
	}, logger)
	toolRegistry.SetEventSink(eventLog)

	chatMessaging := buildMessaging(cfg, queue, logger)

	llmClient := llm.New(cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.APIKey)
	llmClient.SetMetrics(metrics)
	llmAgent := agent.New(llmClient)

	promptBuilder := prompt.New(cfg.WorkspaceDir, skillLoader)

	var store scheduler.Store
	if cfg.HasDatabase() {
		sqliteStore, err := scheduler.NewSQLiteStore(cfg.Database.SinkPath)
		if err != nil {
			return fmt.Errorf("open conversation store: %w", err)
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	sched, err := scheduler.New(scheduler.Config{
		Queue:                 queue,
		Agent:                 llmAgent,
		BaseRegistry:          toolRegistry,
		Messaging:             chatMessaging,
		RegisterInstanceTools: toolbox.RegisterHumanInputTools(chatMessaging),
		PromptBuilder:         promptBuilder,
		Logger:                logger,
		ResponseLogger:        eventLog,
		Metrics:               metrics,
		Store:                 store,
		WakeInterval:          time.Duration(cfg.WakeIntervalSeconds) * time.Second,
		ContextMaxTokens:      cfg.ContextMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return eventLog.Run(groupCtx)
	})

	group.Go(func() error {
		if err := chatMessaging.Run(groupCtx); err != nil {
			logger.Error(groupCtx, "messaging adapter stopped", "error", err.Error())
		}
		return nil
	})

	if cfg.API.Enabled {
		httpServer := &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
			Handler: apiserver.New(queue, logger, metrics),
		}
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
		group.Go(func() error {
			logger.Info(groupCtx, "api server listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("api server: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		return sched.Run(groupCtx)
	})

	logger.Info(ctx, "agent started", "wake_interval_seconds", cfg.WakeIntervalSeconds)
	return group.Wait()
}

func buildMessaging(cfg *config.Config, queue *scheduler.EventQueue, logger *observability.Logger) messaging.Messaging {
	switch {
	case cfg.HasTelegram():
		return messaging.NewTelegram(messaging.TelegramConfig{
			BotToken:     cfg.Messaging.Telegram.BotToken,
			NotifyChatID: cfg.Messaging.Telegram.NotifyChatID,
		}, queue, logger)
	case cfg.HasDiscord():
		return messaging.NewDiscord(messaging.DiscordConfig{
			BotToken:        cfg.Messaging.Discord.BotToken,
			NotifyChannelID: cfg.Messaging.Discord.NotifyChannelID,
		}, queue, logger)
	default:
		return messaging.NewNull()
	}
}
