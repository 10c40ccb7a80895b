// Package main is the entry point for the support bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/config"
	"github.com/steveluke1457/Mr-Bot/internal/conversation"
	"github.com/steveluke1457/Mr-Bot/internal/cooldown"
	"github.com/steveluke1457/Mr-Bot/internal/counting"
	"github.com/steveluke1457/Mr-Bot/internal/discord"
	"github.com/steveluke1457/Mr-Bot/internal/handler"
	"github.com/steveluke1457/Mr-Bot/internal/llm"
	natsclient "github.com/steveluke1457/Mr-Bot/internal/nats"
	"github.com/steveluke1457/Mr-Bot/internal/platform"
	"github.com/steveluke1457/Mr-Bot/internal/scheduler"
	"github.com/steveluke1457/Mr-Bot/internal/service"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
	"github.com/steveluke1457/Mr-Bot/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("bot exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting support bot")

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "mr-bot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	// Lifecycle events are optional; without NATS they are dropped.
	var (
		publisher  ticket.Publisher = ticket.NopPublisher{}
		events     handler.EventSource
		natsStatus handler.Checker
	)
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "mr-bot",
		}, log)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient, cfg.EventsMaxAge)
		if err := streamManager.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensuring event stream: %w", err)
		}
		publisher, events, natsStatus = streamManager, streamManager, natsClient
	}

	clock := clockwork.NewRealClock()

	gateway, err := discord.New(discord.Config{
		Token:         cfg.DiscordToken,
		GuildID:       cfg.GuildID,
		HelpChannelID: cfg.HelpChannelID,
		EventTimeout:  cfg.EventTimeout,
	}, log)
	if err != nil {
		return err
	}

	sched := scheduler.NewDelayed(clock, log.Named("scheduler"))
	guard := cooldown.NewGuard(cfg.CooldownWindow)

	manager := ticket.NewManager(ticket.Config{
		ParentCategory:  cfg.TicketCategory,
		StaffRoles:      cfg.StaffRoleIDs,
		Naming:          platform.NamingMode(cfg.TicketNaming),
		Greeting:        cfg.TicketGreeting,
		ClosingNotice:   "🔒 Ticket closed. Thank you!",
		CloseGrace:      cfg.CloseGrace,
		SuspendDuration: cfg.SuspendDuration,
		SuspendReason:   "Ticket spam",
	}, guard, gateway, sched, clock, publisher, log)

	reaper := ticket.NewReaper(manager, ticket.ReaperConfig{
		Interval:      cfg.ReaperInterval,
		IdleThreshold: cfg.ReaperIdle,
		Grace:         cfg.ReaperGrace,
		Notice:        cfg.ReaperNotice,
	}, clock, log)

	var buffer *conversation.Buffer
	if cfg.AIRepliesEnabled {
		buffer, err = newBuffer(cfg, clock, log)
		if err != nil {
			return err
		}
	}

	support := service.NewSupportService(service.SupportConfig{
		ChunkMaxLen:     cfg.ChunkMaxLen,
		SuspendDuration: cfg.SuspendDuration,
		ForceCloseGrace: cfg.ForceCloseGrace,
	}, manager, buffer, gateway, log)

	var countingSvc *service.CountingService
	if len(cfg.CountingChannels) > 0 {
		countingSvc = service.NewCountingService(counting.NewValidator(), gateway, cfg.CountingChannels, log)
	}

	housekeeping := scheduler.NewCron(log.Named("cron"))
	if err := housekeeping.AddJob("prune-cooldowns", cfg.HousekeepingSchedule, func() {
		guard.Prune(clock.Now())
	}); err != nil {
		return err
	}
	if buffer != nil {
		if err := housekeeping.AddJob("prune-conversations", cfg.HousekeepingSchedule, func() {
			buffer.Prune(clock.Now())
		}); err != nil {
			return err
		}
	}

	gateway.Bind(support, countingSvc)
	if err := gateway.Open(ctx); err != nil {
		return err
	}

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Checker{
			"gateway": handler.CheckerFunc(gateway.Connected),
			"nats":    natsStatus,
		}),
		Tickets:   handler.NewTicketHandler(manager, support, events, log),
		Scheduled: handler.NewScheduledHandler(sched, housekeeping),
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		reaper.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = housekeeping.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("admin server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error("admin server error", zap.Error(err))
		stop()
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	reaper.Stop()
	wg.Wait()

	// pending channel deletions are dropped; the channels stay behind
	sched.Stop()

	if err := gateway.Close(); err != nil {
		log.Warn("failed to close gateway", zap.Error(err))
	}

	log.Info("bot stopped")
	return nil
}

func newBuffer(cfg *config.Config, clock clockwork.Clock, log *logger.Logger) (*conversation.Buffer, error) {
	apiKey := cfg.OpenAIAPIKey
	if cfg.LLMProvider == string(llm.ProviderAnthropic) {
		apiKey = cfg.AnthropicAPIKey
	}
	client, err := llm.New(llm.Config{
		Provider: llm.Provider(cfg.LLMProvider),
		APIKey:   apiKey,
		BaseURL:  cfg.OpenAIBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}

	keyMode, err := conversation.ParseKeyMode(cfg.ConversationKeyMode)
	if err != nil {
		return nil, err
	}

	log.Info("ai replies enabled",
		zap.String("provider", client.Name()),
		zap.String("key_mode", string(keyMode)),
	)
	return conversation.NewBuffer(conversation.Config{
		MaxEntries:     cfg.ConversationMaxSize,
		KeyMode:        keyMode,
		Expiry:         cfg.ConversationExpiry,
		Retention:      cfg.ConversationRetention,
		FailureText:    cfg.FailureText,
		RecordFailures: cfg.RecordFailures,
		SystemPrompt:   cfg.SystemPrompt,
		Model:          cfg.LLMModel,
		MaxTokens:      cfg.LLMMaxTokens,
		Timeout:        cfg.LLMTimeout,
	}, client, clock, log), nil
}
