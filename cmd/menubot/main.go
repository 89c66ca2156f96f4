// cmd/menubot/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"menubot/internal/bridge"
	"menubot/internal/command"
	"menubot/internal/common/aws"
	"menubot/internal/common/config"
	"menubot/internal/common/database"
	"menubot/internal/common/logger"
	"menubot/internal/common/observability"
	"menubot/internal/gateway"
	"menubot/internal/menu"
	"menubot/internal/notify"
	"menubot/internal/scheduler"
	"menubot/internal/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting menubot", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
		"peer":        cfg.Gateway.Peer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.NewMetrics(cfg.App.Name)
	if err != nil {
		log.Error("failed to initialize observability", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// Gateway transport
	gatewayClient := mustRedisClient(cfg.Gateway.Redis, log)
	gw := gateway.NewRedisGateway(gatewayClient, cfg.Gateway, cfg.App.Name, log)

	br := bridge.New(gw, cfg.Gateway.Peer, config.GetDuration(cfg.Bridge.Timeout), log)
	gw.OnMessage(br.HandleMessage)

	cache := menu.NewCache(br, menu.Queries{
		Today:    cfg.Menu.QueryToday,
		Tomorrow: cfg.Menu.QueryTomorrow,
	}, log)

	store, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize subscription store", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	sender, err := buildSender(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize notification sender", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	handlers := command.New(cache, store, cfg.IsAdmin, obs, log)

	if err := gw.Start(ctx); err != nil {
		log.Error("failed to start chat gateway", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// Warm the cache before the scheduler so the first tick does not race
	// a cold fetch against user commands.
	sched := scheduler.New(store, cache, sender, config.GetDuration(cfg.Scheduler.TickInterval), log)
	go func() {
		cache.Warm(ctx)
		sched.Run(ctx)
	}()

	srv := newHTTPServer(cfg.HTTP.Address, handlers, log)
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := gw.Stop(); err != nil {
		log.Warn("gateway shutdown failed", map[string]interface{}{"error": err.Error()})
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Warn("observability shutdown failed", map[string]interface{}{"error": err.Error()})
	}

	log.Info("menubot stopped", nil)
}

// mustRedisClient connects with backoff; redis may come up after us.
func mustRedisClient(cfg config.RedisConfig, log logger.Logger) *redis.Client {
	var client *redis.Client
	err := retryWithBackoff(5, time.Second, func() error {
		c, err := database.NewRedisClient(cfg)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, log)
	if err != nil {
		log.Error("failed to connect to redis", map[string]interface{}{
			"address": cfg.Address,
			"error":   err.Error(),
		})
		os.Exit(1)
	}
	return client
}

func buildStore(ctx context.Context, cfg *config.Config, log logger.Logger) (subscription.Store, error) {
	switch cfg.Store.Backend {
	case "file":
		return subscription.NewFileStore(cfg.Store.FilePath, log)
	case "redis":
		client := mustRedisClient(cfg.Store.Redis, log)
		return subscription.NewRedisStore(ctx, client, log)
	case "postgres":
		db, err := database.NewPostgresDB(cfg.Store.Postgres)
		if err != nil {
			return nil, err
		}
		return subscription.NewPostgresStore(ctx, db, log)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func buildSender(ctx context.Context, cfg *config.Config, log logger.Logger) (notify.Sender, error) {
	switch cfg.Notifier.Channel {
	case "log":
		return notify.NewLogSender(log), nil
	case "sns":
		client, err := aws.NewSNSClient(ctx, cfg.Notifier.AWS.Region, cfg.Notifier.AWS.SNS.DefaultSMSSenderID, log)
		if err != nil {
			return nil, err
		}
		return notify.NewSNSSender(client), nil
	case "ses":
		client, err := aws.NewSESClient(ctx, cfg.Notifier.AWS.Region, cfg.Notifier.AWS.SES.FromEmail, log)
		if err != nil {
			return nil, err
		}
		return notify.NewSESSender(client, cfg.Notifier.AWS.SES.Subject), nil
	default:
		return nil, fmt.Errorf("unsupported notifier channel %q", cfg.Notifier.Channel)
	}
}

type commandRequest struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type commandResponse struct {
	Reply string `json:"reply"`
}

func newHTTPServer(address string, handlers *command.Handlers, log logger.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req commandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Sender == "" {
			http.Error(w, "sender is required", http.StatusBadRequest)
			return
		}

		reply := handlers.Dispatch(r.Context(), req.Sender, req.Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(commandResponse{Reply: reply})
	})

	return &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// retryWithBackoff retries fn with exponential backoff.
func retryWithBackoff(attempts int, initialDelay time.Duration, fn func() error, log logger.Logger) error {
	var err error
	delay := initialDelay

	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn("attempt failed, retrying", map[string]interface{}{
			"attempt": i,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
		time.Sleep(delay)
		delay *= 2
	}

	return err
}
