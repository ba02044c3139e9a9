// cmd/reminder-engine/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"reminder-engine/internal/channels"
	"reminder-engine/internal/common/clock"
	"reminder-engine/internal/common/config"
	"reminder-engine/internal/common/database"
	internalhttp "reminder-engine/internal/common/http"
	"reminder-engine/internal/common/logger"
	"reminder-engine/internal/common/observability"
	"reminder-engine/internal/executor"
	"reminder-engine/internal/models"
	"reminder-engine/internal/rules"
	"reminder-engine/internal/scheduler"
	"reminder-engine/internal/store/contacts"
	"reminder-engine/internal/store/inbox"
	"reminder-engine/internal/store/logs"
	"reminder-engine/internal/store/prefs"
	"reminder-engine/internal/store/reminders"
	"reminder-engine/internal/sweeper"
	"reminder-engine/internal/templates"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting reminder engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("reminder-engine")
	defer obs.Shutdown()

	ctx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	clk := clock.New()

	instanceID := cfg.App.InstanceID
	if instanceID == "" {
		host, _ := os.Hostname()
		instanceID = fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Stores ---
	reminderStore := reminders.NewStore(pg.DB, clk, log)
	logStore := logs.NewStore(pg.DB)
	contactStore := contacts.NewStore(pg.DB)
	inboxStore := inbox.NewStore(pg.DB)

	prefReader := prefs.NewCachedReader(
		prefs.NewStore(pg.DB),
		rdb.Client,
		time.Duration(cfg.Database.Redis.PreferenceCacheTTL)*time.Second,
		log,
	)

	var auditIndexer executor.AuditIndexer
	if esClient != nil {
		auditIndexer = logs.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.LogIndex, log)
	}

	// --- Rule registry + engine ---
	registry, err := rules.LoadRegistry(cfg.Rules.RegistryPath)
	if err != nil {
		zapLog.Fatal("rule registry load failed", zap.Error(err))
	}
	zapLog.Info("Rule registry loaded", zap.Strings("triggerTypes", registry.TriggerTypes()))

	ruleEngine := rules.NewEngine(
		registry,
		reminderStore,
		contactStore,
		templates.NewRenderer(),
		clk,
		log,
		cfg.Engine.MaxAttempts,
	)

	// --- Channel senders ---
	senderRegistry := channels.NewRegistry()

	if cfg.Channels.AWS.SES.Enabled || cfg.Channels.AWS.SNS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Channels.AWS.Region))
		if err != nil {
			zapLog.Fatal("AWS config load failed", zap.Error(err))
		}

		if cfg.Channels.AWS.SES.Enabled {
			senderRegistry.Register(
				channels.NewEmailSender(ses.NewFromConfig(awsCfg), cfg.Channels.AWS.SES.FromEmail),
				cfg.Channels.RatePerSecond, cfg.Channels.RateBurst,
			)
		}
		if cfg.Channels.AWS.SNS.Enabled {
			snsClient := sns.NewFromConfig(awsCfg)
			senderRegistry.Register(
				channels.NewSMSSender(snsClient, cfg.Channels.AWS.SNS.DefaultSMSSenderID),
				cfg.Channels.RatePerSecond, cfg.Channels.RateBurst,
			)
			if cfg.Channels.AWS.SNS.PushEnabled {
				senderRegistry.Register(
					channels.NewPushSender(snsClient),
					cfg.Channels.RatePerSecond, cfg.Channels.RateBurst,
				)
			}
		}
	}

	if cfg.Channels.WhatsApp.Enabled {
		waClient := internalhttp.NewClient(time.Duration(cfg.Channels.WhatsApp.Timeout) * time.Millisecond)
		senderRegistry.Register(
			channels.NewWhatsAppSender(waClient, cfg.Channels.WhatsApp.BaseURL, cfg.Channels.WhatsApp.APIToken),
			cfg.Channels.RatePerSecond, cfg.Channels.RateBurst,
		)
	}
	zapLog.Info("Channel senders registered", zap.Strings("channels", senderRegistry.Channels()))

	// --- Executor + scheduler + sweeper ---
	exec := executor.New(
		executor.Config{
			SendTimeout: cfg.Engine.GetSendTimeout(),
			Backoff: executor.BackoffPolicy{
				Strategy: cfg.Engine.Backoff.Strategy,
				Delay:    time.Duration(cfg.Engine.Backoff.Delay) * time.Minute,
				MaxDelay: time.Duration(cfg.Engine.Backoff.MaxDelay) * time.Minute,
			},
		},
		reminderStore,
		prefReader,
		logStore,
		auditIndexer,
		inboxStore,
		reminderStore,
		senderRegistry,
		clk,
		log,
	)

	sched := scheduler.New(
		scheduler.Config{
			InstanceID:   instanceID,
			TickInterval: cfg.Engine.GetTickInterval(),
			BatchSize:    cfg.Engine.BatchSize,
			PoolSize:     cfg.Engine.WorkerPoolSize,
			ClaimTTL:     cfg.Engine.GetClaimTTL(),
		},
		reminderStore, exec, clk, log, obs,
	)
	sched.Start(ctx)

	sweep := sweeper.New(
		sweeper.Config{
			SweepInterval:     cfg.Engine.GetSweepInterval(),
			RetentionDays:     cfg.Retention.Days,
			RetentionSchedule: cfg.Retention.Schedule,
		},
		reminderStore, logStore, clk, log,
	)
	if err := sweep.Start(ctx); err != nil {
		zapLog.Fatal("sweeper start failed", zap.Error(err))
	}

	// --- Ingestion, Health & Metrics Server ---
	go func() {
		http.HandleFunc("/v1/triggers", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			var ev models.TriggerEvent
			if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid trigger event payload"})
				return
			}
			if err := ruleEngine.OnTriggerEvent(r.Context(), ev); err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			w.WriteHeader(http.StatusAccepted)
		})
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Reminder engine started",
		zap.String("instanceId", instanceID),
		zap.Duration("tickInterval", cfg.Engine.GetTickInterval()),
		zap.Int("batchSize", cfg.Engine.BatchSize),
		zap.Int("workerPoolSize", cfg.Engine.WorkerPoolSize),
	)

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping engine...")
	cancelRoot()
	sched.Stop()
	sweep.Stop()

	zapLog.Info("Reminder engine stopped gracefully")
}
