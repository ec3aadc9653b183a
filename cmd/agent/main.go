// Command agent is the process entrypoint: it wires every component into
// one running process and serves the HTTP control surface, ground:
// cmd/apiserver/main.go's env-loading, sequential-construction, and
// graceful-shutdown idiom.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fntelecomllc/kbagent/internal/agentcontroller"
	"github.com/fntelecomllc/kbagent/internal/config"
	"github.com/fntelecomllc/kbagent/internal/etc"
	"github.com/fntelecomllc/kbagent/internal/eventbus"
	"github.com/fntelecomllc/kbagent/internal/httpapi"
	"github.com/fntelecomllc/kbagent/internal/itemstore"
	"github.com/fntelecomllc/kbagent/internal/logging"
	"github.com/fntelecomllc/kbagent/internal/modelrouter"
	"github.com/fntelecomllc/kbagent/internal/models"
	"github.com/fntelecomllc/kbagent/internal/observability"
	"github.com/fntelecomllc/kbagent/internal/pipeline"
	"github.com/fntelecomllc/kbagent/internal/planner"
	"github.com/fntelecomllc/kbagent/internal/retry"
	"github.com/fntelecomllc/kbagent/internal/scheduler"
	"github.com/fntelecomllc/kbagent/internal/statsstore"
	"github.com/fntelecomllc/kbagent/internal/taskruntime"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "./.env"} {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
	log.Println("Warning: could not load .env file from any candidate path; relying on process environment")
}

func buildDSN(cfg *config.AppConfig) string {
	if cfg.Storage.DSN != "" {
		return cfg.Storage.DSN
	}
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", "kbagent")
	password := getenv("DB_PASSWORD", "kbagent_dev_password")
	name := getenv("DB_NAME", "kbagent_dev")
	sslMode := getenv("DB_SSLMODE", "disable")
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode)
}

// defaultModelBindings seeds every AI-bound phase with a placeholder
// "local" binding so a fresh install can run end to end without first
// hand-authoring a model_bindings file. A configured file always wins.
func defaultModelBindings() []modelrouter.Binding {
	caps := modelrouter.Capabilities{SupportsVision: true, SupportsStreaming: true, EmbeddingDimensions: 1536}
	phases := []models.PhaseID{
		models.PhaseMediaAnalysis,
		models.PhaseContentUnderstanding,
		models.PhaseCategorization,
		models.PhaseSynthesisGeneration,
		models.PhaseEmbeddingGeneration,
	}
	bindings := make([]modelrouter.Binding, 0, len(phases))
	for _, phase := range phases {
		bindings = append(bindings, modelrouter.Binding{Phase: phase, Backend: "local", Model: "local", Capabilities: caps})
	}
	return bindings
}

func main() {
	loadDotEnv()

	bootLogger := logging.New(os.Stdout, logging.LevelInfo)
	cfg, err := config.Load(getenv("KBAGENT_CONFIG", "config.json"), bootLogger)
	if err != nil {
		log.Printf("Warning: config load failed, continuing with defaults: %v", err)
	}
	if cfg == nil {
		cfg = config.Default()
	}

	logLevel := logging.Level(cfg.Logging.Level)
	if logLevel == "" {
		logLevel = logging.LevelInfo
	}
	rootLogger := logging.New(os.Stdout, logLevel)

	bus := eventbus.New(eventbus.DefaultBacklog, rootLogger)
	rootLogger = rootLogger.AddSink(eventbus.NewLogSink(bus))
	log.Println("EventBus initialized.")

	dsn := buildDSN(cfg)
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Storage.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	log.Println("Database connection established.")

	itemStore := itemstore.NewPostgresStore(db)
	log.Println("ItemStore initialized.")
	statsStore := statsstore.NewPostgresStore(db)
	log.Println("StatsStore initialized.")
	scheduleStore := scheduler.NewPostgresStore(db)
	log.Println("Schedule store initialized.")

	bindings, err := modelrouter.Load(cfg.ModelBindings.ConfigDir, cfg.ModelBindings.Filename)
	if err != nil {
		log.Fatalf("Failed to load model bindings: %v", err)
	}
	if len(bindings) == 0 {
		bindings = defaultModelBindings()
		log.Println("No model_bindings file found; using built-in placeholder bindings.")
	}
	router := modelrouter.New(bindings)
	log.Println("ModelRouter initialized.")

	estimator := etc.New(statsStore)
	log.Println("ETCEstimator initialized.")

	retryMgr := retry.New(retry.Policy{
		MaxRetries:        cfg.Retry.MaxRetries,
		BaseDelay:         time.Duration(cfg.Retry.BaseDelaySeconds * float64(time.Second)),
		MaxDelay:          time.Duration(cfg.Retry.MaxDelaySeconds * float64(time.Second)),
		ExponentialFactor: cfg.Retry.ExponentialFactor,
		JitterEnabled:     cfg.Retry.JitterEnabled,
		Strategy:          models.RetryStrategyEnum(cfg.Retry.Strategy),
		BreakerCooloff:    time.Duration(cfg.Retry.CircuitBreakerCooloffMinutes) * time.Minute,
	})
	log.Println("RetryManager initialized.")

	plnr := planner.New()
	log.Println("PhasePlanner initialized.")

	tracerProvider, err := observability.InitTracer("kbagent", os.Getenv("TRACING_BACKEND_URL"))
	if err != nil {
		log.Printf("Warning: tracer init failed, continuing without tracing: %v", err)
	}
	tracer := otel.Tracer("kbagent")
	log.Println("Tracer initialized.")

	metrics := observability.NewPipelineMetrics(nil)
	log.Println("Metrics collector initialized.")

	engine := pipeline.New(itemStore, plnr, router, estimator, retryMgr, bus, rootLogger, pipeline.LocalBackends(), cfg.Worker.PerItemFanout)
	engine.Metrics = metrics
	engine.Tracer = tracer
	log.Println("PipelineEngine initialized.")

	runtimeCfg := taskruntime.DefaultConfig()
	for q, qc := range runtimeCfg.Queues {
		if n := cfg.Worker.PoolSizes[string(q)]; n > 0 {
			qc.Workers = n
		}
		if rl, ok := cfg.RateLimiter.PerQueue[string(q)]; ok && rl.PerMinute > 0 {
			qc.PerMinute, qc.Burst = rl.PerMinute, rl.Burst
		}
		runtimeCfg.Queues[q] = qc
	}
	runtimeCfg.HeartbeatInterval = time.Duration(cfg.Heartbeat.IntervalSeconds) * time.Second
	runtimeCfg.DeadWorkerFactor = cfg.Heartbeat.DeadWorkerMultiplier
	runtimeCfg.TaskRetentionPeriod = time.Duration(cfg.TaskRetentionDays) * 24 * time.Hour
	runtime :=taskruntime.New(runtimeCfg, nil, eventbus.NewTaskRuntimeAdapter(bus), rootLogger)
	log.Println("TaskRuntime initialized.")

	controller := agentcontroller.New(engine, runtime)
	log.Println("AgentController initialized.")

	sched := scheduler.New(scheduleStore, controller, rootLogger, time.Minute)
	log.Println("Scheduler initialized.")

	resourceMonitor := observability.NewResourceMonitor(30*time.Second, "/", eventbus.NewObservabilityAdapter(bus))
	log.Println("ResourceMonitor initialized.")

	handler := &httpapi.Handler{
		Controller: controller,
		Runtime:    runtime,
		Items:      itemStore,
		Schedules:  scheduleStore,
		Bus:        bus,
		Metrics:    metrics,
		Logger:     rootLogger,
	}
	ginEngine := httpapi.NewRouter(handler, cfg.Server.GinMode)
	log.Println("HTTP router initialized.")

	appCtx, appCancel := context.WithCancel(context.Background())
	runtime.Start(appCtx)
	go sched.Run(appCtx)
	go resourceMonitor.Run(appCtx)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      ginEngine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		log.Printf("Agent listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, draining...")

	appCancel()
	runtime.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if tracerProvider != nil {
		_ = tracerProvider.Shutdown(shutdownCtx)
	}
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Agent exited gracefully.")
}
