package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"timeline-agent/api/router"
	"timeline-agent/config"
	"timeline-agent/cycle"
	"timeline-agent/db"
	"timeline-agent/dispatch"
	"timeline-agent/enrichment"
	"timeline-agent/eventbus"
	"timeline-agent/events"
	"timeline-agent/ingest"
	"timeline-agent/metrics"
	"timeline-agent/pagesource"
	"timeline-agent/repositories"
	"timeline-agent/scheduler"
	"timeline-agent/selection"
	"timeline-agent/textservice"
)

func main() {
	once := flag.Bool("once", false, "run one learn/reply/post cycle and exit")
	flag.Parse()

	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx, cfg.Mongo); err != nil {
		config.Logger.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = db.Disconnect(shutdownCtx)
	}()
	store := repositories.NewStore(db.Database())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// EventBus 는 브로커가 설정된 경우에만 사용한다.
	var bus eventbus.Publisher = eventbus.NoopBus{}
	topic := eventbus.TopicAgentEvents
	if cfg.Kafka.Topic != "" {
		topic = eventbus.NewTopic(cfg.Kafka.Topic)
	}
	if brokers, ok := eventbus.LookupBrokers(); ok {
		if err := eventbus.EnsureTopics(brokers, topic, 3); err != nil {
			config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
		}
		kafkaBus, err := eventbus.NewKafkaEventBus(brokers)
		if err != nil {
			config.Logger.Errorf("failed to create event bus: %v", err)
			os.Exit(1)
		}
		bus = kafkaBus
	} else {
		config.Logger.Info("KAFKA_BOOTSTRAP_SERVERS not set, outcome events disabled")
	}
	defer bus.Close()
	emitter := events.NewEmitter(bus, topic)

	// Text Service
	quota := textservice.NewQuotaLimiter(cfg.TextQuota)
	svc, err := textservice.NewGeminiService(ctx, cfg.LLM, quota, repositories.NewAILogRepository(db.Database()))
	if err != nil {
		config.Logger.Errorf("failed to create text service: %v", err)
		os.Exit(1)
	}

	page, err := pagesource.NewChromePage(cfg.Browser)
	if err != nil {
		config.Logger.Errorf("failed to start browser: %v", err)
		os.Exit(1)
	}
	defer page.Close()

	policy, err := selection.PolicyFromConfig(cfg.Selection)
	if err != nil {
		config.Logger.Errorf("invalid selection policy: %v", err)
		os.Exit(1)
	}

	controller := ingest.NewController(store, enrichment.NewEngine(svc, cfg.Ingest.EnrichConcurrency, m), emitter, m)
	selector := selection.NewEngine(store, policy, cfg.Selection.CandidatePool, m)
	dispatcher := dispatch.NewDispatcher(svc, page, store, emitter, cfg.Dispatch, m)
	runner := cycle.NewRunner(page, controller, selector, dispatcher, cycle.OptionsFromConfig(cfg))

	if *once {
		if err := runner.RunOnce(ctx); err != nil {
			config.Logger.Errorf("cycle failed: %v", err)
			os.Exit(1)
		}
		return
	}

	driver, err := scheduler.NewDriver(cfg.Schedule, m, scheduler.RunnerJobs(runner, cfg.Schedule)...)
	if err != nil {
		config.Logger.Errorf("failed to create scheduler: %v", err)
		os.Exit(1)
	}
	if err := driver.Start(ctx); err != nil {
		config.Logger.Errorf("failed to start scheduler: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{Addr: cfg.API.Addr, Handler: router.New(store, reg)}

	// Graceful shutdown 설정
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		config.Logger.Infof("status api listening on %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Errorf("status api error: %v", err)
		}
	}()

	config.Logger.Info("timeline agent started")

	// 종료 신호 대기
	<-sigChan
	config.Logger.Info("received shutdown signal, shutting down timeline agent...")

	cancel()
	if err := driver.Stop(); err != nil {
		config.Logger.Errorf("scheduler shutdown error: %v", err)
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Logger.Errorf("status api shutdown error: %v", err)
	}
	wg.Wait()

	config.Logger.Info("timeline agent stopped")
}
