package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"example.com/compliance-auditor/internal/bulk"
	"example.com/compliance-auditor/internal/config"
	"example.com/compliance-auditor/internal/document"
	"example.com/compliance-auditor/internal/eval"
	"example.com/compliance-auditor/internal/extract"
	"example.com/compliance-auditor/internal/httpapi"
	"example.com/compliance-auditor/internal/logging"
	"example.com/compliance-auditor/internal/metrics"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/source"
	"example.com/compliance-auditor/internal/store"
	"example.com/compliance-auditor/internal/suggest"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, nil)
	if cfg.Database.URL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	defaultTypes, err := model.ParseComplianceTypes(cfg.Compliance.DefaultTypes)
	if err != nil {
		logger.Fatal().Err(err).Msg("DEFAULT_COMPLIANCE_TYPES")
	}

	var gcs *storage.Client
	if c, err := storage.NewClient(ctx); err != nil {
		logger.Warn().Err(err).Msg("cloud storage unavailable, gs:// paths disabled")
	} else {
		gcs = c
		defer gcs.Close()
	}
	src := source.New(gcs, cfg.Server.MaxUploadBytes)

	docs := store.NewDocuments(db)
	rules := store.NewRules(db)
	jobs := store.NewJobs(db)
	checks := store.NewChecks(db)

	extractor := extract.NewService(src,
		extract.WithLogger(logging.Component(logger, "extract")),
		extract.WithMetrics(m),
		extract.WithRegistry(extract.DefaultRegistry(cfg.Extraction.DisabledDecoders...)),
	)
	assembler := document.NewAssembler(extractor, docs, document.WithLogger(logging.Component(logger, "document")))

	engine, err := eval.NewEngine(rules, docs,
		eval.WithLogger(logging.Component(logger, "eval")),
		eval.WithMetrics(m),
		eval.WithAuditor(checks),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("create engine")
	}

	var gen suggest.Generator = suggest.TemplateGenerator{}
	if cfg.Vertex.Enabled() {
		vg, err := suggest.NewVertexGenerator(ctx, cfg.Vertex.ProjectID, cfg.Vertex.Region, cfg.Vertex.Model, logging.Component(logger, "vertex"))
		if err != nil {
			logger.Fatal().Err(err).Msg("create vertex generator")
		}
		defer vg.Close()
		gen = vg
	}
	enricher := suggest.NewEnricher(docs, gen, logging.Component(logger, "suggest"), m)

	processor := bulk.NewProcessor(assembler, engine, jobs, bulk.Options{
		Workers:         cfg.Bulk.Workers,
		QueueSize:       cfg.Bulk.QueueSize,
		FileConcurrency: cfg.Bulk.FileConcurrency,
		Lister:          src,
	}, logging.Component(logger, "bulk"), m)
	processor.Start(ctx)
	if n, err := processor.Resume(ctx); err != nil {
		logger.Error().Err(err).Msg("resume bulk jobs")
	} else if n > 0 {
		logger.Info().Int("jobs", n).Msg("resumed bulk jobs")
	}

	httpLog := logging.Component(logger, "http")
	mux := http.NewServeMux()
	httpapi.Routes(mux,
		&httpapi.DocumentHandler{
			Docs:         docs,
			Ingest:       assembler,
			Engine:       engine,
			Suggester:    enricher,
			Uploads:      src,
			UploadDir:    cfg.Server.UploadDir,
			MaxUpload:    cfg.Server.MaxUploadBytes,
			DefaultTypes: defaultTypes,
			Logger:       httpLog,
		},
		&httpapi.RuleHandler{Rules: rules, Engine: engine, Logger: httpLog},
		&httpapi.JobHandler{Jobs: processor, DefaultTypes: defaultTypes, Logger: httpLog},
	)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           accessLog(httpLog, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Strs("formats", extractor.Formats()).
		Bool("vertex", cfg.Vertex.Enabled()).
		Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
	processor.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
