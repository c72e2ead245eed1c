package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-sorter/internal/config"
	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/core/ports"
	"github.com/kirillkom/document-sorter/internal/core/usecase"
	"github.com/kirillkom/document-sorter/internal/infrastructure/archive/zipper"
	"github.com/kirillkom/document-sorter/internal/infrastructure/extractor/document"
	"github.com/kirillkom/document-sorter/internal/infrastructure/nlp/language"
	"github.com/kirillkom/document-sorter/internal/infrastructure/nlp/ollama"
	"github.com/kirillkom/document-sorter/internal/infrastructure/ocr/openai"
	"github.com/kirillkom/document-sorter/internal/infrastructure/ocr/vision"
	"github.com/kirillkom/document-sorter/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-sorter/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/document-sorter/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
	"github.com/kirillkom/document-sorter/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	Service string
	Logger  *slog.Logger
	// Registerer receives batch metrics. Nil disables them.
	Registerer prometheus.Registerer
}

type App struct {
	Config config.Config

	Categorizer ports.Categorizer
	Executor    *resilience.Executor

	closeFn func()
}

// New validates cfg and constructs every backend client once. Missing
// credentials fail here rather than per file.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryMaxAttempts = cfg.RetryMaxAttempts
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(resilienceCfg).WithLogger(logger)

	var batchMetrics *metrics.BatchMetrics
	if opts.Registerer != nil {
		batchMetrics = metrics.NewBatchMetrics(opts.Service, opts.Registerer)
		executor.OnRetry(batchMetrics.ObserveRetry)
	}

	ocr, err := newOCRBackend(cfg, executor)
	if err != nil {
		return nil, err
	}
	extractor := document.NewExtractor(ocr, document.Options{
		PDFOCRFallback:   cfg.PDFOCRFallback,
		ImageMaxWidth:    cfg.ImageMaxWidth,
		ImageJPEGQuality: cfg.ImageJPEGQuality,
	}, logger)

	var annotator ports.Annotator
	if nlp := newNLPBackend(cfg, executor); nlp != nil {
		annotator = usecase.NewReportAnnotator(nlp)
	}

	var summary ports.SummaryWriter
	if cfg.ArchiveSummaryXLSX {
		summary = xlsx.NewSummaryWriter()
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var recorder ports.BatchRecorder
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		repo := postgres.NewBatchRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		recorder = repo
	}

	var publisher ports.EventPublisher
	if cfg.NATSURL != "" {
		queue, err := nats.NewPublisher(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, queue.Close)
		publisher = queue
	}

	categorizeUC := usecase.NewCategorizeUseCase(
		extractor,
		usecase.NewKeywordClassifier(),
		annotator,
		zipper.NewAssembler(cfg.ArchiveCompressionLevel),
		summary,
		recorder,
		publisher,
		domain.SortPolicy{
			Workers:               cfg.Workers,
			FileTimeout:           cfg.FileTimeout(),
			MaxFiles:              cfg.MaxFiles,
			SplitUnclassified:     cfg.SplitUnclassified,
			UnifyExtractionErrors: cfg.UnifyExtractionErrors,
			SummaryXLSX:           cfg.ArchiveSummaryXLSX,
		},
		logger,
	)

	logger.Info("bootstrap_ready",
		"ocr_provider", cfg.OCRProvider,
		"nlp_provider", cfg.NLPProvider,
		"workers", cfg.Workers,
		"audit_log", recorder != nil,
		"events", publisher != nil,
	)

	return &App{
		Config:      cfg,
		Categorizer: metrics.InstrumentCategorizer(categorizeUC, batchMetrics),
		Executor:    executor,
		closeFn:     closeAll,
	}, nil
}

func newOCRBackend(cfg config.Config, executor *resilience.Executor) (ports.OCRBackend, error) {
	switch cfg.OCRProvider {
	case config.OCRProviderVision:
		return vision.New(cfg.VisionEndpoint, cfg.VisionAPIKey, executor), nil
	case config.OCRProviderOpenAI:
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIOCRModel, executor), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider %q", cfg.OCRProvider)
	}
}

func newNLPBackend(cfg config.Config, executor *resilience.Executor) ports.NLPBackend {
	switch cfg.NLPProvider {
	case config.NLPProviderLanguage:
		return language.New(cfg.LanguageEndpoint, cfg.LanguageAPIKey, executor)
	case config.NLPProviderOllama:
		return ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, executor)
	default:
		return nil
	}
}

// Health reports circuit breaker states for /healthz.
func (a *App) Health() map[string]string {
	if a.Executor == nil {
		return nil
	}
	return a.Executor.States()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
