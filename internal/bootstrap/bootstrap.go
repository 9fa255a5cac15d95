package bootstrap

import (
	"context"
	"fmt"

	"github.com/fitconnect/mealscan/internal/config"
	"github.com/fitconnect/mealscan/internal/core/ports"
	"github.com/fitconnect/mealscan/internal/core/usecase"
	"github.com/fitconnect/mealscan/internal/infrastructure/capture/webcam"
	"github.com/fitconnect/mealscan/internal/infrastructure/catalog/sqlite"
	"github.com/fitconnect/mealscan/internal/infrastructure/classifier/llava"
	"github.com/fitconnect/mealscan/internal/infrastructure/classifier/vertex"
	"github.com/fitconnect/mealscan/internal/infrastructure/preprocess"
	"github.com/fitconnect/mealscan/internal/infrastructure/queue/nats"
	"github.com/fitconnect/mealscan/internal/infrastructure/repository/postgres"
	"github.com/fitconnect/mealscan/internal/infrastructure/resilience"
	"github.com/fitconnect/mealscan/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Meals ports.MealRepository
	Scans ports.ScanRepository

	IngestUC  ports.ScanIngestor
	ProcessUC ports.ScanProcessor
	SaveUC    ports.MealSaver
	LogUC     ports.MealLogger
	SummaryUC ports.MealReader
	Catalog   ports.FoodCatalog
	Store     ports.ImageStore
	Sessions  *usecase.ScanSessionFactory

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	mealRepo := postgres.NewMealRepository(db)
	if err := mealRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure meal schema: %w", err)
	}
	scanRepo := postgres.NewScanRepository(db)
	if err := scanRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure scan schema: %w", err)
	}

	store, err := localfs.New(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init image store: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSScanSubject, cfg.NATSMealSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	catalog, err := sqlite.New(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("open food catalog: %w", err)
	}

	classifier, closeClassifier, err := newClassifier(ctx, cfg, executor)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	cropper := preprocess.NewCropper(cfg.ScanFrameSide, cfg.ScanScreenWidth, cfg.ScanScreenHeight)
	camera := webcam.New(cfg.CameraDeviceID, cfg.ScanFrameSide, cfg.ScanScreenWidth, cfg.ScanScreenHeight)

	ingestUC := usecase.NewIngestScanUseCase(scanRepo, store, queue)
	processUC := usecase.NewProcessScanUseCase(scanRepo, store, cropper, classifier, cfg.ScanAcceptConfidence)
	saveUC := usecase.NewSaveMealUseCase(mealRepo, store, queue)
	logUC := usecase.NewLogMealUseCase(mealRepo, catalog, queue)
	summaryUC := usecase.NewSummaryUseCase(mealRepo)
	sessions := usecase.NewScanSessionFactory(camera, cropper, classifier, saveUC, cfg.ScanAcceptConfidence)

	return &App{
		Config: cfg,

		Queue: queue,
		Meals: mealRepo,
		Scans: scanRepo,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		SaveUC:    saveUC,
		LogUC:     logUC,
		SummaryUC: summaryUC,
		Catalog:   catalog,
		Store:     store,
		Sessions:  sessions,

		closeFn: func() {
			queue.Close()
			closeClassifier()
			_ = catalog.Close()
			_ = db.Close()
		},
	}, nil
}

func newClassifier(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.FoodClassifier, func(), error) {
	switch cfg.Classifier {
	case "vertex":
		cls, err := vertex.New(ctx, vertex.Config{
			ProjectID:       cfg.VertexProjectID,
			Location:        cfg.VertexLocation,
			Model:           cfg.VertexModel,
			CredentialsFile: cfg.VertexCredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return cls, func() { _ = cls.Close() }, nil
	case "llava":
		return llava.NewWithExecutor(cfg.LlavaURL, cfg.LlavaModel, executor), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown classifier backend %q", cfg.Classifier)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
