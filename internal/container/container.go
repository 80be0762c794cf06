package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/comic-spoiler/spoiler-detector/internal/artifacts"
	"github.com/comic-spoiler/spoiler-detector/internal/auth"
	"github.com/comic-spoiler/spoiler-detector/internal/caption"
	"github.com/comic-spoiler/spoiler-detector/internal/characters"
	"github.com/comic-spoiler/spoiler-detector/internal/config"
	"github.com/comic-spoiler/spoiler-detector/internal/factory"
	"github.com/comic-spoiler/spoiler-detector/internal/genre"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/observer"
	"github.com/comic-spoiler/spoiler-detector/internal/pipeline"
	"github.com/comic-spoiler/spoiler-detector/internal/repository"
	"github.com/comic-spoiler/spoiler-detector/internal/service"
	"github.com/comic-spoiler/spoiler-detector/internal/textextract"
	"github.com/comic-spoiler/spoiler-detector/internal/transport"
)

// Version is reported by /health and the CLI.
var Version = "1.0.0"

// Models bundles the loaded pipeline with the clients it owns
type Models struct {
	Pipeline  *pipeline.Pipeline
	Artifacts *artifacts.Set
	Vision    *factory.VisionModels
	Text      *factory.TextModels
	ocr       *textextract.Tesseract
}

// LoadModels connects the inference backends, loads the artifacts and
// assembles the pipeline. Any failure here is fatal for the process.
func LoadModels(ctx context.Context, cfg *config.Config, f *factory.ComponentFactory) (*Models, error) {
	source, err := f.StorageFactory.CreateStorage(cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("artifact storage: %w", err)
	}
	set, err := artifacts.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	text, err := f.ModelFactory.CreateTextModels(ctx, cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("text models: %w", err)
	}
	vision, err := f.ModelFactory.CreateVisionModels(cfg.Models)
	if err != nil {
		text.Close()
		return nil, fmt.Errorf("vision models: %w", err)
	}
	ocr, err := textextract.NewTesseract(cfg.OCR.Language, cfg.OCR.TessdataPrefix)
	if err != nil {
		text.Close()
		return nil, fmt.Errorf("ocr engine: %w", err)
	}

	p := pipeline.New(pipeline.Models{
		Text:       textextract.New(ocr),
		Caption:    caption.New(text.Summarizer),
		Genre:      genre.New(text.ZeroShot, genre.WithFuzzyMatching(text.FuzzyDistance)),
		Characters: characters.New(vision.Detector, vision.Embedder, cfg.Models.ClusterEps),
		Fuser:      set.Fuser(),
		Classifier: set.Model,
	})

	logger.WithFields(map[string]interface{}{
		"text_backend": text.Backend,
		"features":     set.Model.NumFeature(),
		"classes":      set.Model.NumClass(),
	}).Info("Spoiler pipeline ready")

	return &Models{
		Pipeline:  p,
		Artifacts: set,
		Vision:    vision,
		Text:      text,
		ocr:       ocr,
	}, nil
}

// CheckHealth probes the detector and embedder services
func (m *Models) CheckHealth(ctx context.Context) error {
	return errors.Join(
		wrapErr("detector", m.Vision.Detector.CheckHealth(ctx)),
		wrapErr("embedder", m.Vision.Embedder.CheckHealth(ctx)),
	)
}

// Close releases the OCR engine and the text backend
func (m *Models) Close() error {
	return errors.Join(m.ocr.Close(), m.Text.Close())
}

func wrapErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	models   *Models
	users    repository.UserRepository
	sessions auth.SessionStore
	pool     *service.WorkerPool
	metrics  *observer.MetricsObserver
	analysis service.AnalysisService
	accounts service.AccountService
	handler  http.Handler
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewContainer builds the full dependency graph for the HTTP service
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	f := factory.NewComponentFactory()

	models, err := LoadModels(ctx, cfg, f)
	if err != nil {
		return nil, err
	}

	c := &Container{config: cfg, models: models}
	if err := c.buildAccounts(ctx, f); err != nil {
		c.Close()
		return nil, err
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	c.metrics = observer.NewMetricsObserver()
	events.Subscribe(c.metrics)

	c.pool = service.NewWorkerPool(cfg.Models.InferenceWorkers)
	c.pool.Start()

	c.analysis, err = service.NewAnalysisService(models.Pipeline, c.pool, cfg.UploadDir, events)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.accounts = service.NewAccountService(c.users, c.sessions, auth.NewHasher(auth.DefaultArgon2Params), events)

	c.handler = transport.NewHandler(transport.Dependencies{
		Analysis: c.analysis,
		Accounts: c.accounts,
		Metrics:  c.metrics,
		Pool:     c.pool,
		Config:   cfg,
		Version:  Version,
	})
	return c, nil
}

func (c *Container) buildAccounts(ctx context.Context, f *factory.ComponentFactory) error {
	// The database may still be starting next to us.
	b := retry.WithMaxRetries(5, retry.NewFibonacci(1*time.Second))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		users, err := f.AccountFactory.CreateUserRepository(ctx, c.config.Database)
		if err != nil {
			logger.WithError(err).Warn("User database not ready, retrying")
			return retry.RetryableError(err)
		}
		c.users = users
		return nil
	})
	if err != nil {
		return fmt.Errorf("user repository: %w", err)
	}

	sessions, err := f.AccountFactory.CreateSessionStore(c.config.Sessions)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	c.sessions = sessions

	if p, ok := sessions.(pinger); ok {
		b := retry.WithMaxRetries(5, retry.NewFibonacci(1*time.Second))
		if err := retry.Do(ctx, b, func(ctx context.Context) error {
			if err := p.Ping(ctx); err != nil {
				logger.WithError(err).Warn("Session store not ready, retrying")
				return retry.RetryableError(err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("session store: %w", err)
		}
	}
	return nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close stops the worker pool and releases every client. Queued analyses
// finish first.
func (c *Container) Close() error {
	var errs []error
	if c.pool != nil {
		c.pool.Close()
		c.pool.Wait()
	}
	if c.users != nil {
		errs = append(errs, c.users.Close())
	}
	if closer, ok := c.sessions.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	if c.models != nil {
		errs = append(errs, c.models.Close())
	}
	return errors.Join(errs...)
}
