package factory

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/comic-spoiler/spoiler-detector/internal/auth"
	"github.com/comic-spoiler/spoiler-detector/internal/caption"
	"github.com/comic-spoiler/spoiler-detector/internal/config"
	"github.com/comic-spoiler/spoiler-detector/internal/genre"
	"github.com/comic-spoiler/spoiler-detector/internal/inference"
	"github.com/comic-spoiler/spoiler-detector/internal/repository"
	"github.com/comic-spoiler/spoiler-detector/internal/storage"
	"github.com/comic-spoiler/spoiler-detector/pkg/validation"
)

// StorageType represents where the model artifacts are read from
type StorageType string

const (
	// LocalStorage for a directory on disk
	LocalStorage StorageType = "local"
	// HTTPStorage for artifacts served over HTTP
	HTTPStorage StorageType = "http"
	// AzureStorage for an Azure blob container
	AzureStorage StorageType = "azure"
	// S3Storage for an S3 compatible bucket
	S3Storage StorageType = "s3"
)

// TextBackend represents the service answering caption and genre requests
type TextBackend string

const (
	// HuggingFaceBackend uses the hosted inference API (summarization + zero-shot)
	HuggingFaceBackend TextBackend = "huggingface"
	// GeminiBackend prompts a Gemini model for both tasks
	GeminiBackend TextBackend = "gemini"
)

// geminiLabelDistance is how far a free-text Gemini answer may be from a
// genre label and still count as that label.
const geminiLabelDistance = 2

// TextModels are the remote models behind the caption and genre stages
type TextModels struct {
	Backend    TextBackend
	Summarizer caption.Summarizer
	ZeroShot   genre.ZeroShot
	// FuzzyDistance is -1 when genre labels must match exactly
	FuzzyDistance int
	closer        io.Closer
}

// Close releases the backend client, if it holds one
func (t *TextModels) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

// VisionModels are the detection and embedding services used to count characters
type VisionModels struct {
	Detector *inference.DetectorClient
	Embedder *inference.EmbedderClient
}

// StorageFactory creates artifact sources
type StorageFactory interface {
	CreateStorage(cfg config.ArtifactsConfig) (storage.ArtifactSource, error)
}

// ModelFactory creates clients for the inference backends
type ModelFactory interface {
	CreateTextModels(ctx context.Context, cfg config.ModelsConfig) (*TextModels, error)
	CreateVisionModels(cfg config.ModelsConfig) (*VisionModels, error)
}

// AccountFactory creates the user repository and the session store
type AccountFactory interface {
	CreateUserRepository(ctx context.Context, cfg config.DatabaseConfig) (repository.UserRepository, error)
	CreateSessionStore(cfg config.SessionConfig) (auth.SessionStore, error)
}

type storageFactory struct {
	urls *validation.EndpointValidator
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{urls: validation.NewEndpointValidator()}
}

// CreateStorage creates an artifact source for the configured storage type
func (f *storageFactory) CreateStorage(cfg config.ArtifactsConfig) (storage.ArtifactSource, error) {
	switch StorageType(cfg.Source) {
	case LocalStorage:
		return storage.NewLocalSource(cfg.Location), nil
	case HTTPStorage:
		if err := f.urls.Validate("artifact", cfg.Location); err != nil {
			return nil, err
		}
		return storage.NewHTTPSource(cfg.Location), nil
	case AzureStorage:
		return storage.NewAzureSource(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer, cfg.Location)
	case S3Storage:
		return storage.NewS3Source(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.Location,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Source)
	}
}

type modelFactory struct {
	urls   *validation.EndpointValidator
	client *http.Client
}

// NewModelFactory creates a new model factory. With a nil client every
// backend gets its own client using the configured model timeout.
func NewModelFactory(client *http.Client) ModelFactory {
	return &modelFactory{urls: validation.NewEndpointValidator(), client: client}
}

func (f *modelFactory) httpOptions() []inference.Option {
	if f.client == nil {
		return nil
	}
	return []inference.Option{inference.WithHTTPClient(f.client)}
}

// CreateTextModels creates the summarizer and zero-shot classifier
func (f *modelFactory) CreateTextModels(ctx context.Context, cfg config.ModelsConfig) (*TextModels, error) {
	switch TextBackend(cfg.TextBackend) {
	case HuggingFaceBackend:
		if err := f.urls.Validate("huggingface", cfg.HuggingFaceURL); err != nil {
			return nil, err
		}
		hf := inference.NewHuggingFace(inference.HuggingFaceConfig{
			BaseURL:         cfg.HuggingFaceURL,
			Token:           cfg.HuggingFaceToken,
			SummarizerModel: cfg.SummarizerModel,
			ZeroShotModel:   cfg.ZeroShotModel,
			Timeout:         cfg.Timeout,
		}, f.httpOptions()...)
		return &TextModels{
			Backend:       HuggingFaceBackend,
			Summarizer:    hf,
			ZeroShot:      hf,
			FuzzyDistance: -1,
		}, nil
	case GeminiBackend:
		g, err := inference.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return &TextModels{
			Backend:       GeminiBackend,
			Summarizer:    g,
			ZeroShot:      g,
			FuzzyDistance: geminiLabelDistance,
			closer:        g,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported text backend: %s", cfg.TextBackend)
	}
}

// CreateVisionModels creates the detector and embedder clients
func (f *modelFactory) CreateVisionModels(cfg config.ModelsConfig) (*VisionModels, error) {
	if err := f.urls.Validate("detector", cfg.DetectorURL); err != nil {
		return nil, err
	}
	if err := f.urls.Validate("embedder", cfg.EmbedderURL); err != nil {
		return nil, err
	}
	opts := f.httpOptions()
	return &VisionModels{
		Detector: inference.NewDetectorClient(cfg.DetectorURL, cfg.Timeout, opts...),
		Embedder: inference.NewEmbedderClient(cfg.EmbedderURL, cfg.Timeout, opts...),
	}, nil
}

type accountFactory struct{}

// NewAccountFactory creates a new account factory
func NewAccountFactory() AccountFactory {
	return &accountFactory{}
}

// CreateUserRepository opens the configured database
func (f *accountFactory) CreateUserRepository(ctx context.Context, cfg config.DatabaseConfig) (repository.UserRepository, error) {
	switch cfg.Driver {
	case repository.DriverPostgres:
		return repository.OpenUsers(ctx, repository.DriverPostgres, cfg.PostgresDSN())
	case repository.DriverSQLite:
		return repository.OpenUsers(ctx, repository.DriverSQLite, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// CreateSessionStore creates the configured session store
func (f *accountFactory) CreateSessionStore(cfg config.SessionConfig) (auth.SessionStore, error) {
	switch cfg.Store {
	case "memory":
		return auth.NewMemoryStore(cfg.TTL), nil
	case "redis":
		return auth.NewRedisStore(auth.RedisOptions{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Store)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory StorageFactory
	ModelFactory   ModelFactory
	AccountFactory AccountFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		StorageFactory: NewStorageFactory(),
		ModelFactory:   NewModelFactory(nil),
		AccountFactory: NewAccountFactory(),
	}
}
