package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Host               string        `toml:"host"`
	Port               string        `toml:"port"`
	LogLevel           string        `toml:"log_level"`
	RequestTimeout     time.Duration `toml:"-"`
	MaxRequestBodySize int64         `toml:"max_request_body_size"`
	UploadDir          string        `toml:"upload_dir"`
	CORSOrigins        []string      `toml:"cors_origins"`

	// Durations are written as strings ("30s") in the config file.
	RequestTimeoutRaw string `toml:"request_timeout"`

	Database  DatabaseConfig  `toml:"database"`
	Sessions  SessionConfig   `toml:"sessions"`
	Models    ModelsConfig    `toml:"models"`
	OCR       OCRConfig       `toml:"ocr"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
}

// DatabaseConfig selects where user accounts live.
type DatabaseConfig struct {
	Driver     string `toml:"driver"` // "postgres" or "sqlite"
	DSN        string `toml:"dsn"`
	Host       string `toml:"host"`
	Port       string `toml:"port"`
	Name       string `toml:"name"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	SQLitePath string `toml:"sqlite_path"`
}

// SessionConfig controls the login session store and cookie.
type SessionConfig struct {
	Store         string        `toml:"store"` // "memory" or "redis"
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	TTL           time.Duration `toml:"-"`
	TTLRaw        string        `toml:"ttl"`
	CookieName    string        `toml:"cookie_name"`
	CookieSecure  bool          `toml:"cookie_secure"`
}

// ModelsConfig points at the remote inference backends.
type ModelsConfig struct {
	TextBackend      string        `toml:"text_backend"` // "huggingface" or "gemini"
	HuggingFaceURL   string        `toml:"huggingface_url"`
	HuggingFaceToken string        `toml:"huggingface_token"`
	SummarizerModel  string        `toml:"summarizer_model"`
	ZeroShotModel    string        `toml:"zero_shot_model"`
	GeminiAPIKey     string        `toml:"gemini_api_key"`
	GeminiModel      string        `toml:"gemini_model"`
	DetectorURL      string        `toml:"detector_url"`
	EmbedderURL      string        `toml:"embedder_url"`
	Timeout          time.Duration `toml:"-"`
	TimeoutRaw       string        `toml:"timeout"`
	InferenceWorkers int           `toml:"inference_workers"`
	ClusterEps       float64       `toml:"cluster_eps"`
}

// OCRConfig configures Tesseract.
type OCRConfig struct {
	Language       string `toml:"language"`
	TessdataPrefix string `toml:"tessdata_prefix"`
}

// ArtifactsConfig locates the pre-fit vectorizer, encoder and classifier.
type ArtifactsConfig struct {
	Source         string `toml:"source"` // "local", "http", "azure" or "s3"
	Location       string `toml:"location"`
	AzureAccount   string `toml:"azure_account"`
	AzureKey       string `toml:"azure_key"`
	AzureContainer string `toml:"azure_container"`
	S3Endpoint     string `toml:"s3_endpoint"`
	S3Region       string `toml:"s3_region"`
	S3Bucket       string `toml:"s3_bucket"`
	S3AccessKey    string `toml:"s3_access_key"`
	S3SecretKey    string `toml:"s3_secret_key"`
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "5000",
		LogLevel:           "info",
		RequestTimeout:     120 * time.Second,
		MaxRequestBodySize: 16 * 1024 * 1024, // 16MB
		UploadDir:          "uploads",
		CORSOrigins:        []string{"http://localhost:3000"},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Port:       "5432",
			SQLitePath: "users.db",
		},
		Sessions: SessionConfig{
			Store:      "memory",
			RedisAddr:  "localhost:6379",
			TTL:        24 * time.Hour,
			CookieName: "spoiler_session",
		},
		Models: ModelsConfig{
			TextBackend:      "huggingface",
			HuggingFaceURL:   "https://api-inference.huggingface.co",
			SummarizerModel:  "facebook/bart-large-cnn",
			ZeroShotModel:    "facebook/bart-large-mnli",
			GeminiModel:      "gemini-2.5-flash",
			DetectorURL:      "http://localhost:8001/detect",
			EmbedderURL:      "http://localhost:8002/represent",
			Timeout:          60 * time.Second,
			InferenceWorkers: 2,
			ClusterEps:       0.5,
		},
		OCR: OCRConfig{
			Language: "eng",
		},
		Artifacts: ArtifactsConfig{
			Source:   "local",
			Location: "models",
			S3Region: "us-east-1",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional TOML file and finally the process environment.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForModels is Load for tools that only run the pipeline. Database and
// session settings are not validated.
func LoadForModels(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateModels(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()

	if path == "" {
		path = os.Getenv("SPOILER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := cfg.resolveDurations(); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadFromEnv loads configuration without a config file.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) resolveDurations() error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", c.RequestTimeoutRaw, &c.RequestTimeout},
		{"sessions.ttl", c.Sessions.TTLRaw, &c.Sessions.TTL},
		{"models.timeout", c.Models.TimeoutRaw, &c.Models.Timeout},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.raw) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(f.raw))
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Host = getEnvOrDefault("HOST", cfg.Host)
	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", cfg.MaxRequestBodySize)
	cfg.UploadDir = getEnvOrDefault("UPLOAD_DIR", cfg.UploadDir)
	cfg.CORSOrigins = parseListOrDefault("CORS_ORIGINS", cfg.CORSOrigins)

	db := &cfg.Database
	db.Driver = getEnvOrDefault("DB_DRIVER", db.Driver)
	db.DSN = getEnvOrDefault("DATABASE_URL", db.DSN)
	db.Host = getEnvOrDefault("DB_HOST", db.Host)
	db.Port = getEnvOrDefault("DB_PORT", db.Port)
	db.Name = getEnvOrDefault("DB_NAME", db.Name)
	db.User = getEnvOrDefault("DB_USER", db.User)
	db.Password = getEnvOrDefault("DB_PASSWORD", db.Password)
	db.SQLitePath = getEnvOrDefault("SQLITE_PATH", db.SQLitePath)

	s := &cfg.Sessions
	s.Store = getEnvOrDefault("SESSION_STORE", s.Store)
	s.RedisAddr = getEnvOrDefault("REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", s.RedisPassword)
	s.RedisDB = int(parseIntOrDefault("REDIS_DB", int64(s.RedisDB)))
	s.TTL = parseDurationOrDefault("SESSION_TTL", s.TTL)
	s.CookieName = getEnvOrDefault("SESSION_COOKIE", s.CookieName)
	s.CookieSecure = parseBoolOrDefault("SESSION_COOKIE_SECURE", s.CookieSecure)

	m := &cfg.Models
	m.TextBackend = getEnvOrDefault("TEXT_BACKEND", m.TextBackend)
	m.HuggingFaceURL = getEnvOrDefault("HF_API_URL", m.HuggingFaceURL)
	m.HuggingFaceToken = getEnvOrDefault("HF_API_TOKEN", m.HuggingFaceToken)
	m.SummarizerModel = getEnvOrDefault("SUMMARIZER_MODEL", m.SummarizerModel)
	m.ZeroShotModel = getEnvOrDefault("ZERO_SHOT_MODEL", m.ZeroShotModel)
	m.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", m.GeminiAPIKey)
	m.GeminiModel = getEnvOrDefault("GEMINI_MODEL", m.GeminiModel)
	m.DetectorURL = getEnvOrDefault("DETECTOR_URL", m.DetectorURL)
	m.EmbedderURL = getEnvOrDefault("EMBEDDER_URL", m.EmbedderURL)
	m.Timeout = parseDurationOrDefault("MODEL_TIMEOUT", m.Timeout)
	m.InferenceWorkers = int(parseIntOrDefault("INFERENCE_WORKERS", int64(m.InferenceWorkers)))
	m.ClusterEps = parseFloatOrDefault("CLUSTER_EPS", m.ClusterEps)

	cfg.OCR.Language = getEnvOrDefault("OCR_LANGUAGE", cfg.OCR.Language)
	cfg.OCR.TessdataPrefix = getEnvOrDefault("TESSDATA_PREFIX", cfg.OCR.TessdataPrefix)

	a := &cfg.Artifacts
	a.Source = getEnvOrDefault("ARTIFACT_SOURCE", a.Source)
	a.Location = getEnvOrDefault("ARTIFACT_LOCATION", a.Location)
	a.AzureAccount = getEnvOrDefault("AZURE_STORAGE_ACCOUNT", a.AzureAccount)
	a.AzureKey = getEnvOrDefault("AZURE_STORAGE_KEY", a.AzureKey)
	a.AzureContainer = getEnvOrDefault("AZURE_STORAGE_CONTAINER", a.AzureContainer)
	a.S3Endpoint = getEnvOrDefault("S3_ENDPOINT", a.S3Endpoint)
	a.S3Region = getEnvOrDefault("S3_REGION", a.S3Region)
	a.S3Bucket = getEnvOrDefault("S3_BUCKET", a.S3Bucket)
	a.S3AccessKey = getEnvOrDefault("S3_ACCESS_KEY", a.S3AccessKey)
	a.S3SecretKey = getEnvOrDefault("S3_SECRET_KEY", a.S3SecretKey)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.Models.Timeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, model=%s)", c.RequestTimeout, c.Models.Timeout)
	}
	if strings.TrimSpace(c.UploadDir) == "" {
		return errors.New("UPLOAD_DIR must not be empty")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			return errors.New("postgres requires DATABASE_URL or DB_HOST")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Sessions.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.Sessions.Store)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0 (got %s)", c.Sessions.TTL)
	}

	return c.ValidateModels()
}

// ValidateModels checks the inference backends, artifact source and OCR
// settings.
func (c *Config) ValidateModels() error {
	if c.Models.Timeout <= 0 {
		return fmt.Errorf("MODEL_TIMEOUT must be > 0 (got %s)", c.Models.Timeout)
	}

	switch c.Models.TextBackend {
	case "huggingface":
	case "gemini":
		if c.Models.GeminiAPIKey == "" {
			return errors.New("gemini text backend requires GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported TEXT_BACKEND %q", c.Models.TextBackend)
	}
	if c.Models.InferenceWorkers < 1 {
		return fmt.Errorf("INFERENCE_WORKERS must be >= 1 (got %d)", c.Models.InferenceWorkers)
	}
	if c.Models.ClusterEps <= 0 {
		return fmt.Errorf("CLUSTER_EPS must be > 0 (got %v)", c.Models.ClusterEps)
	}

	switch c.Artifacts.Source {
	case "local", "http":
		if c.Artifacts.Location == "" {
			return fmt.Errorf("%s artifact source requires ARTIFACT_LOCATION", c.Artifacts.Source)
		}
	case "azure":
		if c.Artifacts.AzureAccount == "" || c.Artifacts.AzureKey == "" || c.Artifacts.AzureContainer == "" {
			return errors.New("azure artifact source requires account, key and container")
		}
	case "s3":
		if c.Artifacts.S3Bucket == "" {
			return errors.New("s3 artifact source requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported ARTIFACT_SOURCE %q", c.Artifacts.Source)
	}
	return nil
}

// PostgresDSN returns the connection string, assembling it from parts when
// DATABASE_URL is not set.
func (d DatabaseConfig) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		d.User, d.Password, net.JoinHostPort(d.Host, d.Port), d.Name)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
