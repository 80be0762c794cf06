package transport

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/comic-spoiler/spoiler-detector/internal/auth"
	"github.com/comic-spoiler/spoiler-detector/internal/config"
	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/observer"
	"github.com/comic-spoiler/spoiler-detector/internal/service"
	"github.com/comic-spoiler/spoiler-detector/pkg/models"
)

const sessionKey = "session"

// Dependencies are the services the HTTP layer talks to
type Dependencies struct {
	Analysis service.AnalysisService
	Accounts service.AccountService
	Metrics  *observer.MetricsObserver
	Pool     *service.WorkerPool
	Config   *config.Config
	Version  string
}

// MetricsResponse is returned by GET /metrics
type MetricsResponse struct {
	Events observer.Metrics   `json:"events"`
	Pool   *service.PoolStats `json:"pool,omitempty"`
}

func NewHandler(deps Dependencies) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestLogger(),
		corsMiddleware(deps.Config.CORSOrigins),
		requestSizeLimiter(deps.Config.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/", home)
	r.GET("/health", healthCheck(deps.Version))
	r.GET("/metrics", metrics(deps))
	r.POST("/signup", signup(deps.Accounts))
	r.POST("/login", login(deps.Accounts, deps.Config.Sessions))
	r.POST("/logout", logout(deps.Accounts, deps.Config.Sessions))
	r.POST("/analyze", requireSession(deps.Accounts, deps.Config.Sessions.CookieName), analyzeImage(deps.Analysis, deps.Config))

	return r
}

func home(c *gin.Context) {
	c.String(http.StatusOK, "Backend is working!")
}

func healthCheck(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "available",
			Version: version,
			Time:    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func metrics(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := MetricsResponse{}
		if deps.Metrics != nil {
			resp.Events = deps.Metrics.GetMetrics()
		}
		if deps.Pool != nil {
			stats := deps.Pool.GetStats()
			resp.Pool = &stats
		}
		c.JSON(http.StatusOK, resp)
	}
}

func signup(accounts service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("Username, email and password required", err))
			return
		}

		resp, err := accounts.Signup(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func login(accounts service.AccountService, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, apperrors.NewValidationError("Username and password required", err))
			return
		}

		resp, session, err := accounts.Login(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, session.ID, int(cfg.TTL.Seconds()), "/", "", cfg.CookieSecure, true)
		c.JSON(http.StatusOK, resp)
	}
}

func logout(accounts service.AccountService, cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(cfg.CookieName)

		resp, err := accounts.Logout(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.CookieSecure, true)
		c.JSON(http.StatusOK, resp)
	}
}

func analyzeImage(analysis service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		upload, closeFile, err := readUpload(c)
		if err != nil {
			respondError(c, err)
			return
		}
		defer closeFile()

		if session, ok := c.Get(sessionKey); ok {
			upload.Username = session.(*auth.Session).Username
		}

		resp, err := analysis.Analyze(ctx, upload)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// readUpload pulls the "image" part out of the multipart body. A part sent
// with an empty filename arrives as a plain form value.
func readUpload(c *gin.Context) (service.Upload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile("image")
	if err == nil {
		f, err := fh.Open()
		if err != nil {
			return service.Upload{}, noop, apperrors.NewInternalError("failed to read upload", err)
		}
		return service.Upload{Filename: fh.Filename, Content: f}, func() { f.Close() }, nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return service.Upload{}, noop, apperrors.NewValidationError("Request body too large", err)
	}
	if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return service.Upload{}, noop, apperrors.NewValidationError("Invalid multipart form", err)
	}

	if form := c.Request.MultipartForm; form != nil {
		if values, ok := form.Value["image"]; ok && len(values) > 0 {
			return service.Upload{Content: strings.NewReader(values[0])}, noop, nil
		}
	}
	// Missing file: the service rejects it without touching the disk.
	return service.Upload{}, noop, nil
}

func requireSession(accounts service.AccountService, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(cookieName)
		session, err := accounts.Authenticate(c.Request.Context(), id)
		if err != nil {
			logger.WithField("ip", c.ClientIP()).Info("Analyze attempt failed: unauthorized")
			respondError(c, err)
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// respondError writes err as {"error": message}. Server side failures are
// logged in full and reported with a generic message.
func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)

	message := http.StatusText(code)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Public() {
		message = appErr.Message
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{Error: message})
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
