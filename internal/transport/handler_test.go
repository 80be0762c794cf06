package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comic-spoiler/spoiler-detector/internal/auth"
	"github.com/comic-spoiler/spoiler-detector/internal/config"
	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
	"github.com/comic-spoiler/spoiler-detector/internal/observer"
	"github.com/comic-spoiler/spoiler-detector/internal/service"
	"github.com/comic-spoiler/spoiler-detector/pkg/models"
)

const validSession = "session-123"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAccounts struct {
	loggedOut []string
}

func (s *stubAccounts) Signup(_ context.Context, req models.SignupRequest) (*models.MessageResponse, error) {
	if req.Email == "taken@bugle.com" {
		return nil, apperrors.NewConflictError("User already exists", nil)
	}
	if req.Username == "" {
		return nil, apperrors.NewValidationError("Username, email and password required", nil)
	}
	return &models.MessageResponse{Message: "Signup successful"}, nil
}

func (s *stubAccounts) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, *auth.Session, error) {
	if req.Password != "Spider#2099" {
		return nil, nil, apperrors.NewUnauthorizedError("Invalid credentials", nil)
	}
	return &models.LoginResponse{Message: "Login successful", Username: req.Username, Email: "peter@bugle.com"},
		&auth.Session{ID: validSession, Username: req.Username}, nil
}

func (s *stubAccounts) Logout(_ context.Context, id string) (*models.MessageResponse, error) {
	s.loggedOut = append(s.loggedOut, id)
	return &models.MessageResponse{Message: "Logged out successfully"}, nil
}

func (s *stubAccounts) Authenticate(_ context.Context, id string) (*auth.Session, error) {
	if id != validSession {
		return nil, apperrors.NewUnauthorizedError("Unauthorized", nil)
	}
	return &auth.Session{ID: id, Username: "peter"}, nil
}

type stubPipeline struct {
	calls int
	err   error
}

func (p *stubPipeline) Run(context.Context, string) (*models.PipelineResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &models.PipelineResult{
		Text:           "",
		Caption:        "No caption available",
		Genre:          "Unknown",
		CharacterCount: 0,
		Result:         models.SpoilerNonSpoiler,
	}, nil
}

type testServer struct {
	handler   http.Handler
	pipeline  *stubPipeline
	accounts  *stubAccounts
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Defaults()
	cfg.UploadDir = t.TempDir()
	cfg.RequestTimeout = 5 * time.Second

	pool := service.NewWorkerPool(1)
	pool.Start()
	t.Cleanup(pool.Close)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	p := &stubPipeline{}
	analysis, err := service.NewAnalysisService(p, pool, cfg.UploadDir, events)
	require.NoError(t, err)

	accounts := &stubAccounts{}
	return &testServer{
		handler: NewHandler(Dependencies{
			Analysis: analysis,
			Accounts: accounts,
			Metrics:  metrics,
			Pool:     pool,
			Config:   cfg,
			Version:  "test",
		}),
		pipeline:  p,
		accounts:  accounts,
		uploadDir: cfg.UploadDir,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func imageRequest(t *testing.T, filename string, content []byte, withSession bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "-" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if withSession {
		req.AddCookie(&http.Cookie{Name: "spoiler_session", Value: validSession})
	}
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func assertNoUploads(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHome(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend is working!", rec.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "available", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestAnalyze_RequiresSession(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(imageRequest(t, "panel.png", []byte("png"), false))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decodeError(t, rec))
	assert.Zero(t, s.pipeline.calls)
}

func TestAnalyze_Success(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(imageRequest(t, "panel.png", []byte("png"), true))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]interface{}{
		"extracted_text":  "",
		"caption":         "No caption available",
		"genre":           "Unknown",
		"character_count": float64(0),
		"spoiler_result":  "Non-Spoiler",
	}, resp)
	assert.Equal(t, 1, s.pipeline.calls)
	assertNoUploads(t, s.uploadDir)

	metrics := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	var m MetricsResponse
	require.NoError(t, json.Unmarshal(metrics.Body.Bytes(), &m))
	assert.Equal(t, int64(1), m.Events.Results["Non-Spoiler"])
	require.NotNil(t, m.Pool)
	assert.Equal(t, int64(1), m.Pool.TotalJobs)
}

func TestAnalyze_BadUploads(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		message  string
	}{
		{"missing image part", "-", "No image file provided"},
		{"empty filename", "", "Empty filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(imageRequest(t, tt.filename, []byte("png"), true))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decodeError(t, rec))
			assert.Zero(t, s.pipeline.calls)
			assertNoUploads(t, s.uploadDir)
		})
	}
}

func TestAnalyze_PipelineFailureHidesDetails(t *testing.T) {
	s := newTestServer(t)
	s.pipeline.err = errors.New("feature vector length 12 does not match model input 40")

	rec := s.do(imageRequest(t, "panel.png", []byte("png"), true))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeError(t, rec))
	assert.NotContains(t, rec.Body.String(), "feature vector")
	assertNoUploads(t, s.uploadDir)
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"created", `{"username":"peter","email":"peter@bugle.com","password":"Spider#2099"}`, http.StatusOK, "Signup successful"},
		{"duplicate", `{"username":"peter","email":"taken@bugle.com","password":"Spider#2099"}`, http.StatusConflict, "User already exists"},
		{"missing fields", `{"email":"peter@bugle.com"}`, http.StatusBadRequest, "Username, email and password required"},
		{"not json", `username=peter`, http.StatusBadRequest, "Username, email and password required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := s.do(req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				var resp models.MessageResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.want, resp.Message)
				return
			}
			assert.Equal(t, tt.want, decodeError(t, rec))
		})
	}
}

func TestLoginSetsCookieAndLogoutClearsIt(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"peter","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := s.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeError(t, rec))

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"peter","password":"Spider#2099"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "spoiler_session", cookies[0].Name)
	assert.Equal(t, validSession, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookies[0])
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{validSession}, s.accounts.loggedOut)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, "", cleared[0].Value)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := s.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = s.do(req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
