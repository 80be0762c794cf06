package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/comic-spoiler/spoiler-detector/internal/errors"
	"github.com/comic-spoiler/spoiler-detector/internal/logger"
	"github.com/comic-spoiler/spoiler-detector/internal/observer"
	"github.com/comic-spoiler/spoiler-detector/pkg/models"
	"github.com/comic-spoiler/spoiler-detector/pkg/validation"
)

// PipelineRunner executes the spoiler pipeline against a stored image
type PipelineRunner interface {
	Run(ctx context.Context, imagePath string) (*models.PipelineResult, error)
}

// Upload is an image received from a client
type Upload struct {
	Filename string
	Content  io.Reader
	Username string
}

// AnalysisService stores uploads, runs them through the pipeline on the
// worker pool and removes them afterwards.
type AnalysisService interface {
	Analyze(ctx context.Context, upload Upload) (*models.AnalysisResponse, error)
}

type analysisService struct {
	pipeline  PipelineRunner
	pool      *WorkerPool
	uploadDir string
	events    observer.Subject
}

// NewAnalysisService creates the upload directory and returns the service.
// The pool must already be started.
func NewAnalysisService(pipeline PipelineRunner, pool *WorkerPool, uploadDir string, events observer.Subject) (AnalysisService, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &analysisService{
		pipeline:  pipeline,
		pool:      pool,
		uploadDir: uploadDir,
		events:    events,
	}, nil
}

type pipelineOutcome struct {
	result *models.PipelineResult
	err    error
}

func (s *analysisService) Analyze(ctx context.Context, upload Upload) (*models.AnalysisResponse, error) {
	if upload.Content == nil {
		s.reject(ctx, upload, "No image file provided")
		return nil, apperrors.NewValidationError("No image file provided", nil)
	}
	if strings.TrimSpace(upload.Filename) == "" {
		s.reject(ctx, upload, "Empty filename")
		return nil, apperrors.NewValidationError("Empty filename", nil)
	}

	path, err := s.store(upload)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to store upload", err)
	}

	start := time.Now()
	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.AnalysisStarted,
		Filename:  upload.Filename,
		Username:  upload.Username,
	})

	// The job owns the file from here on; it outlives a cancelled request.
	done := make(chan pipelineOutcome, 1)
	submitted := s.pool.Submit(ctx, func() {
		var out pipelineOutcome
		defer func() {
			if r := recover(); r != nil {
				out.err = fmt.Errorf("pipeline panic: %v", r)
			}
			done <- out
		}()
		defer removeUpload(path)
		out.result, out.err = s.pipeline.Run(context.WithoutCancel(ctx), path)
	})
	if !submitted {
		removeUpload(path)
		s.fail(ctx, upload, start, "inference queue unavailable")
		if ctx.Err() != nil {
			return nil, apperrors.NewTimeoutError("analysis timed out", ctx.Err())
		}
		return nil, apperrors.NewUnavailableError("analysis is temporarily unavailable", nil)
	}

	select {
	case out := <-done:
		if out.err != nil {
			s.fail(ctx, upload, start, out.err.Error())
			return nil, apperrors.NewInternalError("analysis failed", out.err)
		}
		resp := models.NewAnalysisResponse(out.result)
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisCompleted,
			Filename:       upload.Filename,
			Username:       upload.Username,
			ProcessingTime: time.Since(start),
			Success:        true,
			SpoilerResult:  resp.SpoilerResult,
			Metadata: map[string]interface{}{
				"genre":           resp.Genre,
				"character_count": resp.CharacterCount,
			},
		})
		return resp, nil
	case <-ctx.Done():
		s.fail(ctx, upload, start, ctx.Err().Error())
		return nil, apperrors.NewTimeoutError("analysis timed out", ctx.Err())
	}
}

// store writes the upload to <uploadDir>/<random hex>_<sanitized name>
func (s *analysisService) store(upload Upload) (string, error) {
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + validation.SanitizeFilename(upload.Filename)
	path := filepath.Join(s.uploadDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, upload.Content); err != nil {
		f.Close()
		removeUpload(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		removeUpload(path)
		return "", err
	}
	return path, nil
}

func (s *analysisService) reject(ctx context.Context, upload Upload, reason string) {
	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:    observer.UploadRejected,
		Filename:     upload.Filename,
		Username:     upload.Username,
		ErrorMessage: reason,
	})
}

func (s *analysisService) fail(ctx context.Context, upload Upload, start time.Time, reason string) {
	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisFailed,
		Filename:       upload.Filename,
		Username:       upload.Username,
		ProcessingTime: time.Since(start),
		ErrorMessage:   reason,
	})
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).WithField("path", path).Warn("Failed to remove upload")
	}
}
