package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisEvent represents something that happened while serving a request
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Filename       string                 `json:"filename,omitempty"`
	Username       string                 `json:"username,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	SpoilerResult  string                 `json:"spoiler_result,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of event
type EventType string

const (
	// AnalysisStarted when a stored upload is handed to the pipeline
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when the pipeline produced a spoiler result
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when the pipeline or its scheduling failed
	AnalysisFailed EventType = "analysis_failed"
	// UploadRejected when an upload never reached the pipeline
	UploadRejected EventType = "upload_rejected"
	// UserSignedUp when a new account was created
	UserSignedUp EventType = "user_signed_up"
	// LoginSucceeded when a session was created
	LoginSucceeded EventType = "login_succeeded"
	// LoginFailed when credentials were rejected
	LoginFailed EventType = "login_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	if event.Filename != "" {
		fields["filename"] = event.Filename
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if event.ProcessingTime > 0 {
		fields["processing_ms"] = event.ProcessingTime.Milliseconds()
	}
	if event.SpoilerResult != "" {
		fields["spoiler_result"] = event.SpoilerResult
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Info("Analyze started")
	case AnalysisCompleted:
		entry.Info("Analyze success")
	case AnalysisFailed:
		entry.Error("Analyze failed")
	case UploadRejected:
		entry.Info("Analyze rejected")
	case UserSignedUp:
		entry.Info("New user created")
	case LoginSucceeded:
		entry.Info("Login success")
	case LoginFailed:
		entry.Info("Login failed")
	default:
		entry.Info("Event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a point-in-time view of the counters kept by MetricsObserver
type Metrics struct {
	TotalAnalyses       int64            `json:"total_analyses"`
	SuccessfulAnalyses  int64            `json:"successful_analyses"`
	FailedAnalyses      int64            `json:"failed_analyses"`
	RejectedUploads     int64            `json:"rejected_uploads"`
	Results             map[string]int64 `json:"results"`
	Signups             int64            `json:"signups"`
	Logins              int64            `json:"logins"`
	FailedLogins        int64            `json:"failed_logins"`
	AvgProcessingTimeMs int64            `json:"avg_processing_time_ms"`
}

// MetricsObserver collects counters from events
type MetricsObserver struct {
	mu                  sync.RWMutex
	metrics             Metrics
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{metrics: Metrics{Results: make(map[string]int64)}}
}

// OnEvent handles events by updating counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := &o.metrics
	switch event.EventType {
	case AnalysisStarted:
		m.TotalAnalyses++
	case AnalysisCompleted:
		m.SuccessfulAnalyses++
		m.Results[event.SpoilerResult]++
		o.totalProcessingTime += event.ProcessingTime
	case AnalysisFailed:
		m.FailedAnalyses++
	case UploadRejected:
		m.RejectedUploads++
	case UserSignedUp:
		m.Signups++
	case LoginSucceeded:
		m.Logins++
	case LoginFailed:
		m.FailedLogins++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a copy of the current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := o.metrics
	out.Results = make(map[string]int64, len(o.metrics.Results))
	for k, v := range o.metrics.Results {
		out.Results[k] = v
	}
	if out.SuccessfulAnalyses > 0 {
		out.AvgProcessingTimeMs = (o.totalProcessingTime / time.Duration(out.SuccessfulAnalyses)).Milliseconds()
	}
	return out
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order.
// A panicking observer is logged and skipped.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event AnalysisEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
