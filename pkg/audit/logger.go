package audit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/filtros/pkg/contextkeys"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// LogAuthentication logs a token validation or refresh outcome
	LogAuthentication(ctx context.Context, eventType EventType, status EventStatus, message string) error

	// LogAuthorization logs a denied access to a resource
	LogAuthorization(ctx context.Context, resourceType ResourceType, resourceID string, message string) error

	// LogDataMutation logs a data mutation event
	LogDataMutation(ctx context.Context, eventType EventType, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error

	// LogHTTPRequest logs an HTTP request (for middleware)
	LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration, err error) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// LogrusLogger writes audit events as JSON lines through logrus.
type LogrusLogger struct {
	log    *logrus.Logger
	closer io.Closer
	mu     sync.Mutex
}

// NewLogrusLogger writes audit events to w.
func NewLogrusLogger(w io.Writer) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyMsg: "message",
		},
	})
	return &LogrusLogger{log: l}
}

// NewFileLogger appends audit events to path, or to stderr when path is empty.
func NewFileLogger(path string) (*LogrusLogger, error) {
	if path == "" {
		return NewLogrusLogger(os.Stderr), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	l := NewLogrusLogger(f)
	l.closer = f
	return l, nil
}

// Log writes event. Missing request fields are filled from ctx.
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	enrich(ctx, event)

	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"status":     event.Status,
	}
	addField(fields, "subject", event.Subject)
	addField(fields, "token_id", event.TokenID)
	addField(fields, "resource_type", string(event.ResourceType))
	addField(fields, "resource_id", event.ResourceID)
	addField(fields, "ip_address", event.IPAddress)
	addField(fields, "user_agent", observability.Truncate(event.UserAgent, 100))
	addField(fields, "request_id", event.RequestID)
	addField(fields, "method", event.Method)
	addField(fields, "path", event.Path)
	addField(fields, "error_message", event.ErrorMessage)
	if event.StatusCode != 0 {
		fields["status_code"] = event.StatusCode
	}
	if len(event.Metadata) > 0 {
		fields["metadata"] = redactMap(event.Metadata)
	}
	if event.Changes != nil {
		fields["changes"] = &ChangeDetails{
			Before: redactMap(event.Changes.Before),
			After:  redactMap(event.Changes.After),
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.log.WithTime(event.Timestamp).WithFields(fields)
	if event.Status == EventStatusSuccess {
		entry.Info(event.Message)
	} else {
		entry.Warn(event.Message)
	}
	return nil
}

// LogAuthentication logs a token validation or refresh outcome
func (l *LogrusLogger) LogAuthentication(ctx context.Context, eventType EventType, status EventStatus, message string) error {
	return l.Log(ctx, &AuditEvent{
		EventType:    eventType,
		Status:       status,
		ResourceType: ResourceTypeToken,
		Message:      message,
	})
}

// LogAuthorization logs a denied access to a resource
func (l *LogrusLogger) LogAuthorization(ctx context.Context, resourceType ResourceType, resourceID string, message string) error {
	return l.Log(ctx, &AuditEvent{
		EventType:    EventTypeAuthzAccessDenied,
		Status:       EventStatusDenied,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Message:      message,
	})
}

// LogDataMutation logs a data mutation event
func (l *LogrusLogger) LogDataMutation(ctx context.Context, eventType EventType, resourceType ResourceType, resourceID string, changes *ChangeDetails, message string) error {
	return l.Log(ctx, &AuditEvent{
		EventType:    eventType,
		Status:       EventStatusSuccess,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
		Message:      message,
	})
}

// LogHTTPRequest logs an HTTP request (for middleware)
func (l *LogrusLogger) LogHTTPRequest(ctx context.Context, r *http.Request, statusCode int, duration time.Duration, err error) error {
	status := EventStatusSuccess
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		status = EventStatusDenied
	case statusCode >= 400:
		status = EventStatusFailure
	}

	event := &AuditEvent{
		EventType:  EventTypeHTTPRequest,
		Status:     status,
		Method:     r.Method,
		Path:       r.URL.Path,
		StatusCode: statusCode,
		UserAgent:  r.UserAgent(),
		Message:    fmt.Sprintf("%s %s", r.Method, r.URL.Path),
		Metadata:   map[string]interface{}{"duration_ms": duration.Milliseconds()},
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	return l.Log(ctx, event)
}

// Close closes the underlying file, if any
func (l *LogrusLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func addField(fields logrus.Fields, key, value string) {
	if value != "" {
		fields[key] = value
	}
}

func redactMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = observability.Redact(k, v)
	}
	return out
}

// enrich fills request-scoped fields the caller left empty
func enrich(ctx context.Context, event *AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = observability.GetRequestID(ctx)
	}
	if event.Subject == "" {
		event.Subject = observability.GetSubject(ctx)
	}
	if event.IPAddress == "" {
		event.IPAddress = contextkeys.GetClientIP(ctx)
	}
}

// WithLogger adds an audit logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger from context
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	// Return a no-op logger if none is set
	return NoopLogger{}
}

// NoopLogger discards every event
type NoopLogger struct{}

func (NoopLogger) Log(context.Context, *AuditEvent) error { return nil }

func (NoopLogger) LogAuthentication(context.Context, EventType, EventStatus, string) error {
	return nil
}

func (NoopLogger) LogAuthorization(context.Context, ResourceType, string, string) error {
	return nil
}

func (NoopLogger) LogDataMutation(context.Context, EventType, ResourceType, string, *ChangeDetails, string) error {
	return nil
}

func (NoopLogger) LogHTTPRequest(context.Context, *http.Request, int, time.Duration, error) error {
	return nil
}

func (NoopLogger) Close() error { return nil }
