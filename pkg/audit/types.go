package audit

import (
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthTokenValidateFail EventType = "auth.token_validate_fail"
	EventTypeAuthTokenRefresh      EventType = "auth.token_refresh"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"

	// Abuse protection
	EventTypeRateLimitExceeded EventType = "security.rate_limit_exceeded"
	EventTypeGraphQLRejected   EventType = "security.graphql_rejected"

	// Data mutation events
	EventTypeDataFilterCreate      EventType = "data.filter_create"
	EventTypeDataFilterUpdate      EventType = "data.filter_update"
	EventTypeDataFilterDelete      EventType = "data.filter_delete"
	EventTypeDataCategoryCreate    EventType = "data.category_create"
	EventTypeDataCategoryUpdate    EventType = "data.category_update"
	EventTypeDataCategoryDelete    EventType = "data.category_delete"
	EventTypeDataDistributorCreate EventType = "data.distributor_create"

	// HTTP request trail written by the middleware
	EventTypeHTTPRequest EventType = "http.request"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceTypeFilter      ResourceType = "filter"
	ResourceTypeCategory    ResourceType = "category"
	ResourceTypeDistributor ResourceType = "distributor"
	ResourceTypeToken       ResourceType = "token"
	ResourceTypeGraphQL     ResourceType = "graphql"
)

// AuditEvent represents a single audit log entry
type AuditEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	Subject string `json:"subject,omitempty"`
	TokenID string `json:"token_id,omitempty"`

	// Resource information
	ResourceType ResourceType `json:"resource_type,omitempty"`
	ResourceID   string       `json:"resource_id,omitempty"`

	// Request context
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"method,omitempty"`
	Path       string `json:"path,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	// Changes tracking (before/after for updates)
	Changes *ChangeDetails `json:"changes,omitempty"`
}

// ChangeDetails tracks before/after values for updates
type ChangeDetails struct {
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`
}
