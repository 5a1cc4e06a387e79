package graphql

import (
	"context"
	"net/http"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/parser"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/middleware"
	"github.com/platinummonkey/filtros/pkg/observability"
)

const (
	// TooComplexMessage is returned for documents over the depth or complexity limit
	TooComplexMessage = "Query too complex. Reduce nested fields."
	// TooLargeMessage is returned for query text over MaxQueryBytes
	TooLargeMessage = "Query too large"
	// MissingQueryMessage is returned when the request carries no query
	MissingQueryMessage = "Must provide query string."
)

// Request is the JSON body of a GraphQL POST.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
	OperationName string                 `json:"operationName,omitempty"`
}

type errorMessage struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Errors []errorMessage `json:"errors"`
}

// Handler serves the GraphQL endpoint.
type Handler struct {
	schema  graphql.Schema
	limits  Limits
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewHandler builds the schema over svc. metrics may be nil.
func NewHandler(svc *catalog.Service, logger *observability.Logger, metrics *observability.Metrics) (*Handler, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	schema, err := NewSchema(NewResolver(svc, logger, metrics))
	if err != nil {
		return nil, err
	}
	return &Handler{
		schema:  schema,
		limits:  DefaultLimits(),
		logger:  logger.WithField("component", "graphql"),
		metrics: metrics,
	}, nil
}

// WithLimits returns a copy of h enforcing l.
func (h *Handler) WithLimits(l Limits) *Handler {
	cp := *h
	cp.limits = l
	return &cp
}

// Schema returns the executable schema.
func (h *Handler) Schema() graphql.Schema { return h.schema }

// Execute runs a request that already passed the document guards.
func (h *Handler) Execute(ctx context.Context, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := middleware.ClientIPFromRequest(r)
	userAgent := r.UserAgent()
	if userAgent == "" {
		userAgent = "unknown"
	}
	h.logger.WithFields(map[string]interface{}{
		"client_ip":  observability.Truncate(ip, 15),
		"user_agent": observability.Truncate(userAgent, 50),
		"path":       r.URL.Path,
	}).Info("GraphQL access")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeErrors(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req Request
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeErrors(w, http.StatusBadRequest, MissingQueryMessage)
		return
	}
	if h.limits.MaxQueryBytes > 0 && len(req.Query) > h.limits.MaxQueryBytes {
		h.reject(w, r, "size", TooLargeMessage, map[string]interface{}{"bytes": len(req.Query)})
		return
	}

	doc, err := parser.Parse(parser.ParseParams{Source: req.Query})
	if err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}
	cost := Measure(doc, h.limits.MaxComplexity)
	if cost.Exceeds(h.limits) {
		reason := "complexity"
		if cost.Depth > h.limits.MaxDepth {
			reason = "depth"
		}
		h.reject(w, r, reason, TooComplexMessage, map[string]interface{}{
			"depth":      cost.Depth,
			"complexity": cost.Complexity,
		})
		return
	}

	result := h.Execute(r.Context(), req)
	if err := httputil.WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.WithError(err).Error("Failed to write GraphQL response")
	}
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, reason, message string, metadata map[string]interface{}) {
	ctx := r.Context()
	if h.metrics != nil {
		h.metrics.GraphQLRejectedTotal.WithLabelValues(reason).Inc()
	}
	h.logger.WithFields(metadata).WithFields(map[string]interface{}{
		"reason":    reason,
		"client_ip": middleware.ClientIPFromRequest(r),
	}).Warn("GraphQL document rejected")

	metadata["reason"] = reason
	_ = audit.FromContext(ctx).Log(ctx, &audit.AuditEvent{
		EventType:    audit.EventTypeGraphQLRejected,
		Status:       audit.EventStatusDenied,
		ResourceType: audit.ResourceTypeGraphQL,
		Method:       r.Method,
		Path:         r.URL.Path,
		IPAddress:    middleware.ClientIPFromRequest(r),
		UserAgent:    r.UserAgent(),
		Message:      message,
		Metadata:     metadata,
	})
	writeErrors(w, http.StatusBadRequest, message)
}

func writeErrors(w http.ResponseWriter, status int, message string) {
	_ = httputil.WriteJSON(w, status, errorResponse{Errors: []errorMessage{{Message: message}}})
}
