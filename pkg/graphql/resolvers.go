package graphql

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/contextkeys"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/observability"
)

const (
	// MaxVehicleFilterLimit caps filtrosPorVehiculo pages; larger limits fall back to the default.
	MaxVehicleFilterLimit = 500
)

var (
	// ErrUnauthenticated is returned by mutations called without a valid access token
	ErrUnauthenticated = errors.New("Autenticación requerida")
	// ErrForbidden is returned by mutations when the token lacks the required scope
	ErrForbidden = errors.New("Permisos insuficientes")
	// ErrNegativeSkip rejects negative offsets
	ErrNegativeSkip = errors.New("El parámetro 'skip' no puede ser negativo")
	// ErrInvalidID rejects ids that are not positive integers
	ErrInvalidID = errors.New("ID de filtro debe ser un número entero positivo")

	errInternal = errors.New(httputil.InternalErrorMessage)
)

// Resolver executes the root fields of the schema against the catalogue.
type Resolver struct {
	svc     *catalog.Service
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(svc *catalog.Service, logger *observability.Logger, metrics *observability.Metrics) *Resolver {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Resolver{
		svc:     svc,
		logger:  logger.WithField("component", "graphql"),
		metrics: metrics,
	}
}

func (r *Resolver) log(ctx context.Context, operation string) *observability.Logger {
	fields := map[string]interface{}{
		"operation": operation,
		"client_ip": clientIP(ctx),
	}
	if id := observability.GetRequestID(ctx); id != "" {
		fields["request_id"] = id
	}
	return r.logger.WithFields(fields)
}

func clientIP(ctx context.Context) string {
	if ip := contextkeys.GetClientIP(ctx); ip != "" {
		return ip
	}
	return "unknown"
}

// instrument logs and counts every execution of a root field under the name it
// was queried by, so Spanish and English aliases are counted apart.
func (r *Resolver) instrument(resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		operation := p.Info.FieldName
		ctx := p.Context
		if ctx == nil {
			ctx = context.Background()
			p.Context = ctx
		}
		log := r.log(ctx, operation)
		log.Debug("GraphQL operation started")

		start := time.Now()
		result, err := resolve(p)
		elapsed := time.Since(start)

		status := "success"
		if err != nil {
			status = "error"
			log.WithFields(map[string]interface{}{
				"error":       observability.Truncate(err.Error(), 100),
				"duration_ms": elapsed.Milliseconds(),
			}).Warn("GraphQL operation failed")
		} else {
			log.WithField("duration_ms", elapsed.Milliseconds()).Info("GraphQL operation completed")
		}
		if r.metrics != nil {
			r.metrics.GraphQLOperationsTotal.WithLabelValues(operation, status).Inc()
		}
		return result, err
	}
}

// publicError keeps domain messages and hides everything else.
func (r *Resolver) publicError(ctx context.Context, operation string, err error) error {
	var (
		ve *catalog.ValidationError
		ce *catalog.ConflictError
		nf *catalog.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return errors.New(ve.Message)
	case errors.As(err, &ce):
		return errors.New(ce.Message)
	case errors.As(err, &nf):
		return errors.New(nf.Message)
	}
	r.log(ctx, operation).WithError(err).Error("GraphQL operation internal error")
	return errInternal
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(int); ok {
		return v
	}
	return def
}

func stringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func floatPtrArg(args map[string]interface{}, key string) *float64 {
	switch v := args[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	}
	return nil
}

// paging applies the GraphQL paging rules: negative skip is an error and an
// out-of-range limit falls back to the default page size.
func paging(args map[string]interface{}, maxLimit int) (int, int, error) {
	skip := intArg(args, "skip", 0)
	limit := intArg(args, "limit", catalog.DefaultPageSize)
	if skip < 0 {
		return 0, 0, ErrNegativeSkip
	}
	if limit < 1 || limit > maxLimit {
		limit = catalog.DefaultPageSize
	}
	return skip, limit, nil
}

func (r *Resolver) listFilters(p graphql.ResolveParams) (interface{}, error) {
	skip, limit, err := paging(p.Args, catalog.MaxPageSize)
	if err != nil {
		return nil, err
	}
	page, err := r.svc.ListFilters(p.Context, catalog.FilterQuery{Skip: skip, Limit: limit})
	if err != nil {
		return nil, r.publicError(p.Context, "filtros", err)
	}
	return page, nil
}

func (r *Resolver) getFilter(p graphql.ResolveParams) (interface{}, error) {
	id, err := strconv.ParseInt(stringArg(p.Args, "id"), 10, 64)
	if err != nil || id < 1 {
		return nil, ErrInvalidID
	}
	f, err := r.svc.GetFilter(p.Context, id)
	if errors.Is(err, catalog.ErrNotFound) {
		r.log(p.Context, "filtro").WithField("id", id).Warn("GraphQL filter not found")
		return nil, nil
	}
	if err != nil {
		return nil, r.publicError(p.Context, "filtro", err)
	}
	return f, nil
}

func (r *Resolver) filtersByVehicle(p graphql.ResolveParams) (interface{}, error) {
	skip, limit, err := paging(p.Args, MaxVehicleFilterLimit)
	if err != nil {
		return nil, err
	}
	in, _ := p.Args["filtros"].(map[string]interface{})
	criteria := catalog.VehicleCriteria{
		VehicleType: stringArg(in, "tipo_vehiculo"),
		OilType:     stringArg(in, "tipo_aceite"),
		FuelType:    stringArg(in, "tipo_combustible"),
		FilterType:  stringArg(in, "tipo_filtro"),
	}

	page, err := r.svc.FilterByVehicle(p.Context, criteria, skip, limit)
	var ve *catalog.ValidationError
	if errors.As(err, &ve) {
		r.log(p.Context, "filtrosPorVehiculo").WithField("reason", ve.Message).Warn("Invalid vehicle filters")
		return nil, errors.New("Filtros inválidos: " + ve.Message)
	}
	if err != nil {
		return nil, r.publicError(p.Context, "filtrosPorVehiculo", err)
	}
	return page, nil
}

func (r *Resolver) categories(p graphql.ResolveParams) (interface{}, error) {
	cats, err := r.svc.ListCategories(p.Context, "")
	if err != nil {
		return nil, r.publicError(p.Context, "categories", err)
	}
	return cats, nil
}

func (r *Resolver) vehicleFilterOptions(graphql.ResolveParams) (interface{}, error) {
	return r.svc.VehicleFilterOptions(), nil
}

func filterInputFromArgs(in map[string]interface{}) catalog.FilterInput {
	fi := catalog.FilterInput{
		ProductCode:   stringArg(in, "codigo_producto"),
		Name:          stringArg(in, "nombre_filtro"),
		Description:   stringArg(in, "descripcion"),
		Brand:         stringArg(in, "marca"),
		CategoryID:    int64(intArg(in, "id_categoria", 0)),
		Stock:         intArg(in, "stock", 0),
		MarginPercent: floatPtrArg(in, "margen_ganancia"),
		VATPercent:    floatPtrArg(in, "porcentaje_iva"),
		VehicleCriteria: catalog.VehicleCriteria{
			VehicleType: stringArg(in, "tipo_vehiculo"),
			OilType:     stringArg(in, "tipo_aceite"),
			FuelType:    stringArg(in, "tipo_combustible"),
			FilterType:  stringArg(in, "tipo_filtro"),
		},
	}
	if v := floatPtrArg(in, "precio_compra"); v != nil {
		fi.PurchasePrice = *v
	}
	if v, ok := in["id_distribuidor"].(int); ok {
		id := int64(v)
		fi.DistributorID = &id
	}
	return fi
}

func (r *Resolver) createFilter(p graphql.ResolveParams) (interface{}, error) {
	ctx := p.Context
	principal := auth.PrincipalFrom(ctx)
	if principal == nil {
		return nil, ErrUnauthenticated
	}
	if !principal.HasScope(auth.ScopeFiltersWrite) {
		_ = audit.FromContext(ctx).LogAuthorization(ctx, audit.ResourceTypeFilter, "", "createFiltro requires "+string(auth.ScopeFiltersWrite))
		return nil, ErrForbidden
	}

	in, _ := p.Args["filtro"].(map[string]interface{})
	input := filterInputFromArgs(in)
	r.log(ctx, "createFiltro").WithFields(map[string]interface{}{
		"codigo_producto": input.ProductCode,
		"subject":         principal.Subject,
	}).Info("GraphQL filter creation requested")

	f, err := r.svc.CreateFilter(ctx, input)
	if err != nil {
		return nil, r.publicError(ctx, "createFiltro", err)
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataFilterCreate, audit.ResourceTypeFilter,
		strconv.FormatInt(f.ID, 10),
		&audit.ChangeDetails{After: map[string]interface{}{
			"codigo_producto": f.ProductCode,
			"nombre_filtro":   f.Name,
			"precio_venta":    f.SalePrice,
		}},
		"filter created through graphql")
	return f, nil
}
