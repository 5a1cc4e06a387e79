package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/filtros/pkg/observability"
)

// Service implements the catalogue use cases on top of a Repository.
type Service struct {
	repo   Repository
	logger *observability.Logger
	now    func() time.Time
}

// NewService creates a catalogue service.
func NewService(repo Repository, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo:   repo,
		logger: logger.WithField("component", "catalog"),
		now:    time.Now,
	}
}

func (s *Service) log(ctx context.Context) *observability.Logger {
	l := s.logger
	if id := observability.GetRequestID(ctx); id != "" {
		l = l.WithField("request_id", id)
	}
	return l
}

// ListFilters returns a page of active filters matching q.
func (s *Service) ListFilters(ctx context.Context, q FilterQuery) (*FilterPage, error) {
	skip, limit, clamped, err := NormalizePaging(q.Skip, q.Limit)
	if err != nil {
		return nil, err
	}
	if clamped {
		s.log(ctx).WithField("requested_limit", q.Limit).Warnf("Page size clamped to %d", MaxPageSize)
	}
	if q.CategoryID < 0 {
		return nil, ValidateID("categoria_id", q.CategoryID)
	}
	if q.DistributorID < 0 {
		return nil, ValidateID("distribuidor_id", q.DistributorID)
	}
	vehicle, err := q.Vehicle.Normalize()
	if err != nil {
		return nil, err
	}

	q = FilterQuery{
		Skip:          skip,
		Limit:         limit,
		CategoryID:    q.CategoryID,
		DistributorID: q.DistributorID,
		Vehicle:       vehicle,
	}

	items, err := s.repo.ListFilters(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list filters: %w", err)
	}
	total, err := s.repo.CountFilters(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("count filters: %w", err)
	}
	if items == nil {
		items = []*Filter{}
	}

	return &FilterPage{
		Items: items,
		Total: total,
		Page:  skip/limit + 1,
		Size:  limit,
	}, nil
}

// FilterByVehicle lists active filters matching the vehicle criteria.
func (s *Service) FilterByVehicle(ctx context.Context, criteria VehicleCriteria, skip, limit int) (*FilterPage, error) {
	return s.ListFilters(ctx, FilterQuery{Skip: skip, Limit: limit, Vehicle: criteria})
}

// GetFilter returns an active filter by id.
func (s *Service) GetFilter(ctx context.Context, id int64) (*Filter, error) {
	if err := ValidateID("id_filtro", id); err != nil {
		return nil, err
	}
	f, err := s.repo.GetFilter(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, filterNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get filter %d: %w", id, err)
	}
	return f, nil
}

// GetFilterByCode returns an active filter by product code.
func (s *Service) GetFilterByCode(ctx context.Context, code string) (*Filter, error) {
	code, err := ValidateProductCode(code)
	if err != nil {
		return nil, err
	}
	f, err := s.repo.GetFilterByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return nil, filterNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get filter by code: %w", err)
	}
	return f, nil
}

// CountFilters returns the number of active filters.
func (s *Service) CountFilters(ctx context.Context) (int, error) {
	n, err := s.repo.CountFilters(ctx, FilterQuery{})
	if err != nil {
		return 0, fmt.Errorf("count filters: %w", err)
	}
	return n, nil
}

// CreateFilter validates the input, prices it and stores a new filter.
func (s *Service) CreateFilter(ctx context.Context, in FilterInput) (*Filter, error) {
	f := &Filter{
		Stock:         in.Stock,
		PurchasePrice: in.PurchasePrice,
		MarginPercent: DefaultMarginPercent,
		VATPercent:    DefaultVATPercent,
		CategoryID:    in.CategoryID,
		DistributorID: in.DistributorID,
	}
	if in.MarginPercent != nil {
		f.MarginPercent = *in.MarginPercent
	}
	if in.VATPercent != nil {
		f.VATPercent = *in.VATPercent
	}

	var err error
	if f.ProductCode, err = ValidateProductCode(in.ProductCode); err != nil {
		return nil, err
	}
	if f.Name, err = ValidateFilterName(in.Name); err != nil {
		return nil, err
	}
	if f.Brand, err = ValidateBrand(in.Brand); err != nil {
		return nil, err
	}
	if f.Description, err = ValidateDescription(in.Description); err != nil {
		return nil, err
	}
	if f.VehicleCriteria, err = in.VehicleCriteria.Normalize(); err != nil {
		return nil, err
	}
	if err := validateFigures(f); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, f.CategoryID, f.DistributorID); err != nil {
		return nil, err
	}

	exists, err := s.repo.ProductCodeExists(ctx, f.ProductCode, 0)
	if err != nil {
		return nil, fmt.Errorf("check product code: %w", err)
	}
	if exists {
		return nil, conflict("Ya existe un filtro con el código %s", f.ProductCode)
	}

	now := s.now().UTC()
	f.Active = true
	f.CreatedAt = now
	f.UpdatedAt = now
	f.ApplyPricing()

	if err := s.repo.CreateFilter(ctx, f); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, conflict("Ya existe un filtro con el código %s", f.ProductCode)
		}
		return nil, fmt.Errorf("create filter: %w", err)
	}

	s.log(ctx).WithFields(map[string]interface{}{
		"filter_id":    f.ID,
		"product_code": f.ProductCode,
	}).Info("Filter created")

	return s.GetFilter(ctx, f.ID)
}

// UpdateFilter applies the non-nil fields of patch to an active filter.
// Prices are recomputed when purchase price, margin or VAT change.
func (s *Service) UpdateFilter(ctx context.Context, id int64, patch FilterPatch) (*Filter, error) {
	f, err := s.GetFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return f, nil
	}

	if patch.ProductCode != nil {
		code, err := ValidateProductCode(*patch.ProductCode)
		if err != nil {
			return nil, err
		}
		if code != f.ProductCode {
			exists, err := s.repo.ProductCodeExists(ctx, code, f.ID)
			if err != nil {
				return nil, fmt.Errorf("check product code: %w", err)
			}
			if exists {
				return nil, conflict("Ya existe un filtro con el código %s", code)
			}
		}
		f.ProductCode = code
	}
	if patch.Name != nil {
		if f.Name, err = ValidateFilterName(*patch.Name); err != nil {
			return nil, err
		}
	}
	if patch.Brand != nil {
		if f.Brand, err = ValidateBrand(*patch.Brand); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if f.Description, err = ValidateDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.Stock != nil {
		f.Stock = *patch.Stock
	}

	repriced := false
	if patch.PurchasePrice != nil {
		f.PurchasePrice = *patch.PurchasePrice
		repriced = true
	}
	if patch.MarginPercent != nil {
		f.MarginPercent = *patch.MarginPercent
		repriced = true
	}
	if patch.VATPercent != nil {
		f.VATPercent = *patch.VATPercent
		repriced = true
	}
	if err := validateFigures(f); err != nil {
		return nil, err
	}

	criteria := f.VehicleCriteria
	if patch.VehicleType != nil {
		criteria.VehicleType = *patch.VehicleType
	}
	if patch.OilType != nil {
		criteria.OilType = *patch.OilType
	}
	if patch.FuelType != nil {
		criteria.FuelType = *patch.FuelType
	}
	if patch.FilterType != nil {
		criteria.FilterType = *patch.FilterType
	}
	if f.VehicleCriteria, err = criteria.Normalize(); err != nil {
		return nil, err
	}

	categoryID := f.CategoryID
	if patch.CategoryID != nil {
		categoryID = *patch.CategoryID
	}
	distributorID := f.DistributorID
	if patch.DistributorID != nil {
		if *patch.DistributorID == 0 {
			distributorID = nil
		} else {
			distributorID = patch.DistributorID
		}
	}
	if patch.CategoryID != nil || (patch.DistributorID != nil && distributorID != nil) {
		if err := s.checkReferences(ctx, categoryID, distributorID); err != nil {
			return nil, err
		}
	}
	f.CategoryID = categoryID
	f.DistributorID = distributorID

	if repriced {
		f.ApplyPricing()
	}
	f.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateFilter(ctx, f); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, filterNotFound()
		}
		if errors.Is(err, ErrDuplicate) {
			return nil, conflict("Ya existe un filtro con el código %s", f.ProductCode)
		}
		return nil, fmt.Errorf("update filter %d: %w", id, err)
	}

	s.log(ctx).WithFields(map[string]interface{}{
		"filter_id": f.ID,
		"repriced":  repriced,
	}).Info("Filter updated")

	return s.GetFilter(ctx, f.ID)
}

// PatchFilter is UpdateFilter; PUT and PATCH share partial-update semantics.
func (s *Service) PatchFilter(ctx context.Context, id int64, patch FilterPatch) (*Filter, error) {
	return s.UpdateFilter(ctx, id, patch)
}

// DeleteFilter soft-deletes an active filter.
func (s *Service) DeleteFilter(ctx context.Context, id int64) error {
	if err := ValidateID("id_filtro", id); err != nil {
		return err
	}
	err := s.repo.DeactivateFilter(ctx, id, s.now().UTC())
	if errors.Is(err, ErrNotFound) {
		return filterNotFound()
	}
	if err != nil {
		return fmt.Errorf("delete filter %d: %w", id, err)
	}
	s.log(ctx).WithField("filter_id", id).Info("Filter deactivated")
	return nil
}

// FilterStatistics returns catalogue totals.
func (s *Service) FilterStatistics(ctx context.Context) (*FilterStats, error) {
	stats, err := s.repo.FilterStatistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("filter statistics: %w", err)
	}
	return stats, nil
}

// VehicleFilterOptions returns the accepted vehicle classification values.
func (s *Service) VehicleFilterOptions() FilterOptions {
	return AvailableOptions()
}

func validateFigures(f *Filter) error {
	if err := ValidateStock(f.Stock); err != nil {
		return err
	}
	if err := ValidatePurchasePrice(f.PurchasePrice); err != nil {
		return err
	}
	if err := ValidateMargin(f.MarginPercent); err != nil {
		return err
	}
	return ValidateVAT(f.VATPercent)
}

// checkReferences verifies the category (and distributor when set) exist and are active.
func (s *Service) checkReferences(ctx context.Context, categoryID int64, distributorID *int64) error {
	if err := ValidateID("id_categoria", categoryID); err != nil {
		return err
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("id_categoria", "La categoría %d no existe o no está activa", categoryID)
		}
		return fmt.Errorf("check category: %w", err)
	}

	if distributorID == nil {
		return nil
	}
	if err := ValidateID("id_distribuidor", *distributorID); err != nil {
		return err
	}
	if _, err := s.repo.GetDistributor(ctx, *distributorID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid("id_distribuidor", "El distribuidor %d no existe o no está activo", *distributorID)
		}
		return fmt.Errorf("check distributor: %w", err)
	}
	return nil
}
