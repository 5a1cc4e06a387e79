package catalog

import (
	"context"
	"errors"
	"fmt"
)

const (
	topCategoriesLimit    = 10
	mostUsedCategoryLimit = 5
)

// ListCategories returns active categories ordered by name, optionally of one type.
func (s *Service) ListCategories(ctx context.Context, categoryType string) ([]*Category, error) {
	if categoryType != "" {
		t, err := ValidateCategoryType(categoryType)
		if err != nil {
			return nil, err
		}
		categoryType = t
	}
	categories, err := s.repo.ListCategories(ctx, categoryType)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []*Category{}
	}
	return categories, nil
}

// GetCategory returns an active category by id.
func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	if err := ValidateID("id_categoria", id); err != nil {
		return nil, err
	}
	c, err := s.repo.GetCategory(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, categoryNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// CreateCategory stores a new category with a case-insensitively unique name.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	c, err := validateCategoryInput(in, "")
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCategoryName(ctx, c.Name, 0); err != nil {
		return nil, err
	}

	c.Active = true
	c.CreatedAt = s.now().UTC()
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, conflict("Ya existe una categoría con el nombre '%s'", c.Name)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.log(ctx).WithFields(map[string]interface{}{
		"category_id": c.ID,
		"name":        c.Name,
	}).Info("Category created")
	return c, nil
}

// UpdateCategory replaces name, description and type of an active category.
// An empty type keeps the current one.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (*Category, error) {
	existing, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := validateCategoryInput(in, existing.Type)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCategoryName(ctx, c.Name, id); err != nil {
		return nil, err
	}

	existing.Name = c.Name
	existing.Description = c.Description
	existing.Type = c.Type
	if err := s.repo.UpdateCategory(ctx, existing); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, categoryNotFound()
		}
		if errors.Is(err, ErrDuplicate) {
			return nil, conflict("Ya existe una categoría con el nombre '%s'", c.Name)
		}
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}

	s.log(ctx).WithField("category_id", id).Info("Category updated")
	return existing, nil
}

// DeleteCategory soft-deletes a category that no active filter references.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	n, err := s.repo.CountActiveFiltersInCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("count filters in category %d: %w", id, err)
	}
	if n > 0 {
		return conflict("No se puede eliminar la categoría porque tiene %d filtro(s) asociado(s)", n)
	}
	if err := s.repo.DeactivateCategory(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return categoryNotFound()
		}
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.log(ctx).WithField("category_id", id).Info("Category deactivated")
	return nil
}

// SearchCategories matches term against category names and descriptions.
func (s *Service) SearchCategories(ctx context.Context, term string, limit int) ([]*Category, error) {
	term, err := ValidateSearchTerm(term)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.SearchCategories(ctx, term, NormalizeSearchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	if categories == nil {
		categories = []*Category{}
	}
	return categories, nil
}

// CategoryStatistics returns totals per type, the categories with most filters
// and the most used ones.
func (s *Service) CategoryStatistics(ctx context.Context) (*CategoryStats, error) {
	byType, err := s.repo.CountCategoriesByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("count categories by type: %w", err)
	}
	counts, err := s.repo.CategoryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}

	stats := &CategoryStats{
		ByType:             byType,
		FiltersPerCategory: []CategoryCount{},
		MostUsed:           []CategoryCount{},
	}
	for _, n := range byType {
		stats.Total += n
	}
	for i, c := range counts {
		if i < topCategoriesLimit {
			stats.FiltersPerCategory = append(stats.FiltersPerCategory, c)
		}
		if c.Count > 0 && len(stats.MostUsed) < mostUsedCategoryLimit {
			stats.MostUsed = append(stats.MostUsed, c)
		}
	}
	return stats, nil
}

func (s *Service) ensureUniqueCategoryName(ctx context.Context, name string, excludeID int64) error {
	_, err := s.repo.FindCategoryByName(ctx, name, excludeID)
	if err == nil {
		return conflict("Ya existe una categoría con el nombre '%s'", name)
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("check category name: %w", err)
	}
	return nil
}

func validateCategoryInput(in CategoryInput, currentType string) (*Category, error) {
	name, err := ValidateCategoryName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := ValidateCategoryDescription(in.Description)
	if err != nil {
		return nil, err
	}
	rawType := in.Type
	if Sanitize(rawType) == "" && currentType != "" {
		rawType = currentType
	}
	t, err := ValidateCategoryType(rawType)
	if err != nil {
		return nil, err
	}
	return &Category{Name: name, Description: desc, Type: t}, nil
}
