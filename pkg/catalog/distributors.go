package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ListDistributors returns active distributors ordered by name.
func (s *Service) ListDistributors(ctx context.Context) ([]*Distributor, error) {
	ds, err := s.repo.ListDistributors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list distributors: %w", err)
	}
	if ds == nil {
		ds = []*Distributor{}
	}
	return ds, nil
}

// GetDistributor returns an active distributor by id.
func (s *Service) GetDistributor(ctx context.Context, id int64) (*Distributor, error) {
	if err := ValidateID("id_distribuidor", id); err != nil {
		return nil, err
	}
	d, err := s.repo.GetDistributor(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, distributorNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("get distributor %d: %w", id, err)
	}
	return d, nil
}

// CreateDistributor stores a distributor with a unique RUT.
func (s *Service) CreateDistributor(ctx context.Context, in DistributorInput) (*Distributor, error) {
	in, err := ValidateDistributor(in)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.DistributorRUTExists(ctx, in.RUT)
	if err != nil {
		return nil, fmt.Errorf("check distributor rut: %w", err)
	}
	if exists {
		return nil, conflict("Ya existe un distribuidor con el RUT %s", in.RUT)
	}

	d := &Distributor{
		Name:      in.Name,
		RUT:       in.RUT,
		Contact:   in.Contact,
		Phone:     in.Phone,
		Email:     in.Email,
		Address:   in.Address,
		City:      in.City,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateDistributor(ctx, d); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, conflict("Ya existe un distribuidor con el RUT %s", in.RUT)
		}
		return nil, fmt.Errorf("create distributor: %w", err)
	}

	s.log(ctx).WithField("distributor_id", d.ID).Info("Distributor created")
	return d, nil
}
