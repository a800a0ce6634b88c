package listings

import (
	"context"
	"errors"
	"fmt"

	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lookup resolves the showroom reference data candidatures are validated against.
type Lookup interface {
	Listing(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	CommissionOption(ctx context.Context, id uuid.UUID) (*domain.CommissionOption, error)
}

type Service struct {
	DB *gorm.DB
}

func (s *Service) Listing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: listing_id is required", domain.ErrInvalidInput)
	}
	var l domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: listing", domain.ErrNotFound)
		}
		return nil, err
	}
	return &l, nil
}

func (s *Service) CommissionOption(ctx context.Context, id uuid.UUID) (*domain.CommissionOption, error) {
	var o domain.CommissionOption
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: commission option", domain.ErrNotFound)
		}
		return nil, err
	}
	return &o, nil
}

// ShowroomListings returns a showroom's listings, newest first.
func (s *Service) ShowroomListings(ctx context.Context, showroomID uuid.UUID) ([]domain.Listing, error) {
	var out []domain.Listing
	err := s.DB.WithContext(ctx).Where("showroom_id = ?", showroomID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// ShowroomOptions returns the commission options a brand can pick when applying.
func (s *Service) ShowroomOptions(ctx context.Context, showroomID uuid.UUID) ([]domain.CommissionOption, error) {
	var out []domain.CommissionOption
	err := s.DB.WithContext(ctx).Where("showroom_id = ?", showroomID).Order("created_at ASC").Find(&out).Error
	return out, err
}
