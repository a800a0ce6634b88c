package ledger

import (
	"context"
	"errors"
	"fmt"

	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service owns the brand credit pair (credits, reserved_credits).
// Every mutation is one conditional UPDATE so concurrent requests for the same
// brand serialize on the row instead of racing on a stale read.
// Mutating methods take the caller's transaction so they commit or roll back
// together with the state transition they back.
type Service struct {
	DB *gorm.DB
}

// Balance is the read view of a brand's credits.
type Balance struct {
	BrandID         uuid.UUID `json:"brand_id"`
	Credits         int       `json:"credits"`
	ReservedCredits int       `json:"reserved_credits"`
	Available       int       `json:"available"`
}

// Reserve earmarks one credit for a pending candidature.
func (s *Service) Reserve(tx *gorm.DB, brandID, candidatureID uuid.UUID) error {
	res := tx.Model(&domain.Brand{}).
		Where("id = ? AND credits - reserved_credits >= 1", brandID).
		Update("reserved_credits", gorm.Expr("reserved_credits + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		b, err := loadBrand(tx, brandID)
		if err != nil {
			return err
		}
		if b.Credits > 0 {
			return domain.ErrSlotsFull
		}
		return domain.ErrInsufficientCredits
	}
	return journal(tx, brandID, domain.MovementReserve, 1, &candidatureID)
}

// SettleAccept spends a reserved credit: both columns drop by one.
func (s *Service) SettleAccept(tx *gorm.DB, brandID, candidatureID uuid.UUID) error {
	res := tx.Model(&domain.Brand{}).
		Where("id = ? AND credits >= 1 AND reserved_credits >= 1", brandID).
		Updates(map[string]interface{}{
			"credits":          gorm.Expr("credits - 1"),
			"reserved_credits": gorm.Expr("reserved_credits - 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		b, err := loadBrand(tx, brandID)
		if err != nil {
			return err
		}
		log.Error().
			Str("brand_id", brandID.String()).
			Str("candidature_id", candidatureID.String()).
			Int("credits", b.Credits).
			Int("reserved_credits", b.ReservedCredits).
			Msg("ledger settle would drive credits negative")
		return fmt.Errorf("%w: brand %s has credits=%d reserved=%d", domain.ErrInvariantViolation, brandID, b.Credits, b.ReservedCredits)
	}
	return journal(tx, brandID, domain.MovementSettle, 1, &candidatureID)
}

// Release returns a reserved credit. Floored at zero so a double release is harmless.
func (s *Service) Release(tx *gorm.DB, brandID, candidatureID uuid.UUID) error {
	res := tx.Model(&domain.Brand{}).
		Where("id = ? AND reserved_credits > 0", brandID).
		Update("reserved_credits", gorm.Expr("reserved_credits - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Warn().
			Str("brand_id", brandID.String()).
			Str("candidature_id", candidatureID.String()).
			Msg("ledger release found no reserved credit")
		return nil
	}
	return journal(tx, brandID, domain.MovementRelease, 1, &candidatureID)
}

// Grant adds purchased credits to a brand.
func (s *Service) Grant(tx *gorm.DB, brandID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: grant amount must be positive", domain.ErrInvalidInput)
	}
	res := tx.Model(&domain.Brand{}).
		Where("id = ?", brandID).
		Update("credits", gorm.Expr("credits + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: brand", domain.ErrNotFound)
	}
	return journal(tx, brandID, domain.MovementGrant, amount, nil)
}

// GrantCredits runs Grant in its own transaction and returns the new balance.
func (s *Service) GrantCredits(ctx context.Context, brandID uuid.UUID, amount int) (*Balance, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.Grant(tx, brandID, amount)
	})
	if err != nil {
		return nil, err
	}
	return s.Balance(ctx, brandID)
}

func (s *Service) Balance(ctx context.Context, brandID uuid.UUID) (*Balance, error) {
	b, err := loadBrand(s.DB.WithContext(ctx), brandID)
	if err != nil {
		return nil, err
	}
	return &Balance{
		BrandID:         b.ID,
		Credits:         b.Credits,
		ReservedCredits: b.ReservedCredits,
		Available:       b.Available(),
	}, nil
}

// History returns the brand's credit movements, newest first.
func (s *Service) History(ctx context.Context, brandID uuid.UUID, limit int) ([]domain.CreditMovement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []domain.CreditMovement
	err := s.DB.WithContext(ctx).
		Where("brand_id = ?", brandID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func loadBrand(tx *gorm.DB, brandID uuid.UUID) (*domain.Brand, error) {
	var b domain.Brand
	if err := tx.Where("id = ?", brandID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: brand", domain.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

func journal(tx *gorm.DB, brandID uuid.UUID, kind string, amount int, candidatureID *uuid.UUID) error {
	b, err := loadBrand(tx, brandID)
	if err != nil {
		return err
	}
	return tx.Create(&domain.CreditMovement{
		BrandID:       brandID,
		Kind:          kind,
		Amount:        amount,
		CandidatureID: candidatureID,
		CreditsAfter:  b.Credits,
		ReservedAfter: b.ReservedCredits,
	}).Error
}
