package access

import (
	"context"
	"fmt"

	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Checker answers "does this user control this brand / showroom".
type Checker interface {
	ControlsBrand(ctx context.Context, userID, brandID uuid.UUID) (bool, error)
	ControlsShowroom(ctx context.Context, userID, showroomID uuid.UUID) (bool, error)
}

// GormChecker resolves ownership through owner_user_id.
type GormChecker struct {
	DB *gorm.DB
}

func (g *GormChecker) ControlsBrand(ctx context.Context, userID, brandID uuid.UUID) (bool, error) {
	return g.owns(ctx, &domain.Brand{}, userID, brandID)
}

func (g *GormChecker) ControlsShowroom(ctx context.Context, userID, showroomID uuid.UUID) (bool, error) {
	return g.owns(ctx, &domain.Showroom{}, userID, showroomID)
}

func (g *GormChecker) owns(ctx context.Context, model interface{}, userID, accountID uuid.UUID) (bool, error) {
	var n int64
	err := g.DB.WithContext(ctx).Model(model).
		Where("id = ? AND owner_user_id = ?", accountID, userID).
		Count(&n).Error
	return n > 0, err
}

// RequireSide returns ErrUnauthorized unless userID controls the account on the given side.
func RequireSide(ctx context.Context, c Checker, userID uuid.UUID, side domain.Side, accountID uuid.UUID) error {
	var (
		ok  bool
		err error
	)
	switch side {
	case domain.SideBrand:
		ok, err = c.ControlsBrand(ctx, userID, accountID)
	case domain.SideShowroom:
		ok, err = c.ControlsShowroom(ctx, userID, accountID)
	default:
		return fmt.Errorf("%w: unknown side %q", domain.ErrInvalidInput, side)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: caller does not control this %s", domain.ErrUnauthorized, side)
	}
	return nil
}

// SideOf returns the side userID acts on for a brand/showroom pair. When the user
// controls both accounts, preferred decides; an empty preferred is then ambiguous.
func SideOf(ctx context.Context, c Checker, userID, brandID, showroomID uuid.UUID, preferred domain.Side) (domain.Side, error) {
	isBrand, err := c.ControlsBrand(ctx, userID, brandID)
	if err != nil {
		return "", err
	}
	isShowroom, err := c.ControlsShowroom(ctx, userID, showroomID)
	if err != nil {
		return "", err
	}
	switch {
	case isBrand && isShowroom:
		if preferred.Valid() {
			return preferred, nil
		}
		return "", fmt.Errorf("%w: caller controls both parties, side is required", domain.ErrInvalidInput)
	case isBrand:
		if preferred.Valid() && preferred != domain.SideBrand {
			return "", fmt.Errorf("%w: caller does not control the showroom", domain.ErrUnauthorized)
		}
		return domain.SideBrand, nil
	case isShowroom:
		if preferred.Valid() && preferred != domain.SideShowroom {
			return "", fmt.Errorf("%w: caller does not control the brand", domain.ErrUnauthorized)
		}
		return domain.SideShowroom, nil
	}
	return "", fmt.Errorf("%w: caller is not a party to this partnership", domain.ErrUnauthorized)
}

// RequireParty returns ErrUnauthorized unless userID controls the brand or the showroom.
func RequireParty(ctx context.Context, c Checker, userID, brandID, showroomID uuid.UUID) error {
	isBrand, err := c.ControlsBrand(ctx, userID, brandID)
	if err != nil || isBrand {
		return err
	}
	isShowroom, err := c.ControlsShowroom(ctx, userID, showroomID)
	if err != nil || isShowroom {
		return err
	}
	return fmt.Errorf("%w: caller is not a party to this partnership", domain.ErrUnauthorized)
}
