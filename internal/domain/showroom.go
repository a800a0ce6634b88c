package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Showroom is a host account publishing listings and commission options.
type Showroom struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerUserID           uuid.UUID           `gorm:"column:owner_user_id;type:uuid;not null;index" json:"owner_user_id"`
	Name                  string              `gorm:"column:name;not null" json:"name"`
	ContactEmail          string              `gorm:"column:contact_email" json:"contact_email"`
	DefaultCommissionRate decimal.NullDecimal `gorm:"column:default_commission_rate;type:decimal(5,2)" json:"default_commission_rate"`
	CreatedAt             time.Time           `json:"createdAt"`
	UpdatedAt             time.Time           `json:"updatedAt"`
}

func (Showroom) TableName() string {
	return "Showrooms"
}

func (s *Showroom) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
