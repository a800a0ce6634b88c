package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Brand is a seller account. Credits and ReservedCredits are mutated only by the ledger package.
type Brand struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OwnerUserID     uuid.UUID `gorm:"column:owner_user_id;type:uuid;not null;index" json:"owner_user_id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	ContactEmail    string    `gorm:"column:contact_email" json:"contact_email"`
	Credits         int       `gorm:"column:credits;not null;default:0" json:"credits"`
	ReservedCredits int       `gorm:"column:reserved_credits;not null;default:0" json:"reserved_credits"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (Brand) TableName() string {
	return "Brands"
}

// Available is the number of credits that can still back a new candidature.
func (b Brand) Available() int {
	return b.Credits - b.ReservedCredits
}

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
