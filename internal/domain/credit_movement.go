package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MovementGrant   = "grant"
	MovementReserve = "reserve"
	MovementSettle  = "settle"
	MovementRelease = "release"
)

// CreditMovement journals one ledger operation with the balances it produced.
type CreditMovement struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BrandID       uuid.UUID  `gorm:"column:brand_id;type:uuid;not null;index" json:"brand_id"`
	Kind          string     `gorm:"column:kind;type:varchar(10);not null" json:"kind"`
	Amount        int        `gorm:"column:amount;not null" json:"amount"`
	CandidatureID *uuid.UUID `gorm:"column:candidature_id;type:uuid;index" json:"candidature_id"`
	CreditsAfter  int        `gorm:"column:credits_after;not null" json:"credits_after"`
	ReservedAfter int        `gorm:"column:reserved_after;not null" json:"reserved_after"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (CreditMovement) TableName() string {
	return "CreditMovements"
}

func (m *CreditMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
