package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PlacementStatus string

const (
	PlacementPending PlacementStatus = "pending"
	PlacementActive  PlacementStatus = "active"
	PlacementSold    PlacementStatus = "sold"
)

// Placement is one product's negotiated line item in a showroom.
// Version is bumped on every write to a pending line and guards concurrent thread updates.
type Placement struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID            uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index;uniqueIndex:idx_placements_pending_line,where:status = 'pending'" json:"product_id"`
	ShowroomID           uuid.UUID           `gorm:"column:showroom_id;type:uuid;not null;index;uniqueIndex:idx_placements_pending_line" json:"showroom_id"`
	Status               PlacementStatus     `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	StockQuantity        int                 `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	AgreedCommissionRate decimal.NullDecimal `gorm:"column:agreed_commission_rate;type:decimal(5,2)" json:"agreed_commission_rate"`
	InitiatedBy          Side                `gorm:"column:initiated_by;type:varchar(10);not null" json:"initiated_by"`
	Version              int                 `gorm:"column:version;not null;default:1" json:"version"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

func (Placement) TableName() string {
	return "Placements"
}

func (p *Placement) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
