package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RentPeriodWeek   = "week"
	RentPeriodMonth  = "month"
	RentPeriodYear   = "year"
	RentPeriodOneOff = "one_off"
)

// CommissionOption is a showroom-authored term sheet a brand can pick when applying.
type CommissionOption struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ShowroomID        uuid.UUID       `gorm:"column:showroom_id;type:uuid;not null;index" json:"showroom_id"`
	RentCents         int64           `gorm:"column:rent_cents;not null;default:0" json:"rent_cents"`
	RentPeriod        string          `gorm:"column:rent_period;type:varchar(10);not null;default:'month'" json:"rent_period"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:decimal(5,2);not null" json:"commission_percent"`
	Description       string          `gorm:"column:description" json:"description"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (CommissionOption) TableName() string {
	return "CommissionOptions"
}

func (o *CommissionOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
