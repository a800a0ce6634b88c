package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRequestType string

const (
	PaymentSales PaymentRequestType = "sales"
	PaymentRent  PaymentRequestType = "rent"
)

type PaymentRequestStatus string

const (
	PaymentPending   PaymentRequestStatus = "pending"
	PaymentAccepted  PaymentRequestStatus = "accepted"
	PaymentContested PaymentRequestStatus = "contested"
	PaymentCompleted PaymentRequestStatus = "completed"
	PaymentCancelled PaymentRequestStatus = "cancelled"
)

// PaymentRequest is a bilateral claim for money between a brand and a showroom.
// AmountCents is what the payee nets; PlatformFeeCents is paid by the payer on top.
type PaymentRequest struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Type             PaymentRequestType   `gorm:"column:type;type:varchar(10);not null" json:"type"`
	AmountCents      int64                `gorm:"column:amount_cents;not null" json:"amount_cents"`
	PlatformFeeCents int64                `gorm:"column:platform_fee_cents;not null" json:"platform_fee_cents"`
	InitiatorSide    Side                 `gorm:"column:initiator_side;type:varchar(10);not null" json:"initiator_side"`
	BrandID          uuid.UUID            `gorm:"column:brand_id;type:uuid;not null;index" json:"brand_id"`
	ShowroomID       uuid.UUID            `gorm:"column:showroom_id;type:uuid;not null;index" json:"showroom_id"`
	PlacementID      *uuid.UUID           `gorm:"column:placement_id;type:uuid" json:"placement_id"`
	CandidatureID    *uuid.UUID           `gorm:"column:candidature_id;type:uuid" json:"candidature_id"`
	Status           PaymentRequestStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	Motif            *string              `gorm:"column:motif" json:"motif"`
	AttachmentPath   *string              `gorm:"column:attachment_path" json:"attachment_path"`
	ContestNote      *string              `gorm:"column:contest_note" json:"contest_note"`
	RespondedAt      *time.Time           `gorm:"column:responded_at" json:"responded_at"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

func (PaymentRequest) TableName() string {
	return "PaymentRequests"
}

func (p *PaymentRequest) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
