package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SubjectCandidature    = "candidature"
	SubjectPlacement      = "placement_thread"
	SubjectPaymentRequest = "payment_request"
)

// PartnershipEvent is the audit row written alongside every state transition.
type PartnershipEvent struct {
	EventID     uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	EventType   string         `gorm:"column:event_type;type:varchar(40);not null;index" json:"event_type"`
	SubjectType string         `gorm:"column:subject_type;type:varchar(30);not null" json:"subject_type"`
	SubjectID   uuid.UUID      `gorm:"column:subject_id;type:uuid;not null;index" json:"subject_id"`
	BrandID     uuid.UUID      `gorm:"column:brand_id;type:uuid;not null;index" json:"brand_id"`
	ShowroomID  uuid.UUID      `gorm:"column:showroom_id;type:uuid;not null;index" json:"showroom_id"`
	ActorSide   *Side          `gorm:"column:actor_side;type:varchar(10)" json:"actor_side"`
	EventData   datatypes.JSON `gorm:"column:event_data;type:jsonb;not null" json:"event_data"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (PartnershipEvent) TableName() string {
	return "PartnershipEvents"
}

func (e *PartnershipEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}

// Models lists every table for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&User{}, &Brand{}, &Showroom{}, &Product{}, &Listing{}, &CommissionOption{},
		&Candidature{}, &Placement{}, &PaymentRequest{}, &CreditMovement{}, &PartnershipEvent{},
	}
}
