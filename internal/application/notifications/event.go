// Package notifications records partnership transitions and fans them out to
// the counterparty after commit.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CandidatureSubmitted = "candidature.submitted"
	CandidatureAccepted  = "candidature.accepted"
	CandidatureRejected  = "candidature.rejected"
	CandidatureCancelled = "candidature.cancelled"
	CandidatureEdited    = "candidature.edited"
	CandidatureExpired   = "candidature.expired"

	PlacementProposed  = "placement.proposed"
	PlacementAccepted  = "placement.accepted"
	PlacementDeclined  = "placement.declined"
	PlacementCountered = "placement.countered"
	PlacementWithdrawn = "placement.withdrawn"
	PlacementSold      = "placement.sale_declared"

	PaymentRequested = "payment_request.created"
	PaymentAccepted  = "payment_request.accepted"
	PaymentContested = "payment_request.contested"
)

// Event describes one transition. ActorSide is empty for system transitions (expiry).
type Event struct {
	Type        string                 `json:"type"`
	SubjectType string                 `json:"subject_type"`
	SubjectID   uuid.UUID              `json:"subject_id"`
	BrandID     uuid.UUID              `json:"brand_id"`
	ShowroomID  uuid.UUID              `json:"showroom_id"`
	ActorSide   domain.Side            `json:"actor_side,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
	At          time.Time              `json:"at"`
}

// Recipient is one account an event is addressed to.
type Recipient struct {
	Side      domain.Side
	AccountID uuid.UUID
}

// Recipients is the counterparty of the actor, or both parties for system events.
func (e Event) Recipients() []Recipient {
	brand := Recipient{Side: domain.SideBrand, AccountID: e.BrandID}
	showroom := Recipient{Side: domain.SideShowroom, AccountID: e.ShowroomID}
	switch e.ActorSide {
	case domain.SideBrand:
		return []Recipient{showroom}
	case domain.SideShowroom:
		return []Recipient{brand}
	}
	return []Recipient{brand, showroom}
}

// Record appends the audit row inside the caller's transaction.
func Record(tx *gorm.DB, ev Event) error {
	data := ev.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	row := domain.PartnershipEvent{
		EventType:   ev.Type,
		SubjectType: ev.SubjectType,
		SubjectID:   ev.SubjectID,
		BrandID:     ev.BrandID,
		ShowroomID:  ev.ShowroomID,
		EventData:   datatypes.JSON(raw),
	}
	if ev.ActorSide.Valid() {
		side := ev.ActorSide
		row.ActorSide = &side
	}
	if !ev.At.IsZero() {
		row.CreatedAt = ev.At
	}
	return tx.Create(&row).Error
}

// History returns the audit rows of a brand/showroom pair, newest first.
func History(ctx context.Context, db *gorm.DB, brandID, showroomID uuid.UUID, limit int) ([]domain.PartnershipEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []domain.PartnershipEvent
	err := db.WithContext(ctx).
		Where("brand_id = ? AND showroom_id = ?", brandID, showroomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
