package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CandidatureStatus string

const (
	CandidaturePending   CandidatureStatus = "pending"
	CandidatureAccepted  CandidatureStatus = "accepted"
	CandidatureRejected  CandidatureStatus = "rejected"
	CandidatureCancelled CandidatureStatus = "cancelled"
	CandidatureExpired   CandidatureStatus = "expired"
)

func (s CandidatureStatus) Terminal() bool {
	return s != CandidaturePending
}

// OfferKind tags which variant of Offer is set.
type OfferKind string

const (
	OfferOption      OfferKind = "option"
	OfferNegotiation OfferKind = "negotiation"
)

// Offer is either a reference to a showroom CommissionOption or a free-text negotiation, never both.
type Offer struct {
	Kind        OfferKind `json:"kind"`
	OptionID    uuid.UUID `json:"option_id,omitempty"`
	Negotiation string    `json:"negotiation,omitempty"`
}

func OptionOffer(id uuid.UUID) Offer {
	return Offer{Kind: OfferOption, OptionID: id}
}

func NegotiationOffer(text string) Offer {
	return Offer{Kind: OfferNegotiation, Negotiation: strings.TrimSpace(text)}
}

// Valid checks the variant carries its payload.
func (o Offer) Valid() bool {
	switch o.Kind {
	case OfferOption:
		return o.OptionID != uuid.Nil
	case OfferNegotiation:
		return strings.TrimSpace(o.Negotiation) != ""
	}
	return false
}

// Candidature is a brand's application to partner with a showroom.
type Candidature struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BrandID            uuid.UUID         `gorm:"column:brand_id;type:uuid;not null;index" json:"brand_id"`
	ShowroomID         uuid.UUID         `gorm:"column:showroom_id;type:uuid;not null;index" json:"showroom_id"`
	ListingID          *uuid.UUID        `gorm:"column:listing_id;type:uuid" json:"listing_id"`
	Status             CandidatureStatus `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	CommissionOptionID *uuid.UUID        `gorm:"column:commission_option_id;type:uuid" json:"-"`
	NegotiationMessage *string           `gorm:"column:negotiation_message" json:"-"`
	PartnershipStartAt *time.Time        `gorm:"column:partnership_start_at" json:"partnership_start_at"`
	PartnershipEndAt   *time.Time        `gorm:"column:partnership_end_at" json:"partnership_end_at"`
	ExpiresAt          time.Time         `gorm:"column:expires_at;not null;index" json:"expires_at"`
	Message            string            `gorm:"column:message" json:"message"`
	DecidedAt          *time.Time        `gorm:"column:decided_at" json:"decided_at"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func (Candidature) TableName() string {
	return "Candidatures"
}

func (c *Candidature) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Offer rebuilds the tagged variant from its two storage columns.
func (c Candidature) Offer() Offer {
	if c.CommissionOptionID != nil {
		return OptionOffer(*c.CommissionOptionID)
	}
	if c.NegotiationMessage != nil {
		return NegotiationOffer(*c.NegotiationMessage)
	}
	return Offer{}
}

// SetOffer stores the variant, clearing the other column.
func (c *Candidature) SetOffer(o Offer) {
	c.CommissionOptionID = nil
	c.NegotiationMessage = nil
	switch o.Kind {
	case OfferOption:
		id := o.OptionID
		c.CommissionOptionID = &id
	case OfferNegotiation:
		text := o.Negotiation
		c.NegotiationMessage = &text
	}
}

// OfferColumns returns the column values of o, for partial updates.
func OfferColumns(o Offer) map[string]interface{} {
	var c Candidature
	c.SetOffer(o)
	return map[string]interface{}{
		"commission_option_id": c.CommissionOptionID,
		"negotiation_message":  c.NegotiationMessage,
	}
}
