package paymentrequests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/attachments"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var feeRate = decimal.RequireFromString("0.02")

// PlatformFee is 2% of amount, rounded up to the next cent.
func PlatformFee(amountCents int64) int64 {
	return decimal.NewFromInt(amountCents).Mul(feeRate).Ceil().IntPart()
}

const WarningNoDeal = "No settled deal links these accounts; the counterparty may contest this request."

type Service struct {
	DB          *gorm.DB
	Access      access.Checker
	Attachments *attachments.Service
	Clock       clock.Clock
	Notifier    *notifications.Publisher
}

// CreateInput names the deal by CandidatureID (rent) or PlacementID (sales).
// Without one, InitiatorAccountID and CounterpartID identify the two accounts.
type CreateInput struct {
	Type               domain.PaymentRequestType
	AmountCents        int64
	Side               domain.Side
	CandidatureID      *uuid.UUID
	PlacementID        *uuid.UUID
	InitiatorAccountID *uuid.UUID
	CounterpartID      *uuid.UUID
	Motif              *string
	AttachmentPath     *string
}

// View adds the resolved attachment URL.
type View struct {
	domain.PaymentRequest
	AttachmentURL string `json:"attachment_url,omitempty"`
}

type CreateResult struct {
	Request  View     `json:"request"`
	Warnings []string `json:"warnings"`
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

// Create records a pending payment request from the initiating side.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, in CreateInput) (*CreateResult, error) {
	if in.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if in.Type != domain.PaymentRent && in.Type != domain.PaymentSales {
		return nil, fmt.Errorf("%w: type must be rent or sales", domain.ErrInvalidInput)
	}
	if !in.Side.Valid() {
		return nil, fmt.Errorf("%w: initiator side must be brand or showroom", domain.ErrInvalidInput)
	}

	req := domain.PaymentRequest{
		ID:               uuid.New(),
		Type:             in.Type,
		AmountCents:      in.AmountCents,
		PlatformFeeCents: PlatformFee(in.AmountCents),
		InitiatorSide:    in.Side,
		Status:           domain.PaymentPending,
		Motif:            trimmed(in.Motif),
		AttachmentPath:   trimmed(in.AttachmentPath),
	}
	warnings := []string{}
	if err := s.resolveDeal(ctx, in, &req, &warnings); err != nil {
		return nil, err
	}
	account := req.BrandID
	if in.Side == domain.SideShowroom {
		account = req.ShowroomID
	}
	if err := access.RequireSide(ctx, s.Access, actor, in.Side, account); err != nil {
		return nil, err
	}

	ev := s.event(notifications.PaymentRequested, req, in.Side, map[string]interface{}{
		"type":               req.Type,
		"amount_cents":       req.AmountCents,
		"platform_fee_cents": req.PlatformFeeCents,
	})
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&req).Error; err != nil {
			return err
		}
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	v, err := s.view(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &CreateResult{Request: *v, Warnings: warnings}, nil
}

func (s *Service) resolveDeal(ctx context.Context, in CreateInput, req *domain.PaymentRequest, warnings *[]string) error {
	db := s.DB.WithContext(ctx)
	switch {
	case in.Type == domain.PaymentRent && in.CandidatureID != nil:
		var c domain.Candidature
		if err := db.Where("id = ?", *in.CandidatureID).First(&c).Error; err != nil {
			return notFound(err, "candidature")
		}
		if c.Status != domain.CandidatureAccepted {
			return fmt.Errorf("%w: rent needs an accepted candidature, this one is %s", domain.ErrInvalidState, c.Status)
		}
		req.BrandID, req.ShowroomID, req.CandidatureID = c.BrandID, c.ShowroomID, &c.ID
		return nil
	case in.Type == domain.PaymentSales && in.PlacementID != nil:
		var p domain.Placement
		if err := db.Where("id = ?", *in.PlacementID).First(&p).Error; err != nil {
			return notFound(err, "placement")
		}
		switch p.Status {
		case domain.PlacementPending, domain.PlacementActive, domain.PlacementSold:
		default:
			return fmt.Errorf("%w: placement is %s", domain.ErrInvalidState, p.Status)
		}
		var product domain.Product
		if err := db.Where("id = ?", p.ProductID).First(&product).Error; err != nil {
			return notFound(err, "product")
		}
		req.BrandID, req.ShowroomID, req.PlacementID = product.BrandID, p.ShowroomID, &p.ID
		return nil
	case in.CandidatureID != nil || in.PlacementID != nil:
		return fmt.Errorf("%w: rent references a candidature, sales reference a placement", domain.ErrInvalidInput)
	}

	if in.InitiatorAccountID == nil || in.CounterpartID == nil {
		return fmt.Errorf("%w: a deal reference or both account ids are required", domain.ErrInvalidInput)
	}
	brandID, showroomID := *in.InitiatorAccountID, *in.CounterpartID
	if in.Side == domain.SideShowroom {
		brandID, showroomID = showroomID, brandID
	}
	if err := exists(db, &domain.Brand{}, brandID, "brand"); err != nil {
		return err
	}
	if err := exists(db, &domain.Showroom{}, showroomID, "showroom"); err != nil {
		return err
	}
	req.BrandID, req.ShowroomID = brandID, showroomID

	// link the most recent deal between the pair when one exists
	if in.Type == domain.PaymentRent {
		var c domain.Candidature
		err := db.Where("brand_id = ? AND showroom_id = ? AND status = ?", brandID, showroomID, domain.CandidatureAccepted).
			Order("decided_at DESC").Take(&c).Error
		if err == nil {
			req.CandidatureID = &c.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	} else {
		var p domain.Placement
		err := db.Where("showroom_id = ? AND status IN ?", showroomID, []domain.PlacementStatus{domain.PlacementActive, domain.PlacementSold}).
			Where(`product_id IN (SELECT id FROM "Products" WHERE brand_id = ?)`, brandID).
			Order("updated_at DESC").Take(&p).Error
		if err == nil {
			req.PlacementID = &p.ID
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	*warnings = append(*warnings, WarningNoDeal)
	return nil
}

// Accept acknowledges a pending request. Only the counterparty may accept.
func (s *Service) Accept(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	return s.respond(ctx, actor, id, domain.PaymentAccepted, notifications.PaymentAccepted, nil)
}

// Contest disputes a pending request. The note is required and returned to the initiator.
func (s *Service) Contest(ctx context.Context, actor, id uuid.UUID, note string) (*View, error) {
	note = strings.TrimSpace(note)
	return s.respond(ctx, actor, id, domain.PaymentContested, notifications.PaymentContested, &note)
}

func (s *Service) respond(ctx context.Context, actor, id uuid.UUID, to domain.PaymentRequestStatus, eventType string, note *string) (*View, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	responder := req.InitiatorSide.Other()
	account := req.BrandID
	if responder == domain.SideShowroom {
		account = req.ShowroomID
	}
	if err := access.RequireSide(ctx, s.Access, actor, responder, account); err != nil {
		return nil, err
	}
	if note != nil && *note == "" {
		return nil, domain.ErrMissingReason
	}
	if req.Status != domain.PaymentPending {
		return nil, fmt.Errorf("%w: payment request is %s", domain.ErrInvalidState, req.Status)
	}

	now := s.now()
	data := map[string]interface{}{"status": to}
	if note != nil {
		data["contest_note"] = *note
	}
	ev := s.event(eventType, *req, responder, data)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.PaymentRequest{}).
			Where("id = ? AND status = ?", id, domain.PaymentPending).
			Updates(map[string]interface{}{"status": to, "contest_note": note, "responded_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: payment request is no longer pending", domain.ErrInvalidState)
		}
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.view(ctx, id)
}

// Get returns a request to either party.
func (s *Service) Get(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireParty(ctx, s.Access, actor, req.BrandID, req.ShowroomID); err != nil {
		return nil, err
	}
	return s.toView(ctx, *req), nil
}

// ListForAccount lists the requests a brand or showroom is party to, newest first.
func (s *Service) ListForAccount(ctx context.Context, actor uuid.UUID, side domain.Side, accountID uuid.UUID, status string) ([]View, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, accountID); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Model(&domain.PaymentRequest{})
	if side == domain.SideBrand {
		q = q.Where("brand_id = ?", accountID)
	} else {
		q = q.Where("showroom_id = ?", accountID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []domain.PaymentRequest
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		out = append(out, *s.toView(ctx, r))
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	var req domain.PaymentRequest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, notFound(err, "payment request")
	}
	return &req, nil
}

func (s *Service) view(ctx context.Context, id uuid.UUID) (*View, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toView(ctx, *req), nil
}

func (s *Service) toView(ctx context.Context, req domain.PaymentRequest) *View {
	return &View{PaymentRequest: req, AttachmentURL: s.Attachments.URL(ctx, req.AttachmentPath)}
}

func (s *Service) event(eventType string, req domain.PaymentRequest, actor domain.Side, data map[string]interface{}) notifications.Event {
	return notifications.Event{
		Type:        eventType,
		SubjectType: domain.SubjectPaymentRequest,
		SubjectID:   req.ID,
		BrandID:     req.BrandID,
		ShowroomID:  req.ShowroomID,
		ActorSide:   actor,
		Data:        data,
		At:          s.now(),
	}
}

func exists(db *gorm.DB, model interface{}, id uuid.UUID, what string) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return err
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
