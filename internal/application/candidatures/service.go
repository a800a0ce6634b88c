package candidatures

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/ledger"
	"showroom-backend/internal/application/listings"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const DefaultExpiry = 30 * 24 * time.Hour

// Service runs the candidature state machine. Every transition out of pending is
// a conditional update keyed on status = 'pending', so the credit reservation is
// settled or released exactly once.
type Service struct {
	DB       *gorm.DB
	Ledger   *ledger.Service
	Access   access.Checker
	Listings listings.Lookup
	Clock    clock.Clock
	Notifier *notifications.Publisher
	Expiry   time.Duration
}

// View is a candidature with its offer variant exposed.
type View struct {
	domain.Candidature
	Offer domain.Offer `json:"offer"`
}

func newView(c domain.Candidature) View {
	return View{Candidature: c, Offer: c.Offer()}
}

type SubmitInput struct {
	BrandID    uuid.UUID
	ShowroomID uuid.UUID
	ListingID  *uuid.UUID
	Offer      domain.Offer
	StartAt    *time.Time
	EndAt      *time.Time
	Message    string
}

type EditInput struct {
	Offer   domain.Offer
	StartAt *time.Time
	EndAt   *time.Time
	Message *string
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

func (s *Service) expiry() time.Duration {
	if s.Expiry > 0 {
		return s.Expiry
	}
	return DefaultExpiry
}

// Submit reserves one brand credit and opens a pending candidature.
func (s *Service) Submit(ctx context.Context, actor uuid.UUID, in SubmitInput) (*View, error) {
	if err := access.RequireSide(ctx, s.Access, actor, domain.SideBrand, in.BrandID); err != nil {
		return nil, err
	}
	if err := s.showroomExists(ctx, in.ShowroomID); err != nil {
		return nil, err
	}
	if err := s.checkOffer(ctx, in.ShowroomID, in.Offer); err != nil {
		return nil, err
	}
	now := s.now()
	listing, err := s.listingFor(ctx, in.ShowroomID, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing != nil && !listing.AcceptsApplicationsAt(now) {
		return nil, domain.ErrWindowClosed
	}
	expiresAt, err := s.expiresAt(now, listing, in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}

	c := domain.Candidature{
		ID:                 uuid.New(),
		BrandID:            in.BrandID,
		ShowroomID:         in.ShowroomID,
		ListingID:          in.ListingID,
		Status:             domain.CandidaturePending,
		PartnershipStartAt: in.StartAt,
		PartnershipEndAt:   in.EndAt,
		ExpiresAt:          expiresAt,
		Message:            strings.TrimSpace(in.Message),
	}
	c.SetOffer(in.Offer)
	ev := s.event(notifications.CandidatureSubmitted, c, domain.SideBrand, map[string]interface{}{
		"offer_kind": in.Offer.Kind,
		"expires_at": expiresAt,
	})

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.Reserve(tx, c.BrandID, c.ID); err != nil {
			return err
		}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	log.Info().Str("candidature_id", c.ID.String()).Str("brand_id", c.BrandID.String()).Msg("candidature submitted")
	return s.view(ctx, c.ID)
}

// Accept moves a pending candidature to accepted and spends the reserved credit.
func (s *Service) Accept(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	return s.decide(ctx, actor, id, domain.SideShowroom, domain.CandidatureAccepted, notifications.CandidatureAccepted,
		func(tx *gorm.DB, c *domain.Candidature) error { return s.Ledger.SettleAccept(tx, c.BrandID, c.ID) })
}

// Reject moves a pending candidature to rejected and returns the reserved credit.
func (s *Service) Reject(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	return s.decide(ctx, actor, id, domain.SideShowroom, domain.CandidatureRejected, notifications.CandidatureRejected,
		func(tx *gorm.DB, c *domain.Candidature) error { return s.Ledger.Release(tx, c.BrandID, c.ID) })
}

// Cancel lets the brand withdraw a pending candidature and get its credit back.
func (s *Service) Cancel(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	return s.decide(ctx, actor, id, domain.SideBrand, domain.CandidatureCancelled, notifications.CandidatureCancelled,
		func(tx *gorm.DB, c *domain.Candidature) error { return s.Ledger.Release(tx, c.BrandID, c.ID) })
}

func (s *Service) decide(ctx context.Context, actor, id uuid.UUID, side domain.Side, to domain.CandidatureStatus, eventType string, settle func(tx *gorm.DB, c *domain.Candidature) error) (*View, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSide(ctx, s.Access, actor, side, accountOn(*c, side)); err != nil {
		return nil, err
	}
	if c.Status != domain.CandidaturePending {
		return nil, fmt.Errorf("%w: candidature is %s", domain.ErrInvalidState, c.Status)
	}
	now := s.now()
	ev := s.event(eventType, *c, side, map[string]interface{}{"status": to})

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transition(tx, c.ID, to, now); err != nil {
			return err
		}
		if err := settle(tx, c); err != nil {
			return err
		}
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.view(ctx, id)
}

// Edit replaces the terms of a pending candidature. The reservation is untouched.
func (s *Service) Edit(ctx context.Context, actor, id uuid.UUID, in EditInput) (*View, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSide(ctx, s.Access, actor, domain.SideBrand, c.BrandID); err != nil {
		return nil, err
	}
	if c.Status != domain.CandidaturePending {
		return nil, fmt.Errorf("%w: candidature is %s", domain.ErrInvalidState, c.Status)
	}
	if err := s.checkOffer(ctx, c.ShowroomID, in.Offer); err != nil {
		return nil, err
	}
	listing, err := s.listingFor(ctx, c.ShowroomID, c.ListingID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expiresAt, err := s.expiresAt(now, listing, in.StartAt, in.EndAt)
	if err != nil {
		return nil, err
	}

	updates := domain.OfferColumns(in.Offer)
	updates["partnership_start_at"] = in.StartAt
	updates["partnership_end_at"] = in.EndAt
	updates["expires_at"] = expiresAt
	if in.Message != nil {
		updates["message"] = strings.TrimSpace(*in.Message)
	}
	ev := s.event(notifications.CandidatureEdited, *c, domain.SideBrand, map[string]interface{}{
		"offer_kind": in.Offer.Kind,
		"expires_at": expiresAt,
	})

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Candidature{}).
			Where("id = ? AND status = ?", c.ID, domain.CandidaturePending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: candidature is no longer pending", domain.ErrInvalidState)
		}
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.view(ctx, id)
}

// SweepExpired expires every pending candidature past its expires_at and releases
// its reservation. Rows moved out of pending by someone else are skipped.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	var due []domain.Candidature
	err := s.DB.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.CandidaturePending, now).
		Order("expires_at ASC").
		Find(&due).Error
	if err != nil {
		return 0, err
	}

	expired := 0
	var events []notifications.Event
	for _, c := range due {
		ev := s.event(notifications.CandidatureExpired, c, "", map[string]interface{}{"expires_at": c.ExpiresAt})
		moved := false
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&domain.Candidature{}).
				Where("id = ? AND status = ? AND expires_at < ?", c.ID, domain.CandidaturePending, now).
				Updates(map[string]interface{}{"status": domain.CandidatureExpired, "decided_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			if err := s.Ledger.Release(tx, c.BrandID, c.ID); err != nil {
				return err
			}
			moved = true
			return notifications.Record(tx, ev)
		})
		if err != nil {
			log.Error().Err(err).Str("candidature_id", c.ID.String()).Msg("sweep: expire candidature failed")
			continue
		}
		if moved {
			expired++
			events = append(events, ev)
		}
	}
	s.Notifier.Publish(ctx, events...)
	if expired > 0 {
		log.Info().Int("expired", expired).Msg("sweep: candidatures expired")
	}
	return expired, nil
}

// Get returns a candidature to either party.
func (s *Service) Get(ctx context.Context, actor, id uuid.UUID) (*View, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.RequireParty(ctx, s.Access, actor, c.BrandID, c.ShowroomID); err != nil {
		return nil, err
	}
	v := newView(*c)
	return &v, nil
}

// ListForAccount lists the candidatures of one brand or showroom, newest first.
func (s *Service) ListForAccount(ctx context.Context, actor uuid.UUID, side domain.Side, accountID uuid.UUID, status string) ([]View, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, accountID); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Model(&domain.Candidature{})
	if side == domain.SideBrand {
		q = q.Where("brand_id = ?", accountID)
	} else {
		q = q.Where("showroom_id = ?", accountID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []domain.Candidature
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, c := range rows {
		out = append(out, newView(c))
	}
	return out, nil
}

func transition(tx *gorm.DB, id uuid.UUID, to domain.CandidatureStatus, at time.Time) error {
	res := tx.Model(&domain.Candidature{}).
		Where("id = ? AND status = ?", id, domain.CandidaturePending).
		Updates(map[string]interface{}{"status": to, "decided_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: candidature is no longer pending", domain.ErrInvalidState)
	}
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Candidature, error) {
	var c domain.Candidature
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: candidature", domain.ErrNotFound)
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) view(ctx context.Context, id uuid.UUID) (*View, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := newView(*c)
	return &v, nil
}

func (s *Service) showroomExists(ctx context.Context, id uuid.UUID) error {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Showroom{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: showroom", domain.ErrNotFound)
	}
	return nil
}

func (s *Service) checkOffer(ctx context.Context, showroomID uuid.UUID, o domain.Offer) error {
	if !o.Valid() {
		return fmt.Errorf("%w: choose a commission option or write a negotiation message", domain.ErrInvalidInput)
	}
	if o.Kind != domain.OfferOption {
		return nil
	}
	opt, err := s.Listings.CommissionOption(ctx, o.OptionID)
	if err != nil {
		return err
	}
	if opt.ShowroomID != showroomID {
		return fmt.Errorf("%w: commission option belongs to another showroom", domain.ErrInvalidInput)
	}
	return nil
}

func (s *Service) listingFor(ctx context.Context, showroomID uuid.UUID, listingID *uuid.UUID) (*domain.Listing, error) {
	if listingID == nil {
		return nil, nil
	}
	l, err := s.Listings.Listing(ctx, *listingID)
	if err != nil {
		return nil, err
	}
	if l.ShowroomID != showroomID {
		return nil, fmt.Errorf("%w: listing belongs to another showroom", domain.ErrInvalidInput)
	}
	return l, nil
}

// expiresAt picks the partnership end, then the listing end, then the default horizon.
func (s *Service) expiresAt(now time.Time, listing *domain.Listing, start, end *time.Time) (time.Time, error) {
	if start != nil && end != nil && start.After(*end) {
		return time.Time{}, fmt.Errorf("%w: partnership start is after its end", domain.ErrInvalidInput)
	}
	if end != nil {
		if !end.After(now) {
			return time.Time{}, fmt.Errorf("%w: partnership end is in the past", domain.ErrInvalidInput)
		}
		return end.UTC(), nil
	}
	if listing != nil && listing.EndDate != nil && listing.EndDate.After(now) {
		return listing.EndDate.UTC(), nil
	}
	return now.Add(s.expiry()), nil
}

func (s *Service) event(eventType string, c domain.Candidature, actor domain.Side, data map[string]interface{}) notifications.Event {
	return notifications.Event{
		Type:        eventType,
		SubjectType: domain.SubjectCandidature,
		SubjectID:   c.ID,
		BrandID:     c.BrandID,
		ShowroomID:  c.ShowroomID,
		ActorSide:   actor,
		Data:        data,
		At:          s.now(),
	}
}

func accountOn(c domain.Candidature, side domain.Side) uuid.UUID {
	if side == domain.SideBrand {
		return c.BrandID
	}
	return c.ShowroomID
}
