package placements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var maxRate = decimal.NewFromInt(100)

// Service negotiates product placements between a brand and a showroom.
// Thread writes check the caller's Revision and then update each line with
// WHERE version = ?, so a concurrent change surfaces as ErrStaleThread.
type Service struct {
	DB          *gorm.DB
	Access      access.Checker
	Clock       clock.Clock
	Notifier    *notifications.Publisher
	DefaultRate decimal.Decimal
}

type ProposeInput struct {
	ProductID  uuid.UUID
	ShowroomID uuid.UUID
	Quantity   int
	Rate       *decimal.Decimal
	Side       domain.Side
}

// LineEdit changes one pending line. Quantity 0 removes it; a nil Rate keeps the current one.
type LineEdit struct {
	PlacementID uuid.UUID
	Quantity    int
	Rate        *decimal.Decimal
}

type Addition struct {
	ProductID uuid.UUID
	Quantity  int
	Rate      *decimal.Decimal
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now()
}

// Propose opens or extends the caller's offer with one product line.
func (s *Service) Propose(ctx context.Context, actor uuid.UUID, in ProposeInput) (*Thread, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if err := checkRate(in.Rate); err != nil {
		return nil, err
	}
	product, err := s.product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	key := Key{BrandID: product.BrandID, ShowroomID: in.ShowroomID}
	if err := access.RequireSide(ctx, s.Access, actor, in.Side, key.account(in.Side)); err != nil {
		return nil, err
	}
	if err := s.requirePartnership(ctx, key); err != nil {
		return nil, err
	}

	line := domain.Placement{
		ID:            uuid.New(),
		ProductID:     in.ProductID,
		ShowroomID:    in.ShowroomID,
		Status:        domain.PlacementPending,
		StockQuantity: in.Quantity,
		InitiatedBy:   in.Side,
		Version:       1,
	}
	if in.Rate != nil {
		line.AgreedCommissionRate = decimal.NewNullDecimal(*in.Rate)
	}

	var ev notifications.Event
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockThread(tx, key); err != nil {
			return err
		}
		lines, err := pendingLines(tx, key)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if l.ProductID == in.ProductID {
				return fmt.Errorf("%w: product already has a pending offer in this thread, counter it instead", domain.ErrInvalidState)
			}
		}
		if len(lines) > 0 && lines[0].InitiatedBy != in.Side {
			return fmt.Errorf("%w: thread is awaiting your response, counter it instead", domain.ErrInvalidState)
		}
		if err := tx.Create(&line).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: product already has a pending offer in this thread", domain.ErrInvalidState)
			}
			return err
		}
		threadID := line.ID
		if len(lines) > 0 {
			threadID = lines[0].ID
		}
		ev = s.event(notifications.PlacementProposed, key, threadID, in.Side, map[string]interface{}{
			"placement_id": line.ID,
			"product_id":   line.ProductID,
			"quantity":     line.StockQuantity,
		})
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.load(ctx, key)
}

// Accept activates every pending line of the thread. quantities overrides the
// offered stock per placement id.
func (s *Service) Accept(ctx context.Context, actor uuid.UUID, key Key, side domain.Side, revision string, quantities map[uuid.UUID]int) (*Thread, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, key.account(side)); err != nil {
		return nil, err
	}
	fallback, err := s.fallbackRate(ctx, key.ShowroomID)
	if err != nil {
		return nil, err
	}

	var ev notifications.Event
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.respondable(tx, key, side, revision)
		if err != nil {
			return err
		}
		byID := indexLines(lines)
		for id, q := range quantities {
			if _, ok := byID[id]; !ok {
				return fmt.Errorf("%w: placement %s is not pending in this thread", domain.ErrInvalidInput, id)
			}
			if q <= 0 {
				return fmt.Errorf("%w: accepted quantity must be positive", domain.ErrInvalidInput)
			}
		}
		accepted := make([]map[string]interface{}, 0, len(lines))
		for _, l := range lines {
			qty := l.StockQuantity
			if q, ok := quantities[l.ID]; ok {
				qty = q
			}
			if qty <= 0 {
				return fmt.Errorf("%w: placement %s has no quantity", domain.ErrInvalidInput, l.ID)
			}
			rate := fallback
			if l.AgreedCommissionRate.Valid {
				rate = l.AgreedCommissionRate.Decimal
			}
			if err := bump(tx, l, map[string]interface{}{
				"status":                 domain.PlacementActive,
				"stock_quantity":         qty,
				"agreed_commission_rate": decimal.NewNullDecimal(rate),
			}); err != nil {
				return err
			}
			accepted = append(accepted, map[string]interface{}{"placement_id": l.ID, "quantity": qty, "rate": rate.String()})
		}
		ev = s.event(notifications.PlacementAccepted, key, lines[0].ID, side, map[string]interface{}{"lines": accepted})
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	log.Info().Str("brand_id", key.BrandID.String()).Str("showroom_id", key.ShowroomID.String()).Msg("placement thread accepted")
	return s.load(ctx, key)
}

// Decline deletes every pending line of the thread.
func (s *Service) Decline(ctx context.Context, actor uuid.UUID, key Key, side domain.Side, revision string) (*Thread, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, key.account(side)); err != nil {
		return nil, err
	}
	var ev notifications.Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.respondable(tx, key, side, revision)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := remove(tx, l); err != nil {
				return err
			}
		}
		ev = s.event(notifications.PlacementDeclined, key, lines[0].ID, side, map[string]interface{}{"declined": len(lines)})
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.load(ctx, key)
}

// Counter rewrites the pending offer and hands the turn back to the other side.
func (s *Service) Counter(ctx context.Context, actor uuid.UUID, key Key, side domain.Side, revision string, edits []LineEdit, additions []Addition) (*Thread, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, key.account(side)); err != nil {
		return nil, err
	}
	for _, e := range edits {
		if e.Quantity < 0 {
			return nil, fmt.Errorf("%w: quantity cannot be negative", domain.ErrInvalidInput)
		}
		if err := checkRate(e.Rate); err != nil {
			return nil, err
		}
	}
	for _, a := range additions {
		if a.Quantity <= 0 {
			return nil, fmt.Errorf("%w: added lines need a positive quantity", domain.ErrInvalidInput)
		}
		if err := checkRate(a.Rate); err != nil {
			return nil, err
		}
		p, err := s.product(ctx, a.ProductID)
		if err != nil {
			return nil, err
		}
		if p.BrandID != key.BrandID {
			return nil, fmt.Errorf("%w: product belongs to another brand", domain.ErrInvalidInput)
		}
	}

	var ev notifications.Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.respondable(tx, key, side, revision)
		if err != nil {
			return err
		}
		threadID := lines[0].ID
		byID := indexLines(lines)
		editFor := make(map[uuid.UUID]LineEdit, len(edits))
		for _, e := range edits {
			if _, ok := byID[e.PlacementID]; !ok {
				return fmt.Errorf("%w: placement %s is not pending in this thread", domain.ErrInvalidInput, e.PlacementID)
			}
			editFor[e.PlacementID] = e
		}

		products := make(map[uuid.UUID]bool)
		removed := 0
		for _, l := range lines {
			e, edited := editFor[l.ID]
			if edited && e.Quantity == 0 {
				if err := remove(tx, l); err != nil {
					return err
				}
				removed++
				continue
			}
			products[l.ProductID] = true
			cols := map[string]interface{}{"initiated_by": side}
			if edited {
				cols["stock_quantity"] = e.Quantity
				if e.Rate != nil {
					cols["agreed_commission_rate"] = decimal.NewNullDecimal(*e.Rate)
				}
			}
			if err := bump(tx, l, cols); err != nil {
				return err
			}
		}
		for _, a := range additions {
			if products[a.ProductID] {
				return fmt.Errorf("%w: product %s already has a pending line", domain.ErrInvalidInput, a.ProductID)
			}
			products[a.ProductID] = true
			line := domain.Placement{
				ProductID:     a.ProductID,
				ShowroomID:    key.ShowroomID,
				Status:        domain.PlacementPending,
				StockQuantity: a.Quantity,
				InitiatedBy:   side,
				Version:       1,
			}
			if a.Rate != nil {
				line.AgreedCommissionRate = decimal.NewNullDecimal(*a.Rate)
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		ev = s.event(notifications.PlacementCountered, key, threadID, side, map[string]interface{}{
			"edited":  len(edits) - removed,
			"removed": removed,
			"added":   len(additions),
		})
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.load(ctx, key)
}

// WithdrawOwn deletes the caller's unanswered pending lines.
func (s *Service) WithdrawOwn(ctx context.Context, actor uuid.UUID, key Key, side domain.Side) (*Thread, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, key.account(side)); err != nil {
		return nil, err
	}
	var ev notifications.Event
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockThread(tx, key); err != nil {
			return err
		}
		lines, err := pendingLines(tx, key)
		if err != nil {
			return err
		}
		if len(lines) == 0 || lines[0].InitiatedBy != side {
			return fmt.Errorf("%w: no pending offer of yours to withdraw", domain.ErrInvalidState)
		}
		for _, l := range lines {
			if err := remove(tx, l); err != nil {
				return err
			}
		}
		ev = s.event(notifications.PlacementWithdrawn, key, lines[0].ID, side, map[string]interface{}{"withdrawn": len(lines)})
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.load(ctx, key)
}

// Thread returns the pending offer between a brand and a showroom.
func (s *Service) Thread(ctx context.Context, actor uuid.UUID, key Key) (*Thread, error) {
	if err := access.RequireParty(ctx, s.Access, actor, key.BrandID, key.ShowroomID); err != nil {
		return nil, err
	}
	return s.load(ctx, key)
}

// KeyOf resolves the thread key of any placement, whatever its status.
func (s *Service) KeyOf(ctx context.Context, placementID uuid.UUID) (Key, error) {
	p, err := s.placement(ctx, placementID)
	if err != nil {
		return Key{}, err
	}
	product, err := s.product(ctx, p.ProductID)
	if err != nil {
		return Key{}, err
	}
	return Key{BrandID: product.BrandID, ShowroomID: p.ShowroomID}, nil
}

// ThreadsForAccount lists every thread with pending lines the account is party to.
func (s *Service) ThreadsForAccount(ctx context.Context, actor uuid.UUID, side domain.Side, accountID uuid.UUID) ([]Thread, error) {
	if err := access.RequireSide(ctx, s.Access, actor, side, accountID); err != nil {
		return nil, err
	}
	q := s.DB.WithContext(ctx).Where("status = ?", domain.PlacementPending)
	if side == domain.SideBrand {
		q = q.Where(brandProducts, accountID)
	} else {
		q = q.Where("showroom_id = ?", accountID)
	}
	var lines []domain.Placement
	if err := q.Order("created_at ASC, id ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	owners, err := s.productOwners(ctx, lines)
	if err != nil {
		return nil, err
	}
	grouped := make(map[Key][]domain.Placement)
	var order []Key
	for _, l := range lines {
		k := Key{BrandID: owners[l.ProductID], ShowroomID: l.ShowroomID}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], l)
	}
	out := make([]Thread, 0, len(order))
	for _, k := range order {
		out = append(out, *newThread(k, grouped[k]))
	}
	return out, nil
}

// Lines lists a pair's placements in one status (active stock, sold history).
func (s *Service) Lines(ctx context.Context, actor uuid.UUID, key Key, status domain.PlacementStatus) ([]domain.Placement, error) {
	if err := access.RequireParty(ctx, s.Access, actor, key.BrandID, key.ShowroomID); err != nil {
		return nil, err
	}
	var out []domain.Placement
	err := s.DB.WithContext(ctx).
		Where("showroom_id = ? AND status = ?", key.ShowroomID, status).
		Where(brandProducts, key.BrandID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeclareSale records qty units sold from an active line. The line becomes sold at zero stock.
func (s *Service) DeclareSale(ctx context.Context, actor, placementID uuid.UUID, qty int) (*domain.Placement, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: sold quantity must be positive", domain.ErrInvalidInput)
	}
	p, err := s.placement(ctx, placementID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireSide(ctx, s.Access, actor, domain.SideShowroom, p.ShowroomID); err != nil {
		return nil, err
	}
	key, err := s.KeyOf(ctx, placementID)
	if err != nil {
		return nil, err
	}

	ev := s.event(notifications.PlacementSold, key, placementID, domain.SideShowroom, map[string]interface{}{
		"placement_id": placementID,
		"quantity":     qty,
	})
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Placement{}).
			Where("id = ? AND status = ? AND stock_quantity >= ?", placementID, domain.PlacementActive, qty).
			Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var cur domain.Placement
			if err := tx.Where("id = ?", placementID).First(&cur).Error; err != nil {
				return err
			}
			if cur.Status != domain.PlacementActive {
				return fmt.Errorf("%w: placement is %s", domain.ErrInvalidState, cur.Status)
			}
			return fmt.Errorf("%w: only %d in stock", domain.ErrInvalidInput, cur.StockQuantity)
		}
		if err := tx.Model(&domain.Placement{}).
			Where("id = ? AND status = ? AND stock_quantity = 0", placementID, domain.PlacementActive).
			Update("status", domain.PlacementSold).Error; err != nil {
			return err
		}
		return notifications.Record(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	s.Notifier.Publish(ctx, ev)
	return s.placement(ctx, placementID)
}

// respondable loads the pending set and checks the caller may answer it at this revision.
func (s *Service) respondable(tx *gorm.DB, key Key, side domain.Side, revision string) ([]domain.Placement, error) {
	if err := lockThread(tx, key); err != nil {
		return nil, err
	}
	lines, err := pendingLines(tx, key)
	if err != nil {
		return nil, err
	}
	if Revision(lines) != revision {
		return nil, domain.ErrStaleThread
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no pending offer in this thread", domain.ErrInvalidState)
	}
	for _, l := range lines {
		if l.InitiatedBy == side {
			return nil, fmt.Errorf("%w: thread is awaiting the other side", domain.ErrInvalidState)
		}
	}
	return lines, nil
}

// bump updates a pending line only if it is still at the version read.
func bump(tx *gorm.DB, l domain.Placement, cols map[string]interface{}) error {
	cols["version"] = gorm.Expr("version + 1")
	res := tx.Model(&domain.Placement{}).
		Where("id = ? AND version = ? AND status = ?", l.ID, l.Version, domain.PlacementPending).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleThread
	}
	return nil
}

func remove(tx *gorm.DB, l domain.Placement) error {
	res := tx.Where("id = ? AND version = ? AND status = ?", l.ID, l.Version, domain.PlacementPending).
		Delete(&domain.Placement{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleThread
	}
	return nil
}

func indexLines(lines []domain.Placement) map[uuid.UUID]domain.Placement {
	m := make(map[uuid.UUID]domain.Placement, len(lines))
	for _, l := range lines {
		m[l.ID] = l
	}
	return m
}

func checkRate(r *decimal.Decimal) error {
	if r == nil {
		return nil
	}
	if r.IsNegative() || r.GreaterThan(maxRate) {
		return fmt.Errorf("%w: commission rate must be between 0 and 100", domain.ErrInvalidInput)
	}
	return nil
}

func (s *Service) load(ctx context.Context, key Key) (*Thread, error) {
	lines, err := pendingLines(s.DB.WithContext(ctx), key)
	if err != nil {
		return nil, err
	}
	return newThread(key, lines), nil
}

func (s *Service) requirePartnership(ctx context.Context, key Key) error {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Candidature{}).
		Where("brand_id = ? AND showroom_id = ? AND status = ?", key.BrandID, key.ShowroomID, domain.CandidatureAccepted).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: brand and showroom have no accepted candidature", domain.ErrInvalidState)
	}
	return nil
}

// fallbackRate is the showroom default, else the platform default.
func (s *Service) fallbackRate(ctx context.Context, showroomID uuid.UUID) (decimal.Decimal, error) {
	var sh domain.Showroom
	if err := s.DB.WithContext(ctx).Where("id = ?", showroomID).First(&sh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, fmt.Errorf("%w: showroom", domain.ErrNotFound)
		}
		return decimal.Zero, err
	}
	if sh.DefaultCommissionRate.Valid {
		return sh.DefaultCommissionRate.Decimal, nil
	}
	return s.DefaultRate, nil
}

func (s *Service) product(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product", domain.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) placement(ctx context.Context, id uuid.UUID) (*domain.Placement, error) {
	var p domain.Placement
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: placement", domain.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) productOwners(ctx context.Context, lines []domain.Placement) (map[uuid.UUID]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	owners := make(map[uuid.UUID]uuid.UUID, len(ids))
	if len(ids) == 0 {
		return owners, nil
	}
	var products []domain.Product
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		owners[p.ID] = p.BrandID
	}
	return owners, nil
}

func (s *Service) event(eventType string, key Key, subject uuid.UUID, actor domain.Side, data map[string]interface{}) notifications.Event {
	return notifications.Event{
		Type:        eventType,
		SubjectType: domain.SubjectPlacement,
		SubjectID:   subject,
		BrandID:     key.BrandID,
		ShowroomID:  key.ShowroomID,
		ActorSide:   actor,
		Data:        data,
		At:          s.now(),
	}
}
