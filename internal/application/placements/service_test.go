package placements

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/clock"
	"showroom-backend/internal/pkg/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *testutil.Fixture, Key) {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 1)
	f.Partner(t)
	svc := &Service{
		DB:          db,
		Access:      &access.GormChecker{DB: db},
		Clock:       clock.NewFixed(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)),
		Notifier:    &notifications.Publisher{Sink: notifications.LogSink{}},
		DefaultRate: decimal.NewFromInt(30),
	}
	return svc, f, Key{BrandID: f.Brand.ID, ShowroomID: f.Showroom.ID}
}

func rate(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func lineFor(t *testing.T, th *Thread, product uuid.UUID) domain.Placement {
	t.Helper()
	for _, l := range th.Lines {
		if l.ProductID == product {
			return l
		}
	}
	t.Fatalf("no line for product %s", product)
	return domain.Placement{}
}

func TestCounterThenAccept(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	shop, brand := f.ShowroomOwner.UserID, f.BrandOwner.UserID

	th, err := s.Propose(ctx, shop, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 5, Side: domain.SideShowroom})
	require.NoError(t, err)
	require.Len(t, th.Lines, 1)
	p1 := th.Lines[0]
	assert.Equal(t, p1.ID, th.ThreadID)
	assert.Equal(t, domain.SideBrand, th.AwaitingSide)

	th, err = s.Counter(ctx, brand, key, domain.SideBrand, th.Revision,
		[]LineEdit{{PlacementID: p1.ID, Quantity: 3}},
		[]Addition{{ProductID: f.ProductY.ID, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, th.Lines, 2)
	assert.Equal(t, p1.ID, th.ThreadID)
	assert.Equal(t, domain.SideShowroom, th.AwaitingSide)
	for _, l := range th.Lines {
		assert.Equal(t, domain.SideBrand, l.InitiatedBy)
	}

	th, err = s.Accept(ctx, shop, key, domain.SideShowroom, th.Revision, nil)
	require.NoError(t, err)
	assert.Empty(t, th.Lines)
	assert.Equal(t, uuid.Nil, th.ThreadID)

	active, err := s.Lines(ctx, brand, key, domain.PlacementActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	byProduct := map[uuid.UUID]domain.Placement{}
	for _, l := range active {
		byProduct[l.ProductID] = l
	}
	assert.Equal(t, 3, byProduct[f.ProductX.ID].StockQuantity)
	assert.Equal(t, 2, byProduct[f.ProductY.ID].StockQuantity)
	assert.True(t, byProduct[f.ProductX.ID].AgreedCommissionRate.Decimal.Equal(decimal.NewFromInt(30)))
}

func TestAccept_AllLinesActive(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	brand := f.BrandOwner.UserID

	_, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 4, Rate: rate(25), Side: domain.SideBrand})
	require.NoError(t, err)
	th, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductY.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	require.NoError(t, err)
	require.Len(t, th.Lines, 2)

	require.NoError(t, f.DB.Model(&domain.Showroom{}).Where("id = ?", f.Showroom.ID).
		Update("default_commission_rate", decimal.NewNullDecimal(decimal.NewFromInt(18))).Error)

	x := lineFor(t, th, f.ProductX.ID)
	_, err = s.Accept(ctx, f.ShowroomOwner.UserID, key, domain.SideShowroom, th.Revision, map[uuid.UUID]int{x.ID: 2})
	require.NoError(t, err)

	active, err := s.Lines(ctx, brand, key, domain.PlacementActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, l := range active {
		if l.ProductID == f.ProductX.ID {
			assert.Equal(t, 2, l.StockQuantity)
			assert.True(t, l.AgreedCommissionRate.Decimal.Equal(decimal.NewFromInt(25)))
		} else {
			assert.Equal(t, 1, l.StockQuantity)
			assert.True(t, l.AgreedCommissionRate.Decimal.Equal(decimal.NewFromInt(18)))
		}
	}
	pending, err := s.Lines(ctx, brand, key, domain.PlacementPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAccept_OnlyResponder(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	th, err := s.Propose(ctx, f.BrandOwner.UserID, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	require.NoError(t, err)

	_, err = s.Accept(ctx, f.BrandOwner.UserID, key, domain.SideBrand, th.Revision, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = s.Accept(ctx, f.BrandOwner.UserID, key, domain.SideShowroom, th.Revision, nil)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestStaleRevision(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	brand := f.BrandOwner.UserID
	th, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	require.NoError(t, err)
	seen := th.Revision

	_, err = s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductY.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	require.NoError(t, err)

	_, err = s.Accept(ctx, f.ShowroomOwner.UserID, key, domain.SideShowroom, seen, nil)
	assert.True(t, errors.Is(err, domain.ErrStaleThread))
	pending, err := s.Lines(ctx, brand, key, domain.PlacementPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestProposeThenWithdraw(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	brand := f.BrandOwner.UserID

	_, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 2, Side: domain.SideBrand})
	require.NoError(t, err)

	_, err = s.WithdrawOwn(ctx, f.ShowroomOwner.UserID, key, domain.SideShowroom)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	th, err := s.WithdrawOwn(ctx, brand, key, domain.SideBrand)
	require.NoError(t, err)
	assert.Empty(t, th.Lines)

	var n int64
	f.DB.Model(&domain.Placement{}).Where("product_id = ?", f.ProductX.ID).Count(&n)
	assert.Equal(t, int64(0), n)
}

func TestPropose_Rules(t *testing.T) {
	s, f, _ := setup(t)
	ctx := context.Background()
	brand, shop := f.BrandOwner.UserID, f.ShowroomOwner.UserID

	_, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 0, Side: domain.SideBrand})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Rate: rate(101), Side: domain.SideBrand})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	require.NoError(t, err)

	_, err = s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 3, Side: domain.SideBrand})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = s.Propose(ctx, shop, ProposeInput{ProductID: f.ProductY.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideShowroom})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = s.Propose(ctx, f.Stranger.UserID, ProposeInput{ProductID: f.ProductY.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestPropose_ConcurrentProposalsKeepOneInitiator(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()

	type call struct {
		actor   uuid.UUID
		side    domain.Side
		product uuid.UUID
	}
	calls := []call{
		{f.BrandOwner.UserID, domain.SideBrand, f.ProductX.ID},
		{f.ShowroomOwner.UserID, domain.SideShowroom, f.ProductX.ID},
		{f.BrandOwner.UserID, domain.SideBrand, f.ProductY.ID},
		{f.ShowroomOwner.UserID, domain.SideShowroom, f.ProductY.ID},
		{f.BrandOwner.UserID, domain.SideBrand, f.ProductX.ID},
		{f.ShowroomOwner.UserID, domain.SideShowroom, f.ProductY.ID},
	}
	var wg sync.WaitGroup
	errs := make([]error, len(calls))
	for i, c := range calls {
		wg.Add(1)
		go func(i int, c call) {
			defer wg.Done()
			_, errs[i] = s.Propose(ctx, c.actor, ProposeInput{ProductID: c.product, ShowroomID: f.Showroom.ID, Quantity: 1, Side: c.side})
		}(i, c)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrInvalidState), err)
	}
	assert.GreaterOrEqual(t, ok, 1)

	th, err := s.Thread(ctx, f.BrandOwner.UserID, key)
	require.NoError(t, err)
	require.Len(t, th.Lines, ok)
	seen := map[uuid.UUID]bool{}
	for _, l := range th.Lines {
		assert.Equal(t, th.Lines[0].InitiatedBy, l.InitiatedBy)
		assert.False(t, seen[l.ProductID], "duplicate pending line for %s", l.ProductID)
		seen[l.ProductID] = true
	}
}

func TestPropose_RequiresAcceptedCandidature(t *testing.T) {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 1)
	s := &Service{DB: db, Access: &access.GormChecker{DB: db}, DefaultRate: decimal.NewFromInt(30)}

	_, err := s.Propose(context.Background(), f.BrandOwner.UserID, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideBrand})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestDecline(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	th, err := s.Propose(ctx, f.ShowroomOwner.UserID, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 1, Side: domain.SideShowroom})
	require.NoError(t, err)

	th, err = s.Decline(ctx, f.BrandOwner.UserID, key, domain.SideBrand, th.Revision)
	require.NoError(t, err)
	assert.Empty(t, th.Lines)

	_, err = s.Decline(ctx, f.BrandOwner.UserID, key, domain.SideBrand, th.Revision)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCounter_ZeroQuantityRemovesLine(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	brand := f.BrandOwner.UserID
	_, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 2, Side: domain.SideBrand})
	require.NoError(t, err)
	th, err := s.Propose(ctx, brand, ProposeInput{ProductID: f.ProductY.ID, ShowroomID: f.Showroom.ID, Quantity: 2, Side: domain.SideBrand})
	require.NoError(t, err)

	y := lineFor(t, th, f.ProductY.ID)
	th, err = s.Counter(ctx, f.ShowroomOwner.UserID, key, domain.SideShowroom, th.Revision,
		[]LineEdit{{PlacementID: y.ID, Quantity: 0}}, nil)
	require.NoError(t, err)
	require.Len(t, th.Lines, 1)
	assert.Equal(t, f.ProductX.ID, th.Lines[0].ProductID)
	assert.Equal(t, domain.SideShowroom, th.Lines[0].InitiatedBy)
	assert.Equal(t, 2, th.Lines[0].Version)
}

func TestThreadsForAccount(t *testing.T) {
	s, f, _ := setup(t)
	ctx := context.Background()
	_, err := s.Propose(ctx, f.BrandOwner.UserID, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 2, Side: domain.SideBrand})
	require.NoError(t, err)

	threads, err := s.ThreadsForAccount(ctx, f.ShowroomOwner.UserID, domain.SideShowroom, f.Showroom.ID)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, f.Brand.ID, threads[0].BrandID)
	assert.Equal(t, domain.SideShowroom, threads[0].AwaitingSide)
}

func TestDeclareSale(t *testing.T) {
	s, f, key := setup(t)
	ctx := context.Background()
	shop := f.ShowroomOwner.UserID
	th, err := s.Propose(ctx, f.BrandOwner.UserID, ProposeInput{ProductID: f.ProductX.ID, ShowroomID: f.Showroom.ID, Quantity: 2, Side: domain.SideBrand})
	require.NoError(t, err)
	id := th.Lines[0].ID

	_, err = s.DeclareSale(ctx, shop, id, 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	_, err = s.Accept(ctx, shop, key, domain.SideShowroom, th.Revision, nil)
	require.NoError(t, err)

	p, err := s.DeclareSale(ctx, shop, id, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)
	assert.Equal(t, domain.PlacementActive, p.Status)

	_, err = s.DeclareSale(ctx, shop, id, 5)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	p, err = s.DeclareSale(ctx, shop, id, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.PlacementSold, p.Status)

	_, err = s.DeclareSale(ctx, f.BrandOwner.UserID, id, 1)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	k, err := s.KeyOf(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, key, k)
}

func TestRevision_OrderIndependent(t *testing.T) {
	a := domain.Placement{ID: uuid.New(), Version: 1}
	b := domain.Placement{ID: uuid.New(), Version: 3}
	assert.Equal(t, Revision([]domain.Placement{a, b}), Revision([]domain.Placement{b, a}))
	b.Version = 4
	assert.NotEqual(t, Revision([]domain.Placement{a}), Revision([]domain.Placement{a, b}))
}
