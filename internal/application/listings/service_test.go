package listings

import (
	"context"
	"errors"
	"testing"
	"time"

	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListing_FoundAndMissing(t *testing.T) {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 0)
	open := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := domain.Listing{ShowroomID: f.Showroom.ID, Title: "Spring pop-up", OpenDate: &open}
	require.NoError(t, db.Create(&l).Error)

	s := &Service{DB: db}
	got, err := s.Listing(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spring pop-up", got.Title)

	_, err = s.Listing(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = s.Listing(context.Background(), uuid.Nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCommissionOptionAndShowroomOptions(t *testing.T) {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 0)
	s := &Service{DB: db}

	o, err := s.CommissionOption(context.Background(), f.Option.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Showroom.ID, o.ShowroomID)

	opts, err := s.ShowroomOptions(context.Background(), f.Showroom.ID)
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}
