package app

import (
	"context"
	"testing"

	"showroom-backend/internal/application/candidatures"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/config"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:                   "test",
		AttachmentBackend:     "supabase",
		DefaultCommissionRate: decimal.NewFromInt(30),
	}
}

func TestNewServices_SubmitReachesInbox(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 1)
	svc, err := NewServices(testConfig(), db, rdb)
	require.NoError(t, err)
	assert.False(t, svc.Publisher.Async)

	_, err = svc.Candidatures.Submit(context.Background(), f.BrandOwner.UserID, candidatures.SubmitInput{
		BrandID:    f.Brand.ID,
		ShowroomID: f.Showroom.ID,
		Offer:      domain.OptionOffer(f.Option.ID),
	})
	require.NoError(t, err)

	events, err := svc.Inbox.Inbox(context.Background(), domain.SideShowroom, f.Showroom.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, notifications.CandidatureSubmitted, events[0].Type)

	n, ran, err := svc.Sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0, n)
}

func TestAttachmentResolver(t *testing.T) {
	cfg := testConfig()
	r, err := AttachmentResolver(cfg)
	require.NoError(t, err)
	assert.NotNil(t, r)

	cfg.AttachmentBackend = "s3"
	cfg.AWSRegion = "eu-west-3"
	cfg.AWSS3Bucket = "showroom-attachments"
	cfg.AWSAccessKeyID = "AKIAEXAMPLE"
	cfg.AWSSecretAccessKey = "secret"
	r, err = AttachmentResolver(cfg)
	require.NoError(t, err)
	url, err := r.SignedURL(context.Background(), "payment-requests/a.pdf")
	require.NoError(t, err)
	assert.Contains(t, url, "payment-requests/a.pdf")

	cfg.AttachmentBackend = "ftp"
	_, err = AttachmentResolver(cfg)
	assert.Error(t, err)
}
