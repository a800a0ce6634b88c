package notifications

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/notifications"
	"showroom-backend/internal/domain"
	"showroom-backend/internal/middleware"
	"showroom-backend/internal/pkg/constants"
	"showroom-backend/internal/pkg/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Handlers, *testutil.Fixture) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 1)
	return &Handlers{Inbox: &notifications.ListSink{Client: rdb}, DB: db, Access: &access.GormChecker{DB: db}}, f
}

func appFor(h *Handlers, user uuid.UUID) *fiber.App {
	app := fiber.New()
	g := app.Group("/notifications", testutil.AsUser(user, constants.Member), middleware.RequireAuth())
	g.Get("/", h.List)
	g.Get("/history/:brand_id/:showroom_id", h.History)
	return app
}

func get(t *testing.T, app *fiber.App, target string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil))
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestList_CounterpartyInbox(t *testing.T) {
	h, f := setup(t)
	ev := notifications.Event{
		Type:        notifications.CandidatureSubmitted,
		SubjectType: "candidature",
		SubjectID:   uuid.New(),
		BrandID:     f.Brand.ID,
		ShowroomID:  f.Showroom.ID,
		ActorSide:   domain.SideBrand,
		At:          time.Now().UTC(),
	}
	require.NoError(t, h.Inbox.Notify(context.Background(), ev))

	code, out := get(t, appFor(h, f.ShowroomOwner.UserID), "/notifications?side=showroom&account_id="+f.Showroom.ID.String())
	require.Equal(t, fiber.StatusOK, code, out)
	events := out["data"].([]interface{})
	require.Len(t, events, 1)
	assert.Equal(t, notifications.CandidatureSubmitted, events[0].(map[string]interface{})["type"])

	code, out = get(t, appFor(h, f.BrandOwner.UserID), "/notifications?side=brand&account_id="+f.Brand.ID.String())
	require.Equal(t, fiber.StatusOK, code)
	assert.Empty(t, out["data"])

	code, _ = get(t, appFor(h, f.BrandOwner.UserID), "/notifications?side=showroom&account_id="+f.Showroom.ID.String())
	assert.Equal(t, fiber.StatusForbidden, code)
}

func TestHistory(t *testing.T) {
	h, f := setup(t)
	require.NoError(t, notifications.Record(f.DB, notifications.Event{
		Type:        notifications.PaymentRequested,
		SubjectType: "payment_request",
		SubjectID:   uuid.New(),
		BrandID:     f.Brand.ID,
		ShowroomID:  f.Showroom.ID,
		ActorSide:   domain.SideShowroom,
	}))
	path := "/notifications/history/" + f.Brand.ID.String() + "/" + f.Showroom.ID.String()

	code, out := get(t, appFor(h, f.BrandOwner.UserID), path)
	require.Equal(t, fiber.StatusOK, code, out)
	rows := out["data"].([]interface{})
	require.Len(t, rows, 1)
	assert.Equal(t, notifications.PaymentRequested, rows[0].(map[string]interface{})["event_type"])

	code, _ = get(t, appFor(h, f.Stranger.UserID), path)
	assert.Equal(t, fiber.StatusForbidden, code)
}
