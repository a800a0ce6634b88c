package paymentrequests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"showroom-backend/internal/application/access"
	"showroom-backend/internal/application/paymentrequests"
	"showroom-backend/internal/middleware"
	"showroom-backend/internal/pkg/constants"
	"showroom-backend/internal/pkg/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	f   *testutil.Fixture
	svc *paymentrequests.Service
}

func setup(t *testing.T) *env {
	db := testutil.OpenDB(t)
	f := testutil.Seed(t, db, 1)
	return &env{f: f, svc: &paymentrequests.Service{DB: db, Access: &access.GormChecker{DB: db}}}
}

func (e *env) app(user uuid.UUID) *fiber.App {
	h := &Handlers{Service: e.svc}
	app := fiber.New()
	g := app.Group("/payment-requests", testutil.AsUser(user, constants.Member), middleware.RequireAuth())
	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/:id", h.Get)
	g.Post("/:id/accept", h.Accept)
	g.Post("/:id/contest", h.Contest)
	return app
}

func call(t *testing.T, app *fiber.App, method, target string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func errorCode(out map[string]interface{}) interface{} {
	e, _ := out["error"].(map[string]interface{})
	d, _ := e["details"].(map[string]interface{})
	return d["code"]
}

func (e *env) rentBody(amount int64) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "rent",
		"amount_cents":         amount,
		"initiator_side":       "showroom",
		"initiator_account_id": e.f.Showroom.ID,
		"counterpart_id":       e.f.Brand.ID,
		"motif":                "April shelf rent",
	}
}

func TestCreateWithWarningThenContest(t *testing.T) {
	e := setup(t)
	shop := e.app(e.f.ShowroomOwner.UserID)
	brand := e.app(e.f.BrandOwner.UserID)

	code, out := call(t, shop, http.MethodPost, "/payment-requests", e.rentBody(10001))
	require.Equal(t, fiber.StatusCreated, code, out)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(201), data["platform_fee_cents"])
	warnings := out["metadata"].(map[string]interface{})["warnings"].([]interface{})
	assert.Equal(t, []interface{}{paymentrequests.WarningNoDeal}, warnings)
	id := data["id"].(string)

	code, _ = call(t, shop, http.MethodPost, "/payment-requests/"+id+"/accept", nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out = call(t, brand, http.MethodPost, "/payment-requests/"+id+"/contest", map[string]interface{}{"note": "   "})
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	assert.Equal(t, "missing_reason", errorCode(out))

	code, out = call(t, brand, http.MethodPost, "/payment-requests/"+id+"/contest", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)

	code, out = call(t, brand, http.MethodPost, "/payment-requests/"+id+"/contest", map[string]interface{}{"note": "We agreed on a lower rent"})
	require.Equal(t, fiber.StatusOK, code, out)
	assert.Equal(t, "contested", out["data"].(map[string]interface{})["status"])

	code, out = call(t, brand, http.MethodPost, "/payment-requests/"+id+"/accept", nil)
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, "invalid_state", errorCode(out))
}

func TestCreate_InvalidAmountIs422(t *testing.T) {
	e := setup(t)
	code, out := call(t, e.app(e.f.ShowroomOwner.UserID), http.MethodPost, "/payment-requests", e.rentBody(0))
	assert.Equal(t, fiber.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_amount", errorCode(out))
}

func TestCreate_BadTypeIs400(t *testing.T) {
	e := setup(t)
	body := e.rentBody(100)
	body["type"] = "tip"
	code, _ := call(t, e.app(e.f.ShowroomOwner.UserID), http.MethodPost, "/payment-requests", body)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestAcceptGetAndList(t *testing.T) {
	e := setup(t)
	shop := e.app(e.f.ShowroomOwner.UserID)
	brand := e.app(e.f.BrandOwner.UserID)

	_, out := call(t, shop, http.MethodPost, "/payment-requests", e.rentBody(5000))
	id := out["data"].(map[string]interface{})["id"].(string)

	code, out := call(t, brand, http.MethodPost, "/payment-requests/"+id+"/accept", nil)
	require.Equal(t, fiber.StatusOK, code, out)
	assert.Equal(t, "accepted", out["data"].(map[string]interface{})["status"])

	code, _ = call(t, e.app(e.f.Stranger.UserID), http.MethodGet, "/payment-requests/"+id, nil)
	assert.Equal(t, fiber.StatusForbidden, code)

	code, out = call(t, shop, http.MethodGet, "/payment-requests?side=showroom&account_id="+e.f.Showroom.ID.String()+"&status=accepted", nil)
	require.Equal(t, fiber.StatusOK, code)
	assert.Len(t, out["data"], 1)

	code, _ = call(t, shop, http.MethodGet, "/payment-requests?side=brand&account_id="+e.f.Brand.ID.String(), nil)
	assert.Equal(t, fiber.StatusForbidden, code)
}
