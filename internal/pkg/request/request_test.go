package request

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"showroom-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grantBody struct {
	BrandID uuid.UUID `json:"brand_id" validate:"required"`
	Amount  int       `json:"amount" validate:"gt=0"`
}

func run(t *testing.T, h fiber.Handler, method, target, body string) string {
	t.Helper()
	app := fiber.New()
	app.Add(method, "/:id?", h)
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.String()
}

func TestUUIDParam(t *testing.T) {
	id := uuid.New()
	h := func(c *fiber.Ctx) error {
		got, err := UUIDParam(c, "id")
		if err != nil {
			return c.SendString(err.Error())
		}
		return c.SendString(got.String())
	}
	assert.Equal(t, id.String(), run(t, h, "GET", "/"+id.String(), ""))
	assert.Equal(t, "Invalid request: id is not a valid id", run(t, h, "GET", "/nope", ""))
}

func TestAccount(t *testing.T) {
	id := uuid.New()
	h := func(c *fiber.Ctx) error {
		side, acc, err := Account(c)
		if err != nil {
			return c.SendString(err.Error())
		}
		return c.SendString(string(side) + ":" + acc.String())
	}
	assert.Equal(t, "showroom:"+id.String(), run(t, h, "GET", "/?side=Showroom&account_id="+id.String(), ""))
	assert.True(t, strings.HasPrefix(run(t, h, "GET", "/?side=buyer&account_id="+id.String(), ""), "Invalid request"))
	assert.True(t, strings.HasPrefix(run(t, h, "GET", "/?side=brand", ""), "Invalid request"))
}

func TestBody(t *testing.T) {
	h := func(c *fiber.Ctx) error {
		var b grantBody
		if err := Body(c, &b); err != nil {
			return c.SendString(err.Error())
		}
		return c.SendString("ok")
	}
	assert.Equal(t, "ok", run(t, h, "POST", "/", `{"brand_id":"`+uuid.NewString()+`","amount":2}`))
	assert.True(t, strings.HasPrefix(run(t, h, "POST", "/", `{"brand_id":"`+uuid.NewString()+`","amount":0}`), "Invalid request"))
	assert.True(t, strings.HasPrefix(run(t, h, "POST", "/", ``), "Invalid request"))
	assert.True(t, strings.HasPrefix(run(t, h, "POST", "/", `{"brand_id":"x"}`), "Invalid request"))
}

func TestActor_NoSession(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, err := Actor(c)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		return c.SendStatus(204)
	})
	_, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
}
