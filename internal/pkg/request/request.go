// Package request parses path params, account queries and JSON bodies for handlers.
// Every error it returns starts with "Invalid request" so response.FromError maps it to 400.
package request

import (
	"errors"
	"fmt"
	"strings"

	"showroom-backend/internal/domain"
	"showroom-backend/internal/middleware"
	"showroom-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrNoActor is returned when a handler behind RequireAuth still has no user id.
var ErrNoActor = fmt.Errorf("%w: no session user", domain.ErrUnauthorized)

// Actor returns the session user's id.
func Actor(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return uuid.Nil, ErrNoActor
	}
	return id, nil
}

// UUIDParam parses the named path parameter.
func UUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Params(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("Invalid request: %s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("Invalid request: %s is not a valid id", name)
	}
	return id, nil
}

// Account reads ?side=brand|showroom&account_id=<uuid>.
func Account(c *fiber.Ctx) (domain.Side, uuid.UUID, error) {
	side := domain.Side(strings.ToLower(c.Query("side")))
	if !side.Valid() {
		return "", uuid.Nil, errors.New("Invalid request: side must be brand or showroom")
	}
	id, err := uuid.Parse(c.Query("account_id"))
	if err != nil {
		return "", uuid.Nil, errors.New("Invalid request: account_id is not a valid id")
	}
	return side, id, nil
}

// Body decodes the JSON body into dst and runs its validate tags.
func Body(c *fiber.Ctx, dst interface{}) error {
	if len(c.Body()) == 0 {
		return errors.New("Invalid request: body is required")
	}
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("Invalid request body: %v", err)
	}
	return validation.Struct(dst)
}
