package middleware

import (
	"showroom-backend/internal/pkg/constants"
	"showroom-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// AuthorizePermission gates a route on the session role. Brand and showroom
// ownership is checked later by the services; this only separates admins
// (credit grants) from members.
func AuthorizePermission(permission string) fiber.Handler {
	if _, ok := constants.PermissionRoles[permission]; !ok {
		log.Error().Str("permission", permission).Msg("route guarded by unknown permission")
	}
	return func(c *fiber.Ctx) error {
		if GetUser(c) == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		role := CurrentRole(c)
		switch {
		case role == "":
			return response.Error(c, "Authorization error", fiber.StatusInternalServerError, nil)
		case len(constants.PermissionRoles[permission]) == 0:
			return response.Error(c, "Permission configuration error", fiber.StatusInternalServerError, nil)
		case !constants.AllowedRole(permission, role):
			log.Warn().
				Str("trace_id", GetTraceID(c)).
				Str("permission", permission).
				Str("role", role).
				Msg("permission denied")
			return response.Error(c, "User is Forbidden from performing this action", fiber.StatusForbidden, nil)
		}
		return c.Next()
	}
}

// CurrentRole is the session user's role, "" when absent.
func CurrentRole(c *fiber.Ctx) string {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return ""
	}
	r, _ := m["role"].(string)
	return r
}
