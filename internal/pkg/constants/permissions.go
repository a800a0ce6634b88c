package constants

const (
	ViewData     = "view_data"
	Partner      = "partner"
	GrantCredits = "grant_credits"
)

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:     {Member, Admin},
	Partner:      {Member, Admin},
	GrantCredits: {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
