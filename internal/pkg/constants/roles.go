package constants

const (
	Admin  = "admin"
	Member = "member"
)

// ValidRoles is the set of allowed values for Users.role.
var ValidRoles = []string{Member, Admin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
