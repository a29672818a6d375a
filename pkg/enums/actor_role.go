package enums

import "fmt"

// ActorRole is the platform-level capability set attached to an authenticated user.
type ActorRole string

const (
	ActorRoleClient     ActorRole = "client"
	ActorRoleReader     ActorRole = "reader"
	ActorRoleMonitor    ActorRole = "monitor"
	ActorRoleAdmin      ActorRole = "admin"
	ActorRoleSuperadmin ActorRole = "superadmin"
)

var validActorRoles = []ActorRole{
	ActorRoleClient,
	ActorRoleReader,
	ActorRoleMonitor,
	ActorRoleAdmin,
	ActorRoleSuperadmin,
}

// String implements fmt.Stringer.
func (a ActorRole) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActorRole.
func (a ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role can see every order regardless of relationship.
func (a ActorRole) IsStaff() bool {
	return a == ActorRoleMonitor || a == ActorRoleAdmin || a == ActorRoleSuperadmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
