package enums

import (
	"fmt"
	"strings"
)

// Role is the account role the backend assigns to an identity.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

var validRoles = []Role{
	RoleCustomer,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role, ignoring case.
func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Is compares roles case-insensitively; the backend has been seen sending "admin" and "ADMIN".
func (r Role) Is(other Role) bool {
	return strings.EqualFold(strings.TrimSpace(string(r)), string(other))
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if strings.EqualFold(strings.TrimSpace(value), string(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
