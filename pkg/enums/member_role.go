package enums

import "fmt"

// MemberRole controls kiosk privileges. Cashiers and admins can settle
// member-funded sales without the member's PIN and refund any
// transaction.
type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleCashier MemberRole = "cashier"
	MemberRoleMember  MemberRole = "member"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleCashier,
	MemberRoleMember,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role carries cashier or admin privileges.
func (m MemberRole) IsStaff() bool {
	return m == MemberRoleAdmin || m == MemberRoleCashier
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
