package auth

import "strings"

// BuildScope renders the user's roles and permissions as a space separated
// scope string: each role as ROLE_<name> followed by its permission names.
func BuildScope(user User) string {
	if len(user.Roles) == 0 {
		return ""
	}
	var entries []string
	for _, role := range user.Roles {
		entries = append(entries, RolePrefix+role.Name)
		for _, perm := range role.Permissions {
			entries = append(entries, perm.Name)
		}
	}
	return strings.Join(entries, " ")
}
