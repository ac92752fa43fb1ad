package actor

import (
	"strings"

	"github.com/trezcool/gradebook/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	AllRoles     = append(append([]string{}, AdminRoles...), TeacherRoles...)

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,
	}

	// short names accepted from identity providers
	roleAliases = map[string]string{
		"owner":     RoleAdminOwner,
		"principal": RoleAdminPrincipal,
		"admin":     RoleAdmin,
		"teacher":   RoleTeacher,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// ParseRole normalizes a role name; unknown names are returned cleaned but unchanged.
func ParseRole(s string) string {
	s = core.CleanString(s, true /* lower */)
	if role, ok := roleAliases[s]; ok {
		return role
	}
	return s
}

// Actor is the authenticated user an operation is performed on behalf of.
// The engine never authenticates; it only authorizes on Role.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

func New(id, role string) Actor {
	return Actor{ID: core.CleanString(id), Role: ParseRole(role)}
}

func (a Actor) IsAdmin() bool {
	return strings.HasPrefix(a.Role, RoleAdmin)
}

func (a Actor) IsTeacher() bool {
	return strings.HasPrefix(a.Role, RoleTeacher)
}

func (a Actor) IsPrincipal() bool {
	return a.Role == RoleAdminPrincipal || a.Role == RoleAdminOwner
}

// IsReviewer reports whether the actor may approve, reject, release and override grades.
func (a Actor) IsReviewer() bool {
	return a.IsAdmin()
}

func (a Actor) IsZero() bool {
	return a.ID == "" && a.Role == ""
}
