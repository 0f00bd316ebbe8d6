package user

import (
	"sort"
	"strings"
)

// Roles, as issued by the Masomo API.
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// Profile is what the front end knows about the signed in user: the claims of its token.
type Profile struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	IsAdmin   bool     `json:"is_admin"`
	IsTeacher bool     `json:"is_teacher"`
	IsStudent bool     `json:"is_student"`
}

func (p Profile) IsZero() bool { return p.ID == "" && p.Username == "" && p.Email == "" }

// DisplayName returns the username, falling back to the email then the ID.
func (p Profile) DisplayName() string {
	switch {
	case p.Username != "":
		return p.Username
	case p.Email != "":
		return p.Email
	}
	return p.ID
}

func (p Profile) RoleStartsWith(prefix string) bool {
	for _, role := range p.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the profile holds one of `roles`.
// Admin roles are matched by prefix: "admin:" is held by every admin.
// An empty `roles` always matches.
func (p Profile) HasAnyRole(roles ...string) bool {
	if len(roles) == 0 {
		return true
	}
	held := append([]string(nil), p.Roles...)
	sort.Strings(held)
	for _, role := range roles {
		switch role {
		case RoleAdmin:
			if p.IsAdmin || p.RoleStartsWith(RoleAdmin) {
				return true
			}
			continue
		case RoleTeacher:
			if p.IsTeacher {
				return true
			}
		case RoleStudent:
			if p.IsStudent {
				return true
			}
		}
		if i := sort.SearchStrings(held, role); i < len(held) && held[i] == role {
			return true
		}
	}
	return false
}
