package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "principal alias", in: "Principal", want: RoleAdminPrincipal},
		{name: "owner alias", in: " owner ", want: RoleAdminOwner},
		{name: "admin alias", in: "admin", want: RoleAdmin},
		{name: "teacher alias", in: "TEACHER", want: RoleTeacher},
		{name: "full role", in: "admin:principal", want: RoleAdminPrincipal},
		{name: "unknown", in: "Student", want: "student"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.in))
		})
	}
}

func TestActor_roles(t *testing.T) {
	tests := []struct {
		name                                string
		actor                               Actor
		reviewer, principal, teacher, admin bool
	}{
		{name: "principal", actor: New("p1", "principal"), reviewer: true, principal: true, admin: true},
		{name: "owner", actor: New("o1", "owner"), reviewer: true, principal: true, admin: true},
		{name: "admin", actor: New("a1", "admin"), reviewer: true, admin: true},
		{name: "teacher", actor: New("t1", "teacher"), teacher: true},
		{name: "unknown", actor: New("s1", "student")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reviewer, tt.actor.IsReviewer())
			assert.Equal(t, tt.principal, tt.actor.IsPrincipal())
			assert.Equal(t, tt.teacher, tt.actor.IsTeacher())
			assert.Equal(t, tt.admin, tt.actor.IsAdmin())
		})
	}
}

func TestRolePriority(t *testing.T) {
	assert.Greater(t, RolePriority(RoleAdminOwner), RolePriority(RoleAdminPrincipal))
	assert.Greater(t, RolePriority(RoleAdminPrincipal), RolePriority(RoleAdmin))
	assert.Greater(t, RolePriority(RoleAdmin), RolePriority(RoleTeacher))
	assert.Zero(t, RolePriority("student:"))
}
