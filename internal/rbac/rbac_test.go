package rbac

import (
	"testing"

	"github.com/college-admin/backend/internal/models"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role string
		perm string
		want bool
	}{
		{models.RoleAdmin, PermRecordAudit, true},
		{models.RoleAdmin, PermManagePayments, true},
		{models.RoleStaff, PermViewActivity, true},
		{models.RoleStaff, PermRecordAudit, false},
		{models.RoleStaff, PermManageApplication, false},
		{models.RoleStudent, PermViewActivity, false},
		{"Unknown", PermViewOwnProfile, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestCanWrite(t *testing.T) {
	for role, want := range map[string]bool{
		models.RoleAdmin:   true,
		models.RoleStaff:   false,
		models.RoleStudent: false,
		"":                 false,
	} {
		if got := CanWrite(role); got != want {
			t.Errorf("CanWrite(%q) = %v, want %v", role, got, want)
		}
	}
}
