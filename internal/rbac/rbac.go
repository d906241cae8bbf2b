package rbac

import "github.com/college-admin/backend/internal/models"

// Permission constants
const (
	PermRecordAudit       = "record_audit"
	PermViewActivity      = "view_activity"
	PermManageApplication = "manage_application"
	PermManagePayments    = "manage_payments"
	PermScheduleInterview = "schedule_interview"
	PermViewOwnProfile    = "view_own_profile"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	models.RoleAdmin: {
		PermRecordAudit, PermViewActivity, PermManageApplication,
		PermManagePayments, PermScheduleInterview, PermViewOwnProfile,
	},
	models.RoleStaff: {
		PermViewActivity, PermScheduleInterview, PermViewOwnProfile,
		// Staff CANNOT: PermRecordAudit, PermManageApplication, PermManagePayments
	},
	models.RoleStudent: {
		PermViewOwnProfile,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// CanWrite reports whether role may change application records. Every
// write path also records activity, so the two permissions travel
// together.
func CanWrite(role string) bool {
	return HasPermission(role, PermManageApplication) && HasPermission(role, PermRecordAudit)
}
