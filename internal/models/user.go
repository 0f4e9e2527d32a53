package models

// UserRole represents the roles carried in access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleStaff      UserRole = "STAFF"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

// IsAdmin reports whether the role may act on resources owned by other users.
func (r UserRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
