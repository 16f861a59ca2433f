package common

// Account roles. A banned account keeps its row but loses API access.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
	RoleBanned    = "banned"
)

// IsStaff reports whether role may act on moderation queues.
func IsStaff(role string) bool {
	return role == RoleModerator || role == RoleAdmin
}
